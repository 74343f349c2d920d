package model

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	// SentimentAny is only valid as a template match rule.
	SentimentAny Sentiment = "any"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Demographic holds hints pulled out of free text. Zero values mean unknown.
type Demographic struct {
	Age             int      `json:"age,omitempty"`
	Location        string   `json:"location,omitempty"`
	Interests       []string `json:"interests,omitempty"`
	ExperienceYears int      `json:"experience_years,omitempty"`
}

// SuggestedReply is the classifier's canned answer and routing hint.
type SuggestedReply struct {
	Message        string   `json:"message"`
	ShouldMoveToDM bool     `json:"should_move_to_dm"`
	Priority       Priority `json:"priority"`
}

// Classification is the result of scoring a text. It is not stored on its
// own; the interesting parts are copied onto the Interaction.
type Classification struct {
	Sentiment   Sentiment      `json:"sentiment"`
	JobInterest bool           `json:"job_interest"`
	JobKeywords []string       `json:"job_keywords"`
	Topics      []string       `json:"topics"`
	Demographic Demographic    `json:"demographic"`
	Suggested   SuggestedReply `json:"suggested"`
}

// HasTopic reports whether topic was detected.
func (c Classification) HasTopic(topic string) bool {
	for _, t := range c.Topics {
		if t == topic {
			return true
		}
	}
	return false
}
