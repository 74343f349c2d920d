// Package keyword implements the keyword-weighting classifier: fixed word
// lists, a handful of regular expressions and a reply decision table.
package keyword

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
	"github.com/jonny/engagebot/pkg/textnorm"
)

// MaxTextBytes is how much of a message is classified. Platform comments are
// far shorter; anything past it is ignored.
const MaxTextBytes = 8 << 10

var (
	agePattern        = regexp.MustCompile(`\b(\d{2})\s*anos?\b`)
	experiencePattern = regexp.MustCompile(`\b(\d+)\s*anos?\s*(de\s*)?experiencia`)
)

// entry keeps a vocabulary word in display form and folded form.
type entry struct {
	display string
	folded  string
}

func foldAll(words []string) []entry {
	out := make([]entry, len(words))
	for i, w := range words {
		out[i] = entry{display: w, folded: textnorm.Fold(w)}
	}
	return out
}

type foldedTopic struct {
	name     string
	keywords []entry
}

// Classifier implements outbound.Classifier. All state is built once in
// NewClassifier and only read afterwards.
type Classifier struct {
	positive []entry
	negative []entry
	jobWords []entry
	interest []entry
	patterns []*regexp.Regexp
	topics   []foldedTopic
	cities   []entry
	areas    []entry
	salary   []entry
	benefits []entry
}

var _ outbound.Classifier = (*Classifier)(nil)

func NewClassifier() *Classifier {
	c := &Classifier{
		positive: foldAll(positiveWords),
		negative: foldAll(negativeWords),
		jobWords: foldAll(jobKeywords),
		interest: foldAll(interestPhrases),
		cities:   foldAll(cities),
		areas:    foldAll(professionalAreas),
		salary:   foldAll(salaryWords),
		benefits: foldAll(benefitsWords),
	}
	for _, p := range interestPatterns {
		c.patterns = append(c.patterns, regexp.MustCompile(p))
	}
	for _, t := range topics {
		c.topics = append(c.topics, foldedTopic{name: t.name, keywords: foldAll(t.keywords)})
	}
	return c
}

// Classify scores text. Empty text yields a neutral result with the default
// suggestion.
func (c *Classifier) Classify(text string) model.Classification {
	folded := textnorm.Fold(textnorm.Truncate(text, MaxTextBytes))

	sentiment := c.sentiment(folded)
	jobInterest := c.jobInterest(folded)
	result := model.Classification{
		Sentiment:   sentiment,
		JobInterest: jobInterest,
		JobKeywords: c.jobKeywords(folded),
		Topics:      c.detectTopics(folded),
		Demographic: c.demographic(folded),
	}
	result.Suggested = c.suggest(folded, sentiment, jobInterest)
	return result
}

// CannedReplies returns every suggested-reply text.
func (c *Classifier) CannedReplies() []string {
	return []string{ReplyJobInterest, ReplySalary, ReplyBenefits, ReplyPositive, ReplyNegative, ReplyDefault}
}

func (c *Classifier) sentiment(folded string) model.Sentiment {
	score := countAll(folded, c.positive) - countAll(folded, c.negative)
	switch {
	case score > 0:
		return model.SentimentPositive
	case score < 0:
		return model.SentimentNegative
	default:
		return model.SentimentNeutral
	}
}

func (c *Classifier) jobInterest(folded string) bool {
	if folded == "" {
		return false
	}
	for _, e := range c.interest {
		if strings.Contains(folded, e.folded) {
			return true
		}
	}
	for _, p := range c.patterns {
		if p.MatchString(folded) {
			return true
		}
	}
	return false
}

func (c *Classifier) jobKeywords(folded string) []string {
	found := []string{}
	for _, e := range c.jobWords {
		if strings.Contains(folded, e.folded) {
			found = append(found, e.display)
		}
	}
	return found
}

func (c *Classifier) detectTopics(folded string) []string {
	found := []string{}
	for _, t := range c.topics {
		if containsAny(folded, t.keywords) {
			found = append(found, t.name)
		}
	}
	return found
}

func (c *Classifier) demographic(folded string) model.Demographic {
	var d model.Demographic

	for _, m := range agePattern.FindAllStringSubmatchIndex(folded, -1) {
		rest := strings.TrimSpace(folded[m[1]:])
		rest = strings.TrimPrefix(rest, "de ")
		if strings.HasPrefix(rest, "experiencia") {
			continue
		}
		if age, err := strconv.Atoi(folded[m[2]:m[3]]); err == nil {
			d.Age = age
			break
		}
	}

	for _, e := range c.cities {
		if strings.Contains(folded, e.folded) {
			d.Location = e.display
			break
		}
	}

	for _, e := range c.areas {
		if strings.Contains(folded, e.folded) {
			d.Interests = append(d.Interests, e.display)
		}
	}

	if m := experiencePattern.FindStringSubmatch(folded); m != nil {
		if years, err := strconv.Atoi(m[1]); err == nil {
			d.ExperienceYears = years
		}
	}
	return d
}

// suggest is the reply decision table. The first matching row wins.
func (c *Classifier) suggest(folded string, sentiment model.Sentiment, jobInterest bool) model.SuggestedReply {
	switch {
	case jobInterest && sentiment == model.SentimentPositive:
		return model.SuggestedReply{Message: ReplyJobInterest, ShouldMoveToDM: false, Priority: model.PriorityHigh}
	case containsAny(folded, c.salary):
		return model.SuggestedReply{Message: ReplySalary, ShouldMoveToDM: true, Priority: model.PriorityMedium}
	case containsAny(folded, c.benefits):
		return model.SuggestedReply{Message: ReplyBenefits, ShouldMoveToDM: true, Priority: model.PriorityMedium}
	case sentiment == model.SentimentPositive:
		return model.SuggestedReply{Message: ReplyPositive, ShouldMoveToDM: false, Priority: model.PriorityLow}
	case sentiment == model.SentimentNegative:
		return model.SuggestedReply{Message: ReplyNegative, ShouldMoveToDM: true, Priority: model.PriorityHigh}
	default:
		return model.SuggestedReply{Message: ReplyDefault, ShouldMoveToDM: false, Priority: model.PriorityMedium}
	}
}

func countAll(folded string, words []entry) int {
	n := 0
	for _, e := range words {
		n += textnorm.CountWord(folded, e.folded)
	}
	return n
}

func containsAny(folded string, words []entry) bool {
	for _, e := range words {
		if strings.Contains(folded, e.folded) {
			return true
		}
	}
	return false
}
