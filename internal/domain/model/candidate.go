package model

import (
	"strings"
	"time"
)

type CandidateStatus string

const (
	CandidateNew         CandidateStatus = "new"
	CandidateContacted   CandidateStatus = "contacted"
	CandidateInterviewed CandidateStatus = "interviewed"
	CandidateHired       CandidateStatus = "hired"
	CandidateRejected    CandidateStatus = "rejected"
)

type ConversationType string

const (
	ConversationComment  ConversationType = "comment"
	ConversationDM       ConversationType = "dm"
	ConversationReply    ConversationType = "reply"
	ConversationReaction ConversationType = "reaction"
)

const MaxEngagementScore = 100

type ConversationEntry struct {
	Message   string           `json:"message"`
	Type      ConversationType `json:"type"`
	Sentiment Sentiment        `json:"sentiment,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Candidate is the per-handle profile touched as a side effect of every
// interaction. Handles are stored lower-cased.
type Candidate struct {
	Handle          string              `json:"handle"`
	Name            string              `json:"name"`
	EngagementScore int                 `json:"engagement_score"`
	InterestAreas   []string            `json:"interest_areas"`
	Conversations   []ConversationEntry `json:"conversations"`
	Location        string              `json:"location,omitempty"`
	Age             int                 `json:"age,omitempty"`
	ExperienceYears int                 `json:"experience_years,omitempty"`
	Status          CandidateStatus     `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// NormalizeHandle lower-cases a handle and drops a leading '@'.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

func NewCandidate(handle string) Candidate {
	now := time.Now().UTC()
	h := NormalizeHandle(handle)
	return Candidate{
		Handle:        h,
		Name:          h,
		InterestAreas: []string{},
		Conversations: []ConversationEntry{},
		Status:        CandidateNew,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AddEngagement raises the score by points, capped at MaxEngagementScore.
func (c Candidate) AddEngagement(points int) Candidate {
	c.EngagementScore += points
	if c.EngagementScore > MaxEngagementScore {
		c.EngagementScore = MaxEngagementScore
	}
	if c.EngagementScore < 0 {
		c.EngagementScore = 0
	}
	c.UpdatedAt = time.Now().UTC()
	return c
}

// RecordConversation appends an entry to the conversation log.
func (c Candidate) RecordConversation(message string, kind ConversationType, sentiment Sentiment, at time.Time) Candidate {
	log := make([]ConversationEntry, len(c.Conversations), len(c.Conversations)+1)
	copy(log, c.Conversations)
	c.Conversations = append(log, ConversationEntry{
		Message:   message,
		Type:      kind,
		Sentiment: sentiment,
		Timestamp: at.UTC(),
	})
	c.UpdatedAt = time.Now().UTC()
	return c
}

// MergeInterests adds areas not already present, keeping first-seen order.
func (c Candidate) MergeInterests(areas ...string) Candidate {
	seen := make(map[string]bool, len(c.InterestAreas))
	merged := make([]string, 0, len(c.InterestAreas)+len(areas))
	for _, a := range c.InterestAreas {
		seen[a] = true
		merged = append(merged, a)
	}
	for _, a := range areas {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		merged = append(merged, a)
	}
	c.InterestAreas = merged
	return c
}

// WithDemographic fills in hints that are still unknown on the profile.
func (c Candidate) WithDemographic(d Demographic) Candidate {
	if c.Location == "" {
		c.Location = d.Location
	}
	if c.Age == 0 {
		c.Age = d.Age
	}
	if c.ExperienceYears == 0 {
		c.ExperienceYears = d.ExperienceYears
	}
	return c.MergeInterests(d.Interests...)
}
