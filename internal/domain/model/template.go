package model

import (
	"strings"
	"time"
)

type TemplateCategory string

const (
	CategoryGeneral     TemplateCategory = "general"
	CategoryJobInterest TemplateCategory = "job_interest"
	CategoryThanks      TemplateCategory = "thanks"
	CategoryInquiry     TemplateCategory = "inquiry"
	CategoryCustom      TemplateCategory = "custom"
)

// Valid reports whether c is a known category.
func (c TemplateCategory) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryJobInterest, CategoryThanks, CategoryInquiry, CategoryCustom:
		return true
	}
	return false
}

type TriggerMode string

const (
	TriggerAlways    TriggerMode = "always"
	TriggerKeyword   TriggerMode = "keyword"
	TriggerSentiment TriggerMode = "sentiment"
	TriggerBoth      TriggerMode = "both"
)

func (m TriggerMode) Valid() bool {
	switch m {
	case TriggerAlways, TriggerKeyword, TriggerSentiment, TriggerBoth:
		return true
	}
	return false
}

// RequiresKeyword reports whether at least one template keyword must appear.
func (m TriggerMode) RequiresKeyword() bool {
	return m == TriggerKeyword || m == TriggerBoth
}

// RequiresSentiment reports whether the template sentiment must match.
func (m TriggerMode) RequiresSentiment() bool {
	return m == TriggerSentiment || m == TriggerBoth
}

type MatchRules struct {
	Keywords  []string    `json:"keywords" yaml:"keywords"`
	Sentiment Sentiment   `json:"sentiment" yaml:"sentiment"`
	Trigger   TriggerMode `json:"trigger" yaml:"trigger"`
}

type ReplyTemplate struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Body       string           `json:"body"`
	Category   TemplateCategory `json:"category"`
	IsActive   bool             `json:"is_active"`
	IsDefault  bool             `json:"is_default"`
	Rules      MatchRules       `json:"rules"`
	UsageCount int              `json:"usage_count"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// NewReplyTemplate creates an active, non-default template that always
// triggers for any sentiment.
func NewReplyTemplate(name, body string, category TemplateCategory) ReplyTemplate {
	now := time.Now().UTC()
	if !category.Valid() {
		category = CategoryGeneral
	}
	return ReplyTemplate{
		ID:       generateID(),
		Name:     name,
		Body:     body,
		Category: category,
		IsActive: true,
		Rules: MatchRules{
			Keywords:  []string{},
			Sentiment: SentimentAny,
			Trigger:   TriggerAlways,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithRules returns a copy with normalized match rules.
func (t ReplyTemplate) WithRules(rules MatchRules) ReplyTemplate {
	keywords := make([]string, 0, len(rules.Keywords))
	for _, k := range rules.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	rules.Keywords = keywords
	if rules.Sentiment == "" {
		rules.Sentiment = SentimentAny
	}
	if !rules.Trigger.Valid() {
		rules.Trigger = TriggerAlways
	}
	t.Rules = rules
	t.UpdatedAt = time.Now().UTC()
	return t
}

func (t ReplyTemplate) WithActive(active bool) ReplyTemplate {
	t.IsActive = active
	t.UpdatedAt = time.Now().UTC()
	return t
}

func (t ReplyTemplate) WithDefault(isDefault bool) ReplyTemplate {
	t.IsDefault = isDefault
	t.UpdatedAt = time.Now().UTC()
	return t
}
