package service

import (
	"strings"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/pkg/textnorm"
)

// ScoreTemplate scores tmpl against a classified message. The second result
// is false when the template's trigger rules reject the message.
func ScoreTemplate(tmpl model.ReplyTemplate, c model.Classification, text, settingsDefaultID string) (int, bool) {
	rules := tmpl.Rules
	trigger := rules.Trigger
	if trigger == "" {
		trigger = model.TriggerAlways
	}
	folded := textnorm.Fold(text)

	matched := 0
	for _, k := range rules.Keywords {
		if k = textnorm.Fold(k); k != "" && strings.Contains(folded, k) {
			matched++
		}
	}
	if trigger.RequiresKeyword() && len(rules.Keywords) > 0 && matched == 0 {
		return 0, false
	}

	wantSentiment := rules.Sentiment != "" && rules.Sentiment != model.SentimentAny
	if trigger.RequiresSentiment() && wantSentiment && rules.Sentiment != c.Sentiment {
		return 0, false
	}

	score := 0
	switch {
	case matched > 0:
		score += 6 + matched*2
	case len(rules.Keywords) == 0:
		score += 2
	}
	if wantSentiment && rules.Sentiment == c.Sentiment {
		score += 6
	}
	score += 2 * jobKeywordOverlap(rules.Keywords, c.JobKeywords)

	if c.JobInterest && tmpl.Category == model.CategoryJobInterest {
		score += 8
	}
	if c.Sentiment == model.SentimentPositive && tmpl.Category == model.CategoryThanks {
		score += 3
	}
	if c.Sentiment == model.SentimentNegative && tmpl.Category == model.CategoryInquiry {
		score += 3
	}
	if tmpl.Category == model.CategoryInquiry {
		if c.Suggested.ShouldMoveToDM {
			score += 4
		}
		if containsQuestion(text) {
			score += 2
		}
	}
	if tmpl.Category == model.CategoryCustom && matched > 0 {
		score += 2
	}
	if tmpl.Category == model.CategoryGeneral {
		score += 1
	}
	if settingsDefaultID != "" && tmpl.ID == settingsDefaultID {
		score += 2
	}
	if tmpl.IsDefault {
		score += 1
	}
	if trigger == model.TriggerAlways {
		score += 1
	}
	return score, true
}

// SelectTemplate returns the highest scoring template that is not rejected.
// Ties go to the template that comes first in templates.
func SelectTemplate(templates []model.ReplyTemplate, c model.Classification, text, settingsDefaultID string) (model.ReplyTemplate, bool) {
	best := -1
	bestScore := 0
	for i, tmpl := range templates {
		score, ok := ScoreTemplate(tmpl, c, text, settingsDefaultID)
		if !ok {
			continue
		}
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return model.ReplyTemplate{}, false
	}
	return templates[best], true
}

// fallbackTemplate picks a template when every candidate was rejected: the
// settings default, then any flagged default, then the first one.
func fallbackTemplate(templates []model.ReplyTemplate, settingsDefaultID string) (model.ReplyTemplate, bool) {
	if len(templates) == 0 {
		return model.ReplyTemplate{}, false
	}
	if settingsDefaultID != "" {
		for _, t := range templates {
			if t.ID == settingsDefaultID {
				return t, true
			}
		}
	}
	for _, t := range templates {
		if t.IsDefault {
			return t, true
		}
	}
	return templates[0], true
}

func jobKeywordOverlap(templateKeywords, jobKeywords []string) int {
	if len(templateKeywords) == 0 || len(jobKeywords) == 0 {
		return 0
	}
	set := make(map[string]bool, len(templateKeywords))
	for _, k := range templateKeywords {
		set[textnorm.Fold(k)] = true
	}
	n := 0
	for _, k := range jobKeywords {
		if set[textnorm.Fold(k)] {
			n++
		}
	}
	return n
}

func containsQuestion(text string) bool {
	return strings.ContainsAny(text, "?¿")
}
