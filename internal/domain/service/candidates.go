package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// Engagement points per interaction kind.
const (
	EngagementComment  = 1
	EngagementReaction = 1
	EngagementDM       = 5
	EngagementReply    = 2
)

// CandidateTracker keeps the candidate profile of a sender up to date as a
// side effect of every interaction.
type CandidateTracker struct {
	repo outbound.CandidateRepository
}

func NewCandidateTracker(repo outbound.CandidateRepository) *CandidateTracker {
	return &CandidateTracker{repo: repo}
}

// RecordInbound adds the inbound item to the sender's profile.
func (t *CandidateTracker) RecordInbound(ctx context.Context, ev model.InboundEvent, c model.Classification) (model.Candidate, error) {
	points := EngagementComment
	conv := model.ConversationComment
	message := ev.Text
	switch ev.Kind {
	case model.EventKindDirectMessage:
		points, conv = EngagementDM, model.ConversationDM
	case model.EventKindReaction:
		points, conv = EngagementReaction, model.ConversationReaction
		message = reactionText(ev.ReactionType)
	}

	return t.touch(ctx, ev.SenderHandle, func(cand model.Candidate) model.Candidate {
		cand = cand.AddEngagement(points).RecordConversation(message, conv, c.Sentiment, ev.OccurredAt)
		return cand.MergeInterests(c.Topics...).WithDemographic(c.Demographic)
	})
}

// RecordReply logs a delivered response on the recipient's profile.
func (t *CandidateTracker) RecordReply(ctx context.Context, handle, reply string) (model.Candidate, error) {
	return t.touch(ctx, handle, func(cand model.Candidate) model.Candidate {
		return cand.AddEngagement(EngagementReply).
			RecordConversation(reply, model.ConversationReply, "", time.Now())
	})
}

func (t *CandidateTracker) touch(ctx context.Context, handle string, apply func(model.Candidate) model.Candidate) (model.Candidate, error) {
	h := model.NormalizeHandle(handle)
	if h == "" {
		return model.Candidate{}, fmt.Errorf("candidate handle is empty")
	}
	existing, err := t.repo.GetByHandle(ctx, h)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("get candidate %s: %w", h, err)
	}
	cand := model.NewCandidate(h)
	if existing != nil {
		cand = *existing
	}
	cand = apply(cand)
	if err := t.repo.Upsert(ctx, cand); err != nil {
		return model.Candidate{}, fmt.Errorf("upsert candidate %s: %w", h, err)
	}
	return cand, nil
}

func reactionText(reactionType string) string {
	if reactionType == "" {
		reactionType = "like"
	}
	return "Reaction: " + reactionType
}
