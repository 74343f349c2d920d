package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/service"
)

func TestCandidateTracker_RecordInbound(t *testing.T) {
	repo := newMockCandidateRepo()
	tracker := service.NewCandidateTracker(repo)
	ctx := context.Background()

	comment := model.NewInboundEvent(model.EventKindComment, "c-1", "@Alice", "Busco empleo en Medellín", time.Now())
	_, err := tracker.RecordInbound(ctx, comment, model.Classification{
		Sentiment:   model.SentimentPositive,
		Topics:      []string{"job"},
		Demographic: model.Demographic{Location: "Medellín"},
	})
	if err != nil {
		t.Fatalf("RecordInbound comment: %v", err)
	}

	dm := model.NewInboundEvent(model.EventKindDirectMessage, "m-1", "alice", "Hola", time.Now())
	if _, err := tracker.RecordInbound(ctx, dm, model.Classification{Topics: []string{"job", "benefits"}}); err != nil {
		t.Fatalf("RecordInbound dm: %v", err)
	}

	reaction := model.NewInboundEvent(model.EventKindReaction, "", "alice", "", time.Now())
	if _, err := tracker.RecordInbound(ctx, reaction, model.Classification{}); err != nil {
		t.Fatalf("RecordInbound reaction: %v", err)
	}

	cand, ok := repo.get("alice")
	if !ok {
		t.Fatal("expected candidate alice to be stored")
	}
	wantScore := service.EngagementComment + service.EngagementDM + service.EngagementReaction
	if cand.EngagementScore != wantScore {
		t.Errorf("expected score %d, got %d", wantScore, cand.EngagementScore)
	}
	if len(cand.Conversations) != 3 {
		t.Fatalf("expected 3 conversation entries, got %d", len(cand.Conversations))
	}
	if cand.Conversations[2].Message != "Reaction: like" || cand.Conversations[2].Type != model.ConversationReaction {
		t.Errorf("unexpected reaction entry %+v", cand.Conversations[2])
	}
	if len(cand.InterestAreas) != 2 || cand.InterestAreas[0] != "job" || cand.InterestAreas[1] != "benefits" {
		t.Errorf("unexpected interest areas %v", cand.InterestAreas)
	}
	if cand.Location != "Medellín" {
		t.Errorf("expected location Medellín, got %q", cand.Location)
	}
}

func TestCandidateTracker_RecordReply(t *testing.T) {
	repo := newMockCandidateRepo()
	tracker := service.NewCandidateTracker(repo)

	cand, err := tracker.RecordReply(context.Background(), "Bob", "¡Gracias por comentar!")
	if err != nil {
		t.Fatalf("RecordReply: %v", err)
	}
	if cand.Handle != "bob" || cand.EngagementScore != service.EngagementReply {
		t.Errorf("unexpected candidate %+v", cand)
	}
	if cand.Conversations[0].Type != model.ConversationReply {
		t.Errorf("expected reply entry, got %s", cand.Conversations[0].Type)
	}
}

func TestCandidateTracker_EmptyHandle(t *testing.T) {
	tracker := service.NewCandidateTracker(newMockCandidateRepo())
	if _, err := tracker.RecordReply(context.Background(), " @ ", "hola"); err == nil {
		t.Error("expected error for empty handle")
	}
}

func TestCandidateTracker_ScoreCapped(t *testing.T) {
	repo := newMockCandidateRepo()
	tracker := service.NewCandidateTracker(repo)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		ev := model.NewInboundEvent(model.EventKindDirectMessage, "", "carol", "hola", time.Now())
		if _, err := tracker.RecordInbound(ctx, ev, model.Classification{}); err != nil {
			t.Fatalf("RecordInbound: %v", err)
		}
	}
	cand, _ := repo.get("carol")
	if cand.EngagementScore != model.MaxEngagementScore {
		t.Errorf("expected score capped at %d, got %d", model.MaxEngagementScore, cand.EngagementScore)
	}
}
