package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonny/engagebot/internal/adapter/outbound/nlp/keyword"
	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/inbound"
	"github.com/jonny/engagebot/internal/domain/service"
)

func generalTemplate(keywords ...string) model.ReplyTemplate {
	t := model.NewReplyTemplate("General", "¡Hola @{username}! Gracias por escribirnos.", model.CategoryGeneral)
	return t.WithRules(model.MatchRules{Keywords: keywords, Trigger: model.TriggerKeyword, Sentiment: model.SentimentAny})
}

func jobTemplate(keywords ...string) model.ReplyTemplate {
	t := model.NewReplyTemplate("Vacantes", "@{username} ¡Qué bueno que te interesa! Revisa los requisitos en nuestro perfil.", model.CategoryJobInterest)
	return t.WithRules(model.MatchRules{Keywords: keywords, Trigger: model.TriggerKeyword, Sentiment: model.SentimentAny})
}

func commentEvent(externalID, handle, text string) model.InboundEvent {
	return model.NewInboundEvent(model.EventKindComment, externalID, handle, text, time.Now()).
		WithSender("1784"+handle).
		WithContent("media-1", model.SourcePost).
		WithDelivery("delivery-1", true)
}

func TestEngine_JobInterestPublicReply(t *testing.T) {
	general := generalTemplate("vacante")
	job := jobTemplate("vacante")
	f := newFixture(keyword.NewClassifier(), []model.ReplyTemplate{general, job})
	ctx := context.Background()

	ev := commentEvent("17890000000000001", "alice", "Me interesa la vacante, gracias!")
	out, err := f.engine.ReceiveEvent(ctx, ev)
	if err != nil {
		t.Fatalf("ReceiveEvent: %v", err)
	}
	if out.Status != inbound.OutcomeReplied {
		t.Fatalf("expected replied, got %s (%s)", out.Status, out.Reason)
	}

	inter := out.Interaction
	if !inter.Replied || inter.MovedToDM {
		t.Errorf("expected replied public interaction, got replied=%v movedToDM=%v", inter.Replied, inter.MovedToDM)
	}
	if inter.Sentiment != model.SentimentPositive {
		t.Errorf("expected positive sentiment, got %s", inter.Sentiment)
	}
	if !inter.Metadata.JobInterest {
		t.Error("expected job interest")
	}
	if inter.Metadata.TemplateID != job.ID {
		t.Errorf("expected job template %s, got %s", job.ID, inter.Metadata.TemplateID)
	}
	if !strings.Contains(inter.ReplyMessage, "@alice") {
		t.Errorf("reply should mention @alice: %q", inter.ReplyMessage)
	}

	sent := f.messenger.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message sent, got %d", len(sent))
	}
	if sent[0].Method != "comment" || sent[0].Target != "17890000000000001" {
		t.Errorf("unexpected dispatch: %+v", sent[0])
	}

	stored := f.interactions.only()
	if stored.Metadata.DispatchStatus != model.DispatchSent {
		t.Errorf("expected dispatch status sent, got %s", stored.Metadata.DispatchStatus)
	}
	if stored.Metadata.ExternalMessageID != "ext-17890000000000001" {
		t.Errorf("unexpected external message id %q", stored.Metadata.ExternalMessageID)
	}

	storedEv, _ := f.events.GetByID(ctx, ev.ID)
	if storedEv.State != model.EventStateProcessed || storedEv.InteractionID != inter.ID {
		t.Errorf("event not linked: state=%s interaction=%s", storedEv.State, storedEv.InteractionID)
	}

	cand, ok := f.candidates.get("alice")
	if !ok {
		t.Fatal("expected candidate alice")
	}
	if cand.EngagementScore != service.EngagementComment+service.EngagementReply {
		t.Errorf("expected engagement %d, got %d", service.EngagementComment+service.EngagementReply, cand.EngagementScore)
	}
	if len(cand.Conversations) != 2 {
		t.Errorf("expected comment and reply in conversation log, got %d", len(cand.Conversations))
	}

	tmpl, _ := f.templates.GetByID(ctx, job.ID)
	if tmpl.UsageCount != 1 {
		t.Errorf("expected usage count 1, got %d", tmpl.UsageCount)
	}
	if len(f.notifier.leads) != 1 {
		t.Errorf("expected one lead notification, got %d", len(f.notifier.leads))
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].DispatchStatus != string(model.DispatchSent) {
		t.Errorf("expected one sent outcome event, got %+v", f.publisher.events)
	}
}

func TestEngine_LeadNotifiedAfterAck(t *testing.T) {
	classifier := keyword.NewClassifier()
	f := newFixture(classifier, []model.ReplyTemplate{jobTemplate("vacante")})
	f.notifier.block = make(chan struct{})
	q := service.NewDispatchQueue(f.dispatcher, 1, 8, nil)
	q.Start(context.Background())
	engine := f.newEngine(classifier, q, service.EngineConfig{CompanyName: "Acme"})

	start := time.Now()
	out, err := engine.ReceiveEvent(context.Background(),
		commentEvent("17890000000000011", "alice", "Me interesa la vacante, gracias!"))
	elapsed := time.Since(start)
	close(f.notifier.block)
	q.Close()

	if err != nil {
		t.Fatalf("ReceiveEvent: %v", err)
	}
	if out.Status != inbound.OutcomeReplied {
		t.Fatalf("expected replied, got %s", out.Status)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("ReceiveEvent waited %v on the notifier", elapsed)
	}
	if n := f.notifier.leadCount(); n != 1 {
		t.Errorf("expected one lead notification, got %d", n)
	}
	if n := len(f.messenger.messages()); n != 1 {
		t.Errorf("expected 1 dispatch, got %d", n)
	}
}

func TestEngine_DuplicateDelivery(t *testing.T) {
	f := newFixture(keyword.NewClassifier(), []model.ReplyTemplate{generalTemplate()})
	ctx := context.Background()

	first, err := f.engine.ReceiveEvent(ctx, commentEvent("17890000000000002", "alice", "Me interesa la vacante, gracias!"))
	if err != nil {
		t.Fatalf("first ReceiveEvent: %v", err)
	}
	second, err := f.engine.ReceiveEvent(ctx, commentEvent("17890000000000002", "alice", "Me interesa la vacante, gracias!"))
	if err != nil {
		t.Fatalf("second ReceiveEvent: %v", err)
	}

	if second.Status != inbound.OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", second.Status)
	}
	if second.Interaction.ID != first.Interaction.ID {
		t.Errorf("expected the first interaction back, got %s vs %s", second.Interaction.ID, first.Interaction.ID)
	}
	if second.Interaction.ReplyMessage != first.Interaction.ReplyMessage {
		t.Error("duplicate must not change the reply")
	}
	if n := len(f.messenger.messages()); n != 1 {
		t.Errorf("dispatch should run once, ran %d times", n)
	}
	if n := f.interactions.count(); n != 1 {
		t.Errorf("expected 1 interaction, got %d", n)
	}
	cand, _ := f.candidates.get("alice")
	if cand.EngagementScore != service.EngagementComment+service.EngagementReply {
		t.Errorf("duplicate touched the candidate: score %d", cand.EngagementScore)
	}
}

func TestEngine_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(keyword.NewClassifier(), []model.ReplyTemplate{generalTemplate()})
	f.interactions.createDelay = 20 * time.Millisecond
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	outcomes := make([]inbound.EventOutcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = f.engine.ReceiveEvent(ctx, commentEvent("17890000000000003", "carol", "Hola, me gusta mucho"))
		}(i)
	}
	wg.Wait()

	replied := 0
	for i := range outcomes {
		if errs[i] != nil {
			t.Fatalf("ReceiveEvent %d: %v", i, errs[i])
		}
		switch outcomes[i].Status {
		case inbound.OutcomeReplied:
			replied++
		case inbound.OutcomeDuplicate:
		default:
			t.Errorf("unexpected outcome %s", outcomes[i].Status)
		}
	}
	if replied != 1 {
		t.Errorf("expected exactly one replied outcome, got %d", replied)
	}
	if c := f.interactions.count(); c != 1 {
		t.Errorf("expected 1 interaction, got %d", c)
	}
	if m := len(f.messenger.messages()); m != 1 {
		t.Errorf("expected 1 dispatch, got %d", m)
	}
}

func TestEngine_ConcurrentIgnoredDuplicates(t *testing.T) {
	f := newFixture(keyword.NewClassifier(), []model.ReplyTemplate{generalTemplate()})
	f.settings.getDelay = 20 * time.Millisecond
	ctx := context.Background()

	const n = 6
	var wg sync.WaitGroup
	events := make([]model.InboundEvent, n)
	outcomes := make([]inbound.EventOutcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		events[i] = commentEvent("17890000000000013", "dana", "Gracias por comentar")
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = f.engine.ReceiveEvent(ctx, events[i])
		}(i)
	}
	wg.Wait()

	for i := range outcomes {
		if errs[i] != nil {
			t.Fatalf("ReceiveEvent %d: %v", i, errs[i])
		}
		if outcomes[i].Status != inbound.OutcomeIgnored || outcomes[i].Reason != service.ReasonAutoReplyDetected {
			t.Errorf("event %d: expected ignored by loop guard, got %s %q", i, outcomes[i].Status, outcomes[i].Reason)
		}
		stored, _ := f.events.GetByID(ctx, events[i].ID)
		if stored.State != model.EventStateIgnored || stored.Reason != service.ReasonAutoReplyDetected {
			t.Errorf("event %d stored as %s %q", i, stored.State, stored.Reason)
		}
	}
	if c := f.interactions.count(); c != 0 {
		t.Errorf("expected no interactions, got %d", c)
	}
}

func TestEngine_NegativeEmpathyOverride(t *testing.T) {
	// Only the seed template exists, so the rendered text is the generic fallback.
	f := newFixture(keyword.NewClassifier(), nil)

	ev := commentEvent("17890000000000004", "bob", "Horrible servicio, muy malo")
	out, err := f.engine.ReceiveEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("ReceiveEvent: %v", err)
	}
	if out.Status != inbound.OutcomeReplied {
		t.Fatalf("expected replied, got %s", out.Status)
	}
	if out.Interaction.Sentiment != model.SentimentNegative {
		t.Fatalf("expected negative sentiment, got %s", out.Interaction.Sentiment)
	}
	if !out.Interaction.MovedToDM {
		t.Error("expected movedToDM")
	}
	if out.Interaction.ReplyMessage != service.EmpathyReply("bob") {
		t.Errorf("expected empathy reply, got %q", out.Interaction.ReplyMessage)
	}

	sent := f.messenger.messages()
	if len(sent) != 1 || sent[0].Method != "dm" || sent[0].Target != ev.SenderID {
		t.Errorf("expected one DM to %s, got %+v", ev.SenderID, sent)
	}
}

func TestEngine_LoopGuard(t *testing.T) {
	classifier := keyword.NewClassifier()
	phrases := append([]string{}, service.DefaultLoopPhrases...)
	phrases = append(phrases, classifier.CannedReplies()...)
	phrases = append(phrases, service.GenericFallbackReply, service.EmpathyReply("someone"))

	for i, phrase := range phrases {
		t.Run(phrase, func(t *testing.T) {
			f := newFixture(classifier, []model.ReplyTemplate{generalTemplate()})
			ev := commentEvent(fmt.Sprintf("17890000000001%02d", i), "dave", strings.ToUpper(phrase))
			out, err := f.engine.ReceiveEvent(context.Background(), ev)
			if err != nil {
				t.Fatalf("ReceiveEvent: %v", err)
			}
			if out.Status != inbound.OutcomeIgnored || out.Reason != service.ReasonAutoReplyDetected {
				t.Errorf("expected ignored auto-reply, got %s (%s)", out.Status, out.Reason)
			}
			if f.interactions.count() != 0 {
				t.Error("loop guard must not create an interaction")
			}
			if len(f.messenger.messages()) != 0 {
				t.Error("loop guard must not dispatch")
			}
			stored, _ := f.events.GetByID(context.Background(), ev.ID)
			if stored.State != model.EventStateIgnored || stored.Reason != service.ReasonAutoReplyDetected {
				t.Errorf("event state %s reason %q", stored.State, stored.Reason)
			}
		})
	}
}

func TestEngine_OwnMessageIgnored(t *testing.T) {
	f := newFixture(keyword.NewClassifier(), []model.ReplyTemplate{generalTemplate()}, withBotUsername("acme_jobs"))

	out, err := f.engine.ReceiveEvent(context.Background(), commentEvent("17890000000000005", "@Acme_Jobs", "Nueva vacante disponible"))
	if err != nil {
		t.Fatalf("ReceiveEvent: %v", err)
	}
	if out.Status != inbound.OutcomeIgnored || out.Reason != service.ReasonOwnMessage {
		t.Errorf("expected own message ignored, got %s (%s)", out.Status, out.Reason)
	}
	if f.interactions.count() != 0 {
		t.Error("expected no interaction")
	}
}

func TestEngine_AutoReplyDisabled(t *testing.T) {
	f := newFixture(keyword.NewClassifier(), []model.ReplyTemplate{generalTemplate()})
	ctx := context.Background()
	settings := model.DefaultSettings()
	settings.AutoReplyEnabled = false
	_ = f.settings.Save(ctx, settings)

	out, err := f.engine.ReceiveEvent(ctx, commentEvent("17890000000000006", "erin", "Me interesa la vacante"))
	if err != nil {
		t.Fatalf("ReceiveEvent: %v", err)
	}
	if out.Status != inbound.OutcomeRecorded || out.Reason != service.ReasonAutoReplyDisabled {
		t.Errorf("expected recorded, got %s (%s)", out.Status, out.Reason)
	}
	if out.Interaction.Replied {
		t.Error("interaction must not be marked replied")
	}
	if f.interactions.count() != 1 {
		t.Error("interaction should still be recorded")
	}
	if len(f.messenger.messages()) != 0 {
		t.Error("nothing should be dispatched")
	}
}

func TestEngine_DirectMessages(t *testing.T) {
	dm := func(id string) model.InboundEvent {
		return model.NewInboundEvent(model.EventKindDirectMessage, id, "frank", "Hola, quiero aplicar", time.Now()).
			WithSender("5550001").
			WithDelivery("delivery-2", true)
	}

	t.Run("recorded without reply by default", func(t *testing.T) {
		f := newFixture(keyword.NewClassifier(), []model.ReplyTemplate{generalTemplate()})
		out, err := f.engine.ReceiveEvent(context.Background(), dm("mid.1"))
		if err != nil {
			t.Fatalf("ReceiveEvent: %v", err)
		}
		if out.Status != inbound.OutcomeRecorded || out.Reason != service.ReasonDMRepliesDisabled {
			t.Errorf("expected recorded, got %s (%s)", out.Status, out.Reason)
		}
		cand, _ := f.candidates.get("frank")
		if cand.EngagementScore != service.EngagementDM {
			t.Errorf("expected DM engagement %d, got %d", service.EngagementDM, cand.EngagementScore)
		}
	})

	t.Run("replied by DM when enabled", func(t *testing.T) {
		f := newFixture(keyword.NewClassifier(), []model.ReplyTemplate{generalTemplate()}, withDMReplies())
		out, err := f.engine.ReceiveEvent(context.Background(), dm("mid.2"))
		if err != nil {
			t.Fatalf("ReceiveEvent: %v", err)
		}
		if out.Status != inbound.OutcomeReplied || !out.Interaction.MovedToDM {
			t.Fatalf("expected DM reply, got %s movedToDM=%v", out.Status, out.Interaction.MovedToDM)
		}
		sent := f.messenger.messages()
		if len(sent) != 1 || sent[0].Method != "dm" || sent[0].Target != "5550001" {
			t.Errorf("unexpected dispatch %+v", sent)
		}
	})
}

func TestEngine_ReactionRecorded(t *testing.T) {
	f := newFixture(keyword.NewClassifier(), []model.ReplyTemplate{generalTemplate()})
	ev := model.NewInboundEvent(model.EventKindReaction, "react-1", "gina", "", time.Now()).
		WithReaction("love").
		WithDelivery("delivery-3", true)

	out, err := f.engine.ReceiveEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("ReceiveEvent: %v", err)
	}
	if out.Status != inbound.OutcomeRecorded {
		t.Fatalf("expected recorded, got %s", out.Status)
	}
	if out.Interaction.Message != "Reaction: love" {
		t.Errorf("unexpected message %q", out.Interaction.Message)
	}
	if len(f.messenger.messages()) != 0 {
		t.Error("reactions are never replied to")
	}
	cand, _ := f.candidates.get("gina")
	if cand.EngagementScore != service.EngagementReaction {
		t.Errorf("expected engagement %d, got %d", service.EngagementReaction, cand.EngagementScore)
	}
}

func TestEngine_MissingExternalID(t *testing.T) {
	f := newFixture(keyword.NewClassifier(), []model.ReplyTemplate{generalTemplate()})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ev := model.NewInboundEvent(model.EventKindComment, "", "hank", "Me gusta", time.Now())
		out, err := f.engine.ReceiveEvent(ctx, ev)
		if err != nil {
			t.Fatalf("ReceiveEvent: %v", err)
		}
		if out.Status != inbound.OutcomeReplied {
			t.Errorf("expected best-effort reply, got %s", out.Status)
		}
	}
	if n := f.interactions.count(); n != 2 {
		t.Errorf("events without external id are not deduplicated, expected 2 interactions, got %d", n)
	}
}

func TestEngine_PersistenceFailure(t *testing.T) {
	f := newFixture(keyword.NewClassifier(), nil)
	f.events.err = errBoom

	_, err := f.engine.ReceiveEvent(context.Background(), commentEvent("17890000000000007", "ivan", "hola"))
	if err == nil {
		t.Fatal("expected error when the event cannot be stored")
	}
	if f.interactions.count() != 0 {
		t.Error("nothing should be processed after a persistence failure")
	}
}

func TestEngine_SeedsTemplateWhenNoneActive(t *testing.T) {
	f := newFixture(keyword.NewClassifier(), nil)
	ctx := context.Background()

	out, err := f.engine.ReceiveEvent(ctx, commentEvent("17890000000000008", "judy", "Me gusta mucho"))
	if err != nil {
		t.Fatalf("ReceiveEvent: %v", err)
	}
	all, _ := f.templates.List(ctx)
	if len(all) != 1 || all[0].Name != service.SeedTemplateName || !all[0].IsDefault {
		t.Fatalf("expected a default seed template, got %+v", all)
	}
	if out.Interaction.Metadata.TemplateID != all[0].ID {
		t.Errorf("expected seed template to be used")
	}
	settings, _ := f.settings.Get(ctx)
	if settings.DefaultTemplateID != all[0].ID {
		t.Errorf("settings default should point at the seed template")
	}
}

func TestEngine_RecordDelivery(t *testing.T) {
	f := newFixture(keyword.NewClassifier(), nil)
	ctx := context.Background()

	ok := model.NewWebhookDelivery(`{"object":"instagram"}`, "sha256=abc", model.SignatureValid)
	bad := model.NewWebhookDelivery(`{"object":"instagram"}`, "sha256=zzz", model.SignatureInvalid)
	if _, err := f.engine.RecordDelivery(ctx, ok); err != nil {
		t.Fatalf("RecordDelivery: %v", err)
	}
	if _, err := f.engine.RecordDelivery(ctx, bad); err != nil {
		t.Fatalf("RecordDelivery: %v", err)
	}
	if f.audits.count(model.AuditDeliveryReceived) != 1 || f.audits.count(model.AuditDeliveryRejected) != 1 {
		t.Error("expected one received and one rejected audit entry")
	}

	f.deliveries.err = errBoom
	if _, err := f.engine.RecordDelivery(ctx, ok); err == nil {
		t.Error("expected error from failing delivery store")
	}
}
