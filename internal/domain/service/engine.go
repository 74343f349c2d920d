package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/inbound"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// Reasons recorded on events that end without an auto-reply.
const (
	ReasonOwnMessage        = "message authored by the bot account"
	ReasonAutoReplyDisabled = "auto-reply disabled"
	ReasonDMRepliesDisabled = "direct message replies disabled"
	ReasonReaction          = "reactions are recorded without reply"
)

// Repositories groups all repository dependencies for the engine.
type Repositories struct {
	Deliveries   outbound.DeliveryRepository
	Events       outbound.EventRepository
	Interactions outbound.InteractionRepository
	Templates    outbound.TemplateRepository
	Candidates   outbound.CandidateRepository
	Settings     outbound.SettingsRepository
	Audits       outbound.AuditRepository
}

// EngineConfig holds the static defaults for values that settings can
// override.
type EngineConfig struct {
	BotUsername           string
	CompanyName           string
	ReplyToDirectMessages bool
}

// Engine decides, once per external event id, whether and how to respond to
// an inbound event. It implements inbound.EventReceiverPort.
type Engine struct {
	repos      Repositories
	classifier outbound.Classifier
	templates  *TemplateService
	candidates *CandidateTracker
	guard      *LoopGuard
	runner     JobRunner
	cfg        EngineConfig
	logger     *slog.Logger

	inflight singleflight.Group
}

var _ inbound.EventReceiverPort = (*Engine)(nil)
var _ inbound.InteractionQueryPort = (*Engine)(nil)

func NewEngine(
	repos Repositories,
	classifier outbound.Classifier,
	templates *TemplateService,
	candidates *CandidateTracker,
	guard *LoopGuard,
	runner JobRunner,
	cfg EngineConfig,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		repos:      repos,
		classifier: classifier,
		templates:  templates,
		candidates: candidates,
		guard:      guard,
		runner:     runner,
		cfg:        cfg,
		logger:     logger,
	}
}

// RecordDelivery persists a raw callback together with its signature verdict.
func (e *Engine) RecordDelivery(ctx context.Context, d model.WebhookDelivery) (model.WebhookDelivery, error) {
	saved, err := e.repos.Deliveries.Create(ctx, d)
	if err != nil {
		return model.WebhookDelivery{}, fmt.Errorf("save delivery: %w", err)
	}

	eventType := model.AuditDeliveryReceived
	if saved.SignatureStatus == model.SignatureInvalid {
		eventType = model.AuditDeliveryRejected
	}
	_ = e.repos.Audits.Create(ctx, model.NewAuditLog(eventType, "", "webhook",
		fmt.Sprintf("delivery %s (%s) signature %s", saved.ID, saved.Object, saved.SignatureStatus)).
		WithMetadata("delivery_id", saved.ID))
	return saved, nil
}

// decision carries the id of the event that produced an outcome so that
// callers sharing a singleflight result can tell they were not the leader.
// Followers of an ignored event are ignored for the same reason.
type decision struct {
	eventID string
	outcome inbound.EventOutcome
}

// ReceiveEvent persists ev and runs the decision pipeline for it. The event's
// final state records the outcome.
func (e *Engine) ReceiveEvent(ctx context.Context, ev model.InboundEvent) (inbound.EventOutcome, error) {
	saved, err := e.repos.Events.Create(ctx, ev)
	if err != nil {
		return inbound.EventOutcome{}, fmt.Errorf("save event: %w", err)
	}
	ev = saved

	var out inbound.EventOutcome
	if ev.HasExternalID() {
		v, derr, _ := e.inflight.Do(ev.ExternalID, func() (any, error) {
			o, err := e.decide(ctx, ev)
			return decision{eventID: ev.ID, outcome: o}, err
		})
		d := v.(decision)
		out, err = d.outcome, derr
		if err == nil && d.eventID != ev.ID && d.outcome.Status != inbound.OutcomeIgnored {
			out = inbound.EventOutcome{Status: inbound.OutcomeDuplicate, Interaction: d.outcome.Interaction}
		}
	} else {
		e.logger.Warn("event has no external id, processing without deduplication",
			"eventID", ev.ID, "kind", ev.Kind, "sender", ev.SenderHandle)
		out, err = e.decide(ctx, ev)
	}

	e.finishEvent(ctx, ev, out, err)
	return out, err
}

// ListInteractions implements inbound.InteractionQueryPort.
func (e *Engine) ListInteractions(ctx context.Context, filter outbound.InteractionFilter, page outbound.PageRequest) (outbound.PageResult[model.Interaction], error) {
	return e.repos.Interactions.List(ctx, filter, page)
}

func (e *Engine) decide(ctx context.Context, ev model.InboundEvent) (inbound.EventOutcome, error) {
	if ev.HasExternalID() {
		existing, err := e.repos.Interactions.GetByExternalID(ctx, ev.ExternalID)
		if err != nil {
			return inbound.EventOutcome{}, fmt.Errorf("lookup interaction: %w", err)
		}
		if existing != nil {
			return inbound.EventOutcome{Status: inbound.OutcomeDuplicate, Interaction: *existing}, nil
		}
	}

	if ev.Kind == model.EventKindReaction {
		return e.recordReaction(ctx, ev)
	}

	settings, err := e.repos.Settings.Get(ctx)
	if err != nil {
		return inbound.EventOutcome{}, fmt.Errorf("load settings: %w", err)
	}

	if e.isOwnMessage(ev, settings) {
		return inbound.EventOutcome{Status: inbound.OutcomeIgnored, Reason: ReasonOwnMessage}, nil
	}
	if e.guard.Matches(ev.Text) {
		return inbound.EventOutcome{Status: inbound.OutcomeIgnored, Reason: ReasonAutoReplyDetected}, nil
	}

	c := e.classifier.Classify(ev.Text)
	inter, dup, err := e.createInteraction(ctx, model.NewInteraction(ev, c))
	if err != nil {
		return inbound.EventOutcome{}, err
	}
	if dup {
		return inbound.EventOutcome{Status: inbound.OutcomeDuplicate, Interaction: inter}, nil
	}

	if _, err := e.candidates.RecordInbound(ctx, ev, c); err != nil {
		e.logger.Warn("candidate tracking failed", "handle", ev.SenderHandle, "error", err)
	}

	if !settings.AutoReplyEnabled {
		return inbound.EventOutcome{Status: inbound.OutcomeRecorded, Interaction: inter, Reason: ReasonAutoReplyDisabled}, nil
	}
	if ev.Kind == model.EventKindDirectMessage && !e.cfg.ReplyToDirectMessages {
		return inbound.EventOutcome{Status: inbound.OutcomeRecorded, Interaction: inter, Reason: ReasonDMRepliesDisabled}, nil
	}

	tmpl, err := e.templates.Select(ctx, c, ev.Text, settings)
	if err != nil {
		return inbound.EventOutcome{}, fmt.Errorf("select template: %w", err)
	}

	reply := BuildReply(tmpl, c, RenderVars{
		Username:        ev.SenderHandle,
		Sentiment:       c.Sentiment,
		CompanyName:     firstNonEmpty(settings.CompanyName, e.cfg.CompanyName),
		PostTitle:       defaultPostTitle,
		SmartReply:      c.Suggested.Message,
		OriginalComment: ev.Text,
		Topics:          c.Topics,
		JobKeywords:     c.JobKeywords,
		Priority:        c.Suggested.Priority,
	})
	moveToDM := reply.MoveToDM || ev.Kind == model.EventKindDirectMessage

	inter, err = e.repos.Interactions.Update(ctx, inter.WithDecision(reply.Text, moveToDM, tmpl.ID))
	if err != nil {
		return inbound.EventOutcome{}, fmt.Errorf("record reply decision: %w", err)
	}
	if err := e.repos.Templates.IncrementUsage(ctx, tmpl.ID); err != nil {
		e.logger.Warn("incrementing template usage failed", "templateID", tmpl.ID, "error", err)
	}
	_ = e.repos.Audits.Create(ctx, model.NewAuditLog(model.AuditReplyDecided, inter.ID, "system",
		fmt.Sprintf("template %s chosen for @%s (%s)", tmpl.ID, inter.SenderHandle, inter.Metadata.ReplyMethod)).
		WithEventID(ev.ID).
		WithMetadata("template_id", tmpl.ID).
		WithMetadata("empathy", fmt.Sprint(reply.Empathy)))

	job := DispatchJob{Interaction: inter, RecipientID: ev.SenderID}
	if c.JobInterest && c.Suggested.Priority == model.PriorityHigh {
		job.Lead = &outbound.LeadNotification{
			InteractionID: inter.ID,
			SenderHandle:  inter.SenderHandle,
			Message:       inter.Message,
			Priority:      string(c.Suggested.Priority),
			JobKeywords:   c.JobKeywords,
			Topics:        c.Topics,
		}
	}
	e.runner.Submit(ctx, job)
	return inbound.EventOutcome{Status: inbound.OutcomeReplied, Interaction: inter}, nil
}

func (e *Engine) recordReaction(ctx context.Context, ev model.InboundEvent) (inbound.EventOutcome, error) {
	c := model.Classification{Sentiment: model.SentimentNeutral}
	ev.Text = reactionText(ev.ReactionType)

	inter, dup, err := e.createInteraction(ctx, model.NewInteraction(ev, c))
	if err != nil {
		return inbound.EventOutcome{}, err
	}
	if dup {
		return inbound.EventOutcome{Status: inbound.OutcomeDuplicate, Interaction: inter}, nil
	}
	if _, err := e.candidates.RecordInbound(ctx, ev, c); err != nil {
		e.logger.Warn("candidate tracking failed", "handle", ev.SenderHandle, "error", err)
	}
	return inbound.EventOutcome{Status: inbound.OutcomeRecorded, Interaction: inter, Reason: ReasonReaction}, nil
}

// createInteraction inserts inter. A unique violation on the external id means
// another delivery got there first; the stored interaction is returned with
// dup set.
func (e *Engine) createInteraction(ctx context.Context, inter model.Interaction) (model.Interaction, bool, error) {
	created, err := e.repos.Interactions.Create(ctx, inter)
	if err == nil {
		_ = e.repos.Audits.Create(ctx, model.NewAuditLog(model.AuditInteractionCreated, created.ID, "system",
			fmt.Sprintf("%s from @%s classified %s", created.Kind, created.SenderHandle, created.Sentiment)))
		return created, false, nil
	}
	if !errors.Is(err, outbound.ErrDuplicate) {
		return model.Interaction{}, false, fmt.Errorf("create interaction: %w", err)
	}
	existing, lerr := e.repos.Interactions.GetByExternalID(ctx, inter.ExternalID)
	if lerr != nil {
		return model.Interaction{}, false, fmt.Errorf("load duplicate interaction: %w", lerr)
	}
	if existing == nil {
		return model.Interaction{}, false, fmt.Errorf("create interaction: %w", err)
	}
	return *existing, true, nil
}

func (e *Engine) finishEvent(ctx context.Context, ev model.InboundEvent, out inbound.EventOutcome, err error) {
	switch {
	case err != nil:
		ev = ev.MarkFailed(err.Error())
		e.logger.Error("event processing failed", "eventID", ev.ID, "externalID", ev.ExternalID, "error", err)
	case out.Status == inbound.OutcomeIgnored:
		ev = ev.MarkIgnored(out.Reason)
		_ = e.repos.Audits.Create(ctx, model.NewAuditLog(model.AuditEventIgnored, "", "system",
			fmt.Sprintf("%s from @%s ignored: %s", ev.Kind, ev.SenderHandle, out.Reason)).WithEventID(ev.ID))
		e.logger.Info("event ignored", "eventID", ev.ID, "reason", out.Reason)
	default:
		ev = ev.MarkProcessed(out.Interaction.ID)
		if out.Reason != "" {
			ev.Reason = out.Reason
		}
		e.logger.Info("event processed",
			"eventID", ev.ID,
			"externalID", ev.ExternalID,
			"outcome", out.Status,
			"interactionID", out.Interaction.ID,
		)
	}
	if _, uerr := e.repos.Events.Update(ctx, ev); uerr != nil {
		e.logger.Error("updating event state failed", "eventID", ev.ID, "error", uerr)
	}
}

func (e *Engine) isOwnMessage(ev model.InboundEvent, settings model.Settings) bool {
	bot := model.NormalizeHandle(firstNonEmpty(settings.BotUsername, e.cfg.BotUsername))
	return bot != "" && model.NormalizeHandle(ev.SenderHandle) == bot
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
