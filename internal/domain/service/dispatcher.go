package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// DefaultDispatchTimeout bounds one delivery attempt.
const DefaultDispatchTimeout = 30 * time.Second

// Dispatcher delivers decided replies and records what happened. It never
// re-classifies and never retries. Operator notifications and outcome
// publishes are each bounded by the same timeout as the send.
type Dispatcher struct {
	messenger    outbound.Messenger
	interactions outbound.InteractionRepository
	audits       outbound.AuditRepository
	candidates   *CandidateTracker
	notifier     outbound.Notifier
	publisher    outbound.OutcomePublisher
	timeout      time.Duration
	logger       *slog.Logger
}

func NewDispatcher(
	messenger outbound.Messenger,
	interactions outbound.InteractionRepository,
	audits outbound.AuditRepository,
	candidates *CandidateTracker,
	notifier outbound.Notifier,
	publisher outbound.OutcomePublisher,
	timeout time.Duration,
	logger *slog.Logger,
) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		messenger:    messenger,
		interactions: interactions,
		audits:       audits,
		candidates:   candidates,
		notifier:     notifier,
		publisher:    publisher,
		timeout:      timeout,
		logger:       logger,
	}
}

// Dispatch sends the reply held by job.Interaction and returns the
// interaction with its dispatch outcome recorded.
func (d *Dispatcher) Dispatch(ctx context.Context, job DispatchJob) model.Interaction {
	inter := job.Interaction
	if !inter.Decided() {
		return inter
	}

	if job.Lead != nil {
		d.notifyLead(ctx, *job.Lead)
	}

	receipt, err := d.send(ctx, job)

	if err != nil {
		reason := outbound.ReasonOf(err)
		inter = inter.WithDispatchFailed(string(reason), err.Error())
		d.logger.Warn("reply dispatch failed",
			"interactionID", inter.ID,
			"method", inter.Metadata.ReplyMethod,
			"reason", reason,
			"error", err,
		)
		_ = d.audits.Create(ctx, model.NewAuditLog(model.AuditReplyFailed, inter.ID, "system",
			fmt.Sprintf("%s reply to @%s failed: %s", inter.Metadata.ReplyMethod, inter.SenderHandle, reason)).
			WithMetadata("reason", string(reason)))
		d.notifyFailure(ctx, outbound.DispatchFailureNotification{
			InteractionID: inter.ID,
			SenderHandle:  inter.SenderHandle,
			Method:        string(inter.Metadata.ReplyMethod),
			Reason:        reason,
			Detail:        err.Error(),
			Message:       inter.ReplyMessage,
		})
	} else {
		inter = inter.WithDispatchSent(receipt.MessageID)
		d.logger.Info("reply dispatched",
			"interactionID", inter.ID,
			"method", inter.Metadata.ReplyMethod,
			"externalMessageID", receipt.MessageID,
			"encoding", receipt.Encoding,
		)
		if d.candidates != nil {
			if _, cerr := d.candidates.RecordReply(ctx, inter.SenderHandle, inter.ReplyMessage); cerr != nil {
				d.logger.Warn("candidate reply tracking failed", "handle", inter.SenderHandle, "error", cerr)
			}
		}
		_ = d.audits.Create(ctx, model.NewAuditLog(model.AuditReplyDispatched, inter.ID, "system",
			fmt.Sprintf("%s reply sent to @%s", inter.Metadata.ReplyMethod, inter.SenderHandle)).
			WithMetadata("external_message_id", receipt.MessageID))
	}

	if updated, uerr := d.interactions.Update(ctx, inter); uerr != nil {
		d.logger.Error("recording dispatch outcome failed", "interactionID", inter.ID, "error", uerr)
	} else {
		inter = updated
	}

	d.publish(ctx, inter)
	return inter
}

func (d *Dispatcher) notifyLead(ctx context.Context, lead outbound.LeadNotification) {
	if d.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.notifier.NotifyLead(ctx, lead); err != nil {
		d.logger.Warn("lead notification failed", "interactionID", lead.InteractionID, "error", err)
	}
}

func (d *Dispatcher) notifyFailure(ctx context.Context, n outbound.DispatchFailureNotification) {
	if d.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.notifier.NotifyDispatchFailure(ctx, n); err != nil {
		d.logger.Warn("dispatch failure notification failed", "interactionID", n.InteractionID, "error", err)
	}
}

func (d *Dispatcher) publish(ctx context.Context, inter model.Interaction) {
	if d.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, outcomeEvent(inter)); err != nil {
		d.logger.Warn("publishing outcome failed", "interactionID", inter.ID, "error", err)
	}
}

// send leaves target validation to the messenger, which checks credentials
// first.
func (d *Dispatcher) send(ctx context.Context, job DispatchJob) (outbound.DispatchReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	inter := job.Interaction
	if inter.MovedToDM {
		recipient := job.RecipientID
		if recipient == "" {
			recipient = inter.SenderID
		}
		return d.messenger.SendDirectMessage(ctx, recipient, inter.ReplyMessage)
	}
	return d.messenger.ReplyToComment(ctx, inter.ExternalID, inter.ReplyMessage)
}

func outcomeEvent(inter model.Interaction) outbound.OutcomeEvent {
	occurred := inter.UpdatedAt
	if inter.Metadata.DispatchedAt != nil {
		occurred = *inter.Metadata.DispatchedAt
	}
	return outbound.OutcomeEvent{
		InteractionID:     inter.ID,
		ExternalID:        inter.ExternalID,
		SenderHandle:      inter.SenderHandle,
		Kind:              string(inter.Kind),
		Sentiment:         string(inter.Sentiment),
		ReplyMethod:       string(inter.Metadata.ReplyMethod),
		Replied:           inter.Replied,
		MovedToDM:         inter.MovedToDM,
		DispatchStatus:    string(inter.Metadata.DispatchStatus),
		Reason:            inter.Metadata.DispatchReason,
		ExternalMessageID: inter.Metadata.ExternalMessageID,
		OccurredAt:        occurred,
	}
}
