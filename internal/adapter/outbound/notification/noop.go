package notification

import (
	"context"
	"log/slog"

	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// NoopNotifier is a no-op notifier that logs notifications instead of sending them.
// Used in local development when Slack is not configured.
type NoopNotifier struct {
	logger *slog.Logger
}

var _ outbound.Notifier = (*NoopNotifier)(nil)

// NewNoopNotifier creates a new NoopNotifier.
func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopNotifier{logger: logger}
}

func (n *NoopNotifier) NotifyDispatchFailure(_ context.Context, f outbound.DispatchFailureNotification) error {
	n.logger.Info("noop: dispatch failure",
		"interactionID", f.InteractionID,
		"sender", f.SenderHandle,
		"method", f.Method,
		"reason", f.Reason,
		"detail", f.Detail,
	)
	return nil
}

func (n *NoopNotifier) NotifyLead(_ context.Context, l outbound.LeadNotification) error {
	n.logger.Info("noop: lead",
		"interactionID", l.InteractionID,
		"sender", l.SenderHandle,
		"priority", l.Priority,
		"jobKeywords", l.JobKeywords,
	)
	return nil
}
