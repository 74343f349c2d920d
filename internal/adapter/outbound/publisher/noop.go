package publisher

import (
	"context"
	"log/slog"

	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// NoopPublisher drops outcome events after logging them at debug level.
type NoopPublisher struct {
	logger *slog.Logger
}

var _ outbound.OutcomePublisher = (*NoopPublisher)(nil)

func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) Publish(_ context.Context, event outbound.OutcomeEvent) error {
	p.logger.Debug("noop: outcome event",
		"interactionID", event.InteractionID,
		"status", event.DispatchStatus,
	)
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
