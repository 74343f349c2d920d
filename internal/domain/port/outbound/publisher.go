package outbound

import (
	"context"
	"time"
)

// OutcomeEvent is emitted once per dispatched interaction.
type OutcomeEvent struct {
	InteractionID     string    `json:"interaction_id"`
	ExternalID        string    `json:"external_id,omitempty"`
	SenderHandle      string    `json:"sender_handle"`
	Kind              string    `json:"kind"`
	Sentiment         string    `json:"sentiment"`
	ReplyMethod       string    `json:"reply_method"`
	Replied           bool      `json:"replied"`
	MovedToDM         bool      `json:"moved_to_dm"`
	DispatchStatus    string    `json:"dispatch_status"`
	Reason            string    `json:"reason,omitempty"`
	ExternalMessageID string    `json:"external_message_id,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type OutcomePublisher interface {
	Publish(ctx context.Context, event OutcomeEvent) error
	Close() error
}
