package model

import "time"

type EventKind string

const (
	EventKindComment       EventKind = "comment"
	EventKindReaction      EventKind = "reaction"
	EventKindDirectMessage EventKind = "direct_message"
)

type EventState string

const (
	EventStateUnprocessed EventState = "unprocessed"
	EventStateProcessed   EventState = "processed"
	EventStateIgnored     EventState = "ignored"
	EventStateFailed      EventState = "failed"
)

// Source is where on the platform an interaction happened.
type Source string

const (
	SourcePost  Source = "post"
	SourceStory Source = "story"
	SourceDM    Source = "dm"
)

// InboundEvent is a single comment, reaction or direct message taken out of a
// callback. It is never deleted; only its state and link change.
type InboundEvent struct {
	ID            string     `json:"id"`
	DeliveryID    string     `json:"delivery_id"`
	ExternalID    string     `json:"external_id"`
	Kind          EventKind  `json:"kind"`
	SenderHandle  string     `json:"sender_handle"`
	SenderID      string     `json:"sender_id"`
	Text          string     `json:"text"`
	ContentID     string     `json:"content_id"`
	Source        Source     `json:"source"`
	ReactionType  string     `json:"reaction_type,omitempty"`
	Verified      bool       `json:"verified"`
	State         EventState `json:"state"`
	Reason        string     `json:"reason,omitempty"`
	InteractionID string     `json:"interaction_id,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// NewInboundEvent creates an unprocessed event. occurredAt falls back to now
// when the platform did not send a timestamp.
func NewInboundEvent(kind EventKind, externalID, senderHandle, text string, occurredAt time.Time) InboundEvent {
	now := time.Now().UTC()
	if occurredAt.IsZero() {
		occurredAt = now
	}
	source := SourcePost
	if kind == EventKindDirectMessage {
		source = SourceDM
	}
	return InboundEvent{
		ID:           generateID(),
		ExternalID:   externalID,
		Kind:         kind,
		SenderHandle: senderHandle,
		Text:         text,
		Source:       source,
		State:        EventStateUnprocessed,
		OccurredAt:   occurredAt.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasExternalID reports whether the event can take part in deduplication.
func (e InboundEvent) HasExternalID() bool {
	return e.ExternalID != ""
}

func (e InboundEvent) WithDelivery(deliveryID string, verified bool) InboundEvent {
	e.DeliveryID = deliveryID
	e.Verified = verified
	return e
}

func (e InboundEvent) WithSender(id string) InboundEvent {
	e.SenderID = id
	return e
}

func (e InboundEvent) WithContent(contentID string, source Source) InboundEvent {
	e.ContentID = contentID
	if source != "" {
		e.Source = source
	}
	return e
}

func (e InboundEvent) WithReaction(reactionType string) InboundEvent {
	e.ReactionType = reactionType
	return e
}

// MarkProcessed links the event to the interaction it produced or matched.
func (e InboundEvent) MarkProcessed(interactionID string) InboundEvent {
	return e.finish(EventStateProcessed, "", interactionID)
}

func (e InboundEvent) MarkIgnored(reason string) InboundEvent {
	return e.finish(EventStateIgnored, reason, e.InteractionID)
}

func (e InboundEvent) MarkFailed(reason string) InboundEvent {
	return e.finish(EventStateFailed, reason, e.InteractionID)
}

func (e InboundEvent) finish(state EventState, reason, interactionID string) InboundEvent {
	now := time.Now().UTC()
	e.State = state
	e.Reason = reason
	e.InteractionID = interactionID
	e.ProcessedAt = &now
	e.UpdatedAt = now
	return e
}
