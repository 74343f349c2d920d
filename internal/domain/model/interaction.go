package model

import "time"

type ReplyMethod string

const (
	ReplyMethodComment ReplyMethod = "comment"
	ReplyMethodDM      ReplyMethod = "dm"
)

type DispatchStatus string

const (
	DispatchPending DispatchStatus = "pending"
	DispatchSent    DispatchStatus = "sent"
	DispatchFailed  DispatchStatus = "failed"
)

// InteractionMetadata carries the classification and dispatch details of an
// Interaction. It is stored as a JSON document.
type InteractionMetadata struct {
	JobInterest       bool           `json:"job_interest"`
	JobKeywords       []string       `json:"job_keywords,omitempty"`
	Topics            []string       `json:"topics,omitempty"`
	Demographic       Demographic    `json:"demographic"`
	Priority          Priority       `json:"priority,omitempty"`
	SuggestedReply    string         `json:"suggested_reply,omitempty"`
	TemplateID        string         `json:"template_id,omitempty"`
	ReplyMethod       ReplyMethod    `json:"reply_method,omitempty"`
	RepliedAt         *time.Time     `json:"replied_at,omitempty"`
	DispatchStatus    DispatchStatus `json:"dispatch_status,omitempty"`
	DispatchReason    string         `json:"dispatch_reason,omitempty"`
	DispatchError     string         `json:"dispatch_error,omitempty"`
	ExternalMessageID string         `json:"external_message_id,omitempty"`
	DispatchedAt      *time.Time     `json:"dispatched_at,omitempty"`
	Unverified        bool           `json:"unverified,omitempty"`
}

// Interaction is the canonical record of a classified inbound item. At most
// one Interaction exists per non-empty ExternalID.
type Interaction struct {
	ID           string              `json:"id"`
	ExternalID   string              `json:"external_id"`
	Kind         EventKind           `json:"kind"`
	Message      string              `json:"message"`
	SenderHandle string              `json:"sender_handle"`
	SenderID     string              `json:"sender_id"`
	ContentID    string              `json:"content_id"`
	Sentiment    Sentiment           `json:"sentiment"`
	Source       Source              `json:"source"`
	Replied      bool                `json:"replied"`
	ReplyMessage string              `json:"reply_message"`
	MovedToDM    bool                `json:"moved_to_dm"`
	Metadata     InteractionMetadata `json:"metadata"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// NewInteraction builds the post-classification record for an event.
func NewInteraction(ev InboundEvent, c Classification) Interaction {
	now := time.Now().UTC()
	return Interaction{
		ID:           generateID(),
		ExternalID:   ev.ExternalID,
		Kind:         ev.Kind,
		Message:      ev.Text,
		SenderHandle: ev.SenderHandle,
		SenderID:     ev.SenderID,
		ContentID:    ev.ContentID,
		Sentiment:    c.Sentiment,
		Source:       ev.Source,
		Metadata: InteractionMetadata{
			JobInterest:    c.JobInterest,
			JobKeywords:    c.JobKeywords,
			Topics:         c.Topics,
			Demographic:    c.Demographic,
			Priority:       c.Suggested.Priority,
			SuggestedReply: c.Suggested.Message,
			Unverified:     !ev.Verified,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithDecision records the reply chosen for this interaction. It is applied
// once, before dispatch, so that a failed dispatch is never re-decided.
func (i Interaction) WithDecision(reply string, moveToDM bool, templateID string) Interaction {
	now := time.Now().UTC()
	i.Replied = true
	i.MovedToDM = moveToDM
	i.ReplyMessage = reply
	i.Metadata.TemplateID = templateID
	i.Metadata.ReplyMethod = ReplyMethodComment
	if moveToDM {
		i.Metadata.ReplyMethod = ReplyMethodDM
	}
	i.Metadata.RepliedAt = &now
	i.Metadata.DispatchStatus = DispatchPending
	i.UpdatedAt = now
	return i
}

// WithDispatchSent records a successful delivery on the external platform.
func (i Interaction) WithDispatchSent(externalMessageID string) Interaction {
	now := time.Now().UTC()
	i.Metadata.DispatchStatus = DispatchSent
	i.Metadata.ExternalMessageID = externalMessageID
	i.Metadata.DispatchReason = ""
	i.Metadata.DispatchError = ""
	i.Metadata.DispatchedAt = &now
	i.UpdatedAt = now
	return i
}

// WithDispatchFailed records a classified delivery failure. The decision
// flags stay as they are.
func (i Interaction) WithDispatchFailed(reason, detail string) Interaction {
	now := time.Now().UTC()
	i.Metadata.DispatchStatus = DispatchFailed
	i.Metadata.DispatchReason = reason
	i.Metadata.DispatchError = detail
	i.Metadata.DispatchedAt = &now
	i.UpdatedAt = now
	return i
}

// Decided reports whether a reply has already been chosen.
func (i Interaction) Decided() bool {
	return i.Replied || i.MovedToDM
}
