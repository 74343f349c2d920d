package model

import "time"

type AuditEventType string

const (
	AuditDeliveryReceived   AuditEventType = "delivery.received"
	AuditDeliveryRejected   AuditEventType = "delivery.rejected"
	AuditEventIgnored       AuditEventType = "event.ignored"
	AuditInteractionCreated AuditEventType = "interaction.created"
	AuditReplyDecided       AuditEventType = "reply.decided"
	AuditReplyDispatched    AuditEventType = "reply.dispatched"
	AuditReplyFailed        AuditEventType = "reply.failed"
	AuditTemplateSeeded     AuditEventType = "template.seeded"
	AuditTemplateDefault    AuditEventType = "template.default_changed"
)

type AuditLog struct {
	ID            string            `json:"id"`
	EventType     AuditEventType    `json:"event_type"`
	InteractionID string            `json:"interaction_id"`
	EventID       string            `json:"event_id"`
	Actor         string            `json:"actor"`
	Description   string            `json:"description"`
	Metadata      map[string]string `json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}

func NewAuditLog(eventType AuditEventType, interactionID, actor, description string) AuditLog {
	return AuditLog{
		ID:            generateID(),
		EventType:     eventType,
		InteractionID: interactionID,
		Actor:         actor,
		Description:   description,
		Metadata:      make(map[string]string),
		CreatedAt:     time.Now().UTC(),
	}
}

func (a AuditLog) WithEventID(eventID string) AuditLog {
	a.EventID = eventID
	return a
}

func (a AuditLog) WithMetadata(key, value string) AuditLog {
	meta := make(map[string]string, len(a.Metadata)+1)
	for k, v := range a.Metadata {
		meta[k] = v
	}
	meta[key] = value
	a.Metadata = meta
	return a
}
