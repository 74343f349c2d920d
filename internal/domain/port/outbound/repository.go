package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/jonny/engagebot/internal/domain/model"
)

var (
	// ErrNotFound is returned when a lookup by primary key finds nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint,
	// most importantly the one on interaction external ids.
	ErrDuplicate = errors.New("duplicate record")
)

type PageRequest struct {
	Page    int
	Size    int
	OrderBy string
	Desc    bool
}

type PageResult[T any] struct {
	Items      []T
	TotalCount int64
	Page       int
	Size       int
}

type EventFilter struct {
	DeliveryID string
	Kind       string
	State      string
	Since      *time.Time
	Until      *time.Time
}

type InteractionFilter struct {
	SenderHandle string
	Kind         string
	Sentiment    string
	Replied      *bool
	Since        *time.Time
	Until        *time.Time
}

type AuditFilter struct {
	InteractionID string
	EventType     string
	Actor         string
	Since         *time.Time
	Until         *time.Time
}

type DeliveryRepository interface {
	Create(ctx context.Context, delivery model.WebhookDelivery) (model.WebhookDelivery, error)
	GetByID(ctx context.Context, id string) (model.WebhookDelivery, error)
}

type EventRepository interface {
	Create(ctx context.Context, event model.InboundEvent) (model.InboundEvent, error)
	GetByID(ctx context.Context, id string) (model.InboundEvent, error)
	Update(ctx context.Context, event model.InboundEvent) (model.InboundEvent, error)
	List(ctx context.Context, filter EventFilter, page PageRequest) (PageResult[model.InboundEvent], error)
}

type InteractionRepository interface {
	// Create returns ErrDuplicate when an interaction with the same non-empty
	// external id already exists.
	Create(ctx context.Context, interaction model.Interaction) (model.Interaction, error)
	GetByID(ctx context.Context, id string) (model.Interaction, error)
	// GetByExternalID returns nil, nil when no interaction has the id.
	GetByExternalID(ctx context.Context, externalID string) (*model.Interaction, error)
	Update(ctx context.Context, interaction model.Interaction) (model.Interaction, error)
	List(ctx context.Context, filter InteractionFilter, page PageRequest) (PageResult[model.Interaction], error)
}

type TemplateRepository interface {
	Create(ctx context.Context, tmpl model.ReplyTemplate) (model.ReplyTemplate, error)
	GetByID(ctx context.Context, id string) (model.ReplyTemplate, error)
	Update(ctx context.Context, tmpl model.ReplyTemplate) (model.ReplyTemplate, error)
	List(ctx context.Context) ([]model.ReplyTemplate, error)
	ListActive(ctx context.Context) ([]model.ReplyTemplate, error)
	// SetDefault clears is_default on every other template and sets it on id,
	// in one transaction.
	SetDefault(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, id string) error
}

// CandidateRepository is the get/upsert boundary to the candidate profiles
// owned by the CRUD layer.
type CandidateRepository interface {
	// GetByHandle returns nil, nil when the handle is unknown.
	GetByHandle(ctx context.Context, handle string) (*model.Candidate, error)
	Upsert(ctx context.Context, candidate model.Candidate) error
}

type SettingsRepository interface {
	// Get returns model.DefaultSettings when nothing has been saved.
	Get(ctx context.Context) (model.Settings, error)
	Save(ctx context.Context, settings model.Settings) error
}

type AuditRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	List(ctx context.Context, filter AuditFilter, page PageRequest) (PageResult[model.AuditLog], error)
}
