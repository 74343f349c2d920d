package inbound

import (
	"context"
	"errors"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// ErrInvalidTemplate is returned when a template fails validation.
var ErrInvalidTemplate = errors.New("invalid template")

// TemplateAdminPort is the operator surface for reply templates.
type TemplateAdminPort interface {
	ListTemplates(ctx context.Context) ([]model.ReplyTemplate, error)
	CreateTemplate(ctx context.Context, tmpl model.ReplyTemplate) (model.ReplyTemplate, error)
	UpdateTemplate(ctx context.Context, tmpl model.ReplyTemplate) (model.ReplyTemplate, error)
	SetDefaultTemplate(ctx context.Context, id string) (model.ReplyTemplate, error)
}

// InteractionQueryPort exposes read access to recorded interactions.
type InteractionQueryPort interface {
	ListInteractions(ctx context.Context, filter outbound.InteractionFilter, page outbound.PageRequest) (outbound.PageResult[model.Interaction], error)
}
