package webhook

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/inbound"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
	"github.com/jonny/engagebot/pkg/apierror"
)

// templateRequest is the JSON body accepted by the template endpoints.
type templateRequest struct {
	Name      string           `json:"name"`
	Body      string           `json:"body"`
	Category  string           `json:"category"`
	IsActive  *bool            `json:"is_active"`
	IsDefault bool             `json:"is_default"`
	Rules     model.MatchRules `json:"rules"`
}

func (req templateRequest) toTemplate(id string) model.ReplyTemplate {
	t := model.NewReplyTemplate(req.Name, req.Body, model.TemplateCategory(req.Category))
	// Keep the raw category so validation can reject unknown values.
	t.Category = model.TemplateCategory(req.Category)
	if id != "" {
		t.ID = id
	}
	if req.IsActive != nil {
		t = t.WithActive(*req.IsActive)
	}
	return t.WithDefault(req.IsDefault).WithRules(req.Rules)
}

type interactionPage struct {
	Items      []model.Interaction `json:"items"`
	TotalCount int64               `json:"total_count"`
	Page       int                 `json:"page"`
	Size       int                 `json:"size"`
}

// AdminHandler serves the operator API for templates and interactions.
type AdminHandler struct {
	templates    inbound.TemplateAdminPort
	interactions inbound.InteractionQueryPort
	logger       *slog.Logger
}

func NewAdminHandler(templates inbound.TemplateAdminPort, interactions inbound.InteractionQueryPort, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{templates: templates, interactions: interactions, logger: logger}
}

// Register mounts the admin routes on mux.
func (a *AdminHandler) Register(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	mux.Handle("GET /admin/templates", wrap(http.HandlerFunc(a.listTemplates)))
	mux.Handle("POST /admin/templates", wrap(http.HandlerFunc(a.createTemplate)))
	mux.Handle("PUT /admin/templates/{id}", wrap(http.HandlerFunc(a.updateTemplate)))
	mux.Handle("POST /admin/templates/{id}/default", wrap(http.HandlerFunc(a.setDefault)))
	mux.Handle("GET /admin/interactions", wrap(http.HandlerFunc(a.listInteractions)))
}

func (a *AdminHandler) listTemplates(w http.ResponseWriter, r *http.Request) {
	items, err := a.templates.ListTemplates(r.Context())
	if err != nil {
		a.fail(w, "list templates", err)
		return
	}
	if items == nil {
		items = []model.ReplyTemplate{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *AdminHandler) createTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	created, err := a.templates.CreateTemplate(r.Context(), req.toTemplate(""))
	if err != nil {
		a.fail(w, "create template", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *AdminHandler) updateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, apierror.BadRequest("invalid JSON body"))
		return
	}
	updated, err := a.templates.UpdateTemplate(r.Context(), req.toTemplate(r.PathValue("id")))
	if err != nil {
		a.fail(w, "update template", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *AdminHandler) setDefault(w http.ResponseWriter, r *http.Request) {
	tmpl, err := a.templates.SetDefaultTemplate(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, "set default template", err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (a *AdminHandler) listInteractions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := outbound.InteractionFilter{
		SenderHandle: q.Get("sender"),
		Kind:         q.Get("kind"),
		Sentiment:    q.Get("sentiment"),
	}
	if v := q.Get("replied"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			apierror.Write(w, apierror.BadRequest("replied must be a boolean"))
			return
		}
		filter.Replied = &b
	}
	page := outbound.PageRequest{OrderBy: "created_at", Desc: true}
	page.Page, _ = strconv.Atoi(q.Get("page"))
	page.Size, _ = strconv.Atoi(q.Get("size"))
	if page.Page < 0 {
		page.Page = 0
	}

	res, err := a.interactions.ListInteractions(r.Context(), filter, page)
	if err != nil {
		a.fail(w, "list interactions", err)
		return
	}
	items := res.Items
	if items == nil {
		items = []model.Interaction{}
	}
	writeJSON(w, http.StatusOK, interactionPage{
		Items:      items,
		TotalCount: res.TotalCount,
		Page:       res.Page,
		Size:       res.Size,
	})
}

func (a *AdminHandler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, inbound.ErrInvalidTemplate):
		apierror.Write(w, apierror.WithDetail(http.StatusBadRequest, "invalid template", err.Error()))
	case errors.Is(err, outbound.ErrNotFound):
		apierror.Write(w, apierror.NotFound("template"))
	default:
		a.logger.Error("admin request failed", "op", op, "error", err)
		apierror.Write(w, apierror.Internal(op+" failed"))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
