package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/inbound"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// SeedTemplateName names the template created when no active template exists.
const SeedTemplateName = "Respuesta general por defecto"

// ErrInvalidTemplate wraps template validation failures.
var ErrInvalidTemplate = inbound.ErrInvalidTemplate

// TemplateService owns reply templates: selection, seeding and the single
// default invariant.
type TemplateService struct {
	templates outbound.TemplateRepository
	settings  outbound.SettingsRepository
	audits    outbound.AuditRepository
	logger    *slog.Logger

	seedMu sync.Mutex
}

var _ inbound.TemplateAdminPort = (*TemplateService)(nil)

func NewTemplateService(
	templates outbound.TemplateRepository,
	settings outbound.SettingsRepository,
	audits outbound.AuditRepository,
	logger *slog.Logger,
) *TemplateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateService{
		templates: templates,
		settings:  settings,
		audits:    audits,
		logger:    logger,
	}
}

func (s *TemplateService) ListTemplates(ctx context.Context) ([]model.ReplyTemplate, error) {
	return s.templates.List(ctx)
}

// CreateTemplate stores tmpl. A template created as default takes the flag
// away from every other template.
func (s *TemplateService) CreateTemplate(ctx context.Context, tmpl model.ReplyTemplate) (model.ReplyTemplate, error) {
	if err := validateTemplate(tmpl); err != nil {
		return model.ReplyTemplate{}, err
	}
	tmpl = tmpl.WithRules(tmpl.Rules)
	created, err := s.templates.Create(ctx, tmpl)
	if err != nil {
		return model.ReplyTemplate{}, fmt.Errorf("create template: %w", err)
	}
	if created.IsDefault {
		if err := s.makeDefault(ctx, created.ID, "operator"); err != nil {
			return model.ReplyTemplate{}, err
		}
	}
	return created, nil
}

// UpdateTemplate replaces the editable fields of a template and keeps the
// settings-level default in sync with the isDefault flag.
func (s *TemplateService) UpdateTemplate(ctx context.Context, tmpl model.ReplyTemplate) (model.ReplyTemplate, error) {
	if err := validateTemplate(tmpl); err != nil {
		return model.ReplyTemplate{}, err
	}
	existing, err := s.templates.GetByID(ctx, tmpl.ID)
	if err != nil {
		return model.ReplyTemplate{}, fmt.Errorf("get template: %w", err)
	}
	tmpl.CreatedAt = existing.CreatedAt
	tmpl.UsageCount = existing.UsageCount
	tmpl = tmpl.WithRules(tmpl.Rules)

	updated, err := s.templates.Update(ctx, tmpl)
	if err != nil {
		return model.ReplyTemplate{}, fmt.Errorf("update template: %w", err)
	}

	switch {
	case updated.IsDefault && !existing.IsDefault:
		if err := s.makeDefault(ctx, updated.ID, "operator"); err != nil {
			return model.ReplyTemplate{}, err
		}
	case !updated.IsDefault && existing.IsDefault:
		if err := s.clearDefaultSetting(ctx, updated.ID); err != nil {
			return model.ReplyTemplate{}, err
		}
	}
	return updated, nil
}

// SetDefaultTemplate makes id the only default template.
func (s *TemplateService) SetDefaultTemplate(ctx context.Context, id string) (model.ReplyTemplate, error) {
	if _, err := s.templates.GetByID(ctx, id); err != nil {
		return model.ReplyTemplate{}, fmt.Errorf("get template: %w", err)
	}
	if err := s.makeDefault(ctx, id, "operator"); err != nil {
		return model.ReplyTemplate{}, err
	}
	return s.templates.GetByID(ctx, id)
}

// EnsureSeed creates the seed template when there is no active template.
// It returns the seed, or ok=false when active templates already exist.
func (s *TemplateService) EnsureSeed(ctx context.Context) (model.ReplyTemplate, bool, error) {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	active, err := s.templates.ListActive(ctx)
	if err != nil {
		return model.ReplyTemplate{}, false, fmt.Errorf("list active templates: %w", err)
	}
	if len(active) > 0 {
		return model.ReplyTemplate{}, false, nil
	}

	seed := model.NewReplyTemplate(SeedTemplateName, GenericFallbackReply, model.CategoryGeneral).WithDefault(true)
	seed, err = s.templates.Create(ctx, seed)
	if err != nil {
		return model.ReplyTemplate{}, false, fmt.Errorf("create seed template: %w", err)
	}
	if err := s.makeDefault(ctx, seed.ID, "system"); err != nil {
		return model.ReplyTemplate{}, false, err
	}

	_ = s.audits.Create(ctx, model.NewAuditLog(model.AuditTemplateSeeded, "", "system",
		fmt.Sprintf("seed template %s created", seed.ID)))
	s.logger.Info("seed template created", "templateID", seed.ID)
	return seed, true, nil
}

// Bootstrap stores the given templates when the repository is empty.
func (s *TemplateService) Bootstrap(ctx context.Context, templates []model.ReplyTemplate) (int, error) {
	existing, err := s.templates.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	created := 0
	for _, tmpl := range templates {
		if _, err := s.CreateTemplate(ctx, tmpl); err != nil {
			return created, fmt.Errorf("bootstrap template %q: %w", tmpl.Name, err)
		}
		created++
	}
	return created, nil
}

// Select picks the template for a classified message, seeding one first when
// nothing is active.
func (s *TemplateService) Select(ctx context.Context, c model.Classification, text string, settings model.Settings) (model.ReplyTemplate, error) {
	active, err := s.templates.ListActive(ctx)
	if err != nil {
		return model.ReplyTemplate{}, fmt.Errorf("list active templates: %w", err)
	}
	if len(active) == 0 {
		if _, _, err := s.EnsureSeed(ctx); err != nil {
			return model.ReplyTemplate{}, err
		}
		if active, err = s.templates.ListActive(ctx); err != nil {
			return model.ReplyTemplate{}, fmt.Errorf("list active templates: %w", err)
		}
		if len(active) == 0 {
			return model.ReplyTemplate{}, errors.New("no active template after seeding")
		}
		// The seed changed the settings-level default.
		if current, err := s.settings.Get(ctx); err == nil {
			settings.DefaultTemplateID = current.DefaultTemplateID
		}
	}

	if tmpl, ok := SelectTemplate(active, c, text, settings.DefaultTemplateID); ok {
		return tmpl, nil
	}

	// Every template was rejected.
	if id := settings.DefaultTemplateID; id != "" {
		inList := false
		for _, t := range active {
			if t.ID == id {
				inList = true
				break
			}
		}
		if !inList {
			tmpl, err := s.templates.GetByID(ctx, id)
			if err == nil {
				return tmpl, nil
			}
			if !errors.Is(err, outbound.ErrNotFound) {
				s.logger.Warn("loading default template failed", "templateID", id, "error", err)
			}
		}
	}
	tmpl, _ := fallbackTemplate(active, settings.DefaultTemplateID)
	return tmpl, nil
}

func (s *TemplateService) makeDefault(ctx context.Context, id, actor string) error {
	if err := s.templates.SetDefault(ctx, id); err != nil {
		return fmt.Errorf("set default template: %w", err)
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	settings.DefaultTemplateID = id
	if err := s.settings.Save(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	_ = s.audits.Create(ctx, model.NewAuditLog(model.AuditTemplateDefault, "", actor,
		fmt.Sprintf("template %s is now the default", id)).WithMetadata("template_id", id))
	return nil
}

func (s *TemplateService) clearDefaultSetting(ctx context.Context, id string) error {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.DefaultTemplateID != id {
		return nil
	}
	settings.DefaultTemplateID = ""
	if err := s.settings.Save(ctx, settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func validateTemplate(tmpl model.ReplyTemplate) error {
	var errs []string
	if tmpl.ID == "" {
		errs = append(errs, "id is required")
	}
	if strings.TrimSpace(tmpl.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(tmpl.Body) == "" {
		errs = append(errs, "body is required")
	}
	if !tmpl.Category.Valid() {
		errs = append(errs, fmt.Sprintf("unknown category %q", tmpl.Category))
	}
	if tmpl.Rules.Trigger != "" && !tmpl.Rules.Trigger.Valid() {
		errs = append(errs, fmt.Sprintf("unknown trigger %q", tmpl.Rules.Trigger))
	}
	switch tmpl.Rules.Sentiment {
	case "", model.SentimentAny, model.SentimentPositive, model.SentimentNeutral, model.SentimentNegative:
	default:
		errs = append(errs, fmt.Sprintf("unknown sentiment %q", tmpl.Rules.Sentiment))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTemplate, strings.Join(errs, "; "))
	}
	return nil
}
