package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonny/engagebot/internal/domain/model"
)

// TemplateRepo persists reply templates.
type TemplateRepo struct {
	store *Store
}

func NewTemplateRepo(store *Store) *TemplateRepo {
	return &TemplateRepo{store: store}
}

const templateColumns = `id, name, body, category, is_active, is_default, keywords,
	sentiment, trigger_mode, usage_count, created_at, updated_at`

func (r *TemplateRepo) Create(ctx context.Context, t model.ReplyTemplate) (model.ReplyTemplate, error) {
	keywords, err := marshalStrings(t.Rules.Keywords)
	if err != nil {
		return model.ReplyTemplate{}, fmt.Errorf("marshaling keywords: %w", err)
	}

	q := `INSERT INTO reply_templates (` + templateColumns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	err = r.store.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.store.exec(ctx, q,
			t.ID, t.Name, t.Body, string(t.Category), t.IsActive, t.IsDefault,
			keywords, string(t.Rules.Sentiment), string(t.Rules.Trigger),
			t.UsageCount, t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		)
		return err
	})
	if err != nil {
		return model.ReplyTemplate{}, mapWriteError("inserting template", err)
	}
	return t, nil
}

func (r *TemplateRepo) GetByID(ctx context.Context, id string) (model.ReplyTemplate, error) {
	q := `SELECT ` + templateColumns + ` FROM reply_templates WHERE id = ?`
	t, err := scanTemplate(r.store.queryRow(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ReplyTemplate{}, notFound("template", id)
	}
	if err != nil {
		return model.ReplyTemplate{}, fmt.Errorf("fetching template: %w", err)
	}
	return t, nil
}

func (r *TemplateRepo) Update(ctx context.Context, t model.ReplyTemplate) (model.ReplyTemplate, error) {
	keywords, err := marshalStrings(t.Rules.Keywords)
	if err != nil {
		return model.ReplyTemplate{}, fmt.Errorf("marshaling keywords: %w", err)
	}

	const q = `UPDATE reply_templates SET
		name=?, body=?, category=?, is_active=?, is_default=?, keywords=?,
		sentiment=?, trigger_mode=?, updated_at=?
		WHERE id=?`

	var affected int64
	err = r.store.withRetry(ctx, func(ctx context.Context) error {
		res, err := r.store.exec(ctx, q,
			t.Name, t.Body, string(t.Category), t.IsActive, t.IsDefault, keywords,
			string(t.Rules.Sentiment), string(t.Rules.Trigger), t.UpdatedAt.UTC(), t.ID,
		)
		if err != nil {
			return err
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return model.ReplyTemplate{}, fmt.Errorf("updating template: %w", err)
	}
	if affected == 0 {
		return model.ReplyTemplate{}, notFound("template", t.ID)
	}
	return t, nil
}

// List returns every template in creation order.
func (r *TemplateRepo) List(ctx context.Context) ([]model.ReplyTemplate, error) {
	return r.list(ctx, `SELECT `+templateColumns+` FROM reply_templates ORDER BY created_at ASC, id ASC`)
}

// ListActive returns active templates in creation order. The selector breaks
// score ties by this order.
func (r *TemplateRepo) ListActive(ctx context.Context) ([]model.ReplyTemplate, error) {
	return r.list(ctx, `SELECT `+templateColumns+` FROM reply_templates WHERE is_active = ? ORDER BY created_at ASC, id ASC`, true)
}

func (r *TemplateRepo) list(ctx context.Context, q string, args ...any) ([]model.ReplyTemplate, error) {
	rows, err := r.store.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()

	var out []model.ReplyTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating templates: %w", err)
	}
	return out, nil
}

// SetDefault makes id the only default template.
func (r *TemplateRepo) SetDefault(ctx context.Context, id string) error {
	return r.store.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.store.DB.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			r.store.rebind(`UPDATE reply_templates SET is_default = ? WHERE is_default = ? AND id <> ?`),
			false, true, id); err != nil {
			return fmt.Errorf("clearing default: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			r.store.rebind(`UPDATE reply_templates SET is_default = ? WHERE id = ?`), true, id)
		if err != nil {
			return fmt.Errorf("setting default: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("template", id)
		}
		return tx.Commit()
	})
}

func (r *TemplateRepo) IncrementUsage(ctx context.Context, id string) error {
	var affected int64
	err := r.store.withRetry(ctx, func(ctx context.Context) error {
		res, err := r.store.exec(ctx, `UPDATE reply_templates SET usage_count = usage_count + 1 WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("incrementing template usage: %w", err)
	}
	if affected == 0 {
		return notFound("template", id)
	}
	return nil
}

func scanTemplate(s rowScanner) (model.ReplyTemplate, error) {
	var (
		t                  model.ReplyTemplate
		category, keywords string
		sentiment, trigger string
	)
	err := s.Scan(
		&t.ID, &t.Name, &t.Body, &category, &t.IsActive, &t.IsDefault, &keywords,
		&sentiment, &trigger, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return model.ReplyTemplate{}, err
	}
	t.Category = model.TemplateCategory(category)
	t.Rules = model.MatchRules{
		Keywords:  unmarshalStrings(keywords),
		Sentiment: model.Sentiment(sentiment),
		Trigger:   model.TriggerMode(trigger),
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}
