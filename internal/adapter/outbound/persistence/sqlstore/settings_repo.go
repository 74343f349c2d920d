package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonny/engagebot/internal/domain/model"
)

// SettingsRepo stores the single settings row (id = 1).
type SettingsRepo struct {
	store *Store
}

func NewSettingsRepo(store *Store) *SettingsRepo {
	return &SettingsRepo{store: store}
}

func (r *SettingsRepo) Get(ctx context.Context) (model.Settings, error) {
	const q = `SELECT auto_reply_enabled, default_template_id, bot_username,
		page_access_token, company_name, updated_at FROM settings WHERE id = 1`

	var s model.Settings
	err := r.store.queryRow(ctx, q).Scan(
		&s.AutoReplyEnabled, &s.DefaultTemplateID, &s.BotUsername,
		&s.PageAccessToken, &s.CompanyName, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("fetching settings: %w", err)
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *SettingsRepo) Save(ctx context.Context, s model.Settings) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO settings
		(id, auto_reply_enabled, default_template_id, bot_username, page_access_token, company_name, updated_at)
		VALUES (1,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET
		 auto_reply_enabled = excluded.auto_reply_enabled,
		 default_template_id = excluded.default_template_id,
		 bot_username = excluded.bot_username,
		 page_access_token = excluded.page_access_token,
		 company_name = excluded.company_name,
		 updated_at = excluded.updated_at`

	err := r.store.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.store.exec(ctx, q,
			s.AutoReplyEnabled, s.DefaultTemplateID, s.BotUsername,
			s.PageAccessToken, s.CompanyName, s.UpdatedAt.UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
