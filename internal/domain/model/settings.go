package model

import "time"

// Settings is the single row of operator-level switches the engine reads on
// every decision.
type Settings struct {
	AutoReplyEnabled  bool      `json:"auto_reply_enabled"`
	DefaultTemplateID string    `json:"default_template_id"`
	BotUsername       string    `json:"bot_username"`
	PageAccessToken   string    `json:"-"`
	CompanyName       string    `json:"company_name"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultSettings is used when nothing has been stored yet. Auto-reply starts
// enabled.
func DefaultSettings() Settings {
	return Settings{AutoReplyEnabled: true}
}
