package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonny/engagebot/internal/adapter/outbound/notification"
	slacknotifier "github.com/jonny/engagebot/internal/adapter/outbound/notification/slack"
	"github.com/jonny/engagebot/internal/adapter/outbound/persistence/dbretry"
	"github.com/jonny/engagebot/internal/adapter/outbound/persistence/sqlstore"
	"github.com/jonny/engagebot/internal/adapter/outbound/publisher"
	kafkapublisher "github.com/jonny/engagebot/internal/adapter/outbound/publisher/kafka"
	"github.com/jonny/engagebot/internal/config"
	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
	"github.com/jonny/engagebot/pkg/health"
)

func storeConfig(cfg config.DatabaseConfig) sqlstore.Config {
	return sqlstore.Config{
		Driver: cfg.Driver,
		SQLite: sqlstore.SQLiteConfig{
			Path:              cfg.SQLite.Path,
			MaxOpenConns:      cfg.SQLite.MaxOpenConns,
			PragmaJournalMode: cfg.SQLite.PragmaJournalMode,
			PragmaBusyTimeout: cfg.SQLite.PragmaBusyTimeout,
		},
		Postgres: sqlstore.PostgresConfig{
			Host:         cfg.Postgres.Host,
			Port:         cfg.Postgres.Port,
			User:         cfg.Postgres.User,
			Password:     cfg.Postgres.Password,
			Database:     cfg.Postgres.Database,
			SSLMode:      cfg.Postgres.SSLMode,
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
		},
		Retry: dbretry.Policy{
			MaxRetries:      cfg.Retry.MaxRetries,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
		},
	}
}

// seedSettings writes the configured auto-reply defaults when no settings
// row exists yet. Stored settings always win over the file.
func seedSettings(ctx context.Context, repo outbound.SettingsRepository, cfg config.AutoReplyConfig) error {
	current, err := repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !current.UpdatedAt.IsZero() {
		return nil
	}
	current.AutoReplyEnabled = cfg.Enabled
	current.BotUsername = cfg.BotUsername
	current.CompanyName = cfg.CompanyName
	if err := repo.Save(ctx, current); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

func bootstrapTemplates(cfgs []config.TemplateConfig) []model.ReplyTemplate {
	out := make([]model.ReplyTemplate, 0, len(cfgs))
	for _, c := range cfgs {
		category := model.TemplateCategory(strings.TrimSpace(c.Category))
		if category == "" {
			category = model.CategoryGeneral
		}
		tmpl := model.NewReplyTemplate(c.Name, c.Body, category).
			WithRules(model.MatchRules{
				Keywords:  c.Keywords,
				Sentiment: model.Sentiment(c.Sentiment),
				Trigger:   model.TriggerMode(c.Trigger),
			}).
			WithActive(c.IsActive()).
			WithDefault(c.Default)
		out = append(out, tmpl)
	}
	return out
}

func buildNotifier(cfg config.SlackConfig, logger *slog.Logger) outbound.Notifier {
	if !cfg.Enabled {
		logger.Info("slack notifications disabled")
		return notification.NewNoopNotifier(logger)
	}
	return slacknotifier.NewNotifier(slacknotifier.Config{
		BotToken: cfg.BotToken,
		Channel:  cfg.Channel,
		APIURL:   cfg.APIURL,
		Timeout:  cfg.Timeout,
	})
}

func buildPublisher(cfg config.KafkaConfig, logger *slog.Logger) (outbound.OutcomePublisher, error) {
	if !cfg.Enabled {
		return publisher.NewNoopPublisher(logger), nil
	}
	p, err := kafkapublisher.NewPublisher(kafkapublisher.Config{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		BatchTimeout: cfg.BatchTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create kafka publisher: %w", err)
	}
	return p, nil
}

type queueLength interface {
	Len() int
}

// queueCheck fails readiness while the dispatch queue is full; replies are
// then sent inline on the request path.
func queueCheck(q queueLength, capacity int) health.CheckFunc {
	return func(context.Context) error {
		if n := q.Len(); capacity > 0 && n >= capacity {
			return fmt.Errorf("dispatch queue full (%d jobs)", n)
		}
		return nil
	}
}
