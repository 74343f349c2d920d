package config

import (
	"fmt"
	"strings"
)

var (
	validDrivers    = map[string]bool{"sqlite": true, "postgres": true}
	validCategories = map[string]bool{"general": true, "job_interest": true, "thanks": true, "inquiry": true, "custom": true}
	validSentiments = map[string]bool{"positive": true, "negative": true, "neutral": true, "any": true}
	validTriggers   = map[string]bool{"always": true, "keyword": true, "sentiment": true, "both": true}
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "text": true}
)

// Validate checks the config for errors.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		errs = append(errs, "server.metricsPort must be between 0 and 65535")
	}
	if cfg.Server.MetricsPort != 0 && cfg.Server.MetricsPort == cfg.Server.Port {
		errs = append(errs, "server.metricsPort must differ from server.port")
	}

	if !strings.HasPrefix(cfg.Webhook.Path, "/") {
		errs = append(errs, fmt.Sprintf("webhook.path must start with / (got %q)", cfg.Webhook.Path))
	}
	if cfg.Webhook.RateLimit.Enabled && cfg.Webhook.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, "webhook.rateLimit.requestsPerMinute must be positive when rate limiting is enabled")
	}

	if cfg.Instagram.BaseURL == "" {
		errs = append(errs, "instagram.baseURL is required")
	}
	if cfg.Instagram.GraphBaseURL == "" {
		errs = append(errs, "instagram.graphBaseURL is required")
	}

	if cfg.Dispatch.Async {
		if cfg.Dispatch.Workers <= 0 {
			errs = append(errs, "dispatch.workers must be positive when dispatch is async")
		}
		if cfg.Dispatch.QueueSize < 0 {
			errs = append(errs, "dispatch.queueSize must not be negative")
		}
	}

	defaults := 0
	for i, t := range cfg.Templates {
		prefix := fmt.Sprintf("templates[%d]", i)
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, prefix+".name is required")
		}
		if strings.TrimSpace(t.Body) == "" {
			errs = append(errs, prefix+".body is required")
		}
		if t.Category != "" && !validCategories[t.Category] {
			errs = append(errs, fmt.Sprintf("%s.category %q is not a known category", prefix, t.Category))
		}
		if t.Sentiment != "" && !validSentiments[t.Sentiment] {
			errs = append(errs, fmt.Sprintf("%s.sentiment must be positive, negative, neutral or any (got %q)", prefix, t.Sentiment))
		}
		if t.Trigger != "" && !validTriggers[t.Trigger] {
			errs = append(errs, fmt.Sprintf("%s.trigger must be always, keyword, sentiment or both (got %q)", prefix, t.Trigger))
		}
		if t.Default {
			defaults++
		}
	}
	if defaults > 1 {
		errs = append(errs, "at most one bootstrap template can be the default")
	}

	if !validDrivers[cfg.Database.Driver] {
		errs = append(errs, fmt.Sprintf("database.driver must be sqlite or postgres (got %q)", cfg.Database.Driver))
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.SQLite.Path == "" {
		errs = append(errs, "database.sqlite.path is required when driver is sqlite")
	}
	if cfg.Database.Driver == "postgres" {
		if cfg.Database.Postgres.Host == "" {
			errs = append(errs, "database.postgres.host is required when driver is postgres")
		}
		if cfg.Database.Postgres.Database == "" {
			errs = append(errs, "database.postgres.database is required when driver is postgres")
		}
	}

	if cfg.Slack.Enabled {
		if cfg.Slack.BotToken == "" {
			errs = append(errs, "slack.botToken is required when slack is enabled")
		}
		if cfg.Slack.Channel == "" {
			errs = append(errs, "slack.channel is required when slack is enabled")
		}
	}

	if cfg.Events.Kafka.Enabled {
		if len(cfg.Events.Kafka.Brokers) == 0 {
			errs = append(errs, "events.kafka.brokers is required when kafka is enabled")
		}
		if cfg.Events.Kafka.Topic == "" {
			errs = append(errs, "events.kafka.topic is required when kafka is enabled")
		}
	}

	if !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging.level must be debug, info, warn or error (got %q)", cfg.Logging.Level))
	}
	if !validLogFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be json or text (got %q)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
