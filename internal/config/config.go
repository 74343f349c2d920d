package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Webhook   WebhookConfig    `yaml:"webhook"`
	Instagram InstagramConfig  `yaml:"instagram"`
	AutoReply AutoReplyConfig  `yaml:"autoReply"`
	Dispatch  DispatchConfig   `yaml:"dispatch"`
	Templates []TemplateConfig `yaml:"templates"`
	Database  DatabaseConfig   `yaml:"database"`
	Slack     SlackConfig      `yaml:"slack"`
	Events    EventsConfig     `yaml:"events"`
	Admin     AdminConfig      `yaml:"admin"`
	Logging   LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MetricsPort     int           `yaml:"metricsPort"`
}

type WebhookConfig struct {
	Path        string          `yaml:"path"`
	AppSecret   string          `yaml:"appSecret"`
	VerifyToken string          `yaml:"verifyToken"`
	RateLimit   RateLimitConfig `yaml:"rateLimit"`
	TrustProxy  bool            `yaml:"trustProxy"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
}

type InstagramConfig struct {
	BaseURL      string        `yaml:"baseURL"`
	GraphBaseURL string        `yaml:"graphBaseURL"`
	AccountID    string        `yaml:"accountID"`
	AccessToken  string        `yaml:"accessToken"`
	Timeout      time.Duration `yaml:"timeout"`
}

type AutoReplyConfig struct {
	// Enabled seeds settings.autoReplyEnabled when no settings are stored.
	Enabled               bool     `yaml:"enabled"`
	BotUsername           string   `yaml:"botUsername"`
	CompanyName           string   `yaml:"companyName"`
	LoopPhrases           []string `yaml:"loopPhrases"`
	ReplyToDirectMessages bool     `yaml:"replyToDirectMessages"`
}

type DispatchConfig struct {
	Async     bool          `yaml:"async"`
	Workers   int           `yaml:"workers"`
	QueueSize int           `yaml:"queueSize"`
	Timeout   time.Duration `yaml:"timeout"`
}

type TemplateConfig struct {
	Name      string   `yaml:"name"`
	Body      string   `yaml:"body"`
	Category  string   `yaml:"category"`
	Active    *bool    `yaml:"active"`
	Default   bool     `yaml:"default"`
	Keywords  []string `yaml:"keywords"`
	Sentiment string   `yaml:"sentiment"`
	Trigger   string   `yaml:"trigger"`
}

// IsActive reports whether the template starts active. Unset means active.
func (t TemplateConfig) IsActive() bool {
	return t.Active == nil || *t.Active
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Retry    RetryConfig    `yaml:"retry"`
}

type SQLiteConfig struct {
	Path              string `yaml:"path"`
	MaxOpenConns      int    `yaml:"maxOpenConns"`
	PragmaJournalMode string `yaml:"pragmaJournalMode"`
	PragmaBusyTimeout int    `yaml:"pragmaBusyTimeout"`
}

type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"sslMode"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
}

type RetryConfig struct {
	MaxRetries      uint64        `yaml:"maxRetries"`
	InitialInterval time.Duration `yaml:"initialInterval"`
	MaxInterval     time.Duration `yaml:"maxInterval"`
	MaxElapsedTime  time.Duration `yaml:"maxElapsedTime"`
}

type SlackConfig struct {
	Enabled  bool          `yaml:"enabled"`
	BotToken string        `yaml:"botToken"`
	Channel  string        `yaml:"channel"`
	APIURL   string        `yaml:"apiURL"`
	Timeout  time.Duration `yaml:"timeout"`
}

type EventsConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
}

type AdminConfig struct {
	Token string `yaml:"token"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads a YAML config file and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MetricsPort:     9090,
		},
		Webhook: WebhookConfig{
			Path:      "/webhook",
			RateLimit: RateLimitConfig{Enabled: true, RequestsPerMinute: 600},
		},
		Instagram: InstagramConfig{
			BaseURL:      "https://graph.instagram.com/v18.0",
			GraphBaseURL: "https://graph.facebook.com/v18.0",
			Timeout:      30 * time.Second,
		},
		AutoReply: AutoReplyConfig{
			Enabled: true,
		},
		Dispatch: DispatchConfig{
			Async:     true,
			Workers:   4,
			QueueSize: 256,
			Timeout:   30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:              "/data/engagebot.db",
				MaxOpenConns:      1,
				PragmaJournalMode: "wal",
				PragmaBusyTimeout: 5000,
			},
			Postgres: PostgresConfig{
				Port:         5432,
				SSLMode:      "disable",
				MaxOpenConns: 10,
			},
			Retry: RetryConfig{
				MaxRetries:      5,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
				MaxElapsedTime:  30 * time.Second,
			},
		},
		Events: EventsConfig{
			Kafka: KafkaConfig{Topic: "engagebot.outcomes"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// expandEnvVars replaces ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "${" + key + "}"
	})
}
