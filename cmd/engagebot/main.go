package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/jonny/engagebot/internal/adapter/inbound/webhook"
	"github.com/jonny/engagebot/internal/adapter/inbound/webhook/parser"
	"github.com/jonny/engagebot/internal/adapter/outbound/messaging/graph"
	"github.com/jonny/engagebot/internal/adapter/outbound/nlp/keyword"
	"github.com/jonny/engagebot/internal/adapter/outbound/persistence/sqlstore"
	"github.com/jonny/engagebot/internal/config"
	"github.com/jonny/engagebot/internal/domain/service"
	"github.com/jonny/engagebot/pkg/health"
	"github.com/jonny/engagebot/pkg/version"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before the config")
	printVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Error("failed to load env file", "path", *envFile, "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Logging)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("engagebot stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	store, err := sqlstore.NewStore(storeConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	defer store.Close()

	repos := service.Repositories{
		Deliveries:   sqlstore.NewDeliveryRepo(store),
		Events:       sqlstore.NewEventRepo(store),
		Interactions: sqlstore.NewInteractionRepo(store),
		Templates:    sqlstore.NewTemplateRepo(store),
		Candidates:   sqlstore.NewCandidateRepo(store),
		Settings:     sqlstore.NewSettingsRepo(store),
		Audits:       sqlstore.NewAuditRepo(store),
	}

	if err := seedSettings(ctx, repos.Settings, cfg.AutoReply); err != nil {
		return err
	}

	// --- Classification & templates ---
	classifier := keyword.NewClassifier()

	phrases := append([]string{}, service.DefaultLoopPhrases...)
	phrases = append(phrases, cfg.AutoReply.LoopPhrases...)
	phrases = append(phrases, classifier.CannedReplies()...)
	guard := service.NewLoopGuard(phrases...)
	logger.Debug("loop guard ready", "phrases", len(guard.Phrases()))

	templates := service.NewTemplateService(repos.Templates, repos.Settings, repos.Audits, logger)
	created, err := templates.Bootstrap(ctx, bootstrapTemplates(cfg.Templates))
	if err != nil {
		return fmt.Errorf("bootstrap templates: %w", err)
	}
	if created > 0 {
		logger.Info("bootstrap templates stored", "count", created)
	}
	if _, _, err := templates.EnsureSeed(ctx); err != nil {
		return fmt.Errorf("seed template: %w", err)
	}

	candidates := service.NewCandidateTracker(repos.Candidates)

	// --- Outbound adapters ---
	messenger := graph.NewClient(graph.Config{
		InstagramBaseURL: cfg.Instagram.BaseURL,
		GraphBaseURL:     cfg.Instagram.GraphBaseURL,
		AccountID:        cfg.Instagram.AccountID,
		AccessToken:      cfg.Instagram.AccessToken,
		Timeout:          cfg.Instagram.Timeout,
	}, repos.Settings, logger)

	notifier := buildNotifier(cfg.Slack, logger)

	publisher, err := buildPublisher(cfg.Events.Kafka, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("closing outcome publisher", "error", err)
		}
	}()

	// --- Dispatch ---
	dispatcher := service.NewDispatcher(messenger, repos.Interactions, repos.Audits,
		candidates, notifier, publisher, cfg.Dispatch.Timeout, logger)

	var runner service.JobRunner = service.InlineRunner{Dispatcher: dispatcher}
	var queue *service.DispatchQueue
	if cfg.Dispatch.Async {
		queue = service.NewDispatchQueue(dispatcher, cfg.Dispatch.Workers, cfg.Dispatch.QueueSize, logger)
		queue.Start(ctx)
		defer queue.Close()
		runner = queue
	}

	engine := service.NewEngine(repos, classifier, templates, candidates, guard, runner,
		service.EngineConfig{
			BotUsername:           cfg.AutoReply.BotUsername,
			CompanyName:           cfg.AutoReply.CompanyName,
			ReplyToDirectMessages: cfg.AutoReply.ReplyToDirectMessages,
		}, logger)

	// --- Health checker ---
	checker := health.NewChecker(version.Version)
	checker.Register("database", store.Ping)
	if queue != nil {
		checker.Register("dispatch_queue", queueCheck(queue, cfg.Dispatch.QueueSize))
	}

	// --- Webhook ---
	handler := webhook.NewHandler(parser.NewDefaultRegistry(), engine, cfg.Webhook.AppSecret, logger)
	admin := webhook.NewAdminHandler(templates, engine, logger)

	rateLimit := 0
	if cfg.Webhook.RateLimit.Enabled {
		rateLimit = cfg.Webhook.RateLimit.RequestsPerMinute
	}
	if cfg.Webhook.AppSecret == "" {
		logger.Warn("webhook.appSecret not set; callback signatures will not be verified")
	}

	webhookServer := webhook.NewServer(webhook.ServerConfig{
		Port:            cfg.Server.Port,
		Path:            cfg.Webhook.Path,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		VerifyToken:     cfg.Webhook.VerifyToken,
		AdminToken:      cfg.Admin.Token,
		RateLimit:       rateLimit,
		TrustProxy:      cfg.Webhook.TrustProxy,
	}, handler, admin, checker.LivenessHandler(), logger)

	// --- Metrics server ---
	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/healthz", checker.LivenessHandler())
	metricsMux.HandleFunc("/readyz", checker.ReadinessHandler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Webhook HTTP server.
	g.Go(func() error {
		logger.Info("starting webhook server", "port", cfg.Server.Port, "path", cfg.Webhook.Path)
		return webhookServer.Start(gCtx)
	})

	// Metrics/health server.
	if cfg.Server.MetricsPort > 0 {
		g.Go(func() error {
			logger.Info("starting metrics server", "port", cfg.Server.MetricsPort)
			errCh := make(chan error, 1)
			go func() {
				if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
				close(errCh)
			}()
			select {
			case <-gCtx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return metricsServer.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			}
		})
	}

	logger.Info("engagebot started",
		"version", version.String(),
		"driver", store.Dialect(),
		"asyncDispatch", cfg.Dispatch.Async,
		"slack", cfg.Slack.Enabled,
		"kafka", cfg.Events.Kafka.Enabled,
	)

	return g.Wait()
}

// buildLogger constructs a slog.Logger based on config.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	out := os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}
