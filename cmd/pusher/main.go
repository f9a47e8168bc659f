package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/config"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/dedup"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/filter"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/publisher"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/scheduler"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/service"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/source/rss"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/translate"
	"github.com/wangzetysx-web/crypto-policy-rss/internal/wecom"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	interval := flag.Duration("interval", 0, "run repeatedly at this interval (default: run once)")
	runTimeout := flag.Duration("run-timeout", 10*time.Minute, "deadline for a single run")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	if len(cfg.EnabledFeeds()) == 0 {
		logger.Error("no enabled feeds configured")
		os.Exit(1)
	}

	// Seen-store backend
	var store dedup.Store
	switch cfg.State.Driver {
	case "postgres":
		db, err := sqlx.Connect("postgres", cfg.State.Database.DSN())
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		store = dedup.NewPostgresStore(db)
		logger.Info("using postgres seen-store")
	default:
		store = dedup.OpenFile(cfg.State.Path, logger)
		logger.Info("using file seen-store", "path", cfg.State.Path)
	}
	defer store.Close()

	// Translation chain: configured external engines, glossary last.
	var backends []translate.Backend
	for _, ep := range cfg.Translate.Endpoints {
		backends = append(backends, translate.NewHTTPBackend(
			ep.Name, ep.URL, cfg.Translate.TargetLanguage, cfg.Translate.Timeout))
	}
	engine := translate.NewEngine(backends, cfg.Translate.InterCallDelay, logger)

	// Optional downstream publisher
	var pub service.Publisher
	if cfg.Publish.URL != "" {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.Publish.URL,
			Exchange:   cfg.Publish.Exchange,
			RoutingKey: cfg.Publish.RoutingKey,
			QueueName:  cfg.Publish.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbitMQ.Close()
		pub = rabbitMQ
	}

	if cfg.Delivery.WebhookURL == "" && !cfg.DryRun {
		logger.Error("delivery webhook missing: set WECOM_WEBHOOK_URL or delivery.webhook_url")
		os.Exit(1)
	}

	pipeline := service.NewPipeline(
		rss.New(rss.Config{
			Timeout:          cfg.Fetch.Timeout,
			SummaryMaxLength: cfg.Fetch.SummaryMaxLength,
			MaxAttempts:      cfg.Fetch.Retry.MaxAttempts,
			InitialBackoff:   cfg.Fetch.Retry.InitialBackoff,
			MaxBackoff:       cfg.Fetch.Retry.MaxBackoff,
		}, logger),
		filter.NewPolicy(cfg.Keywords, cfg.TagFilter),
		engine,
		store,
		wecom.NewClientFromDelivery(cfg.Delivery, cfg.DryRun, logger),
		pub,
		logger,
		cfg,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting crypto policy pusher",
		"feeds", len(cfg.EnabledFeeds()),
		"dry_run", cfg.DryRun,
		"force_run", cfg.ForceRun,
	)

	if *interval > 0 {
		sched := scheduler.NewScheduler(pipeline, *interval, *runTimeout, logger)
		if err := sched.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("scheduler error", "error", err)
			os.Exit(1)
		}
		return
	}

	runCtx, cancelRun := context.WithTimeout(ctx, *runTimeout)
	defer cancelRun()

	if _, err := pipeline.Run(runCtx); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
