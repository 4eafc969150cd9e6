package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-bot/internal/ai"
	"ai-bot/internal/cache"
	"ai-bot/internal/catalog"
	"ai-bot/internal/config"
	"ai-bot/internal/convo"
	"ai-bot/internal/entitlement"
	"ai-bot/internal/httpserver"
	"ai-bot/internal/locale"
	"ai-bot/internal/logging"
	"ai-bot/internal/metrics"
	"ai-bot/internal/payment"
	"ai-bot/internal/promo"
	"ai-bot/internal/repo"
	"ai-bot/internal/scheduler"
	"ai-bot/internal/session"
	"ai-bot/internal/wa"
	"ai-bot/migrations"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLoggerTo(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting ai-bot", "env", cfg.AppEnv, "database", cfg.DatabaseDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	repository, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repository.Close()
	logger.Info("database migrated")

	redisClient := cache.New(cache.Config{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		UseTLS:    cfg.RedisTLS,
		KeyPrefix: cfg.RedisPrefix,
	}, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed closing redis", "error", err)
		}
	}()
	if err := redisClient.Ping(ctx); err != nil {
		logger.Warn("redis ping failed", "error", err)
	}

	packages, err := catalog.New(catalog.DefaultPackages())
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	clock := entitlement.SystemClock{}
	entitlements := entitlement.NewService(packages, repository, clock, metricRegistry, logger)
	promos := promo.New(repository, clock, metricRegistry, logger)
	payments := payment.New(payment.Options{
		Catalog:       packages,
		Repository:    repository,
		Promos:        promos,
		Clock:         clock,
		Metrics:       metricRegistry,
		AdminIDs:      cfg.AdminIDs,
		PaymentTarget: cfg.PaymentTarget,
		PaymentHolder: cfg.PaymentHolder,
	}, logger)

	aiClient := ai.New(ai.Config{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Timeout: cfg.AITimeout,
	}, logger, metricRegistry, redisClient)
	if aiClient.Placeholder() {
		logger.Warn("AI_BASE_URL not set, answering with placeholders")
	}

	waClient, err := wa.New(ctx, wa.Config{
		StorePath: cfg.WhatsAppStorePath,
		LogLevel:  cfg.WhatsAppLogLevel,
		Metrics:   metricRegistry,
	}, logger)
	if err != nil {
		return fmt.Errorf("init whatsapp client: %w", err)
	}
	defer waClient.Close()

	convoEngine := convo.New(convo.Dependencies{
		Sender:      waClient,
		Repository:  repository,
		Catalog:     packages,
		Entitlement: entitlements,
		Payments:    payments,
		Promos:      promos,
		Sessions:    session.New(redisClient, cfg.SessionTTL),
		AI:          aiClient,
		Translator:  locale.New(cfg.DefaultLanguage),
		Clock:       clock,
		Metrics:     metricRegistry,
	}, convo.Config{AdminNotifyJID: cfg.AdminNotifyJID}, logger)
	waClient.SetMessageProcessor(convoEngine)
	payments.SetNotifier(convoEngine)

	waCtx, waCancel := context.WithCancel(ctx)
	defer waCancel()
	go func() {
		if err := waClient.Start(waCtx); err != nil {
			logger.Error("whatsapp client stopped", "error", err)
			stop()
		}
	}()

	jobs := scheduler.New(logger, metricRegistry, time.Minute)
	if err := jobs.Add("pending_reminder", cfg.PendingReminderCron, convoEngine.RemindPending); err != nil {
		return err
	}
	if err := jobs.Add("stats_digest", cfg.StatsDigestCron, convoEngine.SendDailyDigest); err != nil {
		return err
	}
	jobs.Start()

	handlers := httpserver.Handlers{}
	if cfg.AdminUserMD5 != "" && cfg.AdminPasswordMD5 != "" {
		handlers.Admin = httpserver.NewAdminHandler(httpserver.AdminConfig{
			UsernameMD5: cfg.AdminUserMD5,
			PasswordMD5: cfg.AdminPasswordMD5,
			Payments:    payments,
			Promos:      promos,
			Notifier:    convoEngine,
			Metrics:     metricRegistry,
		}, logger)
	} else {
		logger.Info("admin api disabled, set ADMIN_API_USER_MD5 and ADMIN_API_PASSWORD_MD5 to enable")
	}

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, handlers, cfg.PublicBasePath)
	httpSrv.SetDependencies(httpserver.Dependencies{
		Repository: repository,
		Redis:      redisClient,
		WhatsApp:   waClient,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	jobs.Stop(shutdownCtx)

	return nil
}

// openRepository connects the configured database and applies migrations.
func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repo.Repository, error) {
	var (
		repository repo.Repository
		files      fs.FS
		err        error
	)
	switch cfg.DatabaseDriver {
	case "postgres":
		repository, err = repo.New(ctx, cfg.DatabaseURL, cfg.DatabaseSchema, logger)
		files = migrations.Postgres()
	default:
		repository, err = repo.NewSQLite(ctx, cfg.SQLitePath, logger)
		files = migrations.SQLite()
	}
	if err != nil {
		return nil, fmt.Errorf("init repository: %w", err)
	}
	if err := repository.RunMigrations(ctx, files); err != nil {
		repository.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return repository, nil
}
