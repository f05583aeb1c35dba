package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/harborvet/vetpms/cmd/mainconfig"
	"github.com/harborvet/vetpms/internal/api/router"
	"github.com/harborvet/vetpms/internal/appointments"
	"github.com/harborvet/vetpms/internal/auth"
	"github.com/harborvet/vetpms/internal/billing"
	"github.com/harborvet/vetpms/internal/clinics"
	appconfig "github.com/harborvet/vetpms/internal/config"
	"github.com/harborvet/vetpms/internal/inventory"
	"github.com/harborvet/vetpms/internal/notify"
	"github.com/harborvet/vetpms/internal/observability/metrics"
	"github.com/harborvet/vetpms/internal/patients"
	"github.com/harborvet/vetpms/internal/reports"
	"github.com/harborvet/vetpms/internal/scheduling"
	"github.com/harborvet/vetpms/internal/tenants"
	"github.com/harborvet/vetpms/internal/users"
	"github.com/harborvet/vetpms/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting vetpms API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.SessionJWTSecret == "" {
		logger.Error("SESSION_JWT_SECRET is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// The reports service runs aggregate queries over database/sql; reuse
	// the pgx pool rather than opening a second connection set.
	sqlDB := stdlib.OpenDBFromPool(pool)

	redisClient := newRedisClient(cfg)
	var locker scheduling.Locker = scheduling.NoopLocker{}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, slot locking degraded to exclusion constraint only", "error", err)
	} else {
		locker = scheduling.NewRedisLocker(redisClient, logger)
	}

	reg := prometheus.DefaultRegisterer
	schedulingMetrics := metrics.NewSchedulingMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	// Notification transports. Each is optional; an unconfigured channel is
	// skipped by the notify service rather than stubbed with errors.
	var emailSender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			emailSender = sender
		}
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		emailSender = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
	}
	if emailSender == nil {
		emailSender = notify.NewStubEmailSender(logger)
	}

	var smsSender notify.SMSSender
	if sender := notify.NewHTTPSMSSender(notify.SMSGatewayConfig{
		GatewayURL: cfg.SMSGatewayURL,
		APIKey:     cfg.SMSGatewayKey,
	}, logger); sender != nil {
		smsSender = sender
	}

	var reminderQueue notify.Queue
	if cfg.UseMemoryQueue {
		reminderQueue = notify.NewMemoryQueue(64)
	} else if cfg.ReminderQueueURL != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		reminderQueue = notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ReminderQueueURL)
	} else {
		logger.Warn("no reminder queue configured, appointment reminders disabled")
	}

	// Repositories and services.
	patientsRepo := patients.NewRepository(pool)
	appointmentsRepo := appointments.NewRepository(pool)
	settingsStore := clinics.NewSettingsStore(redisClient)

	notifySvc := notify.NewService(
		emailSender,
		smsSender,
		settingsStore,
		patientsRepo,
		reminderQueue,
		notify.NewReminderRepository(pool),
		schedulingMetrics,
		logger,
	)

	guard := scheduling.NewGuard(appointmentsRepo, locker, logger)
	appointmentsSvc := appointments.NewService(appointmentsRepo, guard, notifySvc, schedulingMetrics, logger).WithHours(settingsStore)
	usersSvc := users.NewService(users.NewRepository(pool), schedulingMetrics, logger)

	// The memory queue only lives inside this process, so its worker has to
	// run here too. With SQS the standalone reminder-worker binary consumes.
	if cfg.UseMemoryQueue && reminderQueue != nil {
		worker := notify.NewWorker(reminderQueue, notifySvc, cfg.ReminderLeadTime, cfg.WorkerPollEvery, logger)
		worker.Start(ctx)
		defer worker.Wait()
	}

	r := router.New(&router.Config{
		Logger:   logger,
		Resolver: auth.NewResolver(cfg.SessionJWTSecret),

		AppointmentsHandler: appointments.NewHandler(appointmentsSvc, logger),
		PatientsHandler:     patients.NewHandler(patientsRepo, logger),
		UsersHandler:        users.NewHandler(usersSvc, logger),
		ClinicsHandler:      clinics.NewHandler(clinics.NewRepository(pool), settingsStore, logger),
		TenantsHandler:      tenants.NewHandler(tenants.NewRepository(pool), logger),
		InventoryHandler:    inventory.NewHandler(inventory.NewRepository(pool), logger),
		BillingHandler:      billing.NewHandler(billing.NewRepository(pool), logger),
		ReportsHandler:      reports.NewHandler(reports.NewService(sqlDB), logger),

		MetricsHandler: promhttp.Handler(),
		HTTPMetrics:    httpMetrics,

		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func newRedisClient(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}
