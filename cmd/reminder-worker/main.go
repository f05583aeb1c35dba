package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/harborvet/vetpms/cmd/mainconfig"
	"github.com/harborvet/vetpms/internal/clinics"
	appconfig "github.com/harborvet/vetpms/internal/config"
	"github.com/harborvet/vetpms/internal/notify"
	"github.com/harborvet/vetpms/internal/patients"
	"github.com/harborvet/vetpms/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.UseMemoryQueue {
		logger.Error("the reminder worker needs a shared queue; with USE_MEMORY_QUEUE the API process consumes its own queue")
		os.Exit(1)
	}
	if cfg.ReminderQueueURL == "" {
		logger.Error("REMINDER_QUEUE_URL is required")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	queue := notify.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ReminderQueueURL)

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

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

	settingsStore := clinics.NewSettingsStore(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}))

	sender := notify.NewService(
		emailSender,
		smsSender,
		settingsStore,
		patients.NewRepository(pool),
		queue,
		notify.NewReminderRepository(pool),
		nil,
		logger,
	)

	worker := notify.NewWorker(queue, sender, cfg.ReminderLeadTime, cfg.WorkerPollEvery, logger)
	worker.Start(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down reminder worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("reminder worker stopped")
	case <-doneCtx.Done():
		logger.Error("reminder worker shutdown timed out", "error", doneCtx.Err())
	}
}
