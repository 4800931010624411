package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/medoffice/scheduler-api/internal/config"
	"github.com/medoffice/scheduler-api/internal/email"
	"github.com/medoffice/scheduler-api/internal/repository/postgres"
	appointmentService "github.com/medoffice/scheduler-api/internal/service/appointment"
	"github.com/medoffice/scheduler-api/internal/service/audit"
	"github.com/medoffice/scheduler-api/internal/service/syncer"
	"github.com/medoffice/scheduler-api/pkg/logger"
	"github.com/medoffice/scheduler-api/pkg/messaging/redis"
	"github.com/medoffice/scheduler-api/pkg/metrics"
	"github.com/medoffice/scheduler-api/pkg/worker"
)

// The worker is deployed as a standalone container, so unlike the API it
// is configured entirely from the environment.
type workerConfig struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	RedisURL    string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	HealthPort int `envconfig:"HEALTH_PORT" default:"8081"`

	OutboxBatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxRetries      int           `envconfig:"OUTBOX_RETRIES" default:"3"`
	OutboxRetryDelay   time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"1s"`

	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	SweepBatchSize int           `envconfig:"SWEEP_BATCH_SIZE" default:"100"`

	RetentionInterval  time.Duration `envconfig:"RETENTION_INTERVAL" default:"1h"`
	OutboxRetentionAge time.Duration `envconfig:"OUTBOX_RETENTION_AGE" default:"168h"`
	AuditRetentionAge  time.Duration `envconfig:"AUDIT_RETENTION_AGE" default:"2160h"`

	EmailEnabled  bool   `envconfig:"EMAIL_ENABLED" default:"false"`
	EmailHost     string `envconfig:"EMAIL_HOST" default:"localhost"`
	EmailPort     int    `envconfig:"EMAIL_PORT" default:"587"`
	EmailUsername string `envconfig:"EMAIL_USERNAME"`
	EmailPassword string `envconfig:"EMAIL_PASSWORD"`
	EmailFrom     string `envconfig:"EMAIL_FROM" default:"noreply@medoffice.local"`
}

func emailConfig(cfg workerConfig) config.EmailConfig {
	return config.EmailConfig{
		Enabled:  cfg.EmailEnabled,
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		Username: cfg.EmailUsername,
		Password: cfg.EmailPassword,
		From:     cfg.EmailFrom,
	}
}

func setupHealthCheck(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			appLogger.Fatal(err, "health check server failed")
		}
	}()
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("worker", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	store := postgres.NewStore(db)

	broker, err := redis.NewRedisBroker(redis.Config{URL: cfg.RedisURL}, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("medoffice", "scheduler_worker")

	sync := syncer.New()
	auditor := audit.NewService(store.Audit(), appLogger)
	appointmentSvc := appointmentService.NewService(store, sync, auditor, appLogger, appointmentService.Config{
		SweepBatchSize: cfg.SweepBatchSize,
	})

	outboxProcessor := worker.NewOutboxProcessor(store.Outbox(), broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.OutboxBatchSize,
		PollInterval:  cfg.OutboxPollInterval,
		RetryAttempts: cfg.OutboxRetries,
		RetryDelay:    cfg.OutboxRetryDelay,
	}, appLogger, m)

	sweeper := worker.NewSweeperWorker(appointmentSvc, cfg.SweepInterval, appLogger, m)
	retention := worker.NewRetentionWorker(store.Outbox(), store.Audit(),
		cfg.OutboxRetentionAge, cfg.AuditRetentionAge, cfg.RetentionInterval, appLogger)

	var mailer email.Service = email.NoopService{}
	if cfg.EmailEnabled {
		mailer = email.NewSMTPService(emailConfig(cfg), appLogger)
	}
	notifier := email.NewNotifier(broker, store.Doctors(), store.Appointments(), mailer, appLogger)

	setupHealthCheck(cfg.HealthPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.Info("shutting down...")
		cancel()
	}()

	go sweeper.Start(ctx)
	go retention.Start(ctx)
	go func() {
		if err := notifier.Run(ctx); err != nil && err != context.Canceled {
			appLogger.Error(err, "notifier stopped")
		}
	}()

	outboxProcessor.Start(ctx)
}
