package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medoffice/scheduler-api/internal/config"
	appointmentHandler "github.com/medoffice/scheduler-api/internal/handler/appointment"
	consultationHandler "github.com/medoffice/scheduler-api/internal/handler/consultation"
	healthHandler "github.com/medoffice/scheduler-api/internal/handler/health"
	officeHandler "github.com/medoffice/scheduler-api/internal/handler/office"
	"github.com/medoffice/scheduler-api/internal/repository/cached"
	"github.com/medoffice/scheduler-api/internal/repository/postgres"
	"github.com/medoffice/scheduler-api/internal/router"
	appointmentService "github.com/medoffice/scheduler-api/internal/service/appointment"
	"github.com/medoffice/scheduler-api/internal/service/audit"
	consultationService "github.com/medoffice/scheduler-api/internal/service/consultation"
	"github.com/medoffice/scheduler-api/internal/service/syncer"
	"github.com/medoffice/scheduler-api/pkg/auth"
	"github.com/medoffice/scheduler-api/pkg/logger"
	"github.com/medoffice/scheduler-api/pkg/messaging/redis"
	"github.com/medoffice/scheduler-api/pkg/metrics"
	"github.com/medoffice/scheduler-api/pkg/validator"
	"github.com/medoffice/scheduler-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	store := postgres.NewStore(db)

	officeTTL := cfg.Cache.OfficeTTL
	if officeTTL <= 0 {
		officeTTL = 5 * time.Minute
	}
	officeRepo := cached.NewOfficeRepository(store.Offices(), officeTTL)
	doctorRepo := cached.NewDoctorRepository(store.Doctors(), officeTTL)
	scheduleRepo := cached.NewScheduleRepository(store.Schedules(), officeTTL)

	m := metrics.NewMetrics("medoffice", "scheduler")
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	v := validator.New()

	sync := syncer.New()
	auditor := audit.NewService(store.Audit(), appLogger)
	appointmentSvc := appointmentService.NewService(store, sync, auditor, appLogger, appointmentService.Config{
		SlotStep:       cfg.Scheduling.SlotStep(),
		DoctorBuffer:   cfg.Scheduling.DoctorBuffer(),
		SweepBatchSize: cfg.Scheduling.SweepBatchSize,
	})
	consultationSvc := consultationService.NewService(store, sync, auditor, appLogger)

	handlers := router.Handlers{
		Health:       healthHandler.NewHandler(db),
		Office:       officeHandler.NewHandler(officeRepo, doctorRepo, scheduleRepo, appointmentSvc, v, m),
		Appointment:  appointmentHandler.NewHandler(appointmentSvc, m),
		Consultation: consultationHandler.NewHandler(consultationSvc, m),
	}

	r := router.New(cfg, jwtSvc, m, handlers)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The API publishes the outbox itself so a single-binary deployment
	// works without the worker; running both is safe, the processor
	// claims events transactionally.
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxProcessor := worker.NewOutboxProcessor(store.Outbox(), broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, appLogger, m)
	go outboxProcessor.Start(ctx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	appLogger.Info("server started", "port", cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}
