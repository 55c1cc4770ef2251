package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zedcmms/internal/config"
	"zedcmms/internal/handler"
	"zedcmms/internal/infra"
	"zedcmms/internal/router"
	"zedcmms/internal/scheduler"
	"zedcmms/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	roles, err := config.LoadRoles(cfg.RolesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load roles")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL, cfg.WorkerPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Queue and e-mail worker pool
	broker := worker.NewRedisBroker(rdb)
	dispatcher := worker.NewDispatcher(broker)
	mailer := infra.NewMailer(cfg)
	if !mailer.Enabled() {
		log.Warn().Msg("SMTP_HOST not set, notification e-mails will be dead-lettered")
	}
	pool := worker.NewPool(broker, cfg.WorkerPoolSize)
	pool.Register(worker.QueueEmail, worker.JobTypeEmail, worker.NewEmailWorker(mailer,
		infra.NewCircuitBreaker(infra.BreakerConfig{FailureThreshold: 5, OpenTimeout: time.Minute})))
	pool.Start(ctx)

	svc := router.NewServices(cfg, db, roles, dispatcher, infra.NewReportStore(cfg))
	if err := svc.Permissions.EnsureRoles(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed roles")
	}

	var jobs handler.JobRunner
	sched := scheduler.New(cfg, scheduler.Deps{
		PM:            svc.PM,
		Reservations:  svc.Reservations,
		Notifications: svc.Notifications,
		Audit:         svc.Audit,
	})
	if cfg.SchedulerEnabled {
		if err := sched.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start scheduler")
		}
		jobs = sched
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(ctx, cfg, db, rdb, svc, jobs),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("CMMS backend listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown on SIGINT / SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	sched.Stop(shutdownCtx)
	cancel()
	pool.Wait()
	_ = rdb.Close()
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}

// setupLogger: pretty console output in development, JSON in production.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "cmms").Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
