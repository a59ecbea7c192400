package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"mailscheduler/config"
	"mailscheduler/internal/adapters/auth"
	"mailscheduler/internal/adapters/email"
	"mailscheduler/internal/adapters/queue"
	httpdelivery "mailscheduler/internal/delivery/http"
	"mailscheduler/internal/delivery/http/controllers"
	"mailscheduler/internal/delivery/http/middleware"
	"mailscheduler/internal/dispatch"
	"mailscheduler/internal/domain"
	"mailscheduler/internal/repository/postgres"
	"mailscheduler/internal/services"
)

// @title Mail Scheduler API
// @version 1.0
// @description Schedule emails for future delivery.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := config.NewLogger()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Info("Connected to PostgreSQL")

	repo := postgres.NewEventRepository(db)

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.MailProvider,
		FromAddress: cfg.MailFromAddress,
		FromName:    cfg.MailFromName,
		SES: email.SESConfig{
			Region:             cfg.SESRegion,
			AccessKeyID:        cfg.SESAccessKeyID,
			SecretAccessKey:    cfg.SESSecretAccessKey,
			InsecureSkipVerify: cfg.SESInsecureSkipVerify,
		},
		Resend: email.ResendConfig{APIKey: cfg.ResendAPIKey},
	}, logger)
	if err != nil {
		return err
	}

	executor := services.NewDeliveryExecutor(repo, mailer, logger)

	// The poll dispatcher always exists so POST /dispatch/run can trigger a
	// manual pass; its cron only starts under the poll strategy.
	poller := dispatch.NewPollDispatcher(repo, executor, logger, cfg.PollSchedule)

	var dispatcher domain.Dispatcher = poller
	var pool *pgxpool.Pool
	if cfg.DispatchStrategy == config.StrategyQueue {
		pool, err = pgxpool.New(ctx, cfg.DBUrl)
		if err != nil {
			return err
		}
		defer pool.Close()

		var opts []queue.Option
		if cfg.QueueMaxWorkers > 0 {
			opts = append(opts, queue.WithMaxWorkers(cfg.QueueMaxWorkers))
		}
		dispatcher, err = queue.NewQueueDispatcher(pool, repo, executor, logger, opts...)
		if err != nil {
			return err
		}
	}

	if err := dispatcher.Start(ctx); err != nil {
		return err
	}
	logger.Info("Dispatcher started", "strategy", cfg.DispatchStrategy)

	scheduleService := services.NewScheduleService(repo, dispatcher, logger, cfg.LocalZone, 30*time.Second)

	var verifier domain.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewJWTVerifier(cfg.JWTSecret)
	} else {
		logger.Warn("JWT_SECRET not set, event routes are unauthenticated")
	}

	eventController := controllers.NewEventController(logger, scheduleService)
	dispatchController := controllers.NewDispatchController(logger, poller)
	mux := httpdelivery.NewRouter(eventController, dispatchController, verifier)

	var handler http.Handler = mux
	handler = middleware.CORS(cfg.CORSOrigins, handler)
	handler = middleware.Logging(logger, handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.Error("Dispatcher stop failed", "error", err)
	}
	return nil
}
