package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/auth"
	"github.com/yukikurage/taskflow-api/internal/config"
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/metrics"
	"github.com/yukikurage/taskflow-api/internal/notify"
	"github.com/yukikurage/taskflow-api/internal/ratelimit"
	"github.com/yukikurage/taskflow-api/internal/server"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func runServe() error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	db, closeDB, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		closeDB()
		return err
	}

	ctx := context.Background()
	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		closeDB()
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	limiter, err := ratelimit.New(cfg)
	if err != nil {
		closeDB()
		_ = blobs.Close()
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}

	sessionStore, err := server.NewSessionStore(cfg)
	if err != nil {
		closeDB()
		_ = blobs.Close()
		return err
	}

	m := metrics.New()
	dispatcher := notify.NewDispatcher(newNotifier(cfg, logger), logger, m, cfg.NotifyWorkers, cfg.NotifyQueueSize)
	dispatcher.Start()

	router := server.NewRouter(server.Deps{
		Config:   cfg,
		DB:       db,
		Logger:   logger,
		Metrics:  m,
		Limiter:  limiter,
		Blobs:    blobs,
		Queue:    dispatcher,
		Sessions: sessionStore,
		Tokens:   auth.NewTokenManagerFromConfig(cfg),
		AI:       services.NewAIService(cfg.OpenAIAPIKey),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.HTTPAddr, "mode", cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		ctx,
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				logger.Info("shutting down http server")
				if err := srv.Shutdown(ctx); err != nil {
					return err
				}
				// requests are drained, so no new notifications can be queued
				if err := dispatcher.Stop(ctx); err != nil {
					return err
				}
				closeDB()
				return blobs.Close()
			},
		},
	)

	exitCode := <-wait
	logger.Info("server exited", "code", exitCode)
	if exitCode != 0 {
		return fmt.Errorf("shutdown finished with code %d", exitCode)
	}
	return nil
}

func newNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	if cfg.MailEnabled {
		return notify.NewSMTPNotifier(cfg)
	}
	return notify.NewLogNotifier(logger)
}
