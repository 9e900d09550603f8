package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/opening-quiz/internal/config"
	"github.com/park285/opening-quiz/internal/obslog"
	"github.com/park285/opening-quiz/internal/quizbuilder"
	"github.com/park285/opening-quiz/internal/server"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := quizbuilder.New(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("quiz_init_error", zap.Error(err))
	}
	defer func() { _ = deps.Close() }()

	if err := deps.Service.Start(rootCtx); err != nil {
		logger.Fatal("quiz_start_error", zap.Error(err))
	}

	app := server.NewApp(deps.Service, server.Options{
		Presenter: deps.Presenter,
		Logger:    obslog.Named("http"),
		RateLimit: cfg.RateLimit,
	})
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			logger.Error("http_server_stopped", zap.Error(err))
			stop()
		}
	}()

	var events *http.Server
	if cfg.EventsAddr != "" {
		events = &http.Server{
			Addr:              cfg.EventsAddr,
			Handler:           server.NewEvents(deps.Service, deps.Presenter, obslog.Named("events"), cfg.EventsOrigins...).Mux(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("events_listen", zap.String("addr", cfg.EventsAddr))
			if err := events.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("events_server_stopped", zap.Error(err))
				stop()
			}
		}()
	}

	<-rootCtx.Done()
	logger.Info("shutdown_started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	if events != nil {
		if err := events.Shutdown(shutdownCtx); err != nil {
			logger.Warn("events_shutdown_error", zap.Error(err))
		}
	}
	logger.Info("shutdown_complete")
}
