package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/auntie-care/auntie-voice/internal/calls"
	"github.com/auntie-care/auntie-voice/internal/config"
	"github.com/auntie-care/auntie-voice/internal/httpapi"
	"github.com/auntie-care/auntie-voice/internal/knowledge"
	"github.com/auntie-care/auntie-voice/internal/logging"
	"github.com/auntie-care/auntie-voice/internal/observability"
	"github.com/auntie-care/auntie-voice/internal/realtime"
	"github.com/auntie-care/auntie-voice/internal/relay"
	"github.com/auntie-care/auntie-voice/internal/summarize"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := knowledge.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("knowledge store init failed", zap.Error(err))
	}
	defer store.Close()
	logger.Info("knowledge store ready", zap.String("mode", store.Mode()))

	deps := httpapi.Deps{
		Logger:    logger,
		Metrics:   metrics,
		Knowledge: store,
	}

	summarizer, err := summarize.New(ctx, summarize.OptionsFromConfig(cfg), logger)
	switch {
	case errors.Is(err, summarize.ErrDisabled):
		logger.Info("call summaries disabled: GEMINI_API_KEY not set")
	case err != nil:
		logger.Fatal("summarizer init failed", zap.Error(err))
	default:
		deps.Summarizer = summarizer
		logger.Info("call summaries enabled", zap.String("model", cfg.GeminiModel))
	}

	callManager := calls.NewManager(cfg.CallInactivityTimeout)
	callManager.SetExpireHook(func(c *calls.Call) {
		logger.Info("call expired", zap.String("call_id", c.ID), zap.String("stream_sid", c.StreamSID))
		metrics.ObserveCallEvent("expired")
	})
	deps.Calls = callManager
	deps.Relay = relay.New(relay.OptionsFromConfig(cfg), logger, metrics, callManager)
	deps.Dialer = realtime.NewDialer(cfg, logger).ForRelay()

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	api := httpapi.New(cfg, deps)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
		// Hijacked media streams are not tracked by Shutdown; cancelling
		// runCtx is what ends them.
		BaseContext: func(net.Listener) context.Context { return runCtx },
	}

	callManager.StartJanitor(runCtx, 5*time.Second)

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received", zap.Int("active_calls", callManager.ActiveCount()))

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
}
