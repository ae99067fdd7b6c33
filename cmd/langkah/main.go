package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	gemini "langkah/internal/advice/google"
	"langkah/internal/auth"
	"langkah/internal/config"
	apphttp "langkah/internal/http"
	applog "langkah/internal/log"
	"langkah/internal/notifier"
	"langkah/internal/storage"
	appsync "langkah/internal/sync"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting langkah")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	// Without a broker the instance still works; it just stops hearing
	// about changes made by other instances.
	var n notifier.Notifier = notifier.Noop{}
	var amqpClient *notifier.AMQP
	if cfg.AMQPURL != "" {
		amqpClient, err = notifier.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("AMQP unavailable, running standalone", "error", err)
		} else {
			n = amqpClient
			logger.Info("AMQP notifier connected", "exchange", cfg.AMQPExchange)
		}
	}

	coord := appsync.New(store, n, auth.AdminOnly{}, appsync.Options{
		SyncedDelay: cfg.SyncedDelay,
		IdleDelay:   cfg.IdleDelay,
	})
	if err := coord.Start(ctx); err != nil {
		logger.Error("Failed to start sync coordinator", "error", err)
		os.Exit(1)
	}
	defer coord.Close()

	var adviser *gemini.Client
	if cfg.GeminiAPIKey != "" {
		adviser, err = gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		logger.Info("Gemini adviser initialized", "model", cfg.GeminiModel)
	} else {
		logger.Info("Gemini disabled - no GEMINI_API_KEY provided")
	}

	var srv *apphttp.Server
	if adviser != nil {
		srv = apphttp.NewServer(":"+cfg.Port, coord, adviser)
	} else {
		srv = apphttp.NewServer(":"+cfg.Port, coord, nil)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.Consume(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
