/*
Package main is the entry point for the relay server.

It loads configuration (optionally from a .env file), initializes the global logger,
builds the connection registry and dispatcher, serves the HTTP/WebSocket router, and
shuts everything down gracefully on SIGINT or SIGTERM.
*/
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

	"github.com/joho/godotenv"

	"wsrelay/internal/app/audit"
	"wsrelay/internal/app/chat"
	"wsrelay/internal/configs"
	"wsrelay/internal/handler"
	"wsrelay/internal/pkg/logx"
)

func main() {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel)
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Int("send_queue_size", cfg.SendQueueSize).
		Int64("max_frame_bytes", cfg.MaxFrameBytes).
		Bool("audit_enabled", cfg.DatabaseDSN != "").
		Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder, err := audit.NewRecorder(ctx, cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize presence audit")
	}

	registry := chat.NewRegistry()
	clients := chat.NewClientGroup()
	dispatcher := chat.NewDispatcher(registry,
		chat.WithTimeLayout(cfg.TimeLayout),
		chat.WithRecorder(recorder),
	)

	router := handler.Router(&handler.AppDeps{
		Registry:   registry,
		Dispatcher: dispatcher,
		Clients:    clients,
		Config:     cfg,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Relay listening on ws://localhost%s", cfg.Addr()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// WebSocket connections are hijacked, so Shutdown does not close them.
	// Their disconnect paths still record presence, so the recorder closes last.
	if err := clients.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Timed out waiting for clients to disconnect", "remaining", clients.Len())
	}
	recorder.Close()

	logx.Info("Server gracefully stopped.")
}
