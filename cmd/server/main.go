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

	"group-chat/fanout"
	"group-chat/gateway"
	"group-chat/internal"
	"group-chat/membership"
	"group-chat/observability"
	"group-chat/registry"
	"group-chat/router"
	"group-chat/runtime/workers"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer executes before exit.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := internal.NewLogger(config.LogLevel)

	// 2. Core components: registry, fan-out, engine, router, hub
	stats := observability.NewStats()
	reg := registry.NewRegistry()
	notify := fanout.NewFanout(logger)
	engine := membership.NewEngine(logger, reg, notify)
	rt := router.NewRouter(logger, reg, notify)
	hub := gateway.NewHub(logger, reg, engine, rt, notify, stats, config.InboundBufferSize)

	handler := gateway.NewHandler(logger, hub, stats, gateway.Options{
		SendBuffer:   config.SendBufferSize,
		ReadLimit:    config.ReadLimit,
		WriteTimeout: config.WriteTimeout,
		PongTimeout:  config.PongTimeout,
		PingInterval: config.PingInterval,
	})

	// 3. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Supervision: hub loop + stats reporter
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(hub)
	sup.Add(workers.NewReporterWorker(logger, config.StatsInterval, stats, reg, notify))

	supDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supDone)
	}()

	// 5. HTTP server exposing the websocket endpoint
	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server running...", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 7. Graceful shutdown: stop accepting, drain the workers
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	sup.Stop()
	<-supDone
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}
