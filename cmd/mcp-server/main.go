// Package main provides the HTTP and MCP server entry point for document Q&A.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/docchat/internal/app"
	"github.com/bull/docchat/internal/config"
	"github.com/bull/docchat/internal/httpapi"
	"github.com/bull/docchat/internal/logging"
	mcpserver "github.com/bull/docchat/internal/mcp"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := logging.Init(cfg.Logging.Level, cfg.Logging.Format)

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	mcpCfg := &mcpserver.Config{
		Corpus:          a.Pipeline,
		GitHub:          a.Fetcher,
		AllowLocalFiles: cfg.Server.Mode == "stdio",
	}
	var healthMirror mcpserver.HealthChecker
	if a.Mirror != nil {
		mcpCfg.Mirror = a.Mirror
		healthMirror = a.Mirror
	}
	server := mcpserver.NewServer(mcpCfg)

	mux := http.NewServeMux()
	httpapi.NewHandler(a.Pipeline, cfg.Server.MaxUploadBytes, logger).Register(mux)
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(a.Pipeline, healthMirror))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	switch cfg.Server.Mode {
	case "http":
		go shutdownOnDone(ctx, httpServer, logger)

		logger.Info("Starting HTTP server", "addr", httpServer.Addr, "mcp", "/mcp", "health", "/health")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}

	case "stdio":
		// The upload/chat API stays reachable while MCP runs over stdin/stdout.
		go func() {
			logger.Info("Starting HTTP server", "addr", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("HTTP server error", "error", err)
			}
		}()

		logger.Info("Starting MCP server (stdio mode)")
		if err := server.Run(ctx); err != nil {
			logger.Error("MCP server error", "error", err)
			os.Exit(1)
		}
		shutdown(httpServer, logger)
	}
}

func shutdownOnDone(ctx context.Context, srv *http.Server, logger *slog.Logger) {
	<-ctx.Done()
	shutdown(srv, logger)
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("HTTP server shutdown error", "error", err)
	}
}
