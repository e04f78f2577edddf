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

	"pdf-canvas-viewer/internal/config"
	"pdf-canvas-viewer/internal/handler"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Wiring
	container := config.NewContainer(cfg)
	appConfig := container.GetConfig()
	appLogger := container.GetLogger()
	registry := container.GetRegistry()
	syncLogger := func() {
		if syncer, ok := appLogger.(interface{ Sync() error }); ok {
			_ = syncer.Sync()
		}
	}
	defer syncLogger()

	// Handlers
	viewerHandler := handler.NewViewerHandler(
		registry,
		appConfig.GetMaxFileSize(),
		appConfig.GetRenderTimeout(),
		appLogger,
	)

	rps, burst := appConfig.GetRateLimit()
	rateLimiter := handler.NewRateLimiter(rps, burst, appLogger)

	// Router
	router := handler.NewRouter(
		viewerHandler,
		appConfig.GetAllowedOrigins(),
		handler.RequestIDMiddleware,
		handler.LoggingMiddleware(appLogger),
		rateLimiter.Middleware,
	)

	server := &http.Server{
		Addr:              net.JoinHostPort(appConfig.GetServerHost(), appConfig.GetServerPort()),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		appLogger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Idle viewer eviction
	g.Go(func() error {
		return registry.Run(gctx)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Server stopped with error", err)
		stop()
		syncLogger()
		os.Exit(1)
	}
	appLogger.Info("Server exited")
}
