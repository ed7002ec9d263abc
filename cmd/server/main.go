package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/tripletree/internal/api"
	"github.com/onnwee/tripletree/internal/config"
	"github.com/onnwee/tripletree/internal/errorreporting"
	"github.com/onnwee/tripletree/internal/logger"
	"github.com/onnwee/tripletree/internal/middleware"
	"github.com/onnwee/tripletree/internal/server"
	"github.com/onnwee/tripletree/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using system environment")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	log := logger.WithComponent("main")

	if err := errorreporting.Init(cfg.SentryEnvironment); err != nil {
		log.Warn("failed to initialize error reporting", "error", err)
	}

	shutdownTracing, err := tracing.Init("tripletree")
	if err != nil {
		log.Warn("failed to initialize tracing", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	db, err := server.InitDB()
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv, err := server.NewServer(db, cfg)
	if err != nil {
		log.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(db, srv.Store, cfg, srv.Hub)

	var handler http.Handler = router
	handler = middleware.Compress(handler)
	if cfg.EnableRateLimit {
		rl := middleware.NewRateLimiter(
			cfg.RateLimitGlobal, cfg.RateLimitGlobalBurst,
			cfg.RateLimitPerIP, cfg.RateLimitPerIPBurst,
		)
		defer rl.Stop()
		handler = rl.Limit(handler)
	}
	handler = middleware.Recover(handler)
	handler = middleware.RequestID(handler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	_ = shutdownTracing(shutdownCtx)
	errorreporting.Flush(2 * time.Second)
}
