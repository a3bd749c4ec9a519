package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parent-voice/internal/artifact"
	"parent-voice/internal/auth"
	"parent-voice/internal/config"
	"parent-voice/internal/httpapi"
	"parent-voice/internal/metrics"
	"parent-voice/internal/migrations"
	"parent-voice/internal/narration"
	"parent-voice/internal/ratelimit"
	"parent-voice/internal/store"
	"parent-voice/internal/tts"

	"go.uber.org/zap"
)

func main() {
	logger, err := initLogger()
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting parent-voice service")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := store.NewStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.RunMigrations(cfg, logger); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	// Rate limiter backend
	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		redisLimiter, err := ratelimit.NewRedisLimiter(cfg.Redis, cfg.RateLimit, ratelimit.FeatureParentVoiceSpeak, logger)
		if err != nil {
			logger.Fatal("failed to initialize redis rate limiter", zap.Error(err))
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
	default:
		limiter = ratelimit.NewPostgresLimiter(
			db.RateLimit(), ratelimit.FeatureParentVoiceSpeak,
			cfg.RateLimit.Window, cfg.RateLimit.Max, logger)
	}
	logger.Info("rate limiter configured",
		zap.String("backend", cfg.RateLimit.Backend),
		zap.Duration("window", cfg.RateLimit.Window),
		zap.Int("max", cfg.RateLimit.Max))

	// Identity verification
	verifier := auth.NewClient(cfg.Identity.APIURL, logger)

	// TTS provider
	if cfg.ElevenLabs.APIKey == "" {
		logger.Warn("ELEVENLABS_KEY is not set, narration requests will fail with 500")
	}
	synthesizer := tts.NewElevenLabsService(cfg.ElevenLabs, logger)

	// Artifact storage
	artifacts, err := artifact.NewDiskStore(cfg.Artifact, cfg.App.PublicBaseURL, logger)
	if err != nil {
		logger.Fatal("failed to initialize artifact store", zap.Error(err))
	}

	metricsSystem := metrics.New(logger)
	metricsHandler := metrics.NewHandler(metricsSystem, logger)

	narrationService := narration.NewService(
		limiter,
		db.VoiceCache(),
		synthesizer,
		artifacts,
		metricsSystem,
		cfg.ElevenLabs.APIKey,
		cfg.Artifact.URLTTL,
		logger,
	)

	narrateHandler := httpapi.NewNarrateHandler(narrationService, verifier, metricsSystem, cfg.App.RequestTimeout, logger)
	fetchHandler := artifact.NewFetchHandler(artifacts, logger)

	mux := http.NewServeMux()
	mux.Handle("/v1/narrate", narrateHandler)
	mux.Handle("/v1/audio/", fetchHandler)
	mux.Handle("/metrics", metricsHandler.MetricsHandler())
	mux.HandleFunc("/health", metricsHandler.HealthHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.App.RequestTimeout + 10*time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("HTTP server started", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
			cancel()
		}
	}()

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down HTTP server", zap.Error(err))
	}

	logger.Info("service stopped")
}

// initLogger builds the zap logger; JSON output in production.
func initLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
