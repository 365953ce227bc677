package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brandlens/visibility-scanner/internal/api"
	"github.com/brandlens/visibility-scanner/internal/config"
	"github.com/brandlens/visibility-scanner/internal/provider"
	"github.com/brandlens/visibility-scanner/internal/scan"
	"github.com/brandlens/visibility-scanner/internal/scheduler"
	"github.com/brandlens/visibility-scanner/internal/storage"
	"github.com/brandlens/visibility-scanner/internal/store"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting brand visibility scanner")

	st := buildStore(cfg)
	llmProvider := buildProvider(cfg)
	archive := buildArchive(cfg)

	scanService := scan.NewService(cfg, st, llmProvider, archive)

	schedulerService := scheduler.NewService(cfg, st, scanService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	apiServer := api.NewServer(cfg, st, scanService)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

// buildStore selects Redis when configured, the in-memory store otherwise.
func buildStore(cfg *config.Config) store.Store {
	if cfg.RedisAddr == "" {
		logrus.Warn("REDIS_ADDR not set, using in-memory store; data will not survive restarts")
		return store.NewMemoryStore()
	}

	redisStore, err := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logrus.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
	}
	logrus.Infof("Connected to Redis at %s", cfg.RedisAddr)
	return redisStore
}

// buildProvider selects the live OpenAI provider when an API key is present
// and the deterministic simulator otherwise.
func buildProvider(cfg *config.Config) provider.Provider {
	if cfg.OpenAIAPIKey == "" {
		logrus.Warn("OPENAI_API_KEY not set, using simulated completions")
		return provider.NewDeterministicProvider()
	}
	logrus.Infof("Using OpenAI provider with model %s", cfg.OpenAIModel)
	return provider.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.LLMTimeout, cfg.LLMMaxRetries)
}

// buildArchive returns the blob archive when configured, nil otherwise.
func buildArchive(cfg *config.Config) storage.Archiver {
	if cfg.StorageAccount == "" {
		return nil
	}
	archive, err := storage.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
	if err != nil {
		logrus.Fatalf("Failed to initialize scan archive: %v", err)
	}
	logrus.Infof("Archiving scan records to %s/%s", cfg.StorageAccount, cfg.StorageContainer)
	return archive
}
