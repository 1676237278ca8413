package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"tracklink/internal/cache"
	"tracklink/internal/config"
	"tracklink/internal/handlers"
	"tracklink/internal/models"
	"tracklink/internal/repositories"
	"tracklink/internal/services"
)

func main() {
	// Load .env file for local development
	_ = godotenv.Load()

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize database
	db, err := models.NewDatabase(context.Background(), cfg.MongodbURL, "tracklink")
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	if err := db.CreateIndexes(context.Background()); err != nil {
		slog.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	// Initialize cache
	resolutionCache, err := cache.NewMultiLevelCache(cfg.ValkeyURL, 1000)
	if err != nil {
		slog.Error("Failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer resolutionCache.Close()

	// Repositories
	resolutionRepo := repositories.NewCachedResolutionRepository(
		repositories.NewMongoResolutionRepository(db),
		resolutionCache,
	)
	linkRepo := repositories.NewMongoLinkRepository(db)

	// Provider clients
	providerTimeout := time.Duration(cfg.Resolver.ProviderTimeoutSeconds) * time.Second
	identifier := services.NewACRCloudService(cfg.ACRCloudBaseURL, cfg.ACRCloudToken, providerTimeout)
	catalog := services.NewSpotifyCatalogService(cfg.SpotifyClientID, cfg.SpotifyClientSecret, providerTimeout)

	// Resolution pipeline
	resolver := services.NewResolutionService(resolutionRepo, linkRepo, identifier, catalog, cfg.Resolver)

	// HTTP surface
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler := handlers.NewResolutionHandler(resolver)
	router.GET("/health", handler.Health)

	api := router.Group("/api/v1")
	api.Use(handlers.RequireAuth(cfg.APIAuthSecret))
	api.POST("/resolutions", handler.ResolveTrack)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
