package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"tracklink/internal/cache"
	"tracklink/internal/config"
	"tracklink/internal/models"
	"tracklink/internal/repositories"
	"tracklink/internal/services"
)

// Re-runs the resolution pipeline with force-refresh over cached resolutions
// stuck in needs_review, picking up tracks that have since appeared in the
// providers' catalogs.
func main() {
	limit := flag.Int("limit", 100, "maximum number of pending resolutions to process")
	flag.Parse()

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

	// Initialize cache
	resolutionCache, err := cache.NewMultiLevelCache(cfg.ValkeyURL, 1000)
	if err != nil {
		slog.Error("Failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer resolutionCache.Close()

	resolutionRepo := repositories.NewCachedResolutionRepository(
		repositories.NewMongoResolutionRepository(db),
		resolutionCache,
	)
	linkRepo := repositories.NewMongoLinkRepository(db)

	providerTimeout := time.Duration(cfg.Resolver.ProviderTimeoutSeconds) * time.Second
	identifier := services.NewACRCloudService(cfg.ACRCloudBaseURL, cfg.ACRCloudToken, providerTimeout)
	catalog := services.NewSpotifyCatalogService(cfg.SpotifyClientID, cfg.SpotifyClientSecret, providerTimeout)

	resolver := services.NewResolutionService(resolutionRepo, linkRepo, identifier, catalog, cfg.Resolver)

	ctx := context.Background()

	pending, err := resolutionRepo.FindByStatus(ctx, models.StatusNeedsReview, *limit)
	if err != nil {
		slog.Error("Failed to load pending resolutions", "error", err)
		os.Exit(1)
	}

	slog.Info("Re-resolving pending resolutions", "count", len(pending))

	improved := 0
	for _, record := range pending {
		req := &models.ResolutionRequest{
			FingerprintID: record.FingerprintID,
			ISRC:          record.ISRC,
			HintTitle:     record.Title,
			HintArtist:    record.Artist,
			ForceRefresh:  true,
		}

		result := resolver.Resolve(ctx, req)
		if result.Success && result.Confidence > record.Confidence {
			improved++
			slog.Info("Resolution improved",
				"id", record.ID.Hex(),
				"path", result.Path,
				"before", record.Confidence,
				"after", result.Confidence)
		}
	}

	total, err := resolutionRepo.Count(ctx)
	if err != nil {
		slog.Error("Failed to count cached resolutions", "error", err)
	}

	slog.Info("Re-resolution complete",
		"processed", len(pending),
		"improved", improved,
		"cached_total", total)
}
