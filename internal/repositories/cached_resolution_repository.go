package repositories

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"tracklink/internal/cache"
	"tracklink/internal/models"
)

// cachedResolutionRepository wraps a ResolutionRepository with a read-through
// cache on the three lookup keys
type cachedResolutionRepository struct {
	repository ResolutionRepository
	cache      cache.Cache
}

// NewCachedResolutionRepository creates a new cached resolution repository
func NewCachedResolutionRepository(repository ResolutionRepository, cache cache.Cache) ResolutionRepository {
	return &cachedResolutionRepository{
		repository: repository,
		cache:      cache,
	}
}

// Cache key generators
func fingerprintKey(id string) string { return "resolution:fp:" + id }
func isrcKey(isrc string) string      { return "resolution:isrc:" + isrc }
func catalogKey(id string) string     { return "resolution:catalog:" + id }

const resolutionCacheTTL = 1 * time.Hour

// Save writes through to the repository and invalidates the record's keys
func (r *cachedResolutionRepository) Save(ctx context.Context, resolution *models.CachedResolution) error {
	if err := r.repository.Save(ctx, resolution); err != nil {
		return err
	}

	r.invalidate(ctx, resolution)
	return nil
}

// FindByFingerprintID checks cache first, then repository
func (r *cachedResolutionRepository) FindByFingerprintID(ctx context.Context, fingerprintID string) (*models.CachedResolution, error) {
	return r.findCached(ctx, fingerprintKey(fingerprintID), func() (*models.CachedResolution, error) {
		return r.repository.FindByFingerprintID(ctx, fingerprintID)
	})
}

// FindByISRC checks cache first, then repository
func (r *cachedResolutionRepository) FindByISRC(ctx context.Context, isrc string) (*models.CachedResolution, error) {
	return r.findCached(ctx, isrcKey(isrc), func() (*models.CachedResolution, error) {
		return r.repository.FindByISRC(ctx, isrc)
	})
}

// FindByCatalogID checks cache first, then repository
func (r *cachedResolutionRepository) FindByCatalogID(ctx context.Context, catalogID string) (*models.CachedResolution, error) {
	return r.findCached(ctx, catalogKey(catalogID), func() (*models.CachedResolution, error) {
		return r.repository.FindByCatalogID(ctx, catalogID)
	})
}

// FindByStatus is a maintenance scan; it bypasses the cache
func (r *cachedResolutionRepository) FindByStatus(ctx context.Context, status string, limit int) ([]*models.CachedResolution, error) {
	return r.repository.FindByStatus(ctx, status, limit)
}

// Count bypasses the cache
func (r *cachedResolutionRepository) Count(ctx context.Context) (int64, error) {
	return r.repository.Count(ctx)
}

func (r *cachedResolutionRepository) findCached(ctx context.Context, key string, fetch func() (*models.CachedResolution, error)) (*models.CachedResolution, error) {
	if data, err := r.cache.Get(ctx, key); err == nil && data != nil {
		var resolution models.CachedResolution
		if err := json.Unmarshal(data, &resolution); err == nil {
			return &resolution, nil
		}
		// Corrupt entry; drop it and fall through to the repository
		if err := r.cache.Delete(ctx, key); err != nil {
			slog.Error("Failed to delete corrupt cache entry", "key", key, "error", err)
		}
	}

	resolution, err := fetch()
	if err != nil {
		return nil, err
	}

	if resolution != nil {
		r.cacheResult(ctx, key, resolution)
	}

	return resolution, nil
}

func (r *cachedResolutionRepository) cacheResult(ctx context.Context, key string, resolution *models.CachedResolution) {
	data, err := json.Marshal(resolution)
	if err != nil {
		slog.Error("Failed to marshal resolution for cache", "key", key, "error", err)
		return
	}
	if err := r.cache.Set(ctx, key, data, resolutionCacheTTL); err != nil {
		slog.Error("Failed to cache resolution", "key", key, "error", err)
	}
}

func (r *cachedResolutionRepository) invalidate(ctx context.Context, resolution *models.CachedResolution) {
	keys := make([]string, 0, 3)
	if resolution.FingerprintID != "" {
		keys = append(keys, fingerprintKey(resolution.FingerprintID))
	}
	if resolution.ISRC != "" {
		keys = append(keys, isrcKey(resolution.ISRC))
	}
	if resolution.CatalogID != "" {
		keys = append(keys, catalogKey(resolution.CatalogID))
	}

	for _, key := range keys {
		if err := r.cache.Delete(ctx, key); err != nil {
			slog.Error("Failed to invalidate cache entry", "key", key, "error", err)
		}
	}
}
