package repositories

import (
	"context"

	"tracklink/internal/models"
)

// ResolutionRepository defines the keyed store for cached resolutions. Find
// methods return nil, nil on a miss; multi-match lookups return the single
// highest-confidence row.
type ResolutionRepository interface {
	Save(ctx context.Context, resolution *models.CachedResolution) error

	FindByFingerprintID(ctx context.Context, fingerprintID string) (*models.CachedResolution, error)
	FindByISRC(ctx context.Context, isrc string) (*models.CachedResolution, error)
	FindByCatalogID(ctx context.Context, catalogID string) (*models.CachedResolution, error)

	FindByStatus(ctx context.Context, status string, limit int) ([]*models.CachedResolution, error)
	Count(ctx context.Context) (int64, error)
}

// LinkRepository covers the resolver's view of smart-link documents: the
// best-effort back-reference write after a successful resolution.
type LinkRepository interface {
	FindByID(ctx context.Context, id string) (*models.Link, error)
	AttachResolution(ctx context.Context, linkID string, ref models.LinkResolutionRef) error
}
