package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tracklink/internal/models"
)

// mongoResolutionRepository implements ResolutionRepository using MongoDB
type mongoResolutionRepository struct {
	collection *mongo.Collection
}

// NewMongoResolutionRepository creates a new MongoDB-backed resolution repository
func NewMongoResolutionRepository(db *models.Database) ResolutionRepository {
	return &mongoResolutionRepository{
		collection: db.DB.Collection(models.ResolutionsCollection),
	}
}

// Save inserts a new resolution or replaces an existing one
func (r *mongoResolutionRepository) Save(ctx context.Context, resolution *models.CachedResolution) error {
	resolution.SchemaVersion = models.CurrentSchemaVersion
	resolution.UpdatedAt = time.Now()

	if resolution.ID.IsZero() {
		resolution.CreatedAt = time.Now()
		result, err := r.collection.InsertOne(ctx, resolution)
		if err != nil {
			return fmt.Errorf("failed to insert resolution: %w", err)
		}
		resolution.ID = result.InsertedID.(primitive.ObjectID)
		return nil
	}

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": resolution.ID}, resolution)
	if err != nil {
		return fmt.Errorf("failed to update resolution: %w", err)
	}
	return nil
}

// FindByFingerprintID finds a resolution by the identification provider's
// recording ID
func (r *mongoResolutionRepository) FindByFingerprintID(ctx context.Context, fingerprintID string) (*models.CachedResolution, error) {
	return r.findOne(ctx, bson.M{"fingerprint_id": fingerprintID}, "fingerprint ID")
}

// FindByISRC finds a resolution by ISRC
func (r *mongoResolutionRepository) FindByISRC(ctx context.Context, isrc string) (*models.CachedResolution, error) {
	return r.findOne(ctx, bson.M{"isrc": isrc}, "ISRC")
}

// FindByCatalogID finds a resolution by the catalog provider's track ID
func (r *mongoResolutionRepository) FindByCatalogID(ctx context.Context, catalogID string) (*models.CachedResolution, error) {
	return r.findOne(ctx, bson.M{"catalog_id": catalogID}, "catalog ID")
}

// findOne returns the highest-confidence match for a filter, or nil on miss
func (r *mongoResolutionRepository) findOne(ctx context.Context, filter bson.M, keyName string) (*models.CachedResolution, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "confidence", Value: -1}})

	var resolution models.CachedResolution
	err := r.collection.FindOne(ctx, filter, opts).Decode(&resolution)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find resolution by %s: %w", keyName, err)
	}

	return &resolution, nil
}

// FindByStatus returns resolutions with the given status, oldest first
func (r *mongoResolutionRepository) FindByStatus(ctx context.Context, status string, limit int) ([]*models.CachedResolution, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.D{{Key: "updated_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find resolutions by status: %w", err)
	}
	defer cursor.Close(ctx)

	var resolutions []*models.CachedResolution
	for cursor.Next(ctx) {
		var resolution models.CachedResolution
		if err := cursor.Decode(&resolution); err != nil {
			slog.Error("Failed to decode resolution", "error", err)
			continue
		}
		resolutions = append(resolutions, &resolution)
	}

	return resolutions, cursor.Err()
}

// Count returns the total number of cached resolutions
func (r *mongoResolutionRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count resolutions: %w", err)
	}
	return count, nil
}
