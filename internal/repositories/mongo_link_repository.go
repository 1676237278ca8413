package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tracklink/internal/models"
)

// mongoLinkRepository implements LinkRepository using MongoDB
type mongoLinkRepository struct {
	collection *mongo.Collection
}

// NewMongoLinkRepository creates a new MongoDB-backed link repository
func NewMongoLinkRepository(db *models.Database) LinkRepository {
	return &mongoLinkRepository{
		collection: db.DB.Collection(models.LinksCollection),
	}
}

// FindByID finds a link by its ObjectID
func (r *mongoLinkRepository) FindByID(ctx context.Context, id string) (*models.Link, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid object ID: %w", err)
	}

	var link models.Link
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&link)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find link by ID: %w", err)
	}

	return &link, nil
}

// AttachResolution sets the resolution back-reference on a link
func (r *mongoLinkRepository) AttachResolution(ctx context.Context, linkID string, ref models.LinkResolutionRef) error {
	objectID, err := primitive.ObjectIDFromHex(linkID)
	if err != nil {
		return fmt.Errorf("invalid link ID: %w", err)
	}

	update := bson.M{
		"$set": bson.M{
			"resolution": ref,
			"updated_at": time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to attach resolution to link: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("link %s not found", linkID)
	}

	return nil
}
