package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	ResolutionsCollection = "resolutions"
	LinksCollection       = "links"
)

// Database represents the database connection
type Database struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewDatabase creates a new database connection
func NewDatabase(ctx context.Context, mongoURL, dbName string) (*Database, error) {
	clientOptions := options.Client().
		ApplyURI(mongoURL).
		SetMaxPoolSize(20).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &Database{
		Client: client,
		DB:     client.Database(dbName),
	}, nil
}

// Close closes the database connection
func (d *Database) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// CreateIndexes creates the indexes the resolver's lookup keys depend on.
// Fingerprint ID, ISRC, and catalog ID are sparse since each record carries
// only the identifiers its sources produced.
func (d *Database) CreateIndexes(ctx context.Context) error {
	resolutions := d.DB.Collection(ResolutionsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "fingerprint_id", Value: 1}, {Key: "confidence", Value: -1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "isrc", Value: 1}, {Key: "confidence", Value: -1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "catalog_id", Value: 1}, {Key: "confidence", Value: -1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}},
		},
	}

	if _, err := resolutions.Indexes().CreateMany(ctx, indexes); err != nil {
		return err
	}

	links := d.DB.Collection(LinksCollection)
	linkIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "resolution.resolution_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	_, err := links.Indexes().CreateMany(ctx, linkIndexes)
	return err
}
