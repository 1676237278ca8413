package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Link is a smart-link document owned by a caller. The resolver only ever
// touches its resolution back-reference; everything else belongs to the
// link-sharing surface.
type Link struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SchemaVersion int                `bson:"schema_version" json:"schema_version"`

	Slug   string `bson:"slug" json:"slug"`
	Title  string `bson:"title,omitempty" json:"title,omitempty"`
	Artist string `bson:"artist,omitempty" json:"artist,omitempty"`

	Resolution *LinkResolutionRef `bson:"resolution,omitempty" json:"resolution,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// LinkResolutionRef points a smart link at the cached resolution that
// produced its platform links.
type LinkResolutionRef struct {
	ResolutionID primitive.ObjectID `bson:"resolution_id" json:"resolution_id"`
	ISRC         string             `bson:"isrc,omitempty" json:"isrc,omitempty"`
	Confidence   float64            `bson:"confidence" json:"confidence"`
	Sources      []string           `bson:"sources" json:"sources"`
	ResolvedAt   time.Time          `bson:"resolved_at" json:"resolved_at"`
}
