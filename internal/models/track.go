package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CurrentSchemaVersion = 1

// ResolverPath labels the terminal state of a resolution attempt.
type ResolverPath string

const (
	PathCache            ResolverPath = "cache"
	PathACRCloudStrong   ResolverPath = "acrcloud_strong"
	PathACRCloudOK       ResolverPath = "acrcloud_ok"
	PathACRCloudFallback ResolverPath = "acrcloud_failed_fallback"
	PathFallbackOnly     ResolverPath = "fallback_only"
	PathNone             ResolverPath = "none"
)

// Status values stored on cached resolutions
const (
	StatusResolved    = "resolved"
	StatusNeedsReview = "needs_review"
)

// ResolutionRequest is the input to the resolution pipeline. Every field is
// optional; a request with no identifying field simply yields no candidate
// from the sources that need one.
type ResolutionRequest struct {
	SourceURL     string `json:"source_url,omitempty"`     // audio file URL or storage path
	ISRC          string `json:"isrc,omitempty"`
	FingerprintID string `json:"fingerprint_id,omitempty"` // identification provider's recording ID
	CatalogURL    string `json:"catalog_url,omitempty"`    // catalog track URL or bare ID
	HintTitle     string `json:"hint_title,omitempty"`
	HintArtist    string `json:"hint_artist,omitempty"`
	HintAlbum     string `json:"hint_album,omitempty"`
	LinkID        string `json:"link_id,omitempty"` // smart link to update on success
	ForceRefresh  bool   `json:"force_refresh,omitempty"`
}

// HasHints reports whether the request carries any text hints usable for
// match validation
func (r *ResolutionRequest) HasHints() bool {
	return r.HintTitle != "" || r.HintArtist != ""
}

// TrackCandidate is an unresolved, source-tagged guess at track identity.
// Pipeline stages never mutate a candidate in place; each stage produces a
// new candidate (or nil).
type TrackCandidate struct {
	Title         string            `json:"title"`
	Artist        string            `json:"artist"`
	Album         string            `json:"album,omitempty"`
	ISRC          string            `json:"isrc,omitempty"`
	FingerprintID string            `json:"fingerprint_id,omitempty"`
	CatalogID     string            `json:"catalog_id,omitempty"`
	DurationMs    int               `json:"duration_ms,omitempty"`
	ImageURL      string            `json:"image_url,omitempty"`
	PlatformLinks map[string]string `json:"platform_links"` // platform name -> URL
	Confidence    float64           `json:"confidence"`     // 0-1
	Sources       []string          `json:"sources"`
	NeedsReview   bool              `json:"needs_review"`

	// Raw provider payload, persisted for debugging but never serialized
	// back to callers
	Raw map[string]any `json:"-"`
}

// Clone returns a deep copy so later stages can derive new candidates
// without touching the original
func (c *TrackCandidate) Clone() *TrackCandidate {
	if c == nil {
		return nil
	}
	out := *c
	out.PlatformLinks = make(map[string]string, len(c.PlatformLinks))
	for k, v := range c.PlatformLinks {
		out.PlatformLinks[k] = v
	}
	out.Sources = append([]string(nil), c.Sources...)
	return &out
}

// HasStableID reports whether the candidate carries an identifier strong
// enough to key a cached resolution. Text-search-only candidates do not,
// which keeps low-specificity queries out of the cache.
func (c *TrackCandidate) HasStableID() bool {
	return c.FingerprintID != "" || c.ISRC != ""
}

// ResolutionResult is the pipeline's output: a fully populated candidate plus
// the path taken, the canonical link, and the persistence outcome. It is
// constructed once per request and immutable after return.
type ResolutionResult struct {
	Success bool         `json:"success"`
	Path    ResolverPath `json:"resolver_path"`

	TrackCandidate

	CanonicalPlatform string `json:"canonical_platform"`
	CanonicalURL      string `json:"canonical_url,omitempty"`

	// ResolutionID is the cached record's ID; empty when persistence was
	// skipped or failed. LinkUpdated reports the best-effort smart-link
	// back-reference write separately, since neither write rolls the other
	// back.
	ResolutionID string `json:"resolution_id,omitempty"`
	LinkUpdated  bool   `json:"link_updated"`

	Error string `json:"error,omitempty"`
}

// CachedResolution is the durable record of a resolution, keyed by
// fingerprint ID, ISRC, or catalog track ID.
type CachedResolution struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SchemaVersion int                `bson:"schema_version" json:"schema_version"`

	FingerprintID string `bson:"fingerprint_id,omitempty" json:"fingerprint_id,omitempty"`
	ISRC          string `bson:"isrc,omitempty" json:"isrc,omitempty"`
	CatalogID     string `bson:"catalog_id,omitempty" json:"catalog_id,omitempty"`

	Title      string `bson:"title" json:"title"`
	Artist     string `bson:"artist" json:"artist"`
	Album      string `bson:"album,omitempty" json:"album,omitempty"`
	DurationMs int    `bson:"duration_ms,omitempty" json:"duration_ms,omitempty"`
	ImageURL   string `bson:"image_url,omitempty" json:"image_url,omitempty"`

	PlatformLinks map[string]string `bson:"platform_links" json:"platform_links"`
	Sources       []string          `bson:"sources" json:"sources"`
	Confidence    float64           `bson:"confidence" json:"confidence"`
	Status        string            `bson:"status" json:"status"`

	RawPayload map[string]any `bson:"raw_payload,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NewCachedResolution builds a record from an accepted candidate.
func NewCachedResolution(c *TrackCandidate, status string) *CachedResolution {
	now := time.Now()
	rec := &CachedResolution{
		SchemaVersion: CurrentSchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	rec.ApplyCandidate(c, status)
	return rec
}

// ApplyCandidate overwrites the record's resolved fields from a candidate.
// A later force-refresh may lower the stored confidence; the last write wins.
func (r *CachedResolution) ApplyCandidate(c *TrackCandidate, status string) {
	r.FingerprintID = c.FingerprintID
	r.ISRC = c.ISRC
	r.CatalogID = c.CatalogID
	r.Title = c.Title
	r.Artist = c.Artist
	r.Album = c.Album
	r.DurationMs = c.DurationMs
	r.ImageURL = c.ImageURL
	r.PlatformLinks = make(map[string]string, len(c.PlatformLinks))
	for k, v := range c.PlatformLinks {
		r.PlatformLinks[k] = v
	}
	r.Sources = append([]string(nil), c.Sources...)
	r.Confidence = c.Confidence
	r.Status = status
	r.RawPayload = c.Raw
	r.UpdatedAt = time.Now()
}

// ToCandidate converts a cached record back into a candidate for cache hits.
func (r *CachedResolution) ToCandidate() *TrackCandidate {
	c := &TrackCandidate{
		Title:         r.Title,
		Artist:        r.Artist,
		Album:         r.Album,
		ISRC:          r.ISRC,
		FingerprintID: r.FingerprintID,
		CatalogID:     r.CatalogID,
		DurationMs:    r.DurationMs,
		ImageURL:      r.ImageURL,
		PlatformLinks: make(map[string]string, len(r.PlatformLinks)),
		Sources:       append([]string(nil), r.Sources...),
		Confidence:    r.Confidence,
		NeedsReview:   r.Status == StatusNeedsReview,
		Raw:           r.RawPayload,
	}
	for k, v := range r.PlatformLinks {
		c.PlatformLinks[k] = v
	}
	return c
}
