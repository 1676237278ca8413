package services

import (
	"context"
	"regexp"

	"tracklink/internal/models"
)

// IdentifyRequest is the input to the identification provider. Exactly one
// identifying field is used, tried in declaration order.
type IdentifyRequest struct {
	FingerprintID string
	ISRC          string
	SourceURL     string
	Query         string
}

// Empty reports whether the request carries nothing the provider can act on
func (r IdentifyRequest) Empty() bool {
	return r.FingerprintID == "" && r.ISRC == "" && r.SourceURL == "" && r.Query == ""
}

// IdentificationProvider is the primary source: the audio/metadata
// identification service. Identify returns nil, nil when the provider has no
// candidate for the request.
type IdentificationProvider interface {
	Identify(ctx context.Context, req IdentifyRequest) (*models.TrackCandidate, error)
	Health(ctx context.Context) error
}

// CatalogQuery is a catalog lookup by ISRC or free text
type CatalogQuery struct {
	ISRC   string
	Title  string
	Artist string
	Album  string
	Query  string
}

// Empty reports whether the query has no usable criteria
func (q CatalogQuery) Empty() bool {
	return q.ISRC == "" && q.Title == "" && q.Artist == "" && q.Album == "" && q.Query == ""
}

// CatalogProvider is the secondary source: direct lookup by catalog track ID
// or free-text search, each returning the single best track or nil, nil.
type CatalogProvider interface {
	GetTrackByID(ctx context.Context, trackID string) (*models.TrackCandidate, error)
	Search(ctx context.Context, query CatalogQuery) (*models.TrackCandidate, error)
	Health(ctx context.Context) error
}

var (
	catalogURLPattern  = regexp.MustCompile(`(?:https?://)?(?:open\.)?spotify\.com/(?:intl-[a-z]{2}/)?track/([a-zA-Z0-9]+)`)
	bareTrackIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{22}$`)
)

// ParseCatalogTrackID extracts the catalog track ID from a catalog URL. Bare
// IDs pass through unchanged; anything else returns empty.
func ParseCatalogTrackID(raw string) string {
	if raw == "" {
		return ""
	}
	if matches := catalogURLPattern.FindStringSubmatch(raw); len(matches) > 1 {
		return matches[1]
	}
	// Accept a bare track ID (base62, 22 chars)
	if bareTrackIDPattern.MatchString(raw) {
		return raw
	}
	return ""
}

// ProviderError represents an error from an upstream provider
type ProviderError struct {
	Provider  string
	Operation string
	Message   string
	Err       error
}

func (e *ProviderError) Error() string {
	msg := e.Provider + " " + e.Operation + " failed"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += " - " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
