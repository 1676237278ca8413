package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"tracklink/internal/models"
)

// acrCloudService implements IdentificationProvider against the ACRCloud
// metadata API
type acrCloudService struct {
	client  *resty.Client
	baseURL string
	token   string
}

// NewACRCloudService creates a new ACRCloud identification client. Retries
// are disabled: retry policy belongs to the pipeline's caller, and a slow
// provider must not multiply latency inside one invocation.
func NewACRCloudService(baseURL, token string, timeout time.Duration) IdentificationProvider {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)

	return &acrCloudService{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// Identify looks up a recording by fingerprint ID, ISRC, source URL, or
// free-text query and normalizes the top-ranked hit. Returns nil, nil when
// the provider has no candidate for the request.
func (s *acrCloudService) Identify(ctx context.Context, req IdentifyRequest) (*models.TrackCandidate, error) {
	if req.Empty() {
		return nil, nil
	}

	params := map[string]string{}
	switch {
	case req.FingerprintID != "":
		params["acr_id"] = req.FingerprintID
	case req.ISRC != "":
		params["isrc"] = req.ISRC
	case req.SourceURL != "":
		params["url"] = req.SourceURL
	default:
		params["query"] = req.Query
	}

	var result acrTrackList
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.token).
		SetQueryParams(params).
		SetResult(&result).
		Get(s.baseURL + "/api/external-metadata/tracks")

	if err != nil {
		return nil, &ProviderError{
			Provider:  "acrcloud",
			Operation: "identify",
			Message:   "request failed",
			Err:       err,
		}
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &ProviderError{
			Provider:  "acrcloud",
			Operation: "identify",
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}

	if len(result.Data) == 0 {
		return nil, nil
	}

	// Results are ranked; the first is the provider's best guess
	candidate := s.convertTrack(&result.Data[0])

	var raw map[string]any
	if err := json.Unmarshal(resp.Body(), &raw); err == nil {
		candidate.Raw = raw
	}

	return candidate, nil
}

// Health verifies the API is reachable and the token is accepted
func (s *acrCloudService) Health(ctx context.Context) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.token).
		SetQueryParam("query", "ping").
		Get(s.baseURL + "/api/external-metadata/tracks")

	if err != nil {
		return &ProviderError{
			Provider:  "acrcloud",
			Operation: "health",
			Message:   "request failed",
			Err:       err,
		}
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return &ProviderError{
			Provider:  "acrcloud",
			Operation: "health",
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}
	return nil
}

// convertTrack normalizes an ACRCloud track into the internal candidate shape
func (s *acrCloudService) convertTrack(track *acrTrack) *models.TrackCandidate {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		if artist.Name != "" {
			artists = append(artists, artist.Name)
		}
	}

	// Provider scores are 0-100
	confidence := track.Score / 100.0
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	links := NormalizeExternalLinks(&track.ExternalMetadata)

	candidate := &models.TrackCandidate{
		Title:         track.Name,
		Artist:        strings.Join(artists, ", "),
		Album:         track.Album.Name,
		ISRC:          track.ISRC,
		FingerprintID: track.ACRID,
		DurationMs:    track.DurationMs,
		ImageURL:      track.Album.CoverURL,
		PlatformLinks: links,
		Confidence:    confidence,
		Sources:       []string{"acrcloud"},
	}

	if track.ExternalMetadata.Spotify != nil {
		candidate.CatalogID = track.ExternalMetadata.Spotify.Track.ID
	}

	return candidate
}

// ACRCloud metadata API response structures
type acrTrackList struct {
	Data []acrTrack `json:"data"`
}

type acrTrack struct {
	Name             string              `json:"name"`
	ACRID            string              `json:"acr_id"`
	ISRC             string              `json:"isrc"`
	Score            float64             `json:"score"`
	DurationMs       int                 `json:"duration_ms"`
	Artists          []acrArtist         `json:"artists"`
	Album            acrAlbum            `json:"album"`
	ExternalMetadata ACRExternalMetadata `json:"external_metadata"`
}

type acrArtist struct {
	Name string `json:"name"`
}

type acrAlbum struct {
	Name     string `json:"name"`
	CoverURL string `json:"cover_url"`
}
