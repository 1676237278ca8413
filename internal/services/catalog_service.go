package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2/clientcredentials"

	"tracklink/internal/matching"
	"tracklink/internal/models"
)

// Spotify API endpoints
const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyAPIURL   = "https://api.spotify.com/v1"
)

// spotifyCatalogService implements CatalogProvider against the Spotify Web API
type spotifyCatalogService struct {
	client      *resty.Client
	apiURL      string
	tokenSource *clientcredentials.Config
	accessToken string
	tokenExpiry time.Time
	mu          sync.RWMutex
}

// NewSpotifyCatalogService creates a new Spotify catalog client
func NewSpotifyCatalogService(clientID, clientSecret string, timeout time.Duration) CatalogProvider {
	return newSpotifyCatalogService(clientID, clientSecret, timeout, spotifyAPIURL, spotifyTokenURL)
}

func newSpotifyCatalogService(clientID, clientSecret string, timeout time.Duration, apiURL, tokenURL string) *spotifyCatalogService {
	tokenSource := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)

	return &spotifyCatalogService{
		client:      client,
		apiURL:      apiURL,
		tokenSource: tokenSource,
	}
}

// GetTrackByID fetches a track directly by its catalog ID. An exact ID match
// carries full confidence.
func (s *spotifyCatalogService) GetTrackByID(ctx context.Context, trackID string) (*models.TrackCandidate, error) {
	if err := s.ensureValidToken(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	token := s.accessToken
	s.mu.RUnlock()

	var track spotifyTrack
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&track).
		Get(fmt.Sprintf("%s/tracks/%s", s.apiURL, trackID))

	if err != nil {
		return nil, &ProviderError{
			Provider:  "spotify_catalog",
			Operation: "get_track",
			Message:   "request failed",
			Err:       err,
		}
	}

	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &ProviderError{
			Provider:  "spotify_catalog",
			Operation: "get_track",
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}

	return s.convertTrack(&track, 1.0), nil
}

// Search runs an ISRC or free-text search and returns the single best track.
// ISRC hits are near-certain; free-text hits are scored by how closely the
// result matches the requested title/artist.
func (s *spotifyCatalogService) Search(ctx context.Context, query CatalogQuery) (*models.TrackCandidate, error) {
	if query.Empty() {
		return nil, nil
	}

	if err := s.ensureValidToken(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	token := s.accessToken
	s.mu.RUnlock()

	var searchResult spotifySearchResult
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(map[string]string{
			"q":     buildCatalogSearchQuery(query),
			"type":  "track",
			"limit": "1",
		}).
		SetResult(&searchResult).
		Get(fmt.Sprintf("%s/search", s.apiURL))

	if err != nil {
		return nil, &ProviderError{
			Provider:  "spotify_catalog",
			Operation: "search",
			Message:   "request failed",
			Err:       err,
		}
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &ProviderError{
			Provider:  "spotify_catalog",
			Operation: "search",
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}

	if len(searchResult.Tracks.Items) == 0 {
		return nil, nil
	}

	track := &searchResult.Tracks.Items[0]
	return s.convertTrack(track, s.searchConfidence(query, track)), nil
}

// Health checks the token flow, which exercises credentials and connectivity
func (s *spotifyCatalogService) Health(ctx context.Context) error {
	return s.ensureValidToken(ctx)
}

// searchConfidence scores a search hit. ISRC lookups are keyed by a stable
// recording identifier; text lookups are only as good as their string match.
func (s *spotifyCatalogService) searchConfidence(query CatalogQuery, track *spotifyTrack) float64 {
	if query.ISRC != "" {
		return 0.9
	}
	if query.Title == "" && query.Artist == "" {
		return 0.6
	}
	return matching.HintScore(query.Title, query.Artist, track.Name, joinSpotifyArtists(track.Artists))
}

// ensureValidToken ensures we have a valid access token
func (s *spotifyCatalogService) ensureValidToken(ctx context.Context) error {
	s.mu.RLock()
	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		return nil
	}

	token, err := s.tokenSource.Token(ctx)
	if err != nil {
		return &ProviderError{
			Provider:  "spotify_catalog",
			Operation: "auth",
			Message:   "failed to get access token",
			Err:       err,
		}
	}

	s.accessToken = token.AccessToken
	s.tokenExpiry = token.Expiry

	slog.Info("Spotify access token refreshed", "expires_at", token.Expiry)

	return nil
}

// buildCatalogSearchQuery constructs a search query string for Spotify
func buildCatalogSearchQuery(query CatalogQuery) string {
	if query.ISRC != "" {
		return fmt.Sprintf("isrc:%s", query.ISRC)
	}

	if query.Query != "" {
		return query.Query
	}

	var parts []string
	if query.Title != "" {
		parts = append(parts, fmt.Sprintf("track:%q", query.Title))
	}
	if query.Artist != "" {
		parts = append(parts, fmt.Sprintf("artist:%q", query.Artist))
	}
	if query.Album != "" {
		parts = append(parts, fmt.Sprintf("album:%q", query.Album))
	}

	return strings.Join(parts, " ")
}

// convertTrack converts a Spotify API track to the internal candidate shape
func (s *spotifyCatalogService) convertTrack(track *spotifyTrack, confidence float64) *models.TrackCandidate {
	// Prefer a medium-size cover
	var imageURL string
	if len(track.Album.Images) > 0 {
		imageURL = track.Album.Images[0].URL
		for _, img := range track.Album.Images {
			if img.Width >= 300 && img.Width <= 640 {
				imageURL = img.URL
				break
			}
		}
	}

	url := fmt.Sprintf("https://open.spotify.com/track/%s", track.ID)

	return &models.TrackCandidate{
		Title:         track.Name,
		Artist:        joinSpotifyArtists(track.Artists),
		Album:         track.Album.Name,
		ISRC:          track.ExternalIDs.ISRC,
		CatalogID:     track.ID,
		DurationMs:    track.DurationMs,
		ImageURL:      imageURL,
		PlatformLinks: map[string]string{"spotify": url},
		Confidence:    confidence,
		Sources:       []string{"spotify_catalog"},
	}
}

func joinSpotifyArtists(artists []spotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		names = append(names, artist.Name)
	}
	return strings.Join(names, ", ")
}

// Spotify API response structures
type spotifyTrack struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Artists     []spotifyArtist    `json:"artists"`
	Album       spotifyAlbum       `json:"album"`
	DurationMs  int                `json:"duration_ms"`
	ExternalIDs spotifyExternalIDs `json:"external_ids"`
}

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

type spotifyImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type spotifyExternalIDs struct {
	ISRC string `json:"isrc"`
}

type spotifySearchResult struct {
	Tracks spotifyTracksPaging `json:"tracks"`
}

type spotifyTracksPaging struct {
	Items []spotifyTrack `json:"items"`
	Total int            `json:"total"`
}
