package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"tracklink/internal/models"
)

// MockResolutionRepository is a mock implementation of ResolutionRepository
// for testing
type MockResolutionRepository struct {
	mock.Mock
}

func (m *MockResolutionRepository) Save(ctx context.Context, resolution *models.CachedResolution) error {
	args := m.Called(ctx, resolution)
	return args.Error(0)
}

func (m *MockResolutionRepository) FindByFingerprintID(ctx context.Context, fingerprintID string) (*models.CachedResolution, error) {
	args := m.Called(ctx, fingerprintID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CachedResolution), args.Error(1)
}

func (m *MockResolutionRepository) FindByISRC(ctx context.Context, isrc string) (*models.CachedResolution, error) {
	args := m.Called(ctx, isrc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CachedResolution), args.Error(1)
}

func (m *MockResolutionRepository) FindByCatalogID(ctx context.Context, catalogID string) (*models.CachedResolution, error) {
	args := m.Called(ctx, catalogID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CachedResolution), args.Error(1)
}

func (m *MockResolutionRepository) FindByStatus(ctx context.Context, status string, limit int) ([]*models.CachedResolution, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CachedResolution), args.Error(1)
}

func (m *MockResolutionRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockLinkRepository is a mock implementation of LinkRepository for testing
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) FindByID(ctx context.Context, id string) (*models.Link, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Link), args.Error(1)
}

func (m *MockLinkRepository) AttachResolution(ctx context.Context, linkID string, ref models.LinkResolutionRef) error {
	args := m.Called(ctx, linkID, ref)
	return args.Error(0)
}

// MockIdentificationProvider is a mock implementation of
// IdentificationProvider for testing
type MockIdentificationProvider struct {
	mock.Mock
}

func (m *MockIdentificationProvider) Identify(ctx context.Context, req IdentifyRequest) (*models.TrackCandidate, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrackCandidate), args.Error(1)
}

func (m *MockIdentificationProvider) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockCatalogProvider is a mock implementation of CatalogProvider for testing
type MockCatalogProvider struct {
	mock.Mock
}

func (m *MockCatalogProvider) GetTrackByID(ctx context.Context, trackID string) (*models.TrackCandidate, error) {
	args := m.Called(ctx, trackID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrackCandidate), args.Error(1)
}

func (m *MockCatalogProvider) Search(ctx context.Context, query CatalogQuery) (*models.TrackCandidate, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrackCandidate), args.Error(1)
}

func (m *MockCatalogProvider) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Test constants
const (
	TestISRC1 = "USUM71703861"
	TestISRC2 = "USRC17607839"

	TestFingerprintID1 = "a81f1a2d8b2e4f5c9d0e1f2a3b4c5d6e"
	TestCatalogID1     = "4iV5W9uYEdYUVa79Axb7Rh"

	TestSpotifyURL1 = "https://open.spotify.com/track/" + TestCatalogID1
)

// Helper functions for creating test data

func createIdentifiedCandidate(confidence float64) *models.TrackCandidate {
	return &models.TrackCandidate{
		Title:         "Test Song",
		Artist:        "Test Artist",
		Album:         "Test Album",
		ISRC:          TestISRC1,
		FingerprintID: TestFingerprintID1,
		CatalogID:     TestCatalogID1,
		DurationMs:    240000,
		PlatformLinks: map[string]string{
			"spotify": TestSpotifyURL1,
			"deezer":  "https://www.deezer.com/track/3135556",
		},
		Confidence: confidence,
		Sources:    []string{"acrcloud"},
	}
}

func createCatalogCandidate(confidence float64) *models.TrackCandidate {
	return &models.TrackCandidate{
		Title:      "Test Song",
		Artist:     "Test Artist",
		Album:      "Test Album",
		ISRC:       TestISRC1,
		CatalogID:  TestCatalogID1,
		DurationMs: 240000,
		PlatformLinks: map[string]string{
			"spotify": TestSpotifyURL1,
		},
		Confidence: confidence,
		Sources:    []string{"spotify_catalog"},
	}
}

func createCachedResolution(confidence float64, status string) *models.CachedResolution {
	rec := models.NewCachedResolution(createIdentifiedCandidate(confidence), status)
	return rec
}
