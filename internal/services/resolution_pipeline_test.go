package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tracklink/internal/models"
)

func newTestPipeline() (*ResolutionService, *MockResolutionRepository, *MockLinkRepository, *MockIdentificationProvider, *MockCatalogProvider) {
	resolutions := new(MockResolutionRepository)
	links := new(MockLinkRepository)
	identifier := new(MockIdentificationProvider)
	catalog := new(MockCatalogProvider)
	svc := NewResolutionService(resolutions, links, identifier, catalog, nil)
	return svc, resolutions, links, identifier, catalog
}

func TestResolve_CacheHit(t *testing.T) {
	svc, resolutions, _, identifier, catalog := newTestPipeline()

	rec := createCachedResolution(0.92, models.StatusResolved)
	rec.ID = primitive.NewObjectID()

	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(rec, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathCache, result.Path)
	assert.Equal(t, 0.92, result.Confidence)
	assert.Equal(t, rec.ID.Hex(), result.ResolutionID)
	assert.Equal(t, "spotify", result.CanonicalPlatform)
	assert.Equal(t, TestSpotifyURL1, result.CanonicalURL)

	// Providers must never be reached on a cache hit
	identifier.AssertNotCalled(t, "Identify", mock.Anything, mock.Anything)
	catalog.AssertNotCalled(t, "GetTrackByID", mock.Anything, mock.Anything)
	catalog.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestResolve_CacheFallsThroughKeys(t *testing.T) {
	svc, resolutions, _, identifier, _ := newTestPipeline()

	rec := createCachedResolution(0.9, models.StatusResolved)
	rec.ID = primitive.NewObjectID()

	// Fingerprint lookup misses; ISRC lookup hits
	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, nil).Once()
	resolutions.On("FindByISRC", mock.Anything, TestISRC1).Return(rec, nil)
	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(rec, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
		ISRC:          TestISRC1,
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathCache, result.Path)
	identifier.AssertNotCalled(t, "Identify", mock.Anything, mock.Anything)
}

func TestResolve_LowConfidenceCacheIgnored(t *testing.T) {
	svc, resolutions, _, identifier, _ := newTestPipeline()

	stale := createCachedResolution(0.4, models.StatusNeedsReview)

	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(stale, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)

	identifier.On("Identify", mock.Anything, mock.Anything).Return(createIdentifiedCandidate(0.9), nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathACRCloudStrong, result.Path)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestResolve_CacheLookupErrorDegradesToProviders(t *testing.T) {
	svc, resolutions, _, identifier, _ := newTestPipeline()

	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, errors.New("store down")).Once()
	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)

	identifier.On("Identify", mock.Anything, mock.Anything).Return(createIdentifiedCandidate(0.85), nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathACRCloudStrong, result.Path)
}

func TestResolve_StrongIdentificationSkipsHints(t *testing.T) {
	svc, resolutions, _, identifier, catalog := newTestPipeline()

	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)

	identifier.On("Identify", mock.Anything, mock.Anything).Return(createIdentifiedCandidate(0.85), nil)

	// Hints that contradict the candidate must not reject a strong match
	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
		HintTitle:     "Completely Different Song",
		HintArtist:    "Someone Else",
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathACRCloudStrong, result.Path)
	catalog.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestResolve_OKIdentificationAcceptedByHints(t *testing.T) {
	svc, resolutions, _, identifier, catalog := newTestPipeline()

	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)

	identifier.On("Identify", mock.Anything, mock.Anything).Return(createIdentifiedCandidate(0.7), nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
		HintTitle:     "Test Song",
		HintArtist:    "Test Artist",
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathACRCloudOK, result.Path)
	assert.Equal(t, 0.7, result.Confidence)
	catalog.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestResolve_OKIdentificationRejectedByHints(t *testing.T) {
	svc, resolutions, _, identifier, catalog := newTestPipeline()

	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)

	identifier.On("Identify", mock.Anything, mock.Anything).Return(createIdentifiedCandidate(0.7), nil)
	catalog.On("Search", mock.Anything, mock.Anything).Return(createCatalogCandidate(0.9), nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
		HintTitle:     "Wonderwall",
		HintArtist:    "Oasis",
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathACRCloudFallback, result.Path)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, []string{"acrcloud", "spotify_catalog"}, result.Sources)
	assert.False(t, result.NeedsReview)
}

func TestResolve_DegradedIdentificationWithoutFallback(t *testing.T) {
	svc, resolutions, _, identifier, catalog := newTestPipeline()

	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)

	identifier.On("Identify", mock.Anything, mock.Anything).Return(createIdentifiedCandidate(0.5), nil)

	// No hints and no ISRC: the catalog has nothing to search with, so the
	// weak identification candidate is served as-is
	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathACRCloudOK, result.Path)
	assert.Equal(t, 0.5, result.Confidence)
	catalog.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestResolve_FallbackOnly(t *testing.T) {
	svc, resolutions, _, identifier, catalog := newTestPipeline()

	resolutions.On("FindByISRC", mock.Anything, TestISRC1).Return(nil, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)

	identifier.On("Identify", mock.Anything, mock.Anything).Return(nil, nil)
	catalog.On("Search", mock.Anything, mock.Anything).Return(createCatalogCandidate(0.9), nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		ISRC: TestISRC1,
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathFallbackOnly, result.Path)
	assert.Equal(t, []string{"spotify_catalog"}, result.Sources)
}

func TestResolve_CatalogURLDirectFetch(t *testing.T) {
	svc, resolutions, _, _, catalog := newTestPipeline()

	resolutions.On("FindByCatalogID", mock.Anything, TestCatalogID1).Return(nil, nil)
	resolutions.On("FindByISRC", mock.Anything, TestISRC1).Return(nil, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)

	catalog.On("GetTrackByID", mock.Anything, TestCatalogID1).Return(createCatalogCandidate(1.0), nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		CatalogURL: TestSpotifyURL1,
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathFallbackOnly, result.Path)
	assert.Equal(t, 1.0, result.Confidence)
	catalog.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestResolve_NoCandidateAnywhere(t *testing.T) {
	svc, resolutions, _, identifier, catalog := newTestPipeline()

	resolutions.On("FindByISRC", mock.Anything, TestISRC1).Return(nil, nil)

	identifier.On("Identify", mock.Anything, mock.Anything).Return(nil, nil)
	catalog.On("Search", mock.Anything, mock.Anything).Return(nil, nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		ISRC: TestISRC1,
	})

	assert.False(t, result.Success)
	assert.Equal(t, models.PathNone, result.Path)
	assert.True(t, result.NeedsReview)
	assert.Equal(t, "no candidate from any source", result.Error)
	assert.Empty(t, result.ResolutionID)
	resolutions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestResolve_IdentificationErrorSurfaces(t *testing.T) {
	svc, resolutions, _, identifier, _ := newTestPipeline()

	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, nil)

	identifier.On("Identify", mock.Anything, mock.Anything).Return(nil, errors.New("acrcloud identify: upstream timeout"))

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
	})

	assert.False(t, result.Success)
	assert.Equal(t, models.PathNone, result.Path)
	assert.Contains(t, result.Error, "upstream timeout")
}

func TestResolve_ForceRefreshBypassesCache(t *testing.T) {
	svc, resolutions, _, identifier, _ := newTestPipeline()

	existing := createCachedResolution(0.6, models.StatusNeedsReview)
	existing.ID = primitive.NewObjectID()

	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(existing, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)

	identifier.On("Identify", mock.Anything, mock.Anything).Return(createIdentifiedCandidate(0.95), nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
		ForceRefresh:  true,
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathACRCloudStrong, result.Path)
	assert.Equal(t, existing.ID.Hex(), result.ResolutionID)

	// The existing record was updated in place, not duplicated
	assert.Equal(t, 0.95, existing.Confidence)
	assert.Equal(t, models.StatusResolved, existing.Status)
	resolutions.AssertNumberOfCalls(t, "Save", 1)
}

func TestResolve_NoStableIDSkipsPersistence(t *testing.T) {
	svc, resolutions, _, identifier, catalog := newTestPipeline()

	identifier.On("Identify", mock.Anything, mock.Anything).Return(nil, nil)

	textOnly := createCatalogCandidate(0.72)
	textOnly.ISRC = ""
	catalog.On("Search", mock.Anything, mock.Anything).Return(textOnly, nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		HintTitle:  "Test Song",
		HintArtist: "Test Artist",
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathFallbackOnly, result.Path)
	assert.Empty(t, result.ResolutionID)
	resolutions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestResolve_PersistenceFailureDegrades(t *testing.T) {
	svc, resolutions, links, identifier, _ := newTestPipeline()

	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(errors.New("write failed"))

	links.On("FindByID", mock.Anything, "68b1c2d3e4f5a6b7c8d9e0f1").Return(nil, nil)
	identifier.On("Identify", mock.Anything, mock.Anything).Return(createIdentifiedCandidate(0.9), nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
		LinkID:        "68b1c2d3e4f5a6b7c8d9e0f1",
	})

	// The resolution itself still succeeds; only the cached record is lost
	assert.True(t, result.Success)
	assert.Equal(t, models.PathACRCloudStrong, result.Path)
	assert.Empty(t, result.ResolutionID)
	assert.False(t, result.LinkUpdated)
	links.AssertNotCalled(t, "AttachResolution", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_LinkUpdate(t *testing.T) {
	t.Run("successful update is reported", func(t *testing.T) {
		svc, resolutions, links, identifier, _ := newTestPipeline()

		resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, nil)
		resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)
		identifier.On("Identify", mock.Anything, mock.Anything).Return(createIdentifiedCandidate(0.9), nil)

		links.On("FindByID", mock.Anything, "68b1c2d3e4f5a6b7c8d9e0f1").Return(nil, nil)
		links.On("AttachResolution", mock.Anything, "68b1c2d3e4f5a6b7c8d9e0f1", mock.AnythingOfType("models.LinkResolutionRef")).Return(nil)

		result := svc.Resolve(context.Background(), &models.ResolutionRequest{
			FingerprintID: TestFingerprintID1,
			LinkID:        "68b1c2d3e4f5a6b7c8d9e0f1",
		})

		assert.True(t, result.Success)
		assert.True(t, result.LinkUpdated)
		links.AssertExpectations(t)
	})

	t.Run("failed update does not fail the resolution", func(t *testing.T) {
		svc, resolutions, links, identifier, _ := newTestPipeline()

		resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, nil)
		resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)
		identifier.On("Identify", mock.Anything, mock.Anything).Return(createIdentifiedCandidate(0.9), nil)

		links.On("FindByID", mock.Anything, "68b1c2d3e4f5a6b7c8d9e0f1").Return(nil, nil)
		links.On("AttachResolution", mock.Anything, "68b1c2d3e4f5a6b7c8d9e0f1", mock.AnythingOfType("models.LinkResolutionRef")).Return(errors.New("link not found"))

		result := svc.Resolve(context.Background(), &models.ResolutionRequest{
			FingerprintID: TestFingerprintID1,
			LinkID:        "68b1c2d3e4f5a6b7c8d9e0f1",
		})

		assert.True(t, result.Success)
		assert.False(t, result.LinkUpdated)
		assert.NotEmpty(t, result.ResolutionID)
	})
}

func TestResolve_LinkBackfillsHints(t *testing.T) {
	svc, resolutions, links, identifier, catalog := newTestPipeline()

	// The link carries the caller's idea of the track; the request itself has
	// no hints
	link := &models.Link{Title: "Wonderwall", Artist: "Oasis"}
	links.On("FindByID", mock.Anything, "68b1c2d3e4f5a6b7c8d9e0f1").Return(link, nil)
	links.On("AttachResolution", mock.Anything, "68b1c2d3e4f5a6b7c8d9e0f1", mock.AnythingOfType("models.LinkResolutionRef")).Return(nil)

	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, nil)
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).Return(nil)

	identifier.On("Identify", mock.Anything, mock.Anything).Return(createIdentifiedCandidate(0.7), nil)
	catalog.On("Search", mock.Anything, mock.Anything).Return(createCatalogCandidate(0.9), nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
		LinkID:        "68b1c2d3e4f5a6b7c8d9e0f1",
	})

	// The backfilled hints contradict the OK-range candidate, so it is
	// rejected and the catalog fallback merges in
	assert.True(t, result.Success)
	assert.Equal(t, models.PathACRCloudFallback, result.Path)
	links.AssertCalled(t, "FindByID", mock.Anything, "68b1c2d3e4f5a6b7c8d9e0f1")
}

func TestResolve_WeakMergedResultStoredAsNeedsReview(t *testing.T) {
	svc, resolutions, _, identifier, catalog := newTestPipeline()

	resolutions.On("FindByFingerprintID", mock.Anything, TestFingerprintID1).Return(nil, nil)
	resolutions.On("FindByISRC", mock.Anything, TestISRC1).Return(nil, nil)

	var saved *models.CachedResolution
	resolutions.On("Save", mock.Anything, mock.AnythingOfType("*models.CachedResolution")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.CachedResolution)
		}).Return(nil)

	identifier.On("Identify", mock.Anything, mock.Anything).Return(createIdentifiedCandidate(0.55), nil)
	catalog.On("Search", mock.Anything, mock.Anything).Return(createCatalogCandidate(0.5), nil)

	result := svc.Resolve(context.Background(), &models.ResolutionRequest{
		FingerprintID: TestFingerprintID1,
		ISRC:          TestISRC1,
		HintTitle:     "Wonderwall",
		HintArtist:    "Oasis",
	})

	assert.True(t, result.Success)
	assert.Equal(t, models.PathACRCloudFallback, result.Path)
	assert.True(t, result.NeedsReview)
	if assert.NotNil(t, saved) {
		assert.Equal(t, models.StatusNeedsReview, saved.Status)
	}
}

func TestHealth(t *testing.T) {
	svc, _, _, identifier, catalog := newTestPipeline()

	identifier.On("Health", mock.Anything).Return(nil)
	catalog.On("Health", mock.Anything).Return(errors.New("token refresh failed"))

	health := svc.Health(context.Background())

	assert.NoError(t, health["acrcloud"])
	assert.Error(t, health["spotify_catalog"])
}
