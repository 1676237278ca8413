package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"tracklink/internal/config"
	"tracklink/internal/matching"
	"tracklink/internal/models"
	"tracklink/internal/repositories"
)

// ResolutionService runs the track resolution pipeline: cache lookup,
// identification, catalog-search fallback, merge, hint validation, canonical
// selection, and persistence. It never returns an error to its caller; every
// failure mode degrades into a populated result.
type ResolutionService struct {
	resolutions repositories.ResolutionRepository
	links       repositories.LinkRepository
	identifier  IdentificationProvider
	catalog     CatalogProvider
	cfg         *config.ResolverConfig
}

// NewResolutionService creates a new resolution pipeline
func NewResolutionService(
	resolutions repositories.ResolutionRepository,
	links repositories.LinkRepository,
	identifier IdentificationProvider,
	catalog CatalogProvider,
	cfg *config.ResolverConfig,
) *ResolutionService {
	if cfg == nil {
		cfg = config.DefaultResolverConfig()
	}
	return &ResolutionService{
		resolutions: resolutions,
		links:       links,
		identifier:  identifier,
		catalog:     catalog,
		cfg:         cfg,
	}
}

// Resolve runs the full pipeline for one request
func (s *ResolutionService) Resolve(ctx context.Context, req *models.ResolutionRequest) *models.ResolutionResult {
	catalogID := ParseCatalogTrackID(req.CatalogURL)

	s.backfillHints(ctx, req)

	if !req.ForceRefresh {
		if cached := s.lookupCached(ctx, req, catalogID); cached != nil {
			slog.Info("Resolution cache hit",
				"fingerprintID", cached.FingerprintID,
				"isrc", cached.ISRC,
				"confidence", cached.Confidence)
			return s.finalize(ctx, req, cached.ToCandidate(), models.PathCache)
		}
	}

	identified, identifyErr := s.identify(ctx, req)

	if identified != nil {
		if identified.Confidence >= s.cfg.StrongConfidence {
			return s.finalize(ctx, req, identified, models.PathACRCloudStrong)
		}
		if identified.Confidence >= s.cfg.OKConfidence {
			similarity := matching.HintScore(req.HintTitle, req.HintArtist, identified.Title, identified.Artist)
			if similarity >= s.cfg.HintSimilarityThreshold {
				return s.finalize(ctx, req, identified, models.PathACRCloudOK)
			}
			slog.Info("Identification candidate rejected by hints",
				"similarity", similarity,
				"confidence", identified.Confidence,
				"title", identified.Title)
		}
	}

	// Secondary source runs whenever identification did not accept outright,
	// even when identification produced nothing at all
	fallback := s.searchCatalog(ctx, req, catalogID)

	switch {
	case identified != nil && fallback != nil:
		merged := MergeCandidates(identified, fallback, s.cfg.OKConfidence)
		return s.finalize(ctx, req, merged, models.PathACRCloudFallback)
	case identified != nil:
		// Accept-degraded: a lone identification candidate is used as-is
		// even below the OK threshold
		return s.finalize(ctx, req, identified, models.PathACRCloudOK)
	case fallback != nil:
		return s.finalize(ctx, req, fallback, models.PathFallbackOnly)
	}

	errMsg := identifyErr
	if errMsg == "" {
		errMsg = "no candidate from any source"
	}

	return &models.ResolutionResult{
		Success: false,
		Path:    models.PathNone,
		TrackCandidate: models.TrackCandidate{
			PlatformLinks: map[string]string{},
			Sources:       []string{},
			NeedsReview:   true,
		},
		CanonicalPlatform: matching.CanonicalPlatform(nil, s.cfg.PlatformPriority),
		Error:             errMsg,
	}
}

// Health reports the health of both providers
func (s *ResolutionService) Health(ctx context.Context) map[string]error {
	return map[string]error{
		"acrcloud":        s.identifier.Health(ctx),
		"spotify_catalog": s.catalog.Health(ctx),
	}
}

// lookupCached consults the cache store by fingerprint ID, then ISRC, then
// catalog track ID. Entries below the minimum confidence are treated as
// misses, not errors; so are lookup failures.
func (s *ResolutionService) lookupCached(ctx context.Context, req *models.ResolutionRequest, catalogID string) *models.CachedResolution {
	type lookup struct {
		key  string
		find func(context.Context) (*models.CachedResolution, error)
	}

	var lookups []lookup
	if req.FingerprintID != "" {
		lookups = append(lookups, lookup{"fingerprint_id", func(ctx context.Context) (*models.CachedResolution, error) {
			return s.resolutions.FindByFingerprintID(ctx, req.FingerprintID)
		}})
	}
	if req.ISRC != "" {
		lookups = append(lookups, lookup{"isrc", func(ctx context.Context) (*models.CachedResolution, error) {
			return s.resolutions.FindByISRC(ctx, req.ISRC)
		}})
	}
	if catalogID != "" {
		lookups = append(lookups, lookup{"catalog_id", func(ctx context.Context) (*models.CachedResolution, error) {
			return s.resolutions.FindByCatalogID(ctx, catalogID)
		}})
	}

	for _, l := range lookups {
		record, err := l.find(ctx)
		if err != nil {
			slog.Error("Cache lookup failed", "key", l.key, "error", err)
			continue
		}
		if record == nil {
			continue
		}
		if record.Confidence < s.cfg.MinCacheConfidence {
			slog.Info("Ignoring low-confidence cached resolution",
				"key", l.key,
				"confidence", record.Confidence)
			continue
		}
		return record
	}

	return nil
}

// backfillHints pulls title/artist hints from the caller's smart link when
// the request names one but carries no hints of its own. A lookup failure
// just leaves the request hintless.
func (s *ResolutionService) backfillHints(ctx context.Context, req *models.ResolutionRequest) {
	if req.LinkID == "" || req.HasHints() {
		return
	}

	link, err := s.links.FindByID(ctx, req.LinkID)
	if err != nil {
		slog.Error("Failed to load link for hint backfill", "linkID", req.LinkID, "error", err)
		return
	}
	if link == nil {
		return
	}

	req.HintTitle = link.Title
	req.HintArtist = link.Artist
}

// identify wraps the identification call so any upstream failure degrades to
// "no candidate" with a recorded reason instead of failing the request
func (s *ResolutionService) identify(ctx context.Context, req *models.ResolutionRequest) (*models.TrackCandidate, string) {
	idReq := IdentifyRequest{
		FingerprintID: req.FingerprintID,
		ISRC:          req.ISRC,
		SourceURL:     req.SourceURL,
		Query:         strings.TrimSpace(req.HintArtist + " " + req.HintTitle),
	}
	if idReq.Empty() {
		return nil, ""
	}

	candidate, err := s.identifier.Identify(ctx, idReq)
	if err != nil {
		slog.Error("Identification failed", "error", err)
		return nil, err.Error()
	}

	return candidate, ""
}

// searchCatalog wraps the catalog calls with the same degrade-to-nil
// semantics. A direct ID fetch is preferred over text search.
func (s *ResolutionService) searchCatalog(ctx context.Context, req *models.ResolutionRequest, catalogID string) *models.TrackCandidate {
	if catalogID != "" {
		candidate, err := s.catalog.GetTrackByID(ctx, catalogID)
		if err != nil {
			slog.Error("Catalog fetch by ID failed", "catalogID", catalogID, "error", err)
		} else if candidate != nil {
			return candidate
		}
	}

	query := CatalogQuery{
		ISRC:   req.ISRC,
		Title:  req.HintTitle,
		Artist: req.HintArtist,
		Album:  req.HintAlbum,
	}
	if query.Empty() {
		return nil
	}

	candidate, err := s.catalog.Search(ctx, query)
	if err != nil {
		slog.Error("Catalog search failed", "error", err)
		return nil
	}

	return candidate
}

// finalize turns an accepted candidate into the returned result: canonical
// selection, idempotent persistence, and the best-effort smart-link update.
// Persistence failure degrades the result by omitting the resolution ID; it
// never fails the resolution.
func (s *ResolutionService) finalize(ctx context.Context, req *models.ResolutionRequest, candidate *models.TrackCandidate, path models.ResolverPath) *models.ResolutionResult {
	platform, url := matching.CanonicalLink(candidate.PlatformLinks, s.cfg.PlatformPriority)

	// The result gets its own copy so later writes to the persisted record
	// cannot reach through shared maps
	result := &models.ResolutionResult{
		Success:           true,
		Path:              path,
		TrackCandidate:    *candidate.Clone(),
		CanonicalPlatform: platform,
		CanonicalURL:      url,
	}

	if !candidate.HasStableID() {
		// Text-search-only candidates are served but not cached
		slog.Info("Skipping persistence for candidate without stable identifier", "path", path)
		return result
	}

	record, err := s.upsert(ctx, candidate)
	if err != nil {
		slog.Error("Failed to persist resolution", "path", path, "error", err)
		return result
	}
	result.ResolutionID = record.ID.Hex()

	if req.LinkID != "" {
		ref := models.LinkResolutionRef{
			ResolutionID: record.ID,
			ISRC:         candidate.ISRC,
			Confidence:   candidate.Confidence,
			Sources:      candidate.Sources,
			ResolvedAt:   time.Now(),
		}
		if err := s.links.AttachResolution(ctx, req.LinkID, ref); err != nil {
			// The cache write stands; the smart link catches up on its next
			// resolution
			slog.Error("Failed to update link with resolution", "linkID", req.LinkID, "error", err)
		} else {
			result.LinkUpdated = true
		}
	}

	return result
}

// upsert writes the candidate to the cache store, updating the existing
// record for its key if one exists. Later writes win; a force-refresh may
// lower a previously stored confidence.
func (s *ResolutionService) upsert(ctx context.Context, candidate *models.TrackCandidate) (*models.CachedResolution, error) {
	status := models.StatusNeedsReview
	if candidate.Confidence >= s.cfg.OKConfidence && !candidate.NeedsReview {
		status = models.StatusResolved
	}

	var existing *models.CachedResolution
	var err error
	if candidate.FingerprintID != "" {
		existing, err = s.resolutions.FindByFingerprintID(ctx, candidate.FingerprintID)
	} else {
		existing, err = s.resolutions.FindByISRC(ctx, candidate.ISRC)
	}
	if err != nil {
		return nil, err
	}

	if existing != nil {
		existing.ApplyCandidate(candidate, status)
		if err := s.resolutions.Save(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	record := models.NewCachedResolution(candidate, status)
	if err := s.resolutions.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
