package services

import "tracklink/internal/models"

// MergeCandidates combines the identification-sourced candidate with the
// catalog-sourced one into a new candidate. Field precedence is fixed:
// identification wins scalar fields when present, since it is keyed by an
// exact recording fingerprint while catalog search is keyed by approximate
// text match. Confidence is the maximum of the two, never an average, so a
// single strong signal is not diluted by a weak one. The manual-review flag
// is set only when both sources are below okThreshold: merging two weak
// signals does not itself constitute strength.
func MergeCandidates(identified, fallback *models.TrackCandidate, okThreshold float64) *models.TrackCandidate {
	links := make(map[string]string, len(identified.PlatformLinks)+len(fallback.PlatformLinks))
	for platform, url := range fallback.PlatformLinks {
		links[platform] = url
	}
	for platform, url := range identified.PlatformLinks {
		links[platform] = url
	}

	sources := make([]string, 0, len(identified.Sources)+len(fallback.Sources))
	sources = append(sources, identified.Sources...)
	sources = append(sources, fallback.Sources...)

	confidence := identified.Confidence
	if fallback.Confidence > confidence {
		confidence = fallback.Confidence
	}

	raw := identified.Raw
	if raw == nil {
		raw = fallback.Raw
	}

	return &models.TrackCandidate{
		Title:         firstNonEmpty(identified.Title, fallback.Title),
		Artist:        firstNonEmpty(identified.Artist, fallback.Artist),
		Album:         firstNonEmpty(identified.Album, fallback.Album),
		ISRC:          firstNonEmpty(identified.ISRC, fallback.ISRC),
		FingerprintID: firstNonEmpty(identified.FingerprintID, fallback.FingerprintID),
		CatalogID:     firstNonEmpty(identified.CatalogID, fallback.CatalogID),
		DurationMs:    firstNonZero(identified.DurationMs, fallback.DurationMs),
		ImageURL:      firstNonEmpty(identified.ImageURL, fallback.ImageURL),
		PlatformLinks: links,
		Confidence:    confidence,
		Sources:       sources,
		NeedsReview:   identified.Confidence < okThreshold && fallback.Confidence < okThreshold,
		Raw:           raw,
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}
