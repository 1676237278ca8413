package matching

import (
	"regexp"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Weights for combining title and artist similarity. Title mismatches are a
// stronger wrong-track signal than artist formatting differences ("feat."
// variants and the like), so the title carries more weight.
const (
	titleWeight  = 0.6
	artistWeight = 0.4
)

var (
	featPattern    = regexp.MustCompile(`(?i)[(\[]?\s*\b(?:feat\.?|ft\.?|featuring)\s+[^)\]]*[)\]]?`)
	nonWordPattern = regexp.MustCompile(`[^\w\s]`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Normalize lowercases, strips featuring-artist boilerplate and punctuation,
// and collapses whitespace so edit distance compares the parts that matter.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = featPattern.ReplaceAllString(s, " ")
	s = nonWordPattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Similarity computes normalized Levenshtein similarity between two strings
// after normalization. Identical strings score 1.0; otherwise either side
// empty after normalization scores 0.0.
func Similarity(a, b string) float64 {
	// Equal inputs always match, even ones normalization would erase
	if a == b && a != "" {
		return 1
	}
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return strutil.Similarity(na, nb, metrics.NewLevenshtein())
}

// HintScore validates a candidate against user-supplied hints. With no hints
// there is no basis to reject, so the score is 1.0. Title and artist
// similarity each default to 1.0 when the hint or the candidate field is
// absent, then combine as a weighted average.
func HintScore(hintTitle, hintArtist, candidateTitle, candidateArtist string) float64 {
	if hintTitle == "" && hintArtist == "" {
		return 1.0
	}

	titleSim := 1.0
	if hintTitle != "" && candidateTitle != "" {
		titleSim = Similarity(hintTitle, candidateTitle)
	}

	artistSim := 1.0
	if hintArtist != "" && candidateArtist != "" {
		artistSim = Similarity(hintArtist, candidateArtist)
	}

	return titleWeight*titleSim + artistWeight*artistSim
}
