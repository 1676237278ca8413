package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// ResolverConfig holds the tunable thresholds and orderings the resolution
// pipeline is constructed with. Values live here rather than as constants at
// call sites so per-deployment tuning and tests stay honest.
type ResolverConfig struct {
	// A candidate at or above StrongConfidence is accepted without hint
	// validation
	StrongConfidence float64 `toml:"strong_confidence"`

	// A candidate at or above OKConfidence is accepted when hint similarity
	// clears HintSimilarityThreshold. Also the resolved/needs_review cutoff
	// on persisted records.
	OKConfidence float64 `toml:"ok_confidence"`

	// Cached entries below MinCacheConfidence are treated as misses
	MinCacheConfidence float64 `toml:"min_cache_confidence"`

	// Minimum composite hint similarity for accepting an OK-range candidate
	HintSimilarityThreshold float64 `toml:"hint_similarity_threshold"`

	// Ordered preference list for canonical platform selection
	PlatformPriority []string `toml:"platform_priority"`

	// Per-call timeout for provider requests, in seconds
	ProviderTimeoutSeconds int `toml:"provider_timeout_seconds"`
}

// DefaultResolverConfig returns hard-coded safe defaults
func DefaultResolverConfig() *ResolverConfig {
	return &ResolverConfig{
		StrongConfidence:        0.80,
		OKConfidence:            0.65,
		MinCacheConfidence:      0.50,
		HintSimilarityThreshold: 0.70,
		PlatformPriority: []string{
			"spotify",
			"apple_music",
			"youtube_music",
			"youtube",
			"tidal",
			"deezer",
			"amazon_music",
			"soundcloud",
		},
		ProviderTimeoutSeconds: 10,
	}
}

// LoadResolverConfig loads defaults and merges a TOML override file on top.
// RESOLVER_CONFIG_PATH takes priority; otherwise well-known locations are
// probed. A missing file is not an error.
func LoadResolverConfig() (*ResolverConfig, error) {
	cfg := DefaultResolverConfig()

	paths := candidateResolverConfigPaths()
	if explicit := os.Getenv("RESOLVER_CONFIG_PATH"); explicit != "" {
		paths = []string{explicit}
	}

	for _, path := range paths {
		fileCfg, err := loadResolverConfigFromPath(path)
		if err != nil {
			return nil, err
		}
		if fileCfg != nil {
			mergeResolverConfig(cfg, fileCfg)
			slog.Info("resolver config loaded", "path", path)
			break
		}
	}

	return cfg, nil
}

func loadResolverConfigFromPath(path string) (*ResolverConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg ResolverConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeResolverConfig(base, override *ResolverConfig) {
	if override == nil || base == nil {
		return
	}
	if override.StrongConfidence > 0 {
		base.StrongConfidence = override.StrongConfidence
	}
	if override.OKConfidence > 0 {
		base.OKConfidence = override.OKConfidence
	}
	if override.MinCacheConfidence > 0 {
		base.MinCacheConfidence = override.MinCacheConfidence
	}
	if override.HintSimilarityThreshold > 0 {
		base.HintSimilarityThreshold = override.HintSimilarityThreshold
	}
	if len(override.PlatformPriority) > 0 {
		base.PlatformPriority = override.PlatformPriority
	}
	if override.ProviderTimeoutSeconds > 0 {
		base.ProviderTimeoutSeconds = override.ProviderTimeoutSeconds
	}
}

// candidateResolverConfigPaths returns common locations to auto-discover the
// resolver config
func candidateResolverConfigPaths() []string {
	paths := []string{
		"resolver.toml",
		filepath.Join("config", "resolver.toml"),
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "tracklink", "resolver.toml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", "tracklink", "resolver.toml"))
	}

	paths = append(paths, filepath.Join(string(os.PathSeparator), "etc", "tracklink", "resolver.toml"))
	return paths
}
