package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Application settings
	Port       string `envconfig:"PORT" default:"8080"`
	GinMode    string `envconfig:"GIN_MODE" default:"debug"`
	BaseURL    string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	MongodbURL string `envconfig:"MONGODB_URL" required:"true"`
	ValkeyURL  string `envconfig:"VALKEY_URL" required:"true"`

	// Bearer-token secret for the resolve API. Empty disables auth, which is
	// only acceptable for local development.
	APIAuthSecret string `envconfig:"API_AUTH_SECRET"`

	// Identification provider (ACRCloud)
	ACRCloudBaseURL string `envconfig:"ACRCLOUD_BASE_URL" default:"https://eu-api-v2.acrcloud.com"`
	ACRCloudToken   string `envconfig:"ACRCLOUD_TOKEN"`

	// Catalog provider (Spotify)
	SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET"`

	// Resolver tunables, loaded from defaults plus an optional TOML override
	Resolver *ResolverConfig `json:"-"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	resolver, err := LoadResolverConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load resolver config: %w", err)
	}
	cfg.Resolver = resolver

	return &cfg, nil
}
