package matching

// DefaultPlatformPriority is the product-level ordering used when a single
// link must represent a track. Deployments can override it via the resolver
// config file.
var DefaultPlatformPriority = []string{
	"spotify",
	"apple_music",
	"youtube_music",
	"youtube",
	"tidal",
	"deezer",
	"amazon_music",
	"soundcloud",
}

// DefaultPlatform is returned when no priority platform has a link. Callers
// must check the URL separately; the platform name alone is always defined.
const DefaultPlatform = "spotify"

// CanonicalPlatform returns the first platform in priority order with a
// non-empty link. Deterministic and total: any map, including an empty one,
// yields a platform name.
func CanonicalPlatform(links map[string]string, priority []string) string {
	if len(priority) == 0 {
		priority = DefaultPlatformPriority
	}
	for _, platform := range priority {
		if links[platform] != "" {
			return platform
		}
	}
	return DefaultPlatform
}

// CanonicalLink returns the canonical platform and its URL. The URL is empty
// when the selection fell through to the default platform.
func CanonicalLink(links map[string]string, priority []string) (platform, url string) {
	platform = CanonicalPlatform(links, priority)
	return platform, links[platform]
}
