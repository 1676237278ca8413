package services

import "fmt"

// ACRExternalMetadata is the provider's per-platform metadata blob. Each
// entry carries platform-native IDs rather than URLs, so link construction
// happens here.
type ACRExternalMetadata struct {
	Spotify    *ACRSpotifyMeta    `json:"spotify,omitempty"`
	AppleMusic *ACRAppleMusicMeta `json:"applemusic,omitempty"`
	YouTube    *ACRYouTubeMeta    `json:"youtube,omitempty"`
	Deezer     *ACRDeezerMeta     `json:"deezer,omitempty"`
}

type ACRSpotifyMeta struct {
	Track ACRExternalTrack `json:"track"`
}

type ACRAppleMusicMeta struct {
	Track   ACRExternalTrack `json:"track"`
	Preview string           `json:"preview,omitempty"`
}

type ACRYouTubeMeta struct {
	VID string `json:"vid"`
}

type ACRDeezerMeta struct {
	Track ACRExternalTrack `json:"track"`
}

type ACRExternalTrack struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// NormalizeExternalLinks converts the provider's external metadata into the
// internal platform -> URL map. Platforms with empty IDs are omitted.
func NormalizeExternalLinks(md *ACRExternalMetadata) map[string]string {
	links := make(map[string]string)
	if md == nil {
		return links
	}

	if md.Spotify != nil && md.Spotify.Track.ID != "" {
		links["spotify"] = fmt.Sprintf("https://open.spotify.com/track/%s", md.Spotify.Track.ID)
	}
	if md.AppleMusic != nil && md.AppleMusic.Track.ID != "" {
		links["apple_music"] = fmt.Sprintf("https://music.apple.com/us/song/%s", md.AppleMusic.Track.ID)
	}
	if md.YouTube != nil && md.YouTube.VID != "" {
		links["youtube"] = fmt.Sprintf("https://www.youtube.com/watch?v=%s", md.YouTube.VID)
	}
	if md.Deezer != nil && md.Deezer.Track.ID != "" {
		links["deezer"] = fmt.Sprintf("https://www.deezer.com/track/%s", md.Deezer.Track.ID)
	}

	return links
}
