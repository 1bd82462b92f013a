package models

import (
	"fmt"
	"strings"
)

// Platform identifies an upstream music provider. Values are stored upper-case.
type Platform string

const (
	PlatformYouTube    Platform = "YOUTUBE"
	PlatformSpotify    Platform = "SPOTIFY"
	PlatformSoundCloud Platform = "SOUNDCLOUD"
)

// Platforms lists every supported provider in display order.
var Platforms = []Platform{PlatformYouTube, PlatformSpotify, PlatformSoundCloud}

// ParsePlatform converts a case-insensitive provider name (e.g. "youtube") into a [Platform].
func ParsePlatform(name string) (Platform, error) {
	p := Platform(strings.ToUpper(strings.TrimSpace(name)))
	for _, known := range Platforms {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported platform %q", name)
}

// Lower returns the lowercase form used in request paths.
func (p Platform) Lower() string {
	return strings.ToLower(string(p))
}

func (p Platform) String() string {
	return string(p)
}

// Track is a single song or video as reported by a provider.
//
// DurationSeconds is nil when the provider cannot report it without an extra call.
type Track struct {
	TrackID         string   `json:"track_id"`
	Platform        Platform `json:"platform"`
	Title           string   `json:"title"`
	Owner           string   `json:"owner"`
	Thumbnail       string   `json:"thumbnail"`
	DurationSeconds *int     `json:"duration_seconds"`
}

// PlaylistInfo is playlist metadata without the track list.
//
// Etag is the provider's opaque change token; nil means the provider offers none.
type PlaylistInfo struct {
	Platform    Platform `json:"platform"`
	PlaylistID  string   `json:"playlist_id"`
	Title       string   `json:"title"`
	Owner       string   `json:"owner"`
	Description string   `json:"description"`
	Thumbnail   string   `json:"thumbnail"`
	Etag        *string  `json:"etag"`
	Length      int      `json:"length"`
}

// Playlist is a [PlaylistInfo] plus its ordered tracks.
type Playlist struct {
	PlaylistInfo
	Tracks []Track `json:"tracks"`
}

// HasEtag reports whether the provider supplied a usable change token.
func (i PlaylistInfo) HasEtag() bool {
	return i.Etag != nil
}

// Seconds returns a pointer to s, for optional durations.
func Seconds(s int) *int {
	return &s
}

// Etag returns a pointer to s, for optional etags.
func Etag(s string) *string {
	return &s
}
