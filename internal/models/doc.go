// Package models defines the normalized playlist model shared by every provider adapter and the cache.
//
// The package contains three records:
//   - [Track] : a song/video with an optional duration
//   - [PlaylistInfo] : playlist metadata with the provider's etag and declared length
//   - [Playlist] : a [PlaylistInfo] with its ordered tracks
//
// Records are keyed by (id, [Platform]); the same track id on two platforms is two different tracks.
// JSON field names match the frontend contract (snake_case).
package models
