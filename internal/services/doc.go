// Package services defines the [Service] interface for playlist providers and implements it for YouTube, Spotify and SoundCloud.
//
// # Service Interface
//
// Every provider resolves a user-supplied id, fetches [models.PlaylistInfo] and fetches the full
// [models.Playlist]. The [Registry] maps a [models.Platform] to its service and is built once at startup.
//
// # YouTube Implementation
//
// [YouTubeService] uses the YouTube Data API client with an API key. Durations are left unset:
// resolving them costs one extra quota-charged call per video.
//
// # Spotify Implementation
//
// [SpotifyService] authenticates with the client credentials grant through a [TokenManager].
// Responses are classified by status code; 429 sleeps for Retry-After and retries, 401 refreshes
// the token once. Ids that are not playlists fall back to the album endpoints.
//
// # SoundCloud Implementation
//
// [SoundCloudService] scrapes the playlist page for its hydration blob. Tracks rendered inline are
// converted directly; bare id stubs are completed through the [BatchFetcher] using a client id
// scraped by the [ClientIDManager].
//
// # Error Handling
//
// Services only return errors marked with the shared taxonomy:
//   - [shared.ErrPlaylistNotFound] : the id does not resolve to a playlist (or album)
//   - [shared.ErrUnrecoverable] : any other upstream failure, including exhausted rate limit retries
//     (those also match [shared.ErrRateLimited])
package services
