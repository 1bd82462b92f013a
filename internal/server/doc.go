// Package server exposes the playlist cache over HTTP.
//
// # Routes
//
//	GET /api/playlist_info/{provider}?id=  → provider metadata ([models.PlaylistInfo])
//	GET /api/playlist/{provider}?id=       → playlist with tracks, served through [tasks.PlaylistEngine]
//	GET /                                  → static front-end files
//
// Unsupported providers, missing ids, unknown playlists and upstream failures all answer
// 404 with a JSON body of the form {"error": "..."}.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
// [RequestID], [Logging] and [Recover] are the standard middleware stack installed by [NewRouter].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// [Server] serves the router over HTTP/1.1 and cleartext HTTP/2 (h2c) and shuts down gracefully when its
// context is cancelled.
package server
