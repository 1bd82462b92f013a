// Package tasks serves playlists through an etag-checked SQLite cache.
//
// # Sync
//
// [PlaylistEngine.Sync] walks one (platform, id) request to a terminal [Outcome]:
//
//  1. Resolve the raw id through the provider's [services.Service.ResolveID]
//  2. Fetch [models.PlaylistInfo]. Not found evicts the cached rows and ends in [OutcomeNotFound]
//  3. Without an etag the cache is skipped
//  4. A cached row with the same etag and usable links is assembled from the store ([OutcomeCached])
//  5. Otherwise the full playlist is fetched and replaces the cache rows ([OutcomeFresh])
//
// # Cache replacement
//
// The five replacement sub-steps (delete links, delete playlist, insert playlist, insert tracks,
// insert links) each log their result and never stop the ones after them. They share one
// [repositories.Store.Tx], which is rolled back when any of them failed, so a reader sees either
// the old copy or the new one. A failed replacement is logged; the fresh playlist is still returned.
//
// # Progress Reporting
//
// [PlaylistEngine.SyncWithProgress] emits [ProgressUpdate] values on an optional channel.
// Updates use select with default to prevent blocking.
package tasks
