// Package repositories implements the playlist cache over three SQLite tables.
//
//   - Playlist: metadata, etag and Length, keyed by (PlaylistID, Platform)
//   - Track: shared tracks keyed by (TrackID, Platform), insert-or-ignore
//   - PlaylistTrack: ordered links sharing one Platform column with both parents
//
// Every table operation validates its records against a column manifest and runs as one
// all-or-nothing unit. Engine failures are marked [shared.ErrStorage]; bad records and
// filters are [shared.ErrValidation].
package repositories
