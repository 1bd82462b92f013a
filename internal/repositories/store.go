package repositories

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Store groups the three cache tables over one database.
type Store struct {
	db             *sql.DB
	Playlists      *PlaylistTable
	Tracks         *TrackTable
	PlaylistTracks *PlaylistTrackTable
}

// NewStore creates a Store whose operations each run in their own transaction.
func NewStore(db *sql.DB) *Store {
	return newStore(conn{db: db})
}

func newStore(c conn) *Store {
	return &Store{
		db:             c.db,
		Playlists:      newPlaylistTable(c),
		Tracks:         newTrackTable(c),
		PlaylistTracks: newPlaylistTrackTable(c),
	}
}

// Tx runs fn against a Store bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return shared.Storage(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := fn(newStore(conn{db: s.db, tx: tx})); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return shared.Storage(err, "failed to commit transaction")
	}
	return nil
}

// Clear removes every cached row, links first.
func (s *Store) Clear(ctx context.Context) error {
	return s.Tx(ctx, func(tx *Store) error {
		for _, t := range []*Table{tx.PlaylistTracks.Table, tx.Playlists.Table, tx.Tracks.Table} {
			if _, err := t.Delete(ctx, All()); err != nil {
				return errors.Wrapf(err, "failed to clear %s", t.Name())
			}
		}
		return nil
	})
}

// Counts reports the number of rows per table.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 3)
	for _, t := range []*Table{s.Playlists.Table, s.Tracks.Table, s.PlaylistTracks.Table} {
		rows, err := t.Find(ctx, All())
		if err != nil {
			return nil, err
		}
		counts[t.Name()] = len(rows)
	}
	return counts, nil
}
