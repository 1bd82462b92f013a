package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/urfave/cli/v3"
)

// CacheStats prints the number of cached playlists, tracks and links.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	counts, err := repositories.NewStore(db).Counts(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to count cache rows")
	}

	if cmd.Bool("json") {
		return r.writeJSON(counts, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Cache: " + r.cfg().Database.Path)
	for _, table := range []string{"Playlist", "Track", "PlaylistTrack"} {
		r.writePlain("%-14s %d\n", table, counts[table])
	}
	return nil
}

// CacheClear deletes every cached row.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.NewStore(db).Clear(ctx); err != nil {
		return errors.Wrap(err, "failed to clear cache")
	}

	r.logger.Info("cache cleared", "path", r.cfg().Database.Path)
	r.writePlain("✓ Cache cleared\n")
	return nil
}
