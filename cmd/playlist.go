package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Playlist syncs a playlist through the cache and prints it.
//
// Progress updates are printed as they arrive unless --quiet, --json or --format is set.
// With --format the playlist is exported to --output, or to stdout when --output is "-".
func (r *Runner) Playlist(ctx context.Context, cmd *cli.Command) error {
	provider, id := cmd.StringArg("provider"), cmd.StringArg("id")

	var format formatter.Format
	if name := cmd.String("format"); name != "" {
		f, err := formatter.ParseFormat(name)
		if err != nil {
			return err
		}
		format = f
	}

	engine, db, err := r.engine(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	asJSON := cmd.Bool("json")

	var progress chan tasks.ProgressUpdate
	done := make(chan struct{})
	if !asJSON && format == "" && !cmd.Bool("quiet") {
		progress = make(chan tasks.ProgressUpdate, 16)
		go func() {
			defer close(done)
			for update := range progress {
				r.writeProgress(update)
			}
		}()
	} else {
		close(done)
	}

	result, err := engine.SyncWithProgress(ctx, progress, provider, id)
	if progress != nil {
		close(progress)
	}
	<-done

	if err != nil {
		return err
	}
	if result.Outcome == tasks.OutcomeNotFound {
		return shared.NotFound(nil, fmt.Sprintf("%s playlist %s not found", provider, id))
	}

	r.logger.Debug("sync finished", "outcome", result.Outcome, "tracks", len(result.Playlist.Tracks))

	if asJSON {
		return r.writeJSON(result.Playlist, cmd.Bool("pretty"))
	}
	if format != "" {
		return r.export(format, result.Playlist, cmd.String("output"))
	}

	r.writePlaylist(*result.Playlist, result.Outcome)
	return nil
}

// Info prints playlist metadata without touching the cache.
func (r *Runner) Info(ctx context.Context, cmd *cli.Command) error {
	provider, id := cmd.StringArg("provider"), cmd.StringArg("id")

	registry, err := r.providers(ctx)
	if err != nil {
		return err
	}

	info, err := tasks.NewPlaylistEngine(registry, nil, r.logger).Info(ctx, provider, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(info, cmd.Bool("pretty"))
	}

	r.writeInfo(*info)
	return nil
}

// export writes p in format to path. "-" writes to the runner output.
func (r *Runner) export(format formatter.Format, p *models.Playlist, path string) error {
	if path == "-" {
		data, err := formatter.Export(format, p)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	written, err := formatter.WriteExport(format, p, path)
	if err != nil {
		return err
	}
	r.logger.Info("exported playlist", "format", format, "path", written)
	r.writePlain("✓ Exported %d tracks to %s\n", len(p.Tracks), written)
	return nil
}

func (r *Runner) writeProgress(update tasks.ProgressUpdate) {
	if update.Total > 1 {
		r.writePlain("[%s %d/%d] %s\n", update.Phase, update.Step, update.Total, update.Message)
		return
	}
	r.writePlain("[%s] %s\n", update.Phase, update.Message)
}

func (r *Runner) writeInfo(info models.PlaylistInfo) {
	etag := "(none)"
	if info.HasEtag() {
		etag = *info.Etag
	}

	r.writePlainHeader(info.Title)
	r.writePlain("Platform:    %s\n", info.Platform)
	r.writePlain("ID:          %s\n", info.PlaylistID)
	r.writePlain("Owner:       %s\n", info.Owner)
	r.writePlain("Tracks:      %d\n", info.Length)
	r.writePlain("Etag:        %s\n", etag)
	if info.Description != "" {
		r.writePlain("Description: %s\n", info.Description)
	}
}

func (r *Runner) writePlaylist(p models.Playlist, outcome tasks.Outcome) {
	r.writeInfo(p.PlaylistInfo)
	r.writePlain("Source:      %s\n", outcome)
	r.writePlainln("Tracks:")
	for i, t := range p.Tracks {
		r.writePlain("%3d. %s - %s (%s)\n", i+1, t.Owner, t.Title, formatter.FormatDuration(t.DurationSeconds))
	}
}
