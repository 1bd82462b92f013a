// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// outputFlags returns new --json and --pretty flags. Flags hold their parsed values, so each command gets its own.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

func playlistArgs() []cli.Argument {
	return []cli.Argument{
		&cli.StringArg{Name: "provider"},
		&cli.StringArg{Name: "id"},
	}
}

// setupCommand writes a config file and creates the cache schema.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml if missing, initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Drop the cache schema and recreate it",
			},
		},
		Action: r.Setup,
	}
}

// serveCommand runs the HTTP API and static frontend.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the playlist API and static frontend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port)",
			},
			&cli.StringFlag{
				Name:  "static",
				Usage: "Directory of static files (overrides server.static_dir)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the frontend in the default browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// playlistCommand syncs a playlist through the cache.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "playlist",
		Aliases:   []string{"pl"},
		Usage:     "Fetch a playlist, serving it from the cache when unchanged",
		ArgsUsage: "<youtube|spotify|soundcloud> <id or URL>",
		Arguments: playlistArgs(),
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Hide progress updates",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export as csv, markdown or text instead of printing",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Export file path (default: derived from the playlist id, - for stdout)",
			},
		}, outputFlags()...),
		Action: r.Playlist,
	}
}

// infoCommand fetches playlist metadata only.
func infoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Fetch playlist metadata without tracks",
		ArgsUsage: "<youtube|spotify|soundcloud> <id or URL>",
		Arguments: playlistArgs(),
		Flags:     outputFlags(),
		Action:    r.Info,
	}
}

// cacheCommand inspects and clears the local cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the local playlist cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cached row counts",
				Flags:  outputFlags(),
				Action: r.CacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Delete every cached playlist and track",
				Action: r.CacheClear,
			},
		},
	}
}
