package main

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	shared.LoadDotEnv(".env")

	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrPlaylistNotFound):
			logger.Warn("playlist not found")
			os.Exit(2)
		case errors.Is(err, shared.ErrUnsupportedPlatform), errors.Is(err, shared.ErrMissingArgument):
			logger.Error(err.Error())
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// newApp builds the root command around runner.
func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "mixtape",
		Usage:   "Serve YouTube, Spotify & SoundCloud playlists through a local cache",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("MIXTAPE_CONFIG"),
			},
		},
		Before:   runner.Load,
		Commands: runner.register(),
	}
}
