package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	registry   services.Registry
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Config is loaded from the --config flag; a nil Registry is built from the config.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Registry   services.Registry
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		registry:   opts.Registry,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, playlistCommand, infoCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Load reads the configuration named by the --config flag unless one was injected,
// then applies its log level.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if r.config == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, errors.Wrapf(err, "failed to load config %s", r.configPath)
		}
		r.config = config
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Logging.Level))
	return ctx, nil
}

// cfg returns the loaded configuration, falling back to defaults.
func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// openDatabase opens the configured SQLite file and brings its schema up to date.
func (r *Runner) openDatabase() (*sql.DB, error) {
	config := r.cfg()

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create database")
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	applied, err := shared.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}
	if applied > 0 {
		r.logger.Info("applied migrations", "count", applied, "path", config.Database.Path)
	}
	return db, nil
}

// providers returns the injected registry or builds one from the configured credentials.
//
// YouTube needs an API key and Spotify a client id and secret; SoundCloud needs nothing.
func (r *Runner) providers(ctx context.Context) (services.Registry, error) {
	if r.registry != nil {
		return r.registry, nil
	}
	config := r.cfg()

	var svcs []services.Service
	if key := config.Credentials.YouTubeAPIKey; key != "" {
		yt, err := services.NewYouTubeService(ctx, services.YouTubeOptions{APIKey: key, Logger: r.logger})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create YouTube service")
		}
		svcs = append(svcs, yt)
	} else {
		r.logger.Warn("youtube_api_key not set, YouTube playlists are unavailable")
	}

	if config.Credentials.SpotifyClientID != "" && config.Credentials.SpotifyClientSecret != "" {
		svcs = append(svcs, services.NewSpotifyService(services.SpotifyOptions{
			ClientID:          config.Credentials.SpotifyClientID,
			ClientSecret:      config.Credentials.SpotifyClientSecret,
			MaxRetries:        config.Spotify.MaxRetries,
			DefaultRetryAfter: config.Spotify.RetryAfter(),
			Logger:            r.logger,
		}))
	} else {
		r.logger.Warn("spotify credentials not set, Spotify playlists are unavailable")
	}

	sc := config.SoundCloud
	svcs = append(svcs, services.NewSoundCloudService(services.SoundCloudOptions{
		ClientIDTTL: sc.ClientIDTTL(),
		Batch: services.BatchOpts{
			GroupSize:         sc.GroupSize,
			Workers:           sc.Workers,
			RetrySleep:        sc.RetrySleep(),
			MaxRetries:        sc.Retries(),
			RequestsPerSecond: sc.RateLimit(),
		},
		Logger: r.logger,
	}))

	r.registry = services.NewRegistry(svcs...)
	return r.registry, nil
}

// engine opens the database and wires a [tasks.PlaylistEngine] over it. Callers close the returned db.
func (r *Runner) engine(ctx context.Context) (*tasks.PlaylistEngine, *sql.DB, error) {
	registry, err := r.providers(ctx)
	if err != nil {
		return nil, nil, err
	}

	db, err := r.openDatabase()
	if err != nil {
		return nil, nil, err
	}
	return tasks.NewPlaylistEngine(registry, repositories.NewStore(db), r.logger), db, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
