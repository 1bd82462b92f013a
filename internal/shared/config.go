package shared

import (
	_ "embed"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`
	Spotify     SpotifyConfig     `toml:"spotify"`
	SoundCloud  SoundCloudConfig  `toml:"soundcloud"`
}

// CredentialsConfig contains provider credentials. Environment variables take precedence.
type CredentialsConfig struct {
	YouTubeAPIKey       string `toml:"youtube_api_key"`
	SpotifyClientID     string `toml:"spotify_client_id"`
	SpotifyClientSecret string `toml:"spotify_client_secret"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" default:"./mixtape.db" validate:"required"`
	MaxOpenConns int    `toml:"max_open_conns" default:"1" validate:"gte=1"`
	MaxIdleConns int    `toml:"max_idle_conns" default:"1" validate:"gte=0"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host      string `toml:"host" default:"127.0.0.1"`
	Port      int    `toml:"port" default:"5000" validate:"gte=1,lte=65535"`
	StaticDir string `toml:"static_dir" default:"frontend/public"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `toml:"level" default:"info" validate:"oneof=debug info warn error fatal"`
}

// SpotifyConfig tunes the Spotify request loop.
type SpotifyConfig struct {
	MaxRetries        int  `toml:"max_retries" default:"3" validate:"gte=1"`
	DefaultRetryAfter *int `toml:"default_retry_after_seconds" default:"15" validate:"omitempty,gte=0"`
}

// RetryAfter returns the pause used when a 429 carries no Retry-After header.
func (c SpotifyConfig) RetryAfter() time.Duration {
	if c.DefaultRetryAfter == nil {
		return 15 * time.Second
	}
	return time.Duration(*c.DefaultRetryAfter) * time.Second
}

// SoundCloudConfig tunes the SoundCloud client id cache and the batch track fetcher.
//
// Pointer fields distinguish an explicit 0 (no sleep, no retries, no rate limit) from unset.
type SoundCloudConfig struct {
	ClientIDTTLMinutes int      `toml:"client_id_ttl_minutes" default:"30" validate:"gte=1"`
	GroupSize          int      `toml:"group_size" default:"50" validate:"gte=1,lte=50"`
	Workers            int      `toml:"workers" default:"8" validate:"gte=1"`
	RetrySleepSeconds  *int     `toml:"retry_sleep_seconds" default:"2" validate:"omitempty,gte=0"`
	MaxRetries         *int     `toml:"max_retries" default:"5" validate:"omitempty,gte=0"`
	RequestsPerSecond  *float64 `toml:"requests_per_second" default:"10" validate:"omitempty,gte=0"`
}

// Retries returns the batch retry budget.
func (c SoundCloudConfig) Retries() int {
	if c.MaxRetries == nil {
		return 5
	}
	return *c.MaxRetries
}

// RateLimit returns the batch request rate; 0 disables pacing.
func (c SoundCloudConfig) RateLimit() float64 {
	if c.RequestsPerSecond == nil {
		return 10
	}
	return *c.RequestsPerSecond
}

// ClientIDTTL returns the client id cache window.
func (c SoundCloudConfig) ClientIDTTL() time.Duration {
	return time.Duration(c.ClientIDTTLMinutes) * time.Minute
}

// RetrySleep returns the pause between batch retries.
func (c SoundCloudConfig) RetrySleep() time.Duration {
	if c.RetrySleepSeconds == nil {
		return 2 * time.Second
	}
	return time.Duration(*c.RetrySleepSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path,
// then applies environment overrides, defaults and validation.
//
// A missing file is not an error: the embedded defaults are used instead.
func LoadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to parse config"), ErrInvalidConfig)
		}
	case os.IsNotExist(err):
		config = *DefaultConfig()
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	return finalize(&config)
}

// LoadDotEnv loads variables from the given .env files into the process environment.
// Missing files are ignored; variables already set are kept.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

func finalize(config *Config) (*Config, error) {
	config.overrideFromEnv()

	if err := defaults.Set(config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		c.Credentials.YouTubeAPIKey = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.SpotifyClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.SpotifyClientSecret = v
	}
	if v := os.Getenv("MIXTAPE_DB_PATH"); v != "" {
		c.Database.Path = v
	}
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Mark(errors.Wrap(err, "config validation failed"), ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(errors.Wrap(err, "failed to parse embedded default config"))
	}
	if err := defaults.Set(&config); err != nil {
		panic(errors.Wrap(err, "failed to set defaults"))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Newf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}
