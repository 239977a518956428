// Package config loads the agent's configuration from the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DefaultPort      = 8790
	DefaultLogLevel  = "info"
	DefaultDataDir   = ".slidex"
	DefaultThreshold = 0.2

	DBFilename = "slidex.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ThumbnailDir() string
	FFmpegPath() string
	BundledFFmpeg() string
	Threshold() float64
	DeleteAfterExport() bool
	OpenAfterAction() bool
	Headless() bool
	DebugPaths() bool
	AllowedOrigins() []string
	OTLPEndpoint() string
	Publish() PublishConfig
}

// PublishConfig is the optional S3-compatible artifact destination.
type PublishConfig struct {
	Bucket    string `env:"BUCKET"`
	Endpoint  string `env:"ENDPOINT"`
	Region    string `env:"REGION" envDefault:"auto"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Prefix    string `env:"PREFIX" envDefault:"slidex"`
}

type values struct {
	Port              int           `env:"PORT"                envDefault:"8790"`
	LogLevel          string        `env:"LOG_LEVEL"           envDefault:"info"`
	DataDir           string        `env:"DATA_DIR"`
	FFmpegPath        string        `env:"FFMPEG_PATH"`
	BundledFFmpeg     string        `env:"BUNDLED_FFMPEG"`
	Threshold         float64       `env:"THRESHOLD"           envDefault:"0.2"`
	DeleteAfterExport bool          `env:"DELETE_AFTER_EXPORT" envDefault:"false"`
	OpenAfterAction   bool          `env:"OPEN_AFTER"          envDefault:"true"`
	Headless          bool          `env:"HEADLESS"            envDefault:"false"`
	DebugPaths        bool          `env:"DEBUG_PATHS"         envDefault:"false"`
	AllowedOrigins    []string      `env:"ALLOWED_ORIGINS"     envSeparator:","`
	OTLPEndpoint      string        `env:"OTLP_ENDPOINT"`
	Publish           PublishConfig `envPrefix:"PUBLISH_"`
}

// EnvConfig reads configuration from SLIDEX_* environment variables.
type EnvConfig struct {
	v values
}

// New loads ./.env if present (without overriding the real environment)
// and parses SLIDEX_* variables.
func New() (*EnvConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Environ())
}

// FromEnv parses the given KEY=VALUE list only.
func FromEnv(environ []string) (*EnvConfig, error) {
	var v values
	if err := env.ParseWithOptions(&v, env.Options{
		Prefix:      "SLIDEX_",
		Environment: env.ToMap(environ),
	}); err != nil {
		return nil, err
	}

	if v.Port < 1 || v.Port > 65535 {
		return nil, fmt.Errorf("invalid SLIDEX_PORT: port must be between 1 and 65535")
	}
	if v.Threshold < 0 {
		return nil, fmt.Errorf("invalid SLIDEX_THRESHOLD: must not be negative")
	}
	if v.DataDir == "" {
		v.DataDir = defaultDataDir()
	}
	return &EnvConfig{v: v}, nil
}

func (c *EnvConfig) Port() int { return c.v.Port }

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string { return c.v.LogLevel }

func (c *EnvConfig) DataDir() string { return c.v.DataDir }

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.v.DataDir, DBFilename)
}

// ThumbnailDir holds preview thumbnails.
func (c *EnvConfig) ThumbnailDir() string {
	return filepath.Join(c.v.DataDir, "thumbnails")
}

// FFmpegPath is the environment-level extractor override. A path saved in
// settings takes precedence.
func (c *EnvConfig) FFmpegPath() string { return c.v.FFmpegPath }

// BundledFFmpeg is the bundled extractor location; empty means "next to
// the executable".
func (c *EnvConfig) BundledFFmpeg() string { return c.v.BundledFFmpeg }

func (c *EnvConfig) Threshold() float64 { return c.v.Threshold }

func (c *EnvConfig) DeleteAfterExport() bool { return c.v.DeleteAfterExport }

func (c *EnvConfig) OpenAfterAction() bool { return c.v.OpenAfterAction }

func (c *EnvConfig) Headless() bool { return c.v.Headless }

func (c *EnvConfig) DebugPaths() bool { return c.v.DebugPaths }

func (c *EnvConfig) AllowedOrigins() []string { return c.v.AllowedOrigins }

func (c *EnvConfig) OTLPEndpoint() string { return c.v.OTLPEndpoint }

func (c *EnvConfig) Publish() PublishConfig { return c.v.Publish }

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
