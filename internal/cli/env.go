package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/slidex/slidex-agent/internal/config"
	"github.com/slidex/slidex-agent/internal/db"
	"github.com/slidex/slidex-agent/internal/ffmpeg"
	"github.com/slidex/slidex-agent/internal/jobs"
	"github.com/slidex/slidex-agent/internal/logging"
)

// env is what every one-shot command needs: configuration, a logger on
// stderr, the settings store and an extractor locator honouring it.
type env struct {
	cfg      *config.EnvConfig
	logger   *slog.Logger
	database *db.DB
	repo     *jobs.SQLiteRepository
	settings *jobs.SettingsStore
	locator  *ffmpeg.Locator
}

// loadEnv logs at defaultLevel, or at the configured level when it is empty.
// --log-level wins over both.
func loadEnv(opts *rootOptions, w io.Writer, defaultLevel string) (*env, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := defaultLevel
	if level == "" {
		level = cfg.LogLevel()
	}
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := logging.New(w, level)

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := jobs.NewRepository(database.Conn())
	settings := jobs.NewSettingsStore(repo, jobs.Settings{
		FFmpegPath:        cfg.FFmpegPath(),
		DeleteAfterExport: cfg.DeleteAfterExport(),
		OpenAfterAction:   cfg.OpenAfterAction(),
	})

	bundled := cfg.BundledFFmpeg()
	if bundled == "" {
		bundled = ffmpeg.DefaultBundledPath()
	}
	locator := ffmpeg.NewLocator(bundled, settings.FFmpegPath, logging.WithComponent(logger, "ffmpeg"), cfg.DebugPaths())

	return &env{
		cfg:      cfg,
		logger:   logger,
		database: database,
		repo:     repo,
		settings: settings,
		locator:  locator,
	}, nil
}

func (e *env) Close() error {
	return e.database.Close()
}
