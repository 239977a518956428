package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/slidex/slidex-agent/internal/logging"
	"github.com/slidex/slidex-agent/internal/slides"
)

// BinaryName is the executable looked up on PATH.
const BinaryName = "ffmpeg"

// Locator resolves the ffmpeg executable on each request. Resolution order:
// the user-configured path, then the copy bundled next to the agent binary,
// then PATH.
type Locator struct {
	bundled    string
	override   func() string
	logger     *slog.Logger
	debugPaths bool
}

// NewLocator creates a locator. override is read on every Resolve so a path
// changed in settings takes effect without a restart. Either may be empty/nil.
func NewLocator(bundled string, override func() string, logger *slog.Logger, debugPaths bool) *Locator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Locator{
		bundled:    bundled,
		override:   override,
		logger:     logger,
		debugPaths: debugPaths,
	}
}

// DefaultBundledPath returns where a bundled ffmpeg would sit: beside the
// running executable.
func DefaultBundledPath() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	name := BinaryName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(exe), name)
}

// Resolve returns the absolute path of the executable to use.
func (l *Locator) Resolve() (string, error) {
	if l.override != nil {
		if p := strings.TrimSpace(l.override()); p != "" {
			if path, err := exec.LookPath(p); err == nil {
				return path, nil
			}
			l.logger.Warn("configured ffmpeg path not usable, falling back", "path", l.safePath(p))
		}
	}

	if l.bundled != "" {
		if path, err := exec.LookPath(l.bundled); err == nil {
			return path, nil
		}
	}

	path, err := exec.LookPath(BinaryName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", slides.ErrExtractorNotFound, err)
	}
	return path, nil
}

// Locate implements slides.ExtractorLocator.
func (l *Locator) Locate() (slides.FrameExtractor, error) {
	path, err := l.Resolve()
	if err != nil {
		return nil, err
	}
	return NewExtractor(path, l.logger, l.debugPaths), nil
}

// Probe runs `ffmpeg -version` against the resolved executable.
func (l *Locator) Probe(ctx context.Context) (*Capabilities, error) {
	path, err := l.Resolve()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "-hide_banner", "-version").Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("ffmpeg -version exited %d: %s", exitErr.ExitCode(), truncate(string(exitErr.Stderr), logStderrBytes))
		}
		return nil, fmt.Errorf("run ffmpeg -version: %w", err)
	}

	return &Capabilities{
		Path:     path,
		Version:  ParseVersion(string(out)),
		ProbedAt: time.Now(),
	}, nil
}

func (l *Locator) safePath(path string) string {
	if l.debugPaths {
		return path
	}
	return logging.SanitizePath(path)
}

// ParseVersion pulls the version token out of the first line of
// `ffmpeg -version` output ("ffmpeg version 6.1.1 Copyright ...").
func ParseVersion(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(line)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			return fields[i+1]
		}
	}
	return strings.TrimSpace(line)
}
