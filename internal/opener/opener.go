// Package opener hands a file or directory to the desktop's default
// application.
package opener

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// Opener opens a path with whatever the OS associates with it.
type Opener interface {
	Open(path string) error
}

// System launches the platform's open command. It returns once the command
// has started; the child is reaped in the background.
type System struct {
	logger *slog.Logger
}

func NewSystem(logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &System{logger: logger}
}

func (s *System) Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	name, args := command(path)
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			s.logger.Warn("open command failed", "command", name, "error", err)
		}
	}()
	return nil
}

// Nop ignores every request. Used when running headless.
type Nop struct{}

func (Nop) Open(string) error { return nil }

// Recorder remembers opened paths; tests use it in place of System.
type Recorder struct {
	Paths []string
}

func (r *Recorder) Open(path string) error {
	r.Paths = append(r.Paths, path)
	return nil
}
