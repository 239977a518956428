// Package ffmpeg runs the external ffmpeg executable that writes slide
// frames, and locates and probes that executable.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/slidex/slidex-agent/internal/logging"
	"github.com/slidex/slidex-agent/internal/slides"
)

const (
	maxStderrBytes = 8 * 1024 // tail of stderr kept for diagnostics
	logStderrBytes = 512
)

// Extractor is the subprocess implementation of slides.FrameExtractor.
// Invocations carry no timeout; only ctx cancellation stops them.
type Extractor struct {
	path       string
	logger     *slog.Logger
	debugPaths bool
}

// NewExtractor returns an extractor running the executable at path.
func NewExtractor(path string, logger *slog.Logger, debugPaths bool) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{path: path, logger: logger, debugPaths: debugPaths}
}

// Path returns the resolved executable.
func (e *Extractor) Path() string { return e.path }

// ExtractScenes implements slides.FrameExtractor.
func (e *Extractor) ExtractScenes(ctx context.Context, videoPath string, threshold float64, outputPattern string) (slides.RunResult, error) {
	return e.run(ctx, SceneDetectArgs(videoPath, threshold, outputPattern)), nil
}

// ExtractFrame implements slides.FrameExtractor.
func (e *Extractor) ExtractFrame(ctx context.Context, videoPath, timestamp, outputPath string) (slides.RunResult, error) {
	return e.run(ctx, SingleFrameArgs(videoPath, timestamp, outputPath)), nil
}

// SceneDetectArgs selects frames whose scene score exceeds threshold and
// passes them through at variable frame rate, so only selected frames are
// written.
func SceneDetectArgs(videoPath string, threshold float64, outputPattern string) []string {
	return []string{
		"-nostdin", "-hide_banner",
		"-i", videoPath,
		"-filter_complex", `select=gt(scene\,` + slides.FormatThreshold(threshold) + `)`,
		"-vsync", "vfr",
		outputPattern,
	}
}

// SingleFrameArgs seeks to timestamp and writes exactly one frame. Without
// -y an existing output file makes ffmpeg exit non-zero instead of
// overwriting it.
func SingleFrameArgs(videoPath, timestamp, outputPath string) []string {
	return []string{
		"-nostdin", "-hide_banner",
		"-ss", timestamp,
		"-i", videoPath,
		"-frames:v", "1",
		outputPath,
	}
}

func (e *Extractor) run(ctx context.Context, args []string) slides.RunResult {
	start := time.Now()

	cmd := exec.CommandContext(ctx, e.path, args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: maxStderrBytes})
	cmd.Stdout = io.Discard

	e.logger.Info("executing extractor", "path", e.safePath(e.path), "args", args)

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
			stderrBuf.WriteString(err.Error())
		}
	}

	stderrTail := stderrBuf.String()
	if exitCode != 0 {
		e.logger.Warn("extractor failed",
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrTail, logStderrBytes),
		)
	} else {
		e.logger.Info("extractor succeeded", "duration_ms", elapsed.Milliseconds())
	}

	return slides.RunResult{
		ExitCode:   exitCode,
		StderrTail: stderrTail,
		Duration:   elapsed,
	}
}

func (e *Extractor) safePath(path string) string {
	if e.debugPaths {
		return path
	}
	return logging.SanitizePath(path)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last limit bytes written to it.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := make([]byte, lw.limit)
		copy(tail, b[len(b)-lw.limit:])
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
