package slides

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/slidex/slidex-agent/internal/metrics"
)

// Orchestrator runs extraction requests. It is synchronous: Extract returns
// only after the last extractor invocation has exited.
type Orchestrator struct {
	locator  ExtractorLocator
	dirs     OutputDirs
	observer DirectoryObserver
	logger   *slog.Logger
}

// NewOrchestrator wires an orchestrator. observer and logger may be nil.
func NewOrchestrator(locator ExtractorLocator, dirs OutputDirs, observer DirectoryObserver, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		locator:  locator,
		dirs:     dirs,
		observer: observer,
		logger:   logger,
	}
}

// Dirs returns the directory policy used to resolve default output dirs.
func (o *Orchestrator) Dirs() OutputDirs { return o.dirs }

// Extract validates p, resolves the extractor, ensures the output directory
// and runs every planned invocation in order. A plan that would replace a
// frame already in the directory is rejected before anything is written.
// The first failing invocation aborts the rest; frames already written are
// left in place.
func (o *Orchestrator) Extract(ctx context.Context, p Params, progress ProgressFunc) (*Session, error) {
	ctx, span := otel.Tracer("slides").Start(ctx, "Orchestrator.Extract")
	defer span.End()

	req, err := p.Validate()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	extractor, err := o.locator.Locate()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	dir := o.dirs.Resolve(req.VideoPath, req.OutputDir)
	plan := BuildPlan(req, dir)
	if err := CheckExisting(dir, plan); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	before, err := ListFrames(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list frames: %w", err)
	}
	if err := o.dirs.Ensure(dir); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("slides.mode", req.Mode.String()),
		attribute.String("slides.output_dir", dir),
		attribute.Int("slides.invocations", len(plan)),
	)

	id := p.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	session := &Session{
		ID:         id,
		VideoPath:  req.VideoPath,
		OutputDir:  dir,
		Mode:       req.Mode,
		Threshold:  req.Threshold,
		Timestamps: req.Timestamps,
		CreatedAt:  time.Now(),
	}
	log := o.logger.With("session_id", session.ID, "mode", req.Mode.String())
	log.Info("extraction started", "output_dir", dir, "invocations", len(plan))

	if err := o.run(ctx, extractor, req, plan, progress, log); err != nil {
		metrics.ExtractionsTotal.WithLabelValues(req.Mode.String(), "failed").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	frames, err := ListFrames(dir)
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	session.Frames = newFrames(before, frames)

	metrics.ExtractionsTotal.WithLabelValues(req.Mode.String(), "completed").Inc()
	metrics.FramesExtractedTotal.Add(float64(len(session.Frames)))
	log.Info("extraction completed", "frames", len(session.Frames), "dir_frames", len(frames))

	if o.observer != nil {
		o.observer.DirectoryChanged(dir, frames)
	}
	return session, nil
}

func (o *Orchestrator) run(ctx context.Context, extractor FrameExtractor, req *Request, plan []Invocation, progress ProgressFunc, log *slog.Logger) error {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
	}()

	total := 0
	if req.Mode == ModeTimestamps {
		total = len(plan)
	}
	progress.emit(ProgressEvent{Stage: "started", Total: total})

	for _, inv := range plan {
		var (
			result RunResult
			err    error
		)
		if inv.SceneDetect() {
			result, err = extractor.ExtractScenes(ctx, req.VideoPath, req.Threshold, inv.Output)
		} else {
			result, err = extractor.ExtractFrame(ctx, req.VideoPath, inv.Timestamp, inv.Output)
		}

		if err != nil || !result.IsSuccess() {
			metrics.ExtractorInvocationsTotal.WithLabelValues("failed").Inc()
			exitErr := &ExtractionError{
				Invocation: inv.Index,
				Total:      len(plan),
				ExitCode:   result.ExitCode,
				StderrTail: result.StderrTail,
				Err:        err,
			}
			log.Warn("extractor invocation failed",
				"invocation", inv.Index,
				"exit_code", result.ExitCode,
				"error", exitErr,
			)
			progress.emit(ProgressEvent{Stage: "finished", Done: inv.Index - 1, Total: total, Err: exitErr})
			return exitErr
		}
		metrics.ExtractorInvocationsTotal.WithLabelValues("succeeded").Inc()

		if total > 0 {
			progress.emit(ProgressEvent{Stage: "advanced", Done: inv.Index, Total: total})
		}
	}

	progress.emit(ProgressEvent{Stage: "finished", Done: total, Total: total})
	return nil
}

// newFrames returns the frames in after that were not listed in before.
func newFrames(before, after []string) []string {
	seen := make(map[string]bool, len(before))
	for _, f := range before {
		seen[f] = true
	}
	out := make([]string, 0, len(after))
	for _, f := range after {
		if !seen[f] {
			out = append(out, f)
		}
	}
	return out
}
