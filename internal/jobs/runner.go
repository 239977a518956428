package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slidex/slidex-agent/internal/cloud"
	"github.com/slidex/slidex-agent/internal/events"
	"github.com/slidex/slidex-agent/internal/export"
	"github.com/slidex/slidex-agent/internal/metrics"
	"github.com/slidex/slidex-agent/internal/opener"
	"github.com/slidex/slidex-agent/internal/slides"
)

// Extractor is satisfied by *slides.Orchestrator.
type Extractor interface {
	Extract(ctx context.Context, p slides.Params, progress slides.ProgressFunc) (*slides.Session, error)
}

// Exporter is satisfied by *export.Exporter.
type Exporter interface {
	Export(ctx context.Context, job export.Job) (*export.Artifact, error)
}

// EventPublisher is satisfied by *events.Hub.
type EventPublisher interface {
	Publish(events.Event)
}

// RunnerDeps wires the runner's collaborators. Opener, Publisher and Events
// may be nil.
type RunnerDeps struct {
	Service   *Service
	Repo      Repository
	Extractor Extractor
	Exporter  Exporter
	Settings  *SettingsStore
	Opener    opener.Opener
	Publisher cloud.Publisher
	Events    EventPublisher
	Logger    *slog.Logger
}

// Status summarises what the runner is doing.
type Status struct {
	State     string `json:"state"` // idle, working, paused or error
	ActiveJob *Job   `json:"active_job,omitempty"`
	LastError string `json:"last_error,omitempty"`
	LastOut   string `json:"last_output,omitempty"`
}

// Runner executes pending jobs strictly one at a time in submission order,
// so extraction and export never overlap.
type Runner struct {
	RunnerDeps
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool

	mu        sync.Mutex
	active    *Job
	lastError string
	lastOut   string
}

func NewRunner(deps RunnerDeps) *Runner {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Opener == nil {
		deps.Opener = opener.Nop{}
	}
	if deps.Publisher == nil {
		deps.Publisher = cloud.Disabled{}
	}
	return &Runner{
		RunnerDeps:   deps,
		pollInterval: 2 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.Logger.Info("job runner started")
	if pending, err := r.Repo.ListPendingJobs(ctx); err == nil {
		metrics.JobsQueued.Set(float64(len(pending)))
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	var wake <-chan struct{}
	if r.Service != nil {
		wake = r.Service.Wake()
	}

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("job runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
		case <-wake:
		}
		for !r.paused.Load() && ctx.Err() == nil && r.processNextJob(ctx) {
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.Logger.Info("job runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.Logger.Info("job runner resumed")
	if r.Service != nil {
		r.Service.notify()
	}
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{LastError: r.lastError, LastOut: r.lastOut}
	switch {
	case r.active != nil:
		st.State = "working"
		job := *r.active
		st.ActiveJob = &job
	case r.paused.Load():
		st.State = "paused"
	case r.lastError != "":
		st.State = "error"
	default:
		st.State = "idle"
	}
	return st
}

// processNextJob runs the oldest pending job and reports whether one ran.
func (r *Runner) processNextJob(ctx context.Context) bool {
	pending, err := r.Repo.ListPendingJobs(ctx)
	if err != nil {
		r.Logger.Error("failed to list pending jobs", "error", err)
		return false
	}
	if len(pending) == 0 {
		return false
	}

	job := pending[0]
	metrics.JobsQueued.Set(float64(len(pending) - 1))
	log := r.Logger.With("job_id", job.ID, "type", job.Type)
	log.Info("processing job")

	job.Status = JobStatusRunning
	r.Repo.UpdateJobStatus(ctx, job.ID, JobStatusRunning, "")
	r.setActive(job)
	r.publishJob(job)

	var runErr error
	switch job.Type {
	case JobTypeExtract:
		runErr = r.runExtract(ctx, job, log)
	case JobTypeExport:
		runErr = r.runExport(ctx, job, log)
	default:
		runErr = fmt.Errorf("unknown job type %q", job.Type)
	}

	if runErr != nil {
		msg := slides.StatusMessage(runErr)
		if errors.Is(runErr, context.Canceled) {
			msg = "Error: cancelled"
		}
		log.Error("job failed", "error", runErr)
		r.mu.Lock()
		job.Status, job.Error = JobStatusFailed, msg
		r.mu.Unlock()
		r.Repo.UpdateJobStatus(ctx, job.ID, JobStatusFailed, msg)
	} else {
		r.mu.Lock()
		job.Status, job.Progress = JobStatusCompleted, 100
		r.mu.Unlock()
		r.Repo.UpdateJobProgress(ctx, job.ID, 100)
		r.Repo.UpdateJobStatus(ctx, job.ID, JobStatusCompleted, "")
		log.Info("job completed")
	}

	r.finish(job, runErr)
	r.publishJob(job)
	return true
}

func (r *Runner) runExtract(ctx context.Context, job *Job, log *slog.Logger) error {
	var p ExtractPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	session, err := r.Extractor.Extract(ctx, slides.Params{
		VideoPath:  p.VideoPath,
		Threshold:  p.Threshold,
		Timestamps: p.Timestamps,
		OutputDir:  p.OutputDir,
		SessionID:  job.SessionID,
	}, r.progressFunc(ctx, job))
	if err != nil {
		return err
	}

	if job.SessionID != "" {
		if err := r.Repo.UpdateSessionFrames(ctx, job.SessionID, len(session.Frames)); err != nil {
			log.Warn("failed to update session", "error", err)
		}
	}
	r.Repo.SetJobResult(ctx, job.ID, ExtractResult{OutputDir: session.OutputDir, Frames: len(session.Frames)})
	r.setLastOutput(session.OutputDir)

	r.openAfter(ctx, session.OutputDir, log)
	return nil
}

func (r *Runner) runExport(ctx context.Context, job *Job, log *slog.Logger) error {
	var p ExportPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	art, err := r.Exporter.Export(ctx, export.Job{
		SourceDir:    p.SourceDir,
		Format:       p.Format,
		DeleteSource: p.DeleteSource,
	})
	if art == nil {
		return err
	}

	result := ExportResult{
		Artifact: art.Path,
		Pages:    art.PageCount,
		Deleted:  len(art.Deleted),
	}
	if err != nil {
		log.Warn("export cleanup incomplete", "error", err)
		result.CleanupError = err.Error()
	}

	if r.Publisher.Enabled() {
		loc, perr := r.Publisher.Publish(ctx, art.Path)
		if perr != nil {
			log.Warn("artifact publish failed", "error", perr)
			result.PublishError = perr.Error()
		}
		result.PublishedTo = loc
	}

	if job.SessionID != "" {
		remaining := len(art.Frames) - len(art.Deleted)
		if err := r.Repo.UpdateSessionArtifact(ctx, job.SessionID, art.Path, remaining); err != nil {
			log.Warn("failed to update session", "error", err)
		}
	}
	r.Repo.SetJobResult(ctx, job.ID, result)
	r.setLastOutput(art.Path)

	r.openAfter(ctx, art.Path, log)
	return nil
}

func (r *Runner) progressFunc(ctx context.Context, job *Job) slides.ProgressFunc {
	return func(ev slides.ProgressEvent) {
		percent := 0
		if ev.Determinate() {
			percent = ev.Done * 100 / ev.Total
			r.Repo.UpdateJobProgress(ctx, job.ID, percent)
			r.mu.Lock()
			job.Progress = percent
			r.mu.Unlock()
		}
		data := map[string]any{
			"stage":         ev.Stage,
			"done":          ev.Done,
			"total":         ev.Total,
			"percent":       percent,
			"indeterminate": !ev.Determinate(),
		}
		if ev.Err != nil {
			data["error"] = slides.StatusMessage(ev.Err)
		}
		r.publish(events.Event{Type: events.TypeProgress, JobID: job.ID, SessionID: job.SessionID, Data: data})
	}
}

func (r *Runner) openAfter(ctx context.Context, path string, log *slog.Logger) {
	if r.Settings == nil {
		return
	}
	st, err := r.Settings.Get(ctx)
	if err != nil || !st.OpenAfterAction {
		return
	}
	if err := r.Opener.Open(path); err != nil {
		log.Warn("failed to open result", "error", err)
	}
}

func (r *Runner) setActive(job *Job) {
	r.mu.Lock()
	r.active = job
	r.mu.Unlock()
}

func (r *Runner) finish(job *Job, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = nil
	if err != nil {
		r.lastError = job.Error
	} else {
		r.lastError = ""
	}
}

func (r *Runner) setLastOutput(path string) {
	r.mu.Lock()
	r.lastOut = path
	r.mu.Unlock()
}

func (r *Runner) publishJob(job *Job) {
	snapshot := *job
	r.publish(events.Event{Type: events.TypeJob, JobID: job.ID, SessionID: job.SessionID, Data: &snapshot})
}

func (r *Runner) publish(ev events.Event) {
	if r.Events != nil {
		r.Events.Publish(ev)
	}
}
