package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slidex/slidex-agent/internal/export"
	"github.com/slidex/slidex-agent/internal/metrics"
	"github.com/slidex/slidex-agent/internal/slides"
)

// ExtractInput is an extraction request from the API.
type ExtractInput struct {
	VideoPath  string
	Threshold  string // empty means the configured default
	Timestamps []string
	OutputDir  string
}

// ExportInput names the frames to export either by session or by
// directory. A nil DeleteSource uses the saved setting.
type ExportInput struct {
	SessionID    string
	SourceDir    string
	Format       string
	DeleteSource *bool
}

// Service validates submissions and queues them. Every check that can fail
// runs before a session or job row is written.
type Service struct {
	repo             Repository
	locator          slides.ExtractorLocator
	dirs             slides.OutputDirs
	settings         *SettingsStore
	defaultThreshold float64
	logger           *slog.Logger
	wake             chan struct{}
}

func NewService(repo Repository, locator slides.ExtractorLocator, dirs slides.OutputDirs, settings *SettingsStore, defaultThreshold float64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:             repo,
		locator:          locator,
		dirs:             dirs,
		settings:         settings,
		defaultThreshold: defaultThreshold,
		logger:           logger,
		wake:             make(chan struct{}, 1),
	}
}

// Wake fires after each submission so the runner need not wait for its
// next poll.
func (s *Service) Wake() <-chan struct{} { return s.wake }

func (s *Service) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) SubmitExtract(ctx context.Context, in ExtractInput) (*Job, *Session, error) {
	threshold := in.Threshold
	if strings.TrimSpace(threshold) == "" {
		threshold = slides.FormatThreshold(s.defaultThreshold)
	}
	params := slides.Params{
		VideoPath:  in.VideoPath,
		Threshold:  threshold,
		Timestamps: in.Timestamps,
		OutputDir:  in.OutputDir,
	}

	req, err := params.Validate()
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.locator.Locate(); err != nil {
		return nil, nil, err
	}

	dir := s.dirs.Resolve(req.VideoPath, req.OutputDir)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if err := slides.CheckExisting(dir, slides.BuildPlan(req, dir)); err != nil {
		return nil, nil, err
	}

	now := time.Now()
	session := &Session{
		ID:         uuid.NewString(),
		VideoPath:  req.VideoPath,
		OutputDir:  dir,
		Mode:       req.Mode.String(),
		Threshold:  req.Threshold,
		Timestamps: req.Timestamps,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	job, err := s.enqueue(ctx, JobTypeExtract, session.ID, ExtractPayload{
		VideoPath:  req.VideoPath,
		Threshold:  threshold,
		Timestamps: req.Timestamps,
		OutputDir:  dir,
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("extract job queued", "job_id", job.ID, "session_id", session.ID, "mode", session.Mode)
	return job, session, nil
}

func (s *Service) SubmitExport(ctx context.Context, in ExportInput) (*Job, error) {
	format, err := export.ParseFormat(in.Format)
	if err != nil {
		return nil, err
	}

	dir := in.SourceDir
	if in.SessionID != "" {
		session, err := s.repo.GetSession(ctx, in.SessionID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, ErrSessionNotFound
		}
		dir = session.OutputDir
	} else if err := export.ValidateSourceDir(dir); err != nil {
		return nil, err
	}

	frames, err := slides.ListFrames(dir)
	if err != nil || len(frames) == 0 {
		return nil, fmt.Errorf("%w: no .jpg frames in %s", slides.ErrNoFramesToExport, dir)
	}

	deleteSource := false
	if in.DeleteSource != nil {
		deleteSource = *in.DeleteSource
	} else if s.settings != nil {
		st, err := s.settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		deleteSource = st.DeleteAfterExport
	}

	job, err := s.enqueue(ctx, JobTypeExport, in.SessionID, ExportPayload{
		SourceDir:    dir,
		Format:       format,
		DeleteSource: deleteSource,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("export job queued", "job_id", job.ID, "format", string(format), "frames", len(frames))
	return job, nil
}

func (s *Service) enqueue(ctx context.Context, jobType, sessionID string, payload any) (*Job, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	job := &Job{
		ID:        uuid.NewString(),
		Type:      jobType,
		Status:    JobStatusPending,
		SessionID: sessionID,
		Payload:   b,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	metrics.JobsQueued.Inc()
	s.notify()
	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	return s.repo.ListJobs(ctx, limit)
}

// GetSession returns the session and the frames currently on disk.
func (s *Service) GetSession(ctx context.Context, id string) (*Session, []string, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, ErrSessionNotFound
	}
	frames, _ := slides.ListFrames(session.OutputDir)
	return session, frames, nil
}

func (s *Service) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	return s.repo.ListSessions(ctx, limit)
}
