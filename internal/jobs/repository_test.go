package jobs

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/slidex/slidex-agent/internal/db"
)

func setupTestDB(t *testing.T) Repository {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewRepository(database.Conn())
}

func TestRepository_SessionRoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	now := time.Now()
	s := &Session{
		ID:         "s1",
		VideoPath:  "/videos/talk.mov",
		OutputDir:  "/videos/talk_slides",
		Mode:       "timestamps",
		Timestamps: []string{"00:00:05", "90"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.CreateSession(ctx, s); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	got, err := repo.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetSession() returned nil")
	}
	if got.OutputDir != s.OutputDir || got.Mode != "timestamps" {
		t.Errorf("GetSession() = %+v", got)
	}
	if len(got.Timestamps) != 2 || got.Timestamps[1] != "90" {
		t.Errorf("Timestamps = %v", got.Timestamps)
	}

	if err := repo.UpdateSessionFrames(ctx, "s1", 4); err != nil {
		t.Fatalf("UpdateSessionFrames() error = %v", err)
	}
	if err := repo.UpdateSessionArtifact(ctx, "s1", "/videos/talk_slides/talk_slides.pdf", 0); err != nil {
		t.Fatalf("UpdateSessionArtifact() error = %v", err)
	}
	got, _ = repo.GetSession(ctx, "s1")
	if got.ArtifactPath != "/videos/talk_slides/talk_slides.pdf" || got.FrameCount != 0 {
		t.Errorf("after artifact update = %+v", got)
	}

	missing, err := repo.GetSession(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetSession(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestRepository_PendingJobsInSubmissionOrder(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		job := &Job{
			ID:        id,
			Type:      JobTypeExport,
			Status:    JobStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
			UpdatedAt: base,
		}
		if err := repo.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob(%s) error = %v", id, err)
		}
	}
	if err := repo.UpdateJobStatus(ctx, "b", JobStatusRunning, ""); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}

	pending, err := repo.ListPendingJobs(ctx)
	if err != nil {
		t.Fatalf("ListPendingJobs() error = %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "a" || pending[1].ID != "c" {
		t.Errorf("ListPendingJobs() = %v", jobIDs(pending))
	}

	all, _ := repo.ListJobs(ctx, 10)
	if len(all) != 3 || all[0].ID != "c" {
		t.Errorf("ListJobs() = %v, want newest first", jobIDs(all))
	}
}

func TestRepository_JobResultAndError(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	job := &Job{ID: "j1", Type: JobTypeExport, Status: JobStatusPending, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := repo.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if string(mustGetJob(t, repo, "j1").Payload) != "{}" {
		t.Error("empty payload should be stored as {}")
	}

	repo.UpdateJobProgress(ctx, "j1", 40)
	repo.SetJobResult(ctx, "j1", ExportResult{Artifact: "/x/deck.pdf", Pages: 3})
	repo.UpdateJobStatus(ctx, "j1", JobStatusFailed, "Error: boom")

	got := mustGetJob(t, repo, "j1")
	if got.Progress != 40 || got.Status != JobStatusFailed || got.Error != "Error: boom" {
		t.Errorf("job = %+v", got)
	}
	var res ExportResult
	if err := json.Unmarshal(got.Result, &res); err != nil {
		t.Fatalf("result decode: %v", err)
	}
	if res.Pages != 3 || res.Artifact != "/x/deck.pdf" {
		t.Errorf("result = %+v", res)
	}
}

func TestRepository_Settings(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	v, err := repo.GetSetting(ctx, "missing")
	if err != nil || v != "" {
		t.Errorf("GetSetting(missing) = %q, %v", v, err)
	}

	repo.SetSetting(ctx, KeyFFmpegPath, "/a")
	repo.SetSetting(ctx, KeyFFmpegPath, "/b")
	if v, _ := repo.GetSetting(ctx, KeyFFmpegPath); v != "/b" {
		t.Errorf("GetSetting() = %q, want /b", v)
	}
}

func TestFormatTime_SortsLexically(t *testing.T) {
	a := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b := a.Add(500 * time.Millisecond)
	if !(formatTime(a) < formatTime(b)) {
		t.Errorf("%s should sort before %s", formatTime(a), formatTime(b))
	}
	if !parseTime(formatTime(b)).Equal(b) {
		t.Errorf("parseTime(formatTime()) = %v, want %v", parseTime(formatTime(b)), b)
	}
}

func mustGetJob(t *testing.T, repo Repository, id string) *Job {
	t.Helper()
	job, err := repo.GetJob(context.Background(), id)
	if err != nil || job == nil {
		t.Fatalf("GetJob(%s) = %v, %v", id, job, err)
	}
	return job
}

func jobIDs(jobs []*Job) []string {
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	return ids
}
