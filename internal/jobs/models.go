// Package jobs persists extraction sessions and queued extract/export jobs,
// and drains the queue one job at a time.
package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/slidex/slidex-agent/internal/export"
)

const (
	JobTypeExtract = "extract"
	JobTypeExport  = "export"

	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrJobNotFound     = errors.New("job not found")
)

// Session is the persisted record of one extraction and its output
// directory.
type Session struct {
	ID           string    `json:"id"`
	VideoPath    string    `json:"video_path"`
	OutputDir    string    `json:"output_dir"`
	Mode         string    `json:"mode"`
	Threshold    float64   `json:"threshold"`
	Timestamps   []string  `json:"timestamps,omitempty"`
	FrameCount   int       `json:"frame_count"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Job struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Progress  int             `json:"progress"`
	Error     string          `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ExtractPayload is the request as submitted; it is validated again when
// the job runs.
type ExtractPayload struct {
	VideoPath  string   `json:"video_path"`
	Threshold  string   `json:"threshold"`
	Timestamps []string `json:"timestamps,omitempty"`
	OutputDir  string   `json:"output_dir"`
}

type ExportPayload struct {
	SourceDir    string        `json:"source_dir"`
	Format       export.Format `json:"format"`
	DeleteSource bool          `json:"delete_source"`
}

type ExtractResult struct {
	OutputDir string `json:"output_dir"`
	Frames    int    `json:"frames"`
}

type ExportResult struct {
	Artifact     string `json:"artifact"`
	Pages        int    `json:"pages"`
	Deleted      int    `json:"deleted"`
	PublishedTo  string `json:"published_to,omitempty"`
	CleanupError string `json:"cleanup_error,omitempty"`
	PublishError string `json:"publish_error,omitempty"`
}
