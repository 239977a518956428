package api

import (
	"encoding/json"
	"time"

	"github.com/slidex/slidex-agent/internal/jobs"
	"github.com/slidex/slidex-agent/internal/preview"
	"github.com/slidex/slidex-agent/internal/slides"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State       string             `json:"state"`
	LastError   string             `json:"last_error,omitempty"`
	LastOutput  string             `json:"last_output,omitempty"`
	JobsPending int                `json:"jobs_pending"`
	ActiveJob   *JobResponse       `json:"active_job,omitempty"`
	Extractor   *ExtractorResponse `json:"extractor,omitempty"`
	Subscribers int                `json:"subscribers"`
}

type ExtractorResponse struct {
	Path        string `json:"path"`
	Version     string `json:"version"`
	LastProbeAt string `json:"last_probe_at,omitempty"`
}

type ExtractRequest struct {
	VideoPath  string   `json:"video_path"`
	Threshold  string   `json:"threshold,omitempty"`
	Timestamps []string `json:"timestamps,omitempty"`
	OutputDir  string   `json:"output_dir,omitempty"`
}

// UnmarshalJSON accepts the threshold as a JSON number or string, and the
// timestamps as an array or a single comma-separated string.
func (r *ExtractRequest) UnmarshalJSON(b []byte) error {
	var raw struct {
		VideoPath  string          `json:"video_path"`
		Threshold  json.RawMessage `json:"threshold"`
		Timestamps json.RawMessage `json:"timestamps"`
		OutputDir  string          `json:"output_dir"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.VideoPath, r.OutputDir = raw.VideoPath, raw.OutputDir

	r.Threshold = ""
	if len(raw.Threshold) > 0 && string(raw.Threshold) != "null" {
		var s string
		if err := json.Unmarshal(raw.Threshold, &s); err != nil {
			var n json.Number
			if err := json.Unmarshal(raw.Threshold, &n); err != nil {
				return err
			}
			s = n.String()
		}
		r.Threshold = s
	}

	r.Timestamps = nil
	if len(raw.Timestamps) > 0 && string(raw.Timestamps) != "null" {
		if err := json.Unmarshal(raw.Timestamps, &r.Timestamps); err != nil {
			var s string
			if err := json.Unmarshal(raw.Timestamps, &s); err != nil {
				return err
			}
			r.Timestamps = slides.ParseTimestampList(s)
		}
	}
	return nil
}

type ExtractResponse struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`
	OutputDir string `json:"output_dir"`
}

type ExportRequest struct {
	SessionID    string `json:"session_id,omitempty"`
	SourceDir    string `json:"source_dir,omitempty"`
	Format       string `json:"format"`
	DeleteSource *bool  `json:"delete_source,omitempty"`
}

type ExportResponse struct {
	JobID string `json:"job_id"`
}

type JobResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	SessionID string          `json:"session_id,omitempty"`
	Progress  int             `json:"progress"`
	Error     string          `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type SessionResponse struct {
	ID           string         `json:"id"`
	VideoPath    string         `json:"video_path"`
	OutputDir    string         `json:"output_dir"`
	Mode         string         `json:"mode"`
	Threshold    float64        `json:"threshold"`
	Timestamps   []string       `json:"timestamps,omitempty"`
	ArtifactPath string         `json:"artifact_path,omitempty"`
	Frames       []string       `json:"frames"`
	Preview      *preview.State `json:"preview,omitempty"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}

type SessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JobToResponse(j *jobs.Job) JobResponse {
	return JobResponse{
		ID:        j.ID,
		Type:      j.Type,
		Status:    j.Status,
		SessionID: j.SessionID,
		Progress:  j.Progress,
		Error:     j.Error,
		Result:    j.Result,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
}

func SessionToResponse(s *jobs.Session, frames []string) SessionResponse {
	if frames == nil {
		frames = []string{}
	}
	return SessionResponse{
		ID:           s.ID,
		VideoPath:    s.VideoPath,
		OutputDir:    s.OutputDir,
		Mode:         s.Mode,
		Threshold:    s.Threshold,
		Timestamps:   s.Timestamps,
		ArtifactPath: s.ArtifactPath,
		Frames:       frames,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.Format(time.RFC3339),
	}
}
