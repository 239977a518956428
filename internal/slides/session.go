package slides

import (
	"context"
	"time"
)

// Session carries one extraction→export cycle between the orchestrator, the
// export pipeline and cleanup. The output directory is owned by the session
// for the duration of the cycle.
type Session struct {
	ID         string
	VideoPath  string
	OutputDir  string
	Mode       Mode
	Threshold  float64
	Timestamps []string
	Frames     []string // frames written by this extraction, in capture order
	Artifact   string   // last exported document, if any
	CreatedAt  time.Time
}

// RunResult is the outcome of one extractor subprocess.
type RunResult struct {
	ExitCode   int
	StderrTail string
	Duration   time.Duration
}

// IsSuccess reports a clean exit.
func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// FrameExtractor is the external tool that writes frames to disk. Both calls
// block until the subprocess exits.
type FrameExtractor interface {
	// ExtractScenes writes one frame per scene change whose score exceeds
	// threshold, numbered by the extractor through outputPattern.
	ExtractScenes(ctx context.Context, videoPath string, threshold float64, outputPattern string) (RunResult, error)

	// ExtractFrame seeks to timestamp and writes exactly one frame to outputPath.
	ExtractFrame(ctx context.Context, videoPath, timestamp, outputPath string) (RunResult, error)
}

// ExtractorLocator resolves a usable FrameExtractor at the time of each
// request, so a newly configured executable path takes effect immediately.
type ExtractorLocator interface {
	Locate() (FrameExtractor, error)
}

// DirectoryObserver is told about the frames present in a directory after
// extraction and after cleanup.
type DirectoryObserver interface {
	DirectoryChanged(dir string, frames []string)
}

// ProgressEvent is emitted while a request runs. Total is zero when progress
// is indeterminate.
type ProgressEvent struct {
	Stage string // "started", "advanced" or "finished"
	Done  int
	Total int
	Err   error
}

// Determinate reports whether Done/Total are meaningful.
func (e ProgressEvent) Determinate() bool { return e.Total > 0 }

// ProgressFunc receives progress events. A nil ProgressFunc is valid.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) emit(ev ProgressEvent) {
	if f != nil {
		f(ev)
	}
}
