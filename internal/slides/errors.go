package slides

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by extraction and export. Call sites wrap these with
// context; callers classify with errors.Is.
var (
	ErrMissingInput      = errors.New("missing input")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrExtractorNotFound = errors.New("frame extractor not found")
	ErrExtractionFailed  = errors.New("extraction failed")
	ErrNoFramesToExport  = errors.New("no frames to export")
	ErrExportWriteFailed = errors.New("export write failed")
)

// ExtractionError reports a non-zero exit from one extractor invocation.
// Frames written by earlier invocations stay on disk.
type ExtractionError struct {
	Invocation int // 1-based position in the plan
	Total      int
	ExitCode   int
	StderrTail string
	Err        error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extractor invocation %d/%d exited %d", e.Invocation, e.Total, e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.StderrTail != "" {
		msg += ": " + lastLine(e.StderrTail)
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return ErrExtractionFailed }

// StatusMessage turns an operation error into the one-line status shown to the
// user. A nil error yields an empty string.
func StatusMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput):
		return "Please select a video file."
	case errors.Is(err, ErrInvalidParameter):
		return "Invalid parameter: " + cause(err, ErrInvalidParameter)
	case errors.Is(err, ErrExtractorNotFound):
		return "ffmpeg not found. Set path in Settings."
	case errors.Is(err, ErrNoFramesToExport):
		return "No slides to export."
	default:
		return "Error: " + err.Error()
	}
}

// cause strips the sentinel prefix from a "%w: detail" wrapped error.
func cause(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}

func lastLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
