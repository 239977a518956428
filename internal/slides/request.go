// Package slides extracts still frames from a video at scene changes or at
// explicit timestamps, and tracks the output directory those frames live in
// until they are exported.
package slides

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// DefaultThreshold is the scene-change score used when none is configured.
const DefaultThreshold = 0.2

// Mode selects how frames are picked from the video.
type Mode int

const (
	ModeSceneDetect Mode = iota
	ModeTimestamps
)

func (m Mode) String() string {
	switch m {
	case ModeSceneDetect:
		return "scene"
	case ModeTimestamps:
		return "timestamps"
	default:
		return "unknown"
	}
}

// Params is an extraction request as the user typed it.
type Params struct {
	VideoPath  string
	Threshold  string   // parsed only when Timestamps is empty
	Timestamps []string // take precedence over Threshold when non-empty
	OutputDir  string   // optional override; trimmed and honoured verbatim
	SessionID  string   // optional; generated when empty
}

// Request is a validated extraction request.
type Request struct {
	VideoPath  string
	Mode       Mode
	Threshold  float64
	Timestamps []string
	OutputDir  string
}

// Validate checks p without touching the filesystem beyond a stat of the
// video. It never creates directories or starts processes.
func (p Params) Validate() (*Request, error) {
	video := strings.TrimSpace(p.VideoPath)
	if video == "" {
		return nil, fmt.Errorf("%w: no video selected", ErrMissingInput)
	}
	info, err := os.Stat(video)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingInput, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrMissingInput, video)
	}

	req := &Request{
		VideoPath: video,
		OutputDir: strings.TrimSpace(p.OutputDir),
	}

	if len(p.Timestamps) > 0 {
		req.Mode = ModeTimestamps
		req.Timestamps = make([]string, len(p.Timestamps))
		for i, ts := range p.Timestamps {
			ts = strings.TrimSpace(ts)
			if ts == "" {
				return nil, fmt.Errorf("%w: timestamp %d is empty", ErrInvalidParameter, i+1)
			}
			req.Timestamps[i] = ts
		}
		return req, nil
	}

	threshold, err := ParseThreshold(p.Threshold)
	if err != nil {
		return nil, err
	}
	req.Mode = ModeSceneDetect
	req.Threshold = threshold
	return req, nil
}

// ParseThreshold parses a scene-change threshold. Negative, NaN and infinite
// values are rejected; values above 1 are allowed and simply select nothing.
func ParseThreshold(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: threshold %q is not a number", ErrInvalidParameter, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: threshold %q must be a non-negative number", ErrInvalidParameter, s)
	}
	return v, nil
}

// ParseTimestampList splits a comma separated list, trimming each entry and
// dropping empty ones.
func ParseTimestampList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// FormatThreshold renders a threshold the way the scene filter expects it.
func FormatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
