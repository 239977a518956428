package slides

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Invocation is one planned extractor call.
type Invocation struct {
	Index     int    // 1-based
	Timestamp string // empty in scene-detect mode
	Output    string // explicit file, or the numbered pattern in scene-detect mode
}

// SceneDetect reports whether the invocation scans the whole video.
func (inv Invocation) SceneDetect() bool { return inv.Timestamp == "" }

// BuildPlan lays out the extractor calls for req into dir. Timestamp mode
// yields one call per timestamp in list order, writing 0001.jpg, 0002.jpg, …
// without re-sorting by time. Scene-detect mode yields a single call.
func BuildPlan(req *Request, dir string) []Invocation {
	if req.Mode == ModeTimestamps {
		plan := make([]Invocation, len(req.Timestamps))
		for i, ts := range req.Timestamps {
			plan[i] = Invocation{
				Index:     i + 1,
				Timestamp: ts,
				Output:    outputArg(filepath.Join(dir, FrameName(i+1))),
			}
		}
		return plan
	}
	return []Invocation{{Index: 1, Output: outputArg(filepath.Join(dir, FramePattern))}}
}

// outputArg keeps a relative output path starting with "-" from being
// parsed as an extractor option.
func outputArg(p string) string {
	if strings.HasPrefix(p, "-") {
		return "." + string(filepath.Separator) + p
	}
	return p
}

// CheckExisting fails if running plan would replace a frame already in dir.
// The extractor numbers scene-detect output from 0001 itself, so any
// numbered frame collides; a timestamp plan collides only on the names it
// writes. A missing dir never collides.
func CheckExisting(dir string, plan []Invocation) error {
	for _, inv := range plan {
		if inv.SceneDetect() {
			entries, err := os.ReadDir(dir)
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read output dir: %w", err)
			}
			for _, e := range entries {
				if isNumberedFrame(e.Name()) {
					return frameExists(dir, e.Name())
				}
			}
			continue
		}
		if _, err := os.Lstat(inv.Output); err == nil {
			return frameExists(dir, filepath.Base(inv.Output))
		}
	}
	return nil
}

func frameExists(dir, name string) error {
	return fmt.Errorf("%w: %s already contains %s; choose an empty output directory", ErrInvalidParameter, dir, name)
}

// isNumberedFrame matches names the extractor's %04d pattern can produce.
func isNumberedFrame(name string) bool {
	ext := filepath.Ext(name)
	if !strings.EqualFold(ext, FrameExt) {
		return false
	}
	stem := strings.TrimSuffix(name, ext)
	if len(stem) < 4 {
		return false
	}
	for _, r := range stem {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
