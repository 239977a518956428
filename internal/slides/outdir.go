package slides

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DirSuffix is appended to the video's base name to form the default
	// output directory.
	DirSuffix = "_slides"

	// FrameExt is the extension of every extracted frame.
	FrameExt = ".jpg"

	// FramePattern is the numbered filename pattern handed to the extractor in
	// scene-detect mode.
	FramePattern = "%04d" + FrameExt
)

// OutputDirs derives and prepares output directories.
type OutputDirs struct {
	// Root is the parent of derived directories. Empty means the current
	// working directory unless BesideVideo is set.
	Root string
	// BesideVideo places derived directories next to the input video.
	BesideVideo bool
}

// DefaultDirName returns "<basename-without-extension>_slides".
func DefaultDirName(videoPath string) string {
	base := filepath.Base(videoPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + DirSuffix
}

// Resolve returns the directory a request writes to. An explicit override is
// trimmed and otherwise honoured verbatim.
func (d OutputDirs) Resolve(videoPath, override string) string {
	if o := strings.TrimSpace(override); o != "" {
		return o
	}
	name := DefaultDirName(videoPath)
	switch {
	case d.BesideVideo:
		return filepath.Join(filepath.Dir(videoPath), name)
	case d.Root != "":
		return filepath.Join(d.Root, name)
	default:
		return name
	}
}

// Ensure creates dir and any missing parents. It is a no-op for an existing
// directory.
func (d OutputDirs) Ensure(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// FrameName returns the file name of the i-th (1-based) frame.
func FrameName(i int) string {
	return fmt.Sprintf(FramePattern, i)
}

// ListFrames returns the frame files in dir sorted by file name, which is
// also capture order. A missing directory is reported as an error; an empty
// one as an empty slice.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), FrameExt) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	frames := make([]string, len(names))
	for i, n := range names {
		frames[i] = filepath.Join(dir, n)
	}
	return frames, nil
}
