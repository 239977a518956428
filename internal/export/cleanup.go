package export

import (
	"errors"
	"fmt"
	"os"
)

// RemoveFrames deletes exactly the given frame files. Files already gone
// count as removed; other failures are collected and returned together.
func RemoveFrames(frames []string) ([]string, error) {
	removed := make([]string, 0, len(frames))
	var errs []error
	for _, f := range frames {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", f, err))
			continue
		}
		removed = append(removed, f)
	}
	return removed, errors.Join(errs...)
}
