package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/slidex/slidex-agent/internal/slides"
)

// SanitizeName strips control characters and replaces anything outside a
// conservative set, for use in document metadata.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// ValidateSourceDir checks a caller-supplied frame directory before any file
// is touched. Existence is not checked here: a missing directory has no
// frames and is reported as such by Export.
func ValidateSourceDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%w: source_dir is required", slides.ErrInvalidParameter)
	}

	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return fmt.Errorf("%w: source_dir cannot contain path traversal", slides.ErrInvalidParameter)
		}
	}

	if !filepath.IsAbs(dir) {
		return fmt.Errorf("%w: source_dir must be absolute", slides.ErrInvalidParameter)
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("%w: source_dir must be clean path", slides.ErrInvalidParameter)
	}
	return nil
}
