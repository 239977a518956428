package export

import (
	"fmt"
	"strings"

	"github.com/slidex/slidex-agent/internal/slides"
)

// Format is the kind of document assembled from a frame directory.
type Format string

const (
	FormatPPTX Format = "pptx"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts "pptx"/"pdf" case-insensitively, plus the aliases
// "presentation" and "powerpoint" for pptx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pptx", "presentation", "powerpoint":
		return FormatPPTX, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", slides.ErrInvalidParameter, s)
	}
}

// Ext returns the artifact file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// Job asks for every frame in SourceDir to be assembled into one document.
type Job struct {
	SourceDir    string `json:"source_dir"`
	Format       Format `json:"format"`
	DeleteSource bool   `json:"delete_source"`
}

// Artifact describes a written document.
type Artifact struct {
	Path      string   `json:"path"`
	Format    Format   `json:"format"`
	PageCount int      `json:"page_count"`
	Frames    []string `json:"frames"`
	Deleted   []string `json:"deleted,omitempty"`
}
