// Package preview keeps a thumbnail of the first frame in each output
// directory and tells listeners when a directory's frame set changes.
package preview

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/slidex/slidex-agent/internal/events"
)

// ThumbSize bounds both thumbnail dimensions.
const ThumbSize = 200

var ErrNoPreview = errors.New("no preview available")

// State is the preview collaborator's view of one output directory.
type State struct {
	Dir        string `json:"dir"`
	FrameCount int    `json:"frame_count"`
	FirstFrame string `json:"first_frame,omitempty"`
	Thumbnail  string `json:"-"`
	HasPreview bool   `json:"has_preview"`
}

// EventPublisher is satisfied by *events.Hub.
type EventPublisher interface {
	Publish(events.Event)
}

// Service implements slides.DirectoryObserver.
type Service struct {
	cacheDir string
	events   EventPublisher
	logger   *slog.Logger

	mu     sync.RWMutex
	states map[string]State
}

// NewService stores thumbnails under cacheDir. pub may be nil.
func NewService(cacheDir string, pub EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		cacheDir: cacheDir,
		events:   pub,
		logger:   logger,
		states:   make(map[string]State),
	}
}

// DirectoryChanged regenerates the thumbnail from frames[0], or drops it
// when frames is empty, then publishes the new state.
func (s *Service) DirectoryChanged(dir string, frames []string) {
	st := State{Dir: dir, FrameCount: len(frames)}
	thumb := s.thumbPath(dir)

	if len(frames) == 0 {
		if err := os.Remove(thumb); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove thumbnail", "error", err)
		}
	} else {
		st.FirstFrame = frames[0]
		if err := s.render(frames[0], thumb); err != nil {
			s.logger.Warn("thumbnail generation failed", "frame", filepath.Base(frames[0]), "error", err)
		} else {
			st.Thumbnail = thumb
			st.HasPreview = true
		}
	}

	s.mu.Lock()
	s.states[dir] = st
	s.mu.Unlock()

	if s.events != nil {
		s.events.Publish(events.Event{Type: events.TypeState, Data: st})
	}
}

// State returns the last reported state for dir.
func (s *Service) State(dir string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[dir]
	return st, ok
}

// Thumbnail returns the thumbnail file for dir, or ErrNoPreview.
func (s *Service) Thumbnail(dir string) (string, error) {
	st, ok := s.State(dir)
	if !ok || !st.HasPreview {
		return "", ErrNoPreview
	}
	if _, err := os.Stat(st.Thumbnail); err != nil {
		return "", ErrNoPreview
	}
	return st.Thumbnail, nil
}

func (s *Service) thumbPath(dir string) string {
	sum := sha256.Sum256([]byte(dir))
	return filepath.Join(s.cacheDir, hex.EncodeToString(sum[:8])+".jpg")
}

func (s *Service) render(src, dst string) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		return err
	}
	return imaging.Save(imaging.Fit(img, ThumbSize, ThumbSize, imaging.Lanczos), dst)
}
