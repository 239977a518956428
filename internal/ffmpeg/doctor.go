package ffmpeg

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultCacheTTL = 5 * time.Minute
	probeTimeout    = 10 * time.Second
)

// Capabilities describes the ffmpeg executable the agent will use.
type Capabilities struct {
	Path     string    `json:"path"`
	Version  string    `json:"version"`
	ProbedAt time.Time `json:"probed_at"`
}

// Prober runs a fresh probe.
type Prober interface {
	Probe(ctx context.Context) (*Capabilities, error)
}

// CachedDoctor caches probe results for a TTL so /status and the tray do
// not spawn a subprocess on every poll.
type CachedDoctor struct {
	prober Prober
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

func NewCachedDoctor(prober Prober, logger *slog.Logger) *CachedDoctor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CachedDoctor{
		prober: prober,
		ttl:    defaultCacheTTL,
		logger: logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

// Peek returns the last probe result without probing.
func (d *CachedDoctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh probes regardless of cache freshness. A failed probe clears the
// cache.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.prober.Probe(ctx)
	if err != nil {
		d.logger.Warn("ffmpeg probe failed", "error", err)
		d.cached = nil
		return nil, err
	}

	d.cached = caps
	return caps, nil
}

// Invalidate clears the cache, e.g. after the configured path changes.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
