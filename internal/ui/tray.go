// Package ui is the system-tray front end of the agent.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/slidex/slidex-agent/internal/events"
	"github.com/slidex/slidex-agent/internal/jobs"
	"github.com/slidex/slidex-agent/internal/opener"
)

// StatusSource is satisfied by *jobs.Runner.
type StatusSource interface {
	Status() jobs.Status
	Pause()
	Resume()
	IsPaused() bool
}

type Tray struct {
	runner StatusSource
	hub    *events.Hub
	opener opener.Opener
	logger *slog.Logger

	statusItem *systray.MenuItem
	openItem   *systray.MenuItem
	pauseItem  *systray.MenuItem

	mu sync.Mutex

	apiURL string
	onQuit func()
}

type TrayConfig struct {
	Runner StatusSource
	Hub    *events.Hub
	Opener opener.Opener
	APIURL string
	Logger *slog.Logger
	OnQuit func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		runner: cfg.Runner,
		hub:    cfg.Hub,
		opener: cfg.Opener,
		apiURL: cfg.APIURL,
		logger: cfg.Logger,
		onQuit: cfg.OnQuit,
	}
}

// Run blocks until Quit is called. It must be called from the main
// goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Slidex")
	systray.SetTooltip("Slidex: " + t.apiURL)

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	systray.AddSeparator()

	t.openItem = systray.AddMenuItem("Open Last Output", "Open the last slides folder or document")
	t.openItem.Disable()
	t.pauseItem = systray.AddMenuItem("Pause", "Pause the job queue")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Slidex")

	ctx, cancel := context.WithCancel(context.Background())
	go t.watch(ctx)

	go func() {
		for {
			select {
			case <-t.pauseItem.ClickedCh:
				t.togglePause()
			case <-t.openItem.ClickedCh:
				t.openLast()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				cancel()
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.refresh()
	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

// watch refreshes the menu on job and progress events.
func (t *Tray) watch(ctx context.Context) {
	if t.hub == nil {
		return
	}
	id, ch := t.hub.Subscribe()
	defer t.hub.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.Type == events.TypeJob || ev.Type == events.TypeProgress {
				t.refresh()
			}
		}
	}
}

func (t *Tray) refresh() {
	if t.runner == nil {
		return
	}
	st := t.runner.Status()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.statusItem.SetTitle(StatusTitle(st))
	if st.LastOut != "" {
		t.openItem.Enable()
	}
}

func (t *Tray) togglePause() {
	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume")
	}
	t.refresh()
}

func (t *Tray) openLast() {
	if t.runner == nil || t.opener == nil {
		return
	}
	last := t.runner.Status().LastOut
	if last == "" {
		return
	}
	if err := t.opener.Open(last); err != nil {
		t.logger.Warn("failed to open last output", "error", err)
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}

// StatusTitle renders the one-line status shown in the menu.
func StatusTitle(st jobs.Status) string {
	switch st.State {
	case "working":
		if st.ActiveJob != nil {
			if st.ActiveJob.Type == jobs.JobTypeExtract && st.ActiveJob.Progress > 0 {
				return fmt.Sprintf("Status: Extracting (%d%%)", st.ActiveJob.Progress)
			}
			if st.ActiveJob.Type == jobs.JobTypeExport {
				return "Status: Exporting"
			}
			return "Status: Extracting"
		}
		return "Status: Working"
	case "paused":
		return "Status: Paused"
	case "error":
		return "Status: " + st.LastError
	default:
		return "Status: Idle"
	}
}
