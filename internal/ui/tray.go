// Package ui renders the system tray: agent status, the active generation
// or training run, and cancel/quit actions.
package ui

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"
	"github.com/reelforge/reelforge-agent/internal/generation"
	"github.com/reelforge/reelforge-agent/internal/session"
	"github.com/reelforge/reelforge-agent/internal/training"
)

type Tray struct {
	session *session.Session
	logger  *slog.Logger

	statusItem   *systray.MenuItem
	progressItem *systray.MenuItem
	voiceItem    *systray.MenuItem

	mu sync.Mutex

	onQuit func()
}

type TrayConfig struct {
	Session *session.Session
	Logger  *slog.Logger
	OnQuit  func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		session: cfg.Session,
		logger:  cfg.Logger,
		onQuit:  cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("ReelForge")
	systray.SetTooltip("ReelForge Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current agent status")
	t.statusItem.Disable()

	t.progressItem = systray.AddMenuItem("", "Progress of the active run")
	t.progressItem.Disable()
	t.progressItem.Hide()

	t.voiceItem = systray.AddMenuItem("Voice: default", "Selected voice")
	t.voiceItem.Disable()

	systray.AddSeparator()

	cancelItem := systray.AddMenuItem("Cancel Generation", "Stop watching the active job")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit ReelForge Agent")

	go func() {
		for {
			select {
			case <-cancelItem.ClickedCh:
				t.handleCancel()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	go t.refreshLoop()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) handleCancel() {
	if job := t.session.CancelActive(); job != nil {
		t.logger.Info("generation canceled from tray", "job_id", job.ID)
	}
}

// refreshLoop re-renders the menu from the session snapshot once a second.
func (t *Tray) refreshLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		t.render(t.session.Snapshot())
	}
}

func (t *Tray) render(snap session.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case snap.Training != nil && !snap.Training.State.Terminal():
		t.statusItem.SetTitle("Status: Training model")
		t.progressItem.SetTitle(fmt.Sprintf("%s (%d%%)",
			training.DescribePhase(snap.Training.Phase), snap.Training.Progress))
		t.progressItem.Show()

	case snap.Job != nil && !snap.Job.Status.Terminal():
		t.statusItem.SetTitle("Status: " + generation.Describe(snap.Job.Status))
		t.progressItem.SetTitle(fmt.Sprintf("%d%%, %s remaining",
			snap.Job.Progress, generation.FormatRemaining(snap.Job.EstimatedTimeRemaining)))
		t.progressItem.Show()

	case snap.Job != nil && snap.Job.Status == generation.StatusFailed:
		t.statusItem.SetTitle("Status: Last run failed")
		t.progressItem.Hide()

	default:
		t.statusItem.SetTitle("Status: Idle")
		t.progressItem.Hide()
	}

	if snap.SelectedVoice != "" {
		t.voiceItem.SetTitle("Voice: " + snap.SelectedVoice)
	} else {
		t.voiceItem.SetTitle("Voice: default")
	}
}

func (t *Tray) Quit() {
	systray.Quit()
}
