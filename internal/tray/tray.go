// Package tray provides the system tray menu of the posture monitor.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/getlantern/systray"

	"github.com/ayusman/shrimpwatch/internal/posture"
)

// State is what the tray displays.
type State struct {
	MonitoringEnabled bool
	Calibrated        bool
	LastScore         *int
	LastStatus        posture.Status
	LastCheckAt       time.Time
	SnoozedUntil      time.Time
}

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onCheckNow func()
	onSnooze   func()
	onSettings func()
	onQuit     func()
	state      State
	now        func() time.Time
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle    *systray.MenuItem
	menuStatus    *systray.MenuItem
	menuLastCheck *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{now: time.Now}
}

// OnToggle sets the callback function to be called when monitoring is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnCheckNow sets the callback for the "Check now" item.
func (t *Tray) OnCheckNow(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCheckNow = fn
}

// OnSnooze sets the callback for the "Snooze 5 min" item.
func (t *Tray) OnSnooze(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSnooze = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTooltip("ShrimpWatch posture monitor")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem("", "Current posture")
	t.menuStatus.Disable()
	t.menuLastCheck = systray.AddMenuItem("", "Time of the last check")
	t.menuLastCheck.Disable()
	systray.AddSeparator()

	t.menuToggle = systray.AddMenuItem("", "Toggle posture monitoring")
	t.mu.Unlock()

	menuCheck := systray.AddMenuItem("Check now", "Run a posture check")
	menuSnooze := systray.AddMenuItem("Snooze 5 min", "Pause checks for 5 minutes")
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit ShrimpWatch")

	t.render()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuCheck.ClickedCh:
				t.call(func() func() { return t.onCheckNow })
			case <-menuSnooze.ClickedCh:
				t.call(func() func() { return t.onSnooze })
			case <-menuSettings.ClickedCh:
				t.call(func() func() { return t.onSettings })
			case <-menuQuit.ClickedCh:
				t.call(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()

	// Keep the relative "last check" label fresh.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			t.render()
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// call runs the callback selected by get outside the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	enabled := !t.state.MonitoringEnabled
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// Update replaces the displayed state.
func (t *Tray) Update(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
	t.render()
}

func (t *Tray) render() {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus == nil {
		return
	}
	now := t.now()

	systray.SetTitle(Title(t.state))
	t.menuStatus.SetTitle(StatusLabel(t.state, now))
	t.menuLastCheck.SetTitle(LastCheckLabel(t.state.LastCheckAt, now))
	if t.state.MonitoringEnabled {
		t.menuToggle.SetTitle("● Monitoring on")
	} else {
		t.menuToggle.SetTitle("○ Monitoring off")
	}
	if t.state.Calibrated {
		t.menuToggle.Enable()
	} else {
		t.menuToggle.Disable()
	}
}

// Title is the text shown next to the tray icon.
func Title(s State) string {
	if s.LastScore == nil {
		return "🦐"
	}
	return fmt.Sprintf("🦐 %d", *s.LastScore)
}

// StatusLabel describes the monitor state in one line.
func StatusLabel(s State, now time.Time) string {
	switch {
	case !s.Calibrated:
		return "Not calibrated"
	case now.Before(s.SnoozedUntil):
		return "Snoozed until " + s.SnoozedUntil.Format("15:04")
	case !s.MonitoringEnabled:
		return "Paused"
	}

	switch s.LastStatus {
	case posture.StatusGood:
		return "Posture: good"
	case posture.StatusFair:
		return "Posture: fair"
	case posture.StatusPoor:
		return "Posture: poor"
	default:
		return "Waiting for first check"
	}
}

// LastCheckLabel renders the time of the last check relative to now.
func LastCheckLabel(at, now time.Time) string {
	if at.IsZero() {
		return "No checks yet"
	}
	return "Last check " + humanize.RelTime(at, now, "ago", "from now")
}
