// Package tray provides the operator's system tray menu for the kiosk.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/howlong/internal/engagement"
)

// Tray represents the operator tray menu.
type Tray struct {
	onToggle  func(enabled bool)
	onRestart func()
	onOpen    func()
	onQuit    func()
	enabled   bool
	level     int
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuLevel  *systray.MenuItem
}

// New creates a new Tray instance with detection enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when detection is paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRestart sets the callback function to be called when the operator restarts the session.
func (t *Tray) OnRestart(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRestart = fn
}

// OnOpen sets the callback function to be called when the kiosk page is requested.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
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
	systray.SetTitle("HowLong")
	systray.SetTooltip("HowLong engagement kiosk")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume detection")
	systray.AddSeparator()

	t.menuLevel = systray.AddMenuItem(levelTitle(t.level), "Engagement of the current visitor")
	t.menuLevel.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuRestart := systray.AddMenuItem("Restart Session", "Start a fresh visitor session")
	menuOpen := systray.AddMenuItem("Open Kiosk...", "Open the kiosk page in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit HowLong")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRestart.ClickedCh:
				t.call(t.restartCallback())
			case <-menuOpen.ClickedCh:
				t.call(t.openCallback())
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Detecting"
	}
	return "○ Paused"
}

func levelTitle(level int) string {
	return fmt.Sprintf("Level: %s", engagement.LevelLabel(level))
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) restartCallback() func() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onRestart
}

func (t *Tray) openCallback() func() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.onOpen
}

func (t *Tray) call(fn func()) {
	if fn != nil {
		fn()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLevel updates the engagement level shown in the menu.
func (t *Tray) SetLevel(level int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.level = level
	if t.menuLevel != nil {
		t.menuLevel.SetTitle(levelTitle(level))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Level returns the last level shown.
func (t *Tray) Level() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.level
}
