// Package tray provides the system tray menu for valentine.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu: an enable toggle, the current stage and last
// gesture, restart, open in browser and quit.
type Tray struct {
	onToggle  func(enabled bool)
	onRestart func()
	onOpen    func()
	onQuit    func()
	enabled   bool
	stage     string
	gesture   string
	mu        sync.RWMutex

	menuToggle      *systray.MenuItem
	menuStage       *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a Tray with recognition enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback for the enable toggle.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRestart sets the callback for restarting the narrative.
func (t *Tray) OnRestart(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRestart = fn
}

// OnOpen sets the callback for opening the page in a browser.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for quitting.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run shows the tray and blocks until Quit. It must be called from the main
// goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("♥")
	systray.SetTooltip("Valentine")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture recognition")
	systray.AddSeparator()
	t.menuStage = systray.AddMenuItem(stageTitle(t.stage), "Current stage")
	t.menuStage.Disable()
	t.menuLastGesture = systray.AddMenuItem(gestureTitle(t.gesture), "Last detected gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuRestart := systray.AddMenuItem("Start Over", "Restart from the beginning")
	menuOpen := systray.AddMenuItem("Open in Browser...", "Open the page in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Valentine")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRestart.ClickedCh:
				t.handleRestart()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Outside the lock so the callback may call back into the tray.
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleRestart() {
	t.mu.RLock()
	callback := t.onRestart
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStage updates the stage line.
func (t *Tray) SetStage(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stage = name
	if t.menuStage != nil {
		t.menuStage.SetTitle(stageTitle(name))
	}
}

// SetLastGesture updates the last gesture line.
func (t *Tray) SetLastGesture(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gesture = name
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(gestureTitle(name))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func stageTitle(name string) string {
	if name == "" {
		return "Stage: INTRO"
	}
	return "Stage: " + name
}

func gestureTitle(name string) string {
	if name == "" || name == "NONE" {
		return "Last: none"
	}
	return "Last: " + name
}
