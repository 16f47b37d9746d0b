// Package tray provides the system tray menu for mukha.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
	"go.uber.org/zap"

	"github.com/ayusman/mukha/internal/engine"
)

// Tray represents the system tray application. It is also an engine sink
// that mirrors the session state and the last committed action.
type Tray struct {
	engine.NopSink

	onToggle      func(enabled bool)
	onRecalibrate func()
	onSettings    func()
	onQuit        func()
	enabled       bool
	state         engine.State
	lastAction    string
	calibrating   bool
	logger        *zap.Logger
	mu            sync.RWMutex

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuState      *systray.MenuItem
	menuLastAction *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New(logger *zap.Logger) *Tray {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tray{
		enabled: true,
		logger:  logger,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRecalibrate sets the callback for the recalibrate menu item.
func (t *Tray) OnRecalibrate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecalibrate = fn
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

// Quit closes the tray and returns from Run.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mukha")
	systray.SetTooltip("Mukha face control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle face control")
	systray.AddSeparator()

	t.menuState = systray.AddMenuItem(stateTitle(t.state, t.calibrating), "Interaction state")
	t.menuState.Disable()
	t.menuLastAction = systray.AddMenuItem(lastActionTitle(t.lastAction), "Last committed action")
	t.menuLastAction.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuRecalibrate := systray.AddMenuItem("Recalibrate Pose", "Capture the current head pose as neutral")
	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mukha")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRecalibrate.ClickedCh:
				t.call(func() func() { return t.onRecalibrate })
			case <-menuSettings.ClickedCh:
				t.call(func() func() { return t.onSettings })
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.logger.Debug("tray closed")
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	enabled := !t.IsEnabled()
	t.SetEnabled(enabled)

	t.mu.RLock()
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.call(func() func() { return t.onQuit })
	systray.Quit()
}

// call runs the callback returned by get outside the lock.
func (t *Tray) call(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetEnabled updates the toggle without invoking the toggle callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// OnStateChanged shows the new interaction state.
func (t *Tray) OnStateChanged(s engine.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
	t.refreshState()
}

// OnCalibrationStatus marks the state line while gestures are calibrating.
func (t *Tray) OnCalibrationStatus(s engine.CalibrationStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calibrating = s.IsCalibrating
	t.refreshState()
}

// OnAction shows the last committed action.
func (t *Tray) OnAction(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastAction = name
	if t.menuLastAction != nil {
		t.menuLastAction.SetTitle(lastActionTitle(name))
	}
}

// LastAction returns the last committed action.
func (t *Tray) LastAction() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastAction
}

// StateLine returns the text of the state menu item.
func (t *Tray) StateLine() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return stateTitle(t.state, t.calibrating)
}

// refreshState must be called with mu held.
func (t *Tray) refreshState() {
	if t.menuState != nil {
		t.menuState.SetTitle(stateTitle(t.state, t.calibrating))
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func stateTitle(s engine.State, calibrating bool) string {
	title := "State: " + s.String()
	if calibrating {
		title += " (calibrating)"
	}
	return title
}

func lastActionTitle(name string) string {
	if name == "" {
		return "Last: none"
	}
	return "Last: " + name
}
