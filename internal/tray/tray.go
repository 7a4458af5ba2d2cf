// Package tray provides a system tray interface for palmscroll.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/palmscroll/internal/app"
	"github.com/ayusman/palmscroll/internal/debounce"
)

const (
	titleEnabled  = "● Scrolling"
	titleDisabled = "○ Paused"
)

// Tray represents the system tray application. It is an app.Observer and
// mirrors the live status into its menu.
type Tray struct {
	onToggle    func(enabled bool)
	onDashboard func()
	onQuit      func()
	enabled     bool
	status      string
	lastAction  string
	mu          sync.RWMutex

	// Menu items exist only once systray is ready.
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
	menuLast   *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled:    true,
		status:     statusLine(app.FrameStatus{Status: debounce.StatusNoHand}),
		lastAction: actionLine(nil),
	}
}

// OnToggle sets the callback run when scrolling is paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDashboard sets the callback run when the dashboard item is clicked.
// The item is only shown when a callback is set before Run.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application. It must be called from the main
// goroutine and blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops a running tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("palmscroll")
	systray.SetTooltip("palmscroll: open palm scrolls up, fist scrolls down")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume scrolling")
	systray.AddSeparator()
	t.menuStatus = systray.AddMenuItem(t.status, "Current pose")
	t.menuStatus.Disable()
	t.menuLast = systray.AddMenuItem(t.lastAction, "Last scroll")
	t.menuLast.Disable()
	systray.AddSeparator()

	dashboard := &systray.MenuItem{ClickedCh: make(chan struct{})}
	if t.onDashboard != nil {
		dashboard = systray.AddMenuItem("Open Dashboard...", "Open the status page in a browser")
		systray.AddSeparator()
	}
	t.mu.Unlock()

	menuQuit := systray.AddMenuItem("Quit", "Quit palmscroll")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-dashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// Observe updates the status line and, when an action fired, the last
// action line.
func (t *Tray) Observe(s app.FrameStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if line := statusLine(s); line != t.status {
		t.status = line
		if t.menuStatus != nil {
			t.menuStatus.SetTitle(line)
		}
	}

	if s.Fired {
		t.lastAction = actionLine(&s)
		if t.menuLast != nil {
			t.menuLast.SetTitle(t.lastAction)
		}
	}
}

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

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
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

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Status returns the current status line.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// LastAction returns the current last-action line.
func (t *Tray) LastAction() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastAction
}

func toggleTitle(enabled bool) string {
	if enabled {
		return titleEnabled
	}
	return titleDisabled
}

func statusLine(s app.FrameStatus) string {
	return debounce.Result{Status: s.Status, RunLength: s.RunLength}.String()
}

func actionLine(s *app.FrameStatus) string {
	if s == nil {
		return "Last: none"
	}
	return fmt.Sprintf("Last: %s %+d", s.Status, s.Delta)
}
