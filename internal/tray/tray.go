// Package tray provides the system tray control surface for byechat.
package tray

import (
	"sync"

	"github.com/ayusman/byechat/internal/app"
	"github.com/getlantern/systray"
	"github.com/rs/zerolog/log"
)

// Controller is the session API the tray drives.
type Controller interface {
	Start() error
	Stop()
	TriggerBackgroundCapture() error
	Reset() error
	State() app.State
	Subscribe(buffer int) (<-chan app.Status, func())
}

// Tray represents the system tray application.
// Menu updates happen on the tray's own goroutine from status events.
type Tray struct {
	ctrl      Controller
	onPreview func()
	onQuit    func()
	mu        sync.RWMutex
	status    string

	// Menu items stored for later updates
	menuToggle  *systray.MenuItem
	menuScan    *systray.MenuItem
	menuReset   *systray.MenuItem
	menuStatus  *systray.MenuItem
	menuPreview *systray.MenuItem

	unsubscribe func()
}

// New creates a new Tray driving ctrl.
func New(ctrl Controller) *Tray {
	return &Tray{
		ctrl:   ctrl,
		status: "Camera off",
	}
}

// OnPreview sets the callback called when Open Preview is clicked.
func (t *Tray) OnPreview(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPreview = fn
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

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("ByeChat")
	systray.SetTooltip("ByeChat - Vanishing Act")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem("Start Camera", "Start or stop the camera")
	systray.AddSeparator()
	t.menuScan = systray.AddMenuItem("Scan Background (5s)", "Step out of frame and capture the empty room")
	t.menuReset = systray.AddMenuItem("Reset (I'm back!)", "Bring yourself back into the picture")
	systray.AddSeparator()
	t.menuStatus = systray.AddMenuItem(t.status, "Current status")
	t.menuStatus.Disable()
	systray.AddSeparator()
	t.menuPreview = systray.AddMenuItem("Open Preview", "Open the live preview in a browser")
	menuQuit := systray.AddMenuItem("Quit", "Quit ByeChat")
	t.mu.Unlock()

	events, cancel := t.ctrl.Subscribe(16)
	t.unsubscribe = cancel
	t.refresh()

	// Handle menu item clicks and status events in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuScan.ClickedCh:
				t.handleScan()
			case <-t.menuReset.ClickedCh:
				t.handleReset()
			case <-t.menuPreview.ClickedCh:
				t.handlePreview()
			case st, ok := <-events:
				if !ok {
					return
				}
				t.handleStatus(st)
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
}

// view is the menu state derived from a session snapshot.
type view struct {
	toggleTitle  string
	scanEnabled  bool
	resetEnabled bool
}

func viewFor(st app.State) view {
	v := view{toggleTitle: "Start Camera"}
	if !st.Running {
		return v
	}
	v.toggleTitle = "Stop Camera"
	v.scanEnabled = !st.CountingDown && !st.CapturingBackground
	v.resetEnabled = st.HasBackground
	return v
}

// refresh updates the menu from the current session state.
func (t *Tray) refresh() {
	v := viewFor(t.ctrl.State())

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(v.toggleTitle)
	}
	setEnabled(t.menuScan, v.scanEnabled)
	setEnabled(t.menuReset, v.resetEnabled)
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(t.status)
	}
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if item == nil {
		return
	}
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}

// handleStatus records the status line and refreshes the menu.
func (t *Tray) handleStatus(st app.Status) {
	t.mu.Lock()
	if st.Message != "" {
		t.status = st.Message
	}
	t.mu.Unlock()

	t.refresh()
}

// handleToggle starts or stops the camera.
func (t *Tray) handleToggle() {
	if t.ctrl.State().Running {
		t.ctrl.Stop()
	} else if err := t.ctrl.Start(); err != nil {
		log.Error().Err(err).Msg("failed to start camera")
		t.setStatus("Error: " + err.Error())
	}
	t.refresh()
}

// handleScan starts the background countdown.
func (t *Tray) handleScan() {
	if err := t.ctrl.TriggerBackgroundCapture(); err != nil {
		log.Debug().Err(err).Msg("scan background ignored")
	}
	t.refresh()
}

// handleReset brings the subject back.
func (t *Tray) handleReset() {
	if err := t.ctrl.Reset(); err != nil {
		log.Debug().Err(err).Msg("reset ignored")
	}
	t.refresh()
}

// handlePreview handles the preview menu item click.
func (t *Tray) handlePreview() {
	t.mu.RLock()
	callback := t.onPreview
	t.mu.RUnlock()

	if callback != nil {
		callback()
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

func (t *Tray) setStatus(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = text
}

// Status returns the current status line.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
