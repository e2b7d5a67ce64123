// Package tray provides the system tray controls for the lipstick viewer.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/lipstick/internal/pipeline"
	"github.com/ayusman/lipstick/internal/tracking"
)

// Tray is the system tray menu: start and stop, compare mode and a live
// status line.
type Tray struct {
	onProcessing func(on bool) error
	onCompare    func(on bool)
	onViewer     func()
	onQuit       func()
	processing   bool
	compare      bool
	mu           sync.RWMutex

	menuProcessing *systray.MenuItem
	menuCompare    *systray.MenuItem
	menuStatus     *systray.MenuItem
}

// New creates a Tray with processing off.
func New() *Tray {
	return &Tray{}
}

// OnProcessing sets the callback run when processing is toggled. A
// returned error leaves the menu state unchanged.
func (t *Tray) OnProcessing(fn func(on bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onProcessing = fn
}

// OnCompare sets the callback run when compare mode is toggled.
func (t *Tray) OnCompare(fn func(on bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCompare = fn
}

// OnViewer sets the callback run by "Open Viewer...".
func (t *Tray) OnViewer(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onViewer = fn
}

// OnQuit sets the callback run before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. It blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Lipstick")
	systray.SetTooltip("Virtual lipstick try-on")

	t.mu.Lock()
	t.menuProcessing = systray.AddMenuItem(processingTitle(t.processing), "Start or stop the camera")
	t.menuCompare = systray.AddMenuItemCheckbox("Compare shades", "Split the view between two shades", t.compare)
	systray.AddSeparator()
	t.menuStatus = systray.AddMenuItem("Lips: -", "Tracking status")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuViewer := systray.AddMenuItem("Open Viewer...", "Open the viewer in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Lipstick")

	go func() {
		for {
			select {
			case <-t.menuProcessing.ClickedCh:
				t.handleProcessing()
			case <-t.menuCompare.ClickedCh:
				t.handleCompare()
			case <-menuViewer.ClickedCh:
				t.handleViewer()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func processingTitle(on bool) string {
	if on {
		return "■ Stop"
	}
	return "▶ Start"
}

func (t *Tray) handleProcessing() {
	t.mu.RLock()
	want := !t.processing
	callback := t.onProcessing
	t.mu.RUnlock()

	if callback != nil {
		if err := callback(want); err != nil {
			return
		}
	}
	t.SetProcessing(want)
	if !want {
		// Stopping turns compare off.
		t.SetCompare(false)
	}
}

func (t *Tray) handleCompare() {
	t.mu.RLock()
	want := !t.compare
	callback := t.onCompare
	t.mu.RUnlock()

	if callback != nil {
		callback(want)
	}
	t.SetCompare(want)
}

func (t *Tray) handleViewer() {
	t.mu.RLock()
	callback := t.onViewer
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

// SetProcessing updates the start and stop item.
func (t *Tray) SetProcessing(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processing = on
	if t.menuProcessing != nil {
		t.menuProcessing.SetTitle(processingTitle(on))
	}
}

// SetCompare updates the compare checkbox.
func (t *Tray) SetCompare(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.compare = on
	if t.menuCompare != nil {
		if on {
			t.menuCompare.Check()
		} else {
			t.menuCompare.Uncheck()
		}
	}
}

// StatusLine formats a frame report for the status item.
func StatusLine(rep pipeline.Report) string {
	switch {
	case rep.Decision.Occluded:
		return "Lips: covered"
	case rep.Decision.Visibility == tracking.Visible:
		return "Lips: tracking"
	default:
		return "Lips: not found"
	}
}

// SetStatus shows the latest frame's tracking state.
func (t *Tray) SetStatus(rep pipeline.Report) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(StatusLine(rep))
	}
}

// Processing reports whether processing is on.
func (t *Tray) Processing() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.processing
}

// Compare reports whether compare mode is on.
func (t *Tray) Compare() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.compare
}
