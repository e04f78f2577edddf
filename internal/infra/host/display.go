package host

import (
	"sync"

	"pdf-canvas-viewer/internal/domain"
)

// Display records what the host UI should show. It starts on the upload
// prompt with the chrome visible.
type Display struct {
	mu    sync.RWMutex
	state domain.DisplayState
}

// NewDisplay creates a display in its initial state
func NewDisplay() *Display {
	return &Display{
		state: domain.DisplayState{
			Container:     domain.ContainerUpload,
			ChromeVisible: true,
		},
	}
}

func (d *Display) SetPageIndicator(current, total int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.CurrentPage = current
	d.state.TotalPages = total
}

func (d *Display) ShowViewer(visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if visible {
		d.state.Container = domain.ContainerViewer
	} else {
		d.state.Container = domain.ContainerUpload
	}
}

func (d *Display) SetChromeVisible(visible bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.ChromeVisible = visible
}

func (d *Display) SetDropHighlight(highlighted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.DropHighlighted = highlighted
}

// Notify replaces the current user-visible notification
func (d *Display) Notify(notification domain.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := notification
	d.state.Notification = &n
}

// Snapshot returns a copy of the display state
func (d *Display) Snapshot() domain.DisplayState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := d.state
	if s.Notification != nil {
		n := *s.Notification
		s.Notification = &n
	}
	return s
}
