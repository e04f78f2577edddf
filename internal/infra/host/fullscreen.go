package host

import (
	"fmt"
	"sync"

	"pdf-canvas-viewer/internal/domain"
)

// Fullscreen models the host's fullscreen platform. Requests are queued as
// directives for the shell to execute; the shell reports the outcome through
// Notify, which fans out to subscribers. With auto-grant enabled, requests
// take effect immediately on a screen of the configured size.
type Fullscreen struct {
	mu         sync.Mutex
	element    domain.FullscreenTarget
	autoGrant  bool
	width      int
	height     int
	listeners  map[int]func(domain.FullscreenChange)
	nextID     int
	directives []domain.FullscreenDirective

	// exitPending is set while an exit directive awaits the shell's answer
	exitPending bool
}

// FullscreenOption configures a Fullscreen
type FullscreenOption func(*Fullscreen)

// WithAutoGrant applies requests immediately, as a host with the given
// viewport size would.
func WithAutoGrant(width, height int) FullscreenOption {
	return func(f *Fullscreen) {
		f.autoGrant = true
		f.width = width
		f.height = height
	}
}

// NewFullscreen creates a fullscreen platform with nothing fullscreen
func NewFullscreen(opts ...FullscreenOption) *Fullscreen {
	f := &Fullscreen{listeners: make(map[int]func(domain.FullscreenChange))}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Request asks for target to become fullscreen
func (f *Fullscreen) Request(target domain.FullscreenTarget) error {
	if target == domain.FullscreenNone {
		return fmt.Errorf("fullscreen request needs a target")
	}
	f.mu.Lock()
	if !f.autoGrant {
		f.directives = append(f.directives, domain.FullscreenDirective{Action: domain.DirectiveRequest, Target: target})
		f.mu.Unlock()
		return nil
	}
	change := domain.FullscreenChange{Element: target, ViewportWidth: f.width, ViewportHeight: f.height}
	f.mu.Unlock()

	f.Notify(change)
	return nil
}

// Exit leaves fullscreen. It is a no-op when nothing is fullscreen or when
// an exit is already on its way to the shell.
func (f *Fullscreen) Exit() error {
	f.mu.Lock()
	if f.element == domain.FullscreenNone || f.exitPending {
		f.mu.Unlock()
		return nil
	}
	if !f.autoGrant {
		f.exitPending = true
		f.directives = append(f.directives, domain.FullscreenDirective{Action: domain.DirectiveExit})
		f.mu.Unlock()
		return nil
	}
	change := domain.FullscreenChange{Element: domain.FullscreenNone, ViewportWidth: f.width, ViewportHeight: f.height}
	f.mu.Unlock()

	f.Notify(change)
	return nil
}

// Element returns what is currently fullscreen
func (f *Fullscreen) Element() domain.FullscreenTarget {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.element
}

// Subscribe registers a change listener
func (f *Fullscreen) Subscribe(listener func(domain.FullscreenChange)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = listener
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
	}
}

// Notify records a platform fullscreen change and delivers it to listeners.
// Listeners run on the caller's goroutine without the platform lock held.
func (f *Fullscreen) Notify(change domain.FullscreenChange) {
	f.mu.Lock()
	f.element = change.Element
	f.exitPending = false
	listeners := make([]func(domain.FullscreenChange), 0, len(f.listeners))
	for _, l := range f.listeners {
		listeners = append(listeners, l)
	}
	f.mu.Unlock()

	for _, l := range listeners {
		l(change)
	}
}

// Directives drains the requests waiting for the shell
func (f *Fullscreen) Directives() []domain.FullscreenDirective {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.directives
	f.directives = nil
	return out
}
