package service

import (
	"context"
	"sync"
	"time"

	"pdf-canvas-viewer/internal/domain"
	"pdf-canvas-viewer/internal/infra/host"

	"github.com/google/uuid"
)

const sweepInterval = time.Minute

// RegistryOptions configures a ViewerRegistry
type RegistryOptions struct {
	Settings      domain.ViewerSettings
	MaxViewers    int
	IdleTimeout   time.Duration
	RenderTimeout time.Duration
	// AutoGrantFullscreen makes fullscreen requests take effect without a
	// shell, on a screen of FullscreenWidth x FullscreenHeight.
	AutoGrantFullscreen bool
	FullscreenWidth     int
	FullscreenHeight    int
}

type registryEntry struct {
	viewer     *domain.Viewer
	controller *ViewerController
	lastSeen   time.Time
}

// ViewerRegistry keeps one independent viewer per client and evicts the
// ones that went idle.
type ViewerRegistry struct {
	decoder domain.Decoder
	opts    RegistryOptions
	logger  domain.Logger
	now     func() time.Time

	mu      sync.Mutex
	viewers map[string]*registryEntry
}

// NewViewerRegistry creates an empty registry
func NewViewerRegistry(decoder domain.Decoder, opts RegistryOptions, logger domain.Logger) *ViewerRegistry {
	return &ViewerRegistry{
		decoder: decoder,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
		viewers: make(map[string]*registryEntry),
	}
}

// Create builds a new viewer with its own canvas, display and fullscreen platform
func (r *ViewerRegistry) Create() (*domain.Viewer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.opts.MaxViewers > 0 && len(r.viewers) >= r.opts.MaxViewers {
		return nil, domain.ErrTooManyViewers
	}

	var fsOpts []host.FullscreenOption
	if r.opts.AutoGrantFullscreen {
		fsOpts = append(fsOpts, host.WithAutoGrant(r.opts.FullscreenWidth, r.opts.FullscreenHeight))
	}
	canvas := host.NewCanvas()
	display := host.NewDisplay()
	fullscreen := host.NewFullscreen(fsOpts...)

	id := uuid.New().String()
	controller := NewViewerController(
		r.decoder,
		canvas,
		display,
		fullscreen,
		r.opts.Settings,
		r.logger,
		WithRenderTimeout(r.opts.RenderTimeout),
		WithClock(r.now),
	)
	viewer := &domain.Viewer{
		ID:         id,
		Controller: controller,
		Input:      NewInputRouter(controller, display, r.opts.Settings.ZoomStep, r.logger),
		Canvas:     canvas,
		Display:    display,
		Fullscreen: fullscreen,
		CreatedAt:  r.now(),
	}
	r.viewers[id] = &registryEntry{viewer: viewer, controller: controller, lastSeen: viewer.CreatedAt}

	r.logger.Info("Viewer created", "viewer_id", id, "open_viewers", len(r.viewers))
	return viewer, nil
}

// Get returns a viewer and marks it as active
func (r *ViewerRegistry) Get(id string) (*domain.Viewer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.viewers[id]
	if !ok {
		return nil, domain.ErrViewerNotFound
	}
	entry.lastSeen = r.now()
	return entry.viewer, nil
}

// Remove disposes a viewer
func (r *ViewerRegistry) Remove(id string) error {
	r.mu.Lock()
	entry, ok := r.viewers[id]
	delete(r.viewers, id)
	r.mu.Unlock()

	if !ok {
		return domain.ErrViewerNotFound
	}
	entry.controller.Dispose()
	r.logger.Info("Viewer removed", "viewer_id", id)
	return nil
}

// Len returns the number of open viewers
func (r *ViewerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.viewers)
}

// Sweep disposes viewers idle for longer than the idle timeout and returns
// how many were removed.
func (r *ViewerRegistry) Sweep(now time.Time) int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}

	r.mu.Lock()
	var stale []*registryEntry
	for id, entry := range r.viewers {
		if now.Sub(entry.lastSeen) > r.opts.IdleTimeout {
			stale = append(stale, entry)
			delete(r.viewers, id)
		}
	}
	r.mu.Unlock()

	for _, entry := range stale {
		entry.controller.Dispose()
		r.logger.Info("Viewer evicted", "viewer_id", entry.viewer.ID, "idle_since", entry.lastSeen)
	}
	return len(stale)
}

// Run sweeps idle viewers until ctx is done, then disposes every viewer.
func (r *ViewerRegistry) Run(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		case <-ticker.C:
			r.Sweep(r.now())
		}
	}
}

func (r *ViewerRegistry) closeAll() {
	r.mu.Lock()
	entries := r.viewers
	r.viewers = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.controller.Dispose()
	}
	r.logger.Info("Viewers closed", "count", len(entries))
}
