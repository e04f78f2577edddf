package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pdf-canvas-viewer/internal/domain"
)

const defaultRenderTimeout = 30 * time.Second

// liveDocument is the decoded document a controller currently owns. Renders
// register in inflight so a superseded document is closed only after every
// render still reading it has finished.
type liveDocument struct {
	doc      domain.Document
	name     string
	inflight sync.WaitGroup
}

// ViewerController owns one viewer's state and re-renders after every
// mutation. State changes are serialized by mu; decoding and rasterizing run
// without it.
type ViewerController struct {
	decoder       domain.Decoder
	canvas        domain.Canvas
	display       domain.Display
	fullscreen    domain.FullscreenPlatform
	logger        domain.Logger
	settings      domain.ViewerSettings
	renderTimeout time.Duration
	now           func() time.Time

	mu                 sync.Mutex
	live               *liveDocument
	pageIndex          int
	pageCount          int
	scale              float64
	rotation           int
	isFullscreen       bool
	preFullscreenScale float64

	loadSeq      uint64
	generation   uint64
	committed    uint64
	cancelRender context.CancelFunc
	renderDone   chan struct{}

	unsubscribe func()
}

// ControllerOption configures a ViewerController
type ControllerOption func(*ViewerController)

// WithRenderTimeout bounds how long a single page render may take
func WithRenderTimeout(d time.Duration) ControllerOption {
	return func(c *ViewerController) {
		if d > 0 {
			c.renderTimeout = d
		}
	}
}

// WithClock overrides the clock used to stamp notifications
func WithClock(now func() time.Time) ControllerOption {
	return func(c *ViewerController) {
		c.now = now
	}
}

// NewViewerController creates a controller with no document and subscribes it
// to the fullscreen platform's change notifications.
func NewViewerController(
	decoder domain.Decoder,
	canvas domain.Canvas,
	display domain.Display,
	fullscreen domain.FullscreenPlatform,
	settings domain.ViewerSettings,
	logger domain.Logger,
	opts ...ControllerOption,
) *ViewerController {
	c := &ViewerController{
		decoder:       decoder,
		canvas:        canvas,
		display:       display,
		fullscreen:    fullscreen,
		logger:        logger,
		settings:      settings,
		renderTimeout: defaultRenderTimeout,
		now:           time.Now,
		scale:         settings.ClampScale(settings.DefaultScale),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.unsubscribe = fullscreen.Subscribe(c.onFullscreenChange)
	return c
}

// Load decodes a PDF and makes it the live document. Non-PDF input and decode
// failures leave the current state untouched and post a notification. Scale
// and rotation carry over from the previous document.
func (c *ViewerController) Load(ctx context.Context, name string, data []byte, mimeType string) error {
	if !domain.IsPDFMimeType(mimeType) {
		c.notify(domain.NotificationInvalidInput, fmt.Sprintf("%s is not a PDF file", displayName(name)))
		return fmt.Errorf("%w: %q", domain.ErrInvalidInputType, mimeType)
	}

	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.mu.Unlock()

	doc, err := c.decoder.Decode(ctx, data)
	if err == nil && doc.PageCount() < 1 {
		_ = doc.Close()
		err = domain.ErrEmptyDocument
	}
	if err != nil {
		if c.superseded(seq) {
			return domain.ErrLoadSuperseded
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("Document load abandoned", "name", name, "error", err)
			return err
		}
		c.logger.Error("Failed to decode document", err, "name", name, "bytes", len(data))
		c.notify(domain.NotificationDecodeFailure, fmt.Sprintf("%s could not be opened", displayName(name)))
		return fmt.Errorf("%w: %w", domain.ErrDecodeFailure, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.loadSeq {
		_ = doc.Close()
		return domain.ErrLoadSuperseded
	}

	c.retire(c.live)
	c.live = &liveDocument{doc: doc, name: name}
	c.pageCount = doc.PageCount()
	c.pageIndex = 1
	c.display.ShowViewer(true)
	c.logger.Info("Document loaded", "name", name, "pages", c.pageCount)
	c.renderLocked()
	return nil
}

// GoToPage moves by delta pages. A target outside [1, pageCount] is a no-op.
// It reports whether the page changed.
func (c *ViewerController) GoToPage(delta int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live == nil {
		return false
	}
	target := c.pageIndex + delta
	if delta == 0 || target < 1 || target > c.pageCount {
		return false
	}
	c.pageIndex = target
	c.renderLocked()
	return true
}

// SetScale adds delta to the zoom factor, clamped to the configured range,
// and returns the resulting scale.
func (c *ViewerController) SetScale(delta float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live == nil {
		return c.scale
	}
	c.scale = c.settings.StepScale(c.scale, delta)
	c.renderLocked()
	return c.scale
}

// Rotate turns the page a quarter clockwise and returns the new rotation
func (c *ViewerController) Rotate() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live == nil {
		return c.rotation
	}
	c.rotation = domain.NormalizeRotation(c.rotation + 90)
	c.renderLocked()
	return c.rotation
}

// ToggleFullscreen asks the platform to put the surface in fullscreen, or to
// leave fullscreen if anything is. Scale and chrome follow the platform's
// change notification, not this call.
func (c *ViewerController) ToggleFullscreen() error {
	c.mu.Lock()
	loaded := c.live != nil
	c.mu.Unlock()
	if !loaded {
		return nil
	}

	if c.fullscreen.Element() == domain.FullscreenNone {
		return c.fullscreen.Request(domain.FullscreenSurface)
	}
	return c.fullscreen.Exit()
}

// ExitFullscreen leaves fullscreen only when the surface is the fullscreen
// element. It reports whether it acted.
func (c *ViewerController) ExitFullscreen() bool {
	if c.fullscreen.Element() != domain.FullscreenSurface {
		return false
	}
	if err := c.fullscreen.Exit(); err != nil {
		c.logger.Warn("Failed to exit fullscreen", "error", err)
		return false
	}
	return true
}

// Close unloads the live document and returns to the upload prompt.
// It reports whether there was a document to close.
func (c *ViewerController) Close() bool {
	c.mu.Lock()
	c.loadSeq++
	if c.live == nil {
		c.mu.Unlock()
		return false
	}
	name := c.live.name
	c.retire(c.live)
	c.live = nil
	c.pageIndex = 0
	c.pageCount = 0
	c.generation++
	c.committed = c.generation
	if c.cancelRender != nil {
		c.cancelRender()
		c.cancelRender = nil
	}
	c.renderDone = nil
	c.canvas.Clear()
	c.display.SetPageIndicator(0, 0)
	c.display.ShowViewer(false)
	c.mu.Unlock()

	c.logger.Info("Document closed", "name", name)
	c.ExitFullscreen()
	return true
}

// Dispose closes the viewer for good and detaches it from the platform
func (c *ViewerController) Dispose() {
	c.Close()
	c.unsubscribe()
}

// Settle blocks until the most recently requested render has finished,
// whether it was committed or abandoned.
func (c *ViewerController) Settle(ctx context.Context) error {
	for {
		c.mu.Lock()
		done := c.renderDone
		c.mu.Unlock()
		if done == nil {
			return nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		c.mu.Lock()
		latest := c.renderDone == done
		c.mu.Unlock()
		if latest {
			return nil
		}
	}
}

// State returns a snapshot of the view state
func (c *ViewerController) State() domain.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := domain.ViewState{
		State:               domain.StateNoDocument,
		Scale:               c.scale,
		Rotation:            c.rotation,
		Fullscreen:          c.isFullscreen,
		Generation:          c.generation,
		CommittedGeneration: c.committed,
	}
	if c.live != nil {
		s.State = domain.StateDocumentLoaded
		s.Document = c.live.name
		s.Title = c.live.doc.Title()
		s.PageIndex = c.pageIndex
		s.PageCount = c.pageCount
	}
	return s
}

// onFullscreenChange reacts to the platform: entering fullscreen on the
// surface fits the page to the viewport width and hides the chrome; leaving
// resets the scale and shows the chrome. The scale is reset even when the
// document was closed while fullscreen.
func (c *ViewerController) onFullscreenChange(change domain.FullscreenChange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entering := change.Element == domain.FullscreenSurface
	wasFullscreen := c.isFullscreen
	c.isFullscreen = entering
	c.display.SetChromeVisible(!entering)

	if entering {
		if !wasFullscreen {
			c.preFullscreenScale = c.scale
		}
		if scale, ok := c.fitWidthScale(change.ViewportWidth); ok {
			c.scale = scale
		}
	} else if wasFullscreen && c.settings.RestoreScaleOnExit {
		c.scale = c.preFullscreenScale
	} else {
		c.scale = c.settings.ClampScale(c.settings.DefaultScale)
	}
	c.logger.Debug("Fullscreen changed", "fullscreen", entering, "scale", c.scale)
	c.renderLocked()
}

// fitWidthScale computes the scale at which the current page, in its current
// rotation, is exactly viewportWidth pixels wide.
func (c *ViewerController) fitWidthScale(viewportWidth int) (float64, bool) {
	if c.live == nil || viewportWidth <= 0 {
		return 0, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.renderTimeout)
	defer cancel()

	page, err := c.live.doc.Page(ctx, c.pageIndex)
	if err != nil {
		c.logger.Warn("Failed to measure page for fullscreen", "page", c.pageIndex, "error", err)
		return 0, false
	}
	base := page.Viewport(1, c.rotation)
	if base.Width <= 0 {
		return 0, false
	}
	return c.settings.ClampScale(float64(viewportWidth) / base.Width), true
}

// renderLocked starts a render of the current page. The caller holds mu.
// Only the newest generation may reach the canvas; the previous render's
// context is cancelled.
func (c *ViewerController) renderLocked() {
	if c.live == nil {
		return
	}
	if c.cancelRender != nil {
		c.cancelRender()
	}
	c.generation++
	gen := c.generation

	ctx, cancel := context.WithTimeout(context.Background(), c.renderTimeout)
	done := make(chan struct{})
	c.cancelRender = cancel
	c.renderDone = done

	c.display.SetPageIndicator(c.pageIndex, c.pageCount)

	live := c.live
	live.inflight.Add(1)
	go c.rasterize(ctx, cancel, done, gen, live, c.pageIndex, c.scale, c.rotation)
}

func (c *ViewerController) rasterize(
	ctx context.Context,
	cancel context.CancelFunc,
	done chan struct{},
	gen uint64,
	live *liveDocument,
	pageIndex int,
	scale float64,
	rotation int,
) {
	defer close(done)
	defer cancel()
	defer live.inflight.Done()

	frame, err := c.draw(ctx, live.doc, pageIndex, scale, rotation)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug("Discarding stale render", "generation", gen, "current", c.generation)
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.logger.Error("Failed to render page", err, "page", pageIndex, "generation", gen)
		c.notifyLocked(domain.NotificationRenderFailure, fmt.Sprintf("page %d could not be displayed", pageIndex))
		return
	}
	c.canvas.Present(frame, gen)
	c.committed = gen
}

func (c *ViewerController) draw(ctx context.Context, doc domain.Document, pageIndex int, scale float64, rotation int) (domain.Surface, error) {
	page, err := doc.Page(ctx, pageIndex)
	if err != nil {
		return nil, err
	}
	viewport := page.Viewport(scale, rotation)
	frame := c.canvas.Acquire()
	frame.Resize(viewport.PixelSize())
	if err := page.RasterizeInto(ctx, frame, viewport); err != nil {
		return nil, err
	}
	return frame, ctx.Err()
}

// retire closes a superseded document once its renders have drained.
// The caller holds mu.
func (c *ViewerController) retire(live *liveDocument) {
	if live == nil {
		return
	}
	go func() {
		live.inflight.Wait()
		if err := live.doc.Close(); err != nil {
			c.logger.Warn("Failed to close document", "name", live.name, "error", err)
		}
	}()
}

func (c *ViewerController) superseded(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return seq != c.loadSeq
}

func (c *ViewerController) notify(kind domain.NotificationKind, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifyLocked(kind, message)
}

func (c *ViewerController) notifyLocked(kind domain.NotificationKind, message string) {
	c.display.Notify(domain.Notification{Kind: kind, Message: message, At: c.now()})
}

func displayName(name string) string {
	if name == "" {
		return "The file"
	}
	return name
}
