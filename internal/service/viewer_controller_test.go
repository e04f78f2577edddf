package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pdf-canvas-viewer/internal/domain"
	"pdf-canvas-viewer/internal/infra/host"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePDF = []byte("%PDF-1.7\n%fake\n")

type controllerFixture struct {
	controller *ViewerController
	decoder    *fakeDecoder
	canvas     *recordingCanvas
	display    *host.Display
	fullscreen *host.Fullscreen
}

func newControllerFixture(t *testing.T, settings domain.ViewerSettings, fsOpts ...host.FullscreenOption) *controllerFixture {
	t.Helper()
	f := &controllerFixture{
		decoder:    &fakeDecoder{},
		canvas:     newRecordingCanvas(),
		display:    host.NewDisplay(),
		fullscreen: host.NewFullscreen(fsOpts...),
	}
	f.controller = NewViewerController(f.decoder, f.canvas, f.display, f.fullscreen, settings, NewMockLogger(),
		WithRenderTimeout(5*time.Second))
	t.Cleanup(f.controller.Dispose)
	return f
}

func (f *controllerFixture) load(t *testing.T, doc *fakeDocument) {
	t.Helper()
	f.decoder.push(decodeResult{doc: doc})
	require.NoError(t, f.controller.Load(context.Background(), "doc.pdf", samplePDF, domain.PDFMimeType))
	f.settle(t)
}

func (f *controllerFixture) settle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.controller.Settle(ctx))
}

func waitClosed(t *testing.T, doc *fakeDocument) {
	t.Helper()
	select {
	case <-doc.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("document was never closed")
	}
}

func TestViewerController_NoDocumentIgnoresOperations(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings(), host.WithAutoGrant(1200, 800))
	c := f.controller

	state := c.State()
	assert.Equal(t, domain.StateNoDocument, state.State)
	assert.Equal(t, 1.5, state.Scale)
	assert.Equal(t, 0, state.Rotation)

	assert.False(t, c.GoToPage(1))
	assert.Equal(t, 1.5, c.SetScale(0.2))
	assert.Equal(t, 0, c.Rotate())
	assert.NoError(t, c.ToggleFullscreen())
	assert.False(t, c.ExitFullscreen())
	assert.False(t, c.Close())

	assert.Equal(t, state, c.State())
	assert.Equal(t, domain.FullscreenNone, f.fullscreen.Element())
	assert.Empty(t, f.canvas.presentedGenerations())
}

func TestViewerController_LoadShowsFirstPage(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	doc := newFakeDocument(10)
	doc.title = "Quarterly report"
	f.load(t, doc)

	state := f.controller.State()
	assert.Equal(t, domain.StateDocumentLoaded, state.State)
	assert.Equal(t, 1, state.PageIndex)
	assert.Equal(t, 10, state.PageCount)
	assert.Equal(t, "doc.pdf", state.Document)
	assert.Equal(t, "Quarterly report", state.Title)
	assert.Equal(t, state.Generation, state.CommittedGeneration)
	assert.Equal(t, state.Generation, f.canvas.Generation())

	w, h := f.canvas.Size()
	assert.Equal(t, 900, w)
	assert.Equal(t, 1200, h)

	display := f.display.Snapshot()
	assert.Equal(t, domain.ContainerViewer, display.Container)
	assert.Equal(t, 1, display.CurrentPage)
	assert.Equal(t, 10, display.TotalPages)
	assert.Equal(t, []int{1}, doc.renderedPages())
}

func TestViewerController_Navigation(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	f.load(t, newFakeDocument(10))
	c := f.controller

	t.Run("Next next prev lands on page two", func(t *testing.T) {
		assert.True(t, c.GoToPage(1))
		assert.True(t, c.GoToPage(1))
		assert.True(t, c.GoToPage(-1))
		f.settle(t)
		assert.Equal(t, 2, c.State().PageIndex)
		assert.Equal(t, 2, f.display.Snapshot().CurrentPage)
	})

	t.Run("Previous on first page is a no-op", func(t *testing.T) {
		c.GoToPage(-1)
		f.settle(t)
		before := c.State()
		require.Equal(t, 1, before.PageIndex)

		assert.False(t, c.GoToPage(-1))
		assert.Equal(t, before, c.State())
	})

	t.Run("Next on last page is a no-op", func(t *testing.T) {
		for c.GoToPage(1) {
		}
		f.settle(t)
		before := c.State()
		require.Equal(t, 10, before.PageIndex)

		assert.False(t, c.GoToPage(1))
		assert.Equal(t, before, c.State())
	})

	t.Run("Prev then next returns to the same page", func(t *testing.T) {
		for page := 9; page >= 2; page-- {
			require.True(t, c.GoToPage(-1))
			require.Equal(t, page, c.State().PageIndex)
			require.True(t, c.GoToPage(-1))
			require.True(t, c.GoToPage(1))
			assert.Equal(t, page, c.State().PageIndex)
		}
	})
}

func TestViewerController_ZoomIsClamped(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	small := newFakeDocument(1)
	small.width, small.height = 6, 8
	f.load(t, small)
	c := f.controller

	for i := 0; i < 5; i++ {
		c.SetScale(0.2)
	}
	assert.Equal(t, 2.5, c.State().Scale)
	for i := 0; i < 5; i++ {
		c.SetScale(-0.2)
	}
	assert.Equal(t, 1.5, c.State().Scale)

	for i := 0; i < 20; i++ {
		c.SetScale(-0.2)
	}
	assert.Equal(t, 0.1, c.State().Scale)

	for i := 0; i < 100; i++ {
		c.SetScale(0.2)
	}
	assert.Equal(t, 10.0, c.State().Scale)

	f.settle(t)
	w, h := f.canvas.Size()
	assert.Equal(t, 60, w)
	assert.Equal(t, 80, h)
}

func TestViewerController_RotateCycles(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	f.load(t, newFakeDocument(1))
	c := f.controller

	assert.Equal(t, 90, c.Rotate())
	f.settle(t)
	w, h := f.canvas.Size()
	assert.Equal(t, 1200, w)
	assert.Equal(t, 900, h)

	assert.Equal(t, 180, c.Rotate())
	assert.Equal(t, 270, c.Rotate())
	assert.Equal(t, 0, c.Rotate())
	f.settle(t)
	w, h = f.canvas.Size()
	assert.Equal(t, 900, w)
	assert.Equal(t, 1200, h)
}

func TestViewerController_SecondLoadKeepsScaleAndRotation(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	first := newFakeDocument(10)
	f.load(t, first)
	c := f.controller

	c.GoToPage(1)
	c.SetScale(0.2)
	c.Rotate()

	second := newFakeDocument(3)
	f.load(t, second)

	state := c.State()
	assert.Equal(t, 1, state.PageIndex)
	assert.Equal(t, 3, state.PageCount)
	assert.Equal(t, 1.7, state.Scale)
	assert.Equal(t, 90, state.Rotation)
	waitClosed(t, first)

	select {
	case <-second.closed:
		t.Fatal("live document was closed")
	default:
	}
}

func TestViewerController_RejectsNonPDF(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	f.load(t, newFakeDocument(4))
	c := f.controller
	c.GoToPage(1)
	f.settle(t)
	before := c.State()

	err := c.Load(context.Background(), "notes.txt", []byte("hello"), "text/plain")
	assert.True(t, errors.Is(err, domain.ErrInvalidInputType))
	assert.Equal(t, before, c.State())
	assert.Equal(t, 1, f.decoder.callCount())

	notification := f.display.Snapshot().Notification
	require.NotNil(t, notification)
	assert.Equal(t, domain.NotificationInvalidInput, notification.Kind)
	assert.Contains(t, notification.Message, "notes.txt")
}

func TestViewerController_DecodeFailureKeepsState(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	live := newFakeDocument(4)
	f.load(t, live)
	c := f.controller
	before := c.State()

	corrupt := errors.New("no xref table")
	f.decoder.push(decodeResult{err: corrupt})
	err := c.Load(context.Background(), "broken.pdf", samplePDF, domain.PDFMimeType)

	assert.True(t, errors.Is(err, domain.ErrDecodeFailure))
	assert.True(t, errors.Is(err, corrupt))
	assert.Equal(t, before, c.State())

	notification := f.display.Snapshot().Notification
	require.NotNil(t, notification)
	assert.Equal(t, domain.NotificationDecodeFailure, notification.Kind)

	select {
	case <-live.closed:
		t.Fatal("live document was closed by a failed load")
	default:
	}
}

func TestViewerController_AbandonedLoadIsNotADecodeFailure(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	c := f.controller

	ctx, cancel := context.WithCancel(context.Background())
	f.decoder.push(decodeResult{doc: newFakeDocument(1), gate: make(chan struct{})})
	loadErr := make(chan error, 1)
	go func() {
		loadErr <- c.Load(ctx, "big.pdf", samplePDF, domain.PDFMimeType)
	}()
	require.Eventually(t, func() bool { return f.decoder.callCount() == 1 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-loadErr:
		assert.True(t, errors.Is(err, context.Canceled))
		assert.False(t, errors.Is(err, domain.ErrDecodeFailure))
	case <-time.After(5 * time.Second):
		t.Fatal("load never returned")
	}
	assert.Nil(t, f.display.Snapshot().Notification)
	assert.Equal(t, domain.StateNoDocument, c.State().State)
}

func TestViewerController_EmptyDocumentIsADecodeFailure(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	empty := newFakeDocument(0)
	f.decoder.push(decodeResult{doc: empty})

	err := f.controller.Load(context.Background(), "empty.pdf", samplePDF, domain.PDFMimeType)
	assert.True(t, errors.Is(err, domain.ErrDecodeFailure))
	assert.True(t, errors.Is(err, domain.ErrEmptyDocument))
	assert.Equal(t, domain.StateNoDocument, f.controller.State().State)
	waitClosed(t, empty)
}

func TestViewerController_FullscreenFitsWidth(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings(), host.WithAutoGrant(1200, 800))
	f.load(t, newFakeDocument(2))
	c := f.controller

	require.NoError(t, c.ToggleFullscreen())
	f.settle(t)

	state := c.State()
	assert.True(t, state.Fullscreen)
	assert.Equal(t, 2.0, state.Scale)
	assert.False(t, f.display.Snapshot().ChromeVisible)
	w, _ := f.canvas.Size()
	assert.Equal(t, 1200, w)

	require.NoError(t, c.ToggleFullscreen())
	f.settle(t)

	state = c.State()
	assert.False(t, state.Fullscreen)
	assert.Equal(t, 1.5, state.Scale)
	assert.True(t, f.display.Snapshot().ChromeVisible)
	w, _ = f.canvas.Size()
	assert.Equal(t, 900, w)
}

func TestViewerController_FullscreenFitUsesRotatedWidth(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings(), host.WithAutoGrant(1200, 800))
	f.load(t, newFakeDocument(1))
	c := f.controller
	c.Rotate()

	require.NoError(t, c.ToggleFullscreen())
	f.settle(t)

	assert.Equal(t, 1.5, c.State().Scale)
	w, h := f.canvas.Size()
	assert.Equal(t, 1200, w)
	assert.Equal(t, 900, h)
}

func TestViewerController_RestoreScaleOnExit(t *testing.T) {
	settings := domain.DefaultViewerSettings()
	settings.RestoreScaleOnExit = true
	f := newControllerFixture(t, settings, host.WithAutoGrant(1200, 800))
	f.load(t, newFakeDocument(1))
	c := f.controller

	c.SetScale(0.2)
	require.NoError(t, c.ToggleFullscreen())
	assert.Equal(t, 2.0, c.State().Scale)

	assert.True(t, c.ExitFullscreen())
	assert.Equal(t, 1.7, c.State().Scale)
}

func TestViewerController_FullscreenThroughShell(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	f.load(t, newFakeDocument(1))
	c := f.controller

	require.NoError(t, c.ToggleFullscreen())
	assert.False(t, c.State().Fullscreen)
	assert.Equal(t, []domain.FullscreenDirective{{Action: domain.DirectiveRequest, Target: domain.FullscreenSurface}},
		f.fullscreen.Directives())

	f.fullscreen.Notify(domain.FullscreenChange{Element: domain.FullscreenSurface, ViewportWidth: 1800, ViewportHeight: 1000})
	assert.True(t, c.State().Fullscreen)
	assert.Equal(t, 3.0, c.State().Scale)

	assert.True(t, c.ExitFullscreen())
	assert.Equal(t, []domain.FullscreenDirective{{Action: domain.DirectiveExit}}, f.fullscreen.Directives())

	// The user left fullscreen with the browser's own Escape handling
	f.fullscreen.Notify(domain.FullscreenChange{Element: domain.FullscreenNone})
	assert.False(t, c.State().Fullscreen)
	assert.Equal(t, 1.5, c.State().Scale)
	assert.False(t, c.ExitFullscreen())
}

func TestViewerController_StaleRenderIsNeverPresented(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	doc := newFakeDocument(3)
	gate := make(chan struct{})
	doc.gates[2] = gate
	f.load(t, doc)
	c := f.controller
	first := c.State().Generation

	require.True(t, c.GoToPage(1))
	require.True(t, c.GoToPage(1))
	f.settle(t)
	latest := c.State().Generation

	close(gate)
	require.True(t, c.Close())
	waitClosed(t, doc)

	assert.Equal(t, []uint64{first, latest}, f.canvas.presentedGenerations())
	// Page 2 finished rasterizing but lost the race to page 3
	assert.ElementsMatch(t, []int{1, 2, 3}, doc.renderedPages())
}

func TestViewerController_OverlappingLoads(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	c := f.controller

	slow := newFakeDocument(5)
	fast := newFakeDocument(2)
	gate := make(chan struct{})
	f.decoder.push(decodeResult{doc: slow, gate: gate}, decodeResult{doc: fast})

	slowErr := make(chan error, 1)
	go func() {
		slowErr <- c.Load(context.Background(), "slow.pdf", samplePDF, domain.PDFMimeType)
	}()
	require.Eventually(t, func() bool { return f.decoder.callCount() == 1 }, 5*time.Second, time.Millisecond)

	require.NoError(t, c.Load(context.Background(), "fast.pdf", samplePDF, domain.PDFMimeType))
	close(gate)

	select {
	case err := <-slowErr:
		assert.True(t, errors.Is(err, domain.ErrLoadSuperseded))
	case <-time.After(5 * time.Second):
		t.Fatal("slow load never returned")
	}
	waitClosed(t, slow)

	f.settle(t)
	state := c.State()
	assert.Equal(t, "fast.pdf", state.Document)
	assert.Equal(t, 2, state.PageCount)
}

func TestViewerController_CloseReturnsToUpload(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings(), host.WithAutoGrant(1200, 800))
	doc := newFakeDocument(3)
	f.load(t, doc)
	c := f.controller
	require.NoError(t, c.ToggleFullscreen())
	f.settle(t)

	assert.True(t, c.Close())
	waitClosed(t, doc)

	state := c.State()
	assert.Equal(t, domain.StateNoDocument, state.State)
	assert.False(t, state.Fullscreen)
	assert.Equal(t, 1.5, state.Scale)
	assert.Equal(t, domain.FullscreenNone, f.fullscreen.Element())

	display := f.display.Snapshot()
	assert.Equal(t, domain.ContainerUpload, display.Container)
	assert.True(t, display.ChromeVisible)
	assert.Equal(t, 0, display.TotalPages)
	w, h := f.canvas.Size()
	assert.Zero(t, w)
	assert.Zero(t, h)

	assert.False(t, c.Close())

	f.load(t, newFakeDocument(1))
	assert.Equal(t, 1.5, c.State().Scale)
	w, _ = f.canvas.Size()
	assert.Equal(t, 900, w)
}

func TestViewerController_CloseWhileShellFullscreen(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	f.load(t, newFakeDocument(1))
	c := f.controller

	require.NoError(t, c.ToggleFullscreen())
	f.fullscreen.Directives()
	f.fullscreen.Notify(domain.FullscreenChange{Element: domain.FullscreenSurface, ViewportWidth: 1800, ViewportHeight: 1000})
	f.settle(t)
	require.Equal(t, 3.0, c.State().Scale)

	require.True(t, c.Close())
	assert.Equal(t, []domain.FullscreenDirective{{Action: domain.DirectiveExit}}, f.fullscreen.Directives())

	// The shell reports the exit after the document is gone
	f.fullscreen.Notify(domain.FullscreenChange{Element: domain.FullscreenNone})
	state := c.State()
	assert.False(t, state.Fullscreen)
	assert.Equal(t, 1.5, state.Scale)

	f.load(t, newFakeDocument(1))
	w, _ := f.canvas.Size()
	assert.Equal(t, 900, w)
}

func TestViewerController_RenderFailureIsReported(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	doc := newFakeDocument(2)
	doc.failing[2] = errors.New("bad content stream")
	f.load(t, doc)
	c := f.controller
	committed := c.State().CommittedGeneration

	require.True(t, c.GoToPage(1))
	f.settle(t)

	state := c.State()
	assert.Equal(t, 2, state.PageIndex)
	assert.Equal(t, committed, state.CommittedGeneration)
	assert.Less(t, state.CommittedGeneration, state.Generation)

	notification := f.display.Snapshot().Notification
	require.NotNil(t, notification)
	assert.Equal(t, domain.NotificationRenderFailure, notification.Kind)
	assert.Contains(t, notification.Message, "page 2")
}

func TestViewerController_SettleHonoursContext(t *testing.T) {
	f := newControllerFixture(t, domain.DefaultViewerSettings())
	doc := newFakeDocument(2)
	gate := make(chan struct{})
	doc.gates[2] = gate
	f.load(t, doc)
	defer close(gate)

	f.controller.GoToPage(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.controller.Settle(ctx), context.DeadlineExceeded)
}
