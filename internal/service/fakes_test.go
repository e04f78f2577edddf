package service

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"pdf-canvas-viewer/internal/domain"
	"pdf-canvas-viewer/internal/infra/host"
)

// Mock implementations for testing

type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) record(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *MockLogger) Info(msg string, args ...interface{})             { m.record(msg) }
func (m *MockLogger) Error(msg string, err error, args ...interface{}) { m.record(msg) }
func (m *MockLogger) Debug(msg string, args ...interface{})            { m.record(msg) }
func (m *MockLogger) Warn(msg string, args ...interface{})             { m.record(msg) }

// fakeDocument is an in-memory document whose pages are width x height points.
type fakeDocument struct {
	pages  int
	width  float64
	height float64
	title  string

	// gates hold back the render of a page until closed
	gates map[int]chan struct{}
	// failing pages return an error from RasterizeInto
	failing map[int]error

	mu        sync.Mutex
	rendered  []int
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeDocument(pages int) *fakeDocument {
	return &fakeDocument{
		pages:   pages,
		width:   600,
		height:  800,
		gates:   make(map[int]chan struct{}),
		failing: make(map[int]error),
		closed:  make(chan struct{}),
	}
}

func (d *fakeDocument) PageCount() int { return d.pages }
func (d *fakeDocument) Title() string  { return d.title }

func (d *fakeDocument) Page(ctx context.Context, number int) (domain.Page, error) {
	if number < 1 || number > d.pages {
		return nil, domain.ErrPageOutOfRange
	}
	return &fakePage{doc: d, number: number}, nil
}

func (d *fakeDocument) Close() error {
	d.closeOnce.Do(func() { close(d.closed) })
	return nil
}

func (d *fakeDocument) renderedPages() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.rendered...)
}

type fakePage struct {
	doc    *fakeDocument
	number int
}

func (p *fakePage) Viewport(scale float64, rotation int) domain.Viewport {
	return domain.NewViewport(p.doc.width, p.doc.height, scale, rotation)
}

func (p *fakePage) RasterizeInto(ctx context.Context, surface domain.Surface, viewport domain.Viewport) error {
	if gate := p.doc.gates[p.number]; gate != nil {
		<-gate
	}
	if err := p.doc.failing[p.number]; err != nil {
		return err
	}
	p.doc.mu.Lock()
	p.doc.rendered = append(p.doc.rendered, p.number)
	p.doc.mu.Unlock()

	shade := uint8(p.number * 20)
	img := surface.Image()
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: shade, A: 255}), image.Point{}, draw.Src)
	return nil
}

type decodeResult struct {
	doc  *fakeDocument
	err  error
	gate chan struct{}
}

// fakeDecoder hands out queued results in order.
type fakeDecoder struct {
	mu    sync.Mutex
	queue []decodeResult
	calls int
}

func (d *fakeDecoder) push(results ...decodeResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, results...)
}

func (d *fakeDecoder) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *fakeDecoder) Decode(ctx context.Context, data []byte) (domain.Document, error) {
	d.mu.Lock()
	d.calls++
	res := decodeResult{doc: newFakeDocument(1)}
	if len(d.queue) > 0 {
		res = d.queue[0]
		d.queue = d.queue[1:]
	}
	d.mu.Unlock()

	if res.gate != nil {
		select {
		case <-res.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if res.err != nil {
		return nil, res.err
	}
	return res.doc, nil
}

// recordingCanvas remembers every generation presented.
type recordingCanvas struct {
	*host.Canvas
	mu        sync.Mutex
	presented []uint64
}

func newRecordingCanvas() *recordingCanvas {
	return &recordingCanvas{Canvas: host.NewCanvas()}
}

func (c *recordingCanvas) Present(frame domain.Surface, generation uint64) {
	c.mu.Lock()
	c.presented = append(c.presented, generation)
	c.mu.Unlock()
	c.Canvas.Present(frame, generation)
}

func (c *recordingCanvas) presentedGenerations() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.presented...)
}
