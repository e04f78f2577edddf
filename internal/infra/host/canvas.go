// Package host provides in-process implementations of the viewer's host UI:
// the drawing surface, the display chrome and the fullscreen platform.
package host

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"sync"

	"pdf-canvas-viewer/internal/domain"
)

// Frame is an off-screen RGBA surface.
type Frame struct {
	img *image.RGBA
}

// NewFrame creates an empty frame
func NewFrame() *Frame {
	return &Frame{img: image.NewRGBA(image.Rectangle{})}
}

// Resize reallocates the frame. Like a canvas, resizing clears its pixels.
func (f *Frame) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	f.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Size returns the frame's pixel dimensions
func (f *Frame) Size() (int, int) {
	b := f.img.Bounds()
	return b.Dx(), b.Dy()
}

// Image exposes the frame's pixels for drawing
func (f *Frame) Image() draw.Image {
	return f.img
}

// Canvas is the visible drawing surface, double buffered through frames.
type Canvas struct {
	mu         sync.RWMutex
	front      image.Image
	generation uint64
}

// NewCanvas creates a blank canvas
func NewCanvas() *Canvas {
	return &Canvas{front: image.NewRGBA(image.Rectangle{})}
}

// Acquire hands out a fresh off-screen frame
func (c *Canvas) Acquire() domain.Surface {
	return NewFrame()
}

// Present swaps a finished frame in as the visible image
func (c *Canvas) Present(frame domain.Surface, generation uint64) {
	img := frame.Image()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.front = img
	c.generation = generation
}

// Clear blanks the canvas
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.front = image.NewRGBA(image.Rectangle{})
	c.generation = 0
}

// Generation returns the render generation currently shown, 0 for none
func (c *Canvas) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Size returns the visible image's pixel dimensions
func (c *Canvas) Size() (int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b := c.front.Bounds()
	return b.Dx(), b.Dy()
}

// EncodePNG writes the visible image as PNG
func (c *Canvas) EncodePNG(w io.Writer) error {
	c.mu.RLock()
	img := c.front
	c.mu.RUnlock()

	if img.Bounds().Empty() {
		return fmt.Errorf("canvas is empty")
	}
	return png.Encode(w, img)
}
