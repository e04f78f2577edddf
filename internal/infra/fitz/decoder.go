// Package fitz renders PDF pages with MuPDF through go-fitz.
package fitz

import (
	"context"
	"fmt"
	"sync"

	"pdf-canvas-viewer/internal/domain"

	"github.com/gen2brain/go-fitz"
)

// pointsPerInch is the DPI at which one PDF point maps to one pixel.
const pointsPerInch = 72.0

// Decoder opens PDF bytes with MuPDF
type Decoder struct {
	logger domain.Logger
}

// NewDecoder creates a new go-fitz backed decoder
func NewDecoder(logger domain.Logger) *Decoder {
	return &Decoder{logger: logger}
}

// Decode opens a document from memory. MuPDF cannot be interrupted, so on
// cancellation the open finishes in the background and is closed there.
func (d *Decoder) Decode(ctx context.Context, data []byte) (domain.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	type openResult struct {
		doc *fitz.Document
		err error
	}
	resultCh := make(chan openResult, 1)
	go func() {
		doc, err := fitz.NewFromMemory(data)
		resultCh <- openResult{doc: doc, err: err}
	}()

	var res openResult
	select {
	case res = <-resultCh:
	case <-ctx.Done():
		go func() {
			if late := <-resultCh; late.doc != nil {
				_ = late.doc.Close()
			}
		}()
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", res.err)
	}

	doc := &Document{
		doc:       res.doc,
		pageCount: res.doc.NumPage(),
	}
	if title, ok := res.doc.Metadata()["title"]; ok {
		doc.title = title
	}
	d.logger.Debug("PDF decoded", "pages", doc.pageCount, "bytes", len(data))
	return doc, nil
}

// Document is an open MuPDF document
type Document struct {
	doc       *fitz.Document
	pageCount int
	title     string
	closeOnce sync.Once
	closeErr  error
}

func (d *Document) PageCount() int {
	return d.pageCount
}

func (d *Document) Title() string {
	return d.title
}

// Page looks up a 1-based page and measures it
func (d *Document) Page(ctx context.Context, number int) (domain.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if number < 1 || number > d.pageCount {
		return nil, fmt.Errorf("%w: %d of %d", domain.ErrPageOutOfRange, number, d.pageCount)
	}
	bound, err := d.doc.Bound(number - 1)
	if err != nil {
		return nil, fmt.Errorf("failed to measure page %d: %w", number, err)
	}
	return &Page{
		doc:    d.doc,
		index:  number - 1,
		width:  float64(bound.Dx()),
		height: float64(bound.Dy()),
	}, nil
}

// Close releases the MuPDF document. It is safe to call more than once.
func (d *Document) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.doc.Close()
	})
	return d.closeErr
}

// Page is one page of an open document. Width and height are in points.
type Page struct {
	doc    *fitz.Document
	index  int
	width  float64
	height float64
}

func (p *Page) Viewport(scale float64, rotation int) domain.Viewport {
	return domain.NewViewport(p.width, p.height, scale, rotation)
}

// RasterizeInto renders the page at the viewport's scale, rotates it and
// draws it over the whole surface.
func (p *Page) RasterizeInto(ctx context.Context, surface domain.Surface, viewport domain.Viewport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := p.doc.ImageDPI(p.index, pointsPerInch*viewport.Scale)
	if err != nil {
		return fmt.Errorf("failed to rasterize page %d: %w", p.index+1, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	fitInto(surface.Image(), rotate(img, viewport.Rotation))
	return nil
}
