package domain

import (
	"math"
	"strings"
)

// PDFMimeType is the only MIME type the viewer accepts.
const PDFMimeType = "application/pdf"

// IsPDFMimeType reports whether a declared MIME type names a PDF.
// Parameters and case are ignored.
func IsPDFMimeType(mimeType string) bool {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.EqualFold(strings.TrimSpace(base), PDFMimeType)
}

// NormalizeRotation wraps degrees into [0, 360) and snaps to a multiple of 90.
func NormalizeRotation(degrees int) int {
	degrees = ((degrees % 360) + 360) % 360
	return degrees - degrees%90
}

// Viewport is the size a page occupies at a given scale and rotation.
// Width and Height are in pixels before rounding.
type Viewport struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Scale    float64 `json:"scale"`
	Rotation int     `json:"rotation"`
}

// NewViewport computes the viewport of a page measured in points (1/72 inch).
// Quarter turns swap the page's width and height.
func NewViewport(pageWidth, pageHeight, scale float64, rotation int) Viewport {
	rotation = NormalizeRotation(rotation)
	w, h := pageWidth*scale, pageHeight*scale
	if rotation == 90 || rotation == 270 {
		w, h = h, w
	}
	return Viewport{Width: w, Height: h, Scale: scale, Rotation: rotation}
}

// PixelSize returns the surface dimensions for the viewport, at least 1x1.
func (v Viewport) PixelSize() (int, int) {
	w := int(math.Round(v.Width))
	h := int(math.Round(v.Height))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
