package fitz

import (
	"image"

	"pdf-canvas-viewer/internal/domain"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// rotate turns src clockwise by a multiple of 90 degrees.
func rotate(src image.Image, degrees int) image.Image {
	degrees = domain.NormalizeRotation(degrees)
	if degrees == 0 {
		return src
	}

	b := src.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	minX, minY := float64(b.Min.X), float64(b.Min.Y)

	var dst *image.RGBA
	var s2d f64.Aff3
	switch degrees {
	case 90:
		// (x, y) -> (h - y, x)
		dst = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
		s2d = f64.Aff3{0, -1, h + minY, 1, 0, -minX}
	case 180:
		// (x, y) -> (w - x, h - y)
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		s2d = f64.Aff3{-1, 0, w + minX, 0, -1, h + minY}
	case 270:
		// (x, y) -> (y, w - x)
		dst = image.NewRGBA(image.Rect(0, 0, b.Dy(), b.Dx()))
		s2d = f64.Aff3{0, 1, -minY, -1, 0, w + minX}
	}
	draw.NearestNeighbor.Transform(dst, s2d, src, b, draw.Src, nil)
	return dst
}

// fitInto covers dst with src, resampling when MuPDF's pixel size is off by
// rounding from the viewport.
func fitInto(dst draw.Image, src image.Image) {
	if dst.Bounds().Size() == src.Bounds().Size() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
		return
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
}
