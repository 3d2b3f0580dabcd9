// Package geometry converts between editing space (pointer coordinates,
// origin top-left, scaled by the view zoom) and PDF space (points, origin
// bottom-left, zoom independent), and quantizes coordinates to a grid.
package geometry

import (
	pdferrors "github.com/a3tai/mcp-pdf-forms/internal/pdf/errors"
)

// ZoomLevels are the view zoom presets offered to editors
var ZoomLevels = []float64{1, 1.5, 2}

// Point is a coordinate pair
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the extent of a page or field in points
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ToFieldSpace converts a pointer position on page pageIndex (1-based) into
// the PDF-space origin of a field of the given height. The pointer is
// unscaled by zoom and flipped vertically; no rounding is applied.
func ToFieldSpace(pointer Point, pageIndex int, zoom float64, pages []Size, fieldHeight float64) (Point, error) {
	page, err := pageSize(pageIndex, zoom, pages)
	if err != nil {
		return Point{}, err
	}

	editingX := pointer.X / zoom
	editingY := pointer.Y / zoom

	return Point{
		X: editingX,
		Y: page.Height - editingY - fieldHeight,
	}, nil
}

// ToScreenSpace is the inverse of ToFieldSpace: it returns the pointer
// position at which a field stored at p is drawn for the given zoom.
func ToScreenSpace(p Point, pageIndex int, zoom float64, pages []Size, fieldHeight float64) (Point, error) {
	page, err := pageSize(pageIndex, zoom, pages)
	if err != nil {
		return Point{}, err
	}

	return Point{
		X: p.X * zoom,
		Y: (page.Height - p.Y - fieldHeight) * zoom,
	}, nil
}

// Unscale converts a pointer position to unscaled editing space
func Unscale(pointer Point, zoom float64) (Point, error) {
	if zoom <= 0 {
		return Point{}, pdferrors.Newf(pdferrors.ErrorTypeOutOfRange, "zoom factor must be positive, got %g", zoom)
	}
	return Point{X: pointer.X / zoom, Y: pointer.Y / zoom}, nil
}

// FlipY converts an unscaled editing-space Y into the PDF-space Y of a field
// of the given height on a page of the given height.
func FlipY(editingY, pageHeight, fieldHeight float64) float64 {
	return pageHeight - editingY - fieldHeight
}

// ClampPage limits page to [1, total]
func ClampPage(page, total int) int {
	if total < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

func pageSize(pageIndex int, zoom float64, pages []Size) (Size, error) {
	if zoom <= 0 {
		return Size{}, pdferrors.Newf(pdferrors.ErrorTypeOutOfRange, "zoom factor must be positive, got %g", zoom)
	}
	if pageIndex < 1 || pageIndex > len(pages) {
		return Size{}, pdferrors.Newf(pdferrors.ErrorTypeOutOfRange,
			"page %d outside document (1-%d)", pageIndex, len(pages)).WithPage(pageIndex)
	}
	return pages[pageIndex-1], nil
}
