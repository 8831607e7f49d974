package model

import (
	"fmt"
	"image"
)

// BoundingBox is an axis-aligned box in (x, y, width, height) form.
// This is the only box representation used inside the tracker; corner form
// only appears at the detector and drawing boundaries.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromCorners converts (x1, y1, x2, y2) corner form into a BoundingBox.
// Inverted corners are swapped so width and height are never negative.
func FromCorners(x1, y1, x2, y2 int) BoundingBox {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return BoundingBox{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// FromRect converts an image.Rectangle (as used by gocv) into a BoundingBox.
func FromRect(r image.Rectangle) BoundingBox {
	r = r.Canon()
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Corners returns the box in (x1, y1, x2, y2) form.
func (b BoundingBox) Corners() (x1, y1, x2, y2 int) {
	return b.X, b.Y, b.X + b.Width, b.Y + b.Height
}

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	x1, y1, x2, y2 := b.Corners()
	return image.Rect(x1, y1, x2, y2)
}

// Valid reports whether width and height are non-negative.
func (b BoundingBox) Valid() bool {
	return b.Width >= 0 && b.Height >= 0
}

// Empty reports whether the box covers no area.
func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d)", b.X, b.Y, b.Width, b.Height)
}
