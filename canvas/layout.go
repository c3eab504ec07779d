// Package canvas maps layer geometry between the printable area and the
// garment canvas, and clamps drag and resize gestures.
package canvas

import (
	"math"

	"github.com/Pabi691/custom-clothology/core"
)

// Rect is an axis-aligned rectangle in design pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scale multiplies every component by k.
func (r Rect) Scale(k float64) Rect {
	return Rect{X: r.X * k, Y: r.Y * k, Width: r.Width * k, Height: r.Height * k}
}

// Max returns the bottom-right corner.
func (r Rect) Max() (float64, float64) {
	return r.X + r.Width, r.Y + r.Height
}

// Layout describes the garment canvas and the printable inset inside it.
type Layout struct {
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Printable Rect    `json:"printable"`
}

// Garment canvas size in design pixels.
const (
	CanvasWidth  = 500
	CanvasHeight = 600
)

// NewLayout builds a layout whose printable area is placed by fractions of
// the canvas: top offset, width and height, horizontally centred.
func NewLayout(width, height, top, w, h float64) Layout {
	pw, ph := width*w, height*h
	return Layout{
		Width:  width,
		Height: height,
		Printable: Rect{
			X:      (width - pw) / 2,
			Y:      height * top,
			Width:  pw,
			Height: ph,
		},
	}
}

// Default is the 500x600 canvas with the printable area 20% from the top,
// 35% wide and 40% high.
var Default = NewLayout(CanvasWidth, CanvasHeight, 0.20, 0.35, 0.40)

// ToCanvas converts a layer frame to canvas coordinates.
func (l Layout) ToCanvas(f core.Frame) Rect {
	return Rect{
		X:      l.Printable.X + f.X,
		Y:      l.Printable.Y + f.Y,
		Width:  f.Width,
		Height: f.Height,
	}
}

// ToLocal converts a canvas point to printable-area local coordinates.
func (l Layout) ToLocal(x, y float64) (float64, float64) {
	return x - l.Printable.X, y - l.Printable.Y
}

// ClampDrag moves f to (x, y) keeping the whole box inside the printable
// area. A box larger than the area is pinned at the area's origin on that
// axis.
func (l Layout) ClampDrag(f core.Frame, x, y float64) core.Frame {
	f.X = clamp(x, 0, math.Max(0, l.Printable.Width-f.Width))
	f.Y = clamp(y, 0, math.Max(0, l.Printable.Height-f.Height))
	return f
}

// ClampResize applies a resize gesture producing the box (x, y, w, h). The
// origin is kept inside the area, then the size is clamped so the box does
// not cross its far edges. Sizes never drop below one pixel.
func (l Layout) ClampResize(f core.Frame, x, y, w, h float64) core.Frame {
	f.X = clamp(x, 0, math.Max(0, l.Printable.Width-1))
	f.Y = clamp(y, 0, math.Max(0, l.Printable.Height-1))
	f.Width = clamp(w, 1, math.Max(1, l.Printable.Width-f.X))
	f.Height = clamp(h, 1, math.Max(1, l.Printable.Height-f.Y))
	return f
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}
