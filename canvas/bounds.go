package canvas

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Pabi691/custom-clothology/core"
)

// ErrOutOfBounds wraps every rejected layer attribute.
var ErrOutOfBounds = errors.New("layer attribute out of bounds")

// Zoom bounds for image layers.
const (
	MinZoom = 0.1
	MaxZoom = 10
)

// CheckLayer validates a whole layer against the layout: the origin lies in
// the printable area, the box fits the garment canvas and the variant's
// attributes are renderable.
func (l Layout) CheckLayer(layer core.Layer) error {
	f := layer.LayerFrame()
	p := core.LayerPatch{X: &f.X, Y: &f.Y, Width: &f.Width, Height: &f.Height, Rotation: &f.Rotation}
	switch v := layer.(type) {
	case core.TextLayer:
		p.FontFamily, p.FontSize, p.Color = &v.FontFamily, &v.FontSize, &v.Color
	case core.ImageLayer:
		p.Src, p.Zoom, p.OffsetX, p.OffsetY = &v.Src, &v.Zoom, &v.OffsetX, &v.OffsetY
	}
	return l.CheckPatch(p)
}

// CheckPatch validates the fields a patch carries. Absent fields are not
// checked.
func (l Layout) CheckPatch(p core.LayerPatch) error {
	checks := []struct {
		name   string
		v      *float64
		lo, hi float64
	}{
		{"x", p.X, 0, l.Printable.Width},
		{"y", p.Y, 0, l.Printable.Height},
		{"width", p.Width, 1, l.Width},
		{"height", p.Height, 1, l.Height},
		{"rotation", p.Rotation, -360, 360},
		{"zoom", p.Zoom, MinZoom, MaxZoom},
		{"offsetX", p.OffsetX, -l.Width, l.Width},
		{"offsetY", p.OffsetY, -l.Height, l.Height},
	}
	for _, c := range checks {
		if c.v == nil {
			continue
		}
		if !inRange(*c.v, c.lo, c.hi) {
			return fmt.Errorf("%w: %s must be between %g and %g", ErrOutOfBounds, c.name, c.lo, c.hi)
		}
	}

	if p.FontFamily != nil && !core.IsFontFamily(*p.FontFamily) {
		return fmt.Errorf("%w: unknown font family %q", ErrOutOfBounds, *p.FontFamily)
	}
	if p.FontSize != nil && (*p.FontSize < core.MinFontSize || *p.FontSize > core.MaxFontSize) {
		return fmt.Errorf("%w: fontSize must be between %d and %d", ErrOutOfBounds, core.MinFontSize, core.MaxFontSize)
	}
	if p.Color != nil && !core.IsHexColor(*p.Color) {
		return fmt.Errorf("%w: color must be a hex value", ErrOutOfBounds)
	}
	if p.Src != nil && !isImageSource(*p.Src) {
		return fmt.Errorf("%w: src must be a data URI or an http(s) URL", ErrOutOfBounds)
	}
	return nil
}

// CheckData validates a creation request by checking the layer it produces.
func (l Layout) CheckData(data core.LayerData) error {
	return l.CheckLayer(data.NewLayer(""))
}

// CheckFinite rejects NaN and infinite gesture coordinates.
func CheckFinite(vs ...float64) error {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: coordinates must be finite", ErrOutOfBounds)
		}
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

func isImageSource(src string) bool {
	return core.IsDataURI(src) || strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}
