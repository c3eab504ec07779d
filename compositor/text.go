package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// drawText renders t centred in a w by h box and returns the clip part of it.
// Lines split on newlines and the block is centred vertically, matching the
// editor's flex layout.
func (c *Compositor) drawText(t core.TextLayer, w, h int, clip image.Rectangle, scale float64) (*image.NRGBA, error) {
	box := imaging.New(clip.Dx(), clip.Dy(), color.Transparent)
	if strings.TrimSpace(t.Text) == "" {
		return box, nil
	}

	col, err := parseColor(t.Color)
	if err != nil {
		return nil, err
	}
	size := float64(t.FontSize)
	if size <= 0 {
		size = 16
	}
	size = math.Min(math.Max(size, core.MinFontSize), core.MaxFontSize)
	face, err := c.fonts.Face(t.FontFamily, size*scale)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	metrics := face.Metrics()
	lineHeight := metrics.Height
	lines := strings.Split(t.Text, "\n")
	block := lineHeight * fixed.Int26_6(len(lines))
	top := (fixed.I(h)-block)/2 - fixed.I(clip.Min.Y)

	d := &font.Drawer{Dst: box, Src: image.NewUniform(col), Face: face}
	for i, line := range lines {
		width := d.MeasureString(line)
		d.Dot = fixed.Point26_6{
			X: (fixed.I(w)-width)/2 - fixed.I(clip.Min.X),
			Y: top + lineHeight*fixed.Int26_6(i) + metrics.Ascent,
		}
		d.DrawString(line)
	}
	return box, nil
}

// parseColor reads a #rgb or #rrggbb colour.
func parseColor(s string) (color.NRGBA, error) {
	if !core.IsHexColor(s) {
		return color.NRGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, err
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
