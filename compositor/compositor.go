// Package compositor rasterizes one side of a design into a PNG. It renders
// off-screen from a snapshot and an explicit side, so capturing never changes
// which side the editor shows.
package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/Pabi691/custom-clothology/canvas"
	"github.com/Pabi691/custom-clothology/core"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/sync/errgroup"
)

// ErrCapture wraps every capture failure. Callers must not submit anything
// downstream when they see it.
var ErrCapture = errors.New("capture failed")

// DefaultScale is the supersampling factor. Lower values are raised to it.
const DefaultScale = 2

// Region selects the part of the canvas that is rasterized.
type Region string

const (
	// RegionCanvas is the whole garment with the design on it.
	RegionCanvas Region = "canvas"
	// RegionPrintable is the design area alone on a transparent background.
	RegionPrintable Region = "printable"
)

// ParseRegion converts a query value into a Region. Empty means canvas.
func ParseRegion(s string) (Region, error) {
	switch Region(s) {
	case "", RegionCanvas:
		return RegionCanvas, nil
	case RegionPrintable:
		return RegionPrintable, nil
	default:
		return "", fmt.Errorf("unknown region %q", s)
	}
}

type (
	// Options controls a single capture.
	Options struct {
		Scale   float64
		Region  Region
		Garment string // base image source for the side, may be empty
	}

	// Capture is the result of rasterizing a side.
	Capture struct {
		Side    core.Side `json:"side"`
		DataURI string    `json:"dataUri"`
		Width   int       `json:"width"`
		Height  int       `json:"height"`
		PNG     []byte    `json:"-"`
	}
)

// Compositor renders snapshots. It holds no document state.
type Compositor struct {
	layout canvas.Layout
	loader *Loader
	fonts  *Fonts
	scale  float64
}

// New creates a compositor. Scales below DefaultScale are raised to it.
func New(layout canvas.Layout, loader *Loader, fonts *Fonts, scale float64) *Compositor {
	return &Compositor{
		layout: layout,
		loader: loader,
		fonts:  fonts,
		scale:  math.Max(scale, DefaultScale),
	}
}

// Capture rasterizes side of snap and encodes it as a PNG data URI. Any image
// that fails to load aborts the whole capture.
func (c *Compositor) Capture(ctx context.Context, snap core.Snapshot, side core.Side, opts Options) (*Capture, error) {
	img, err := c.Render(ctx, snap, side, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrCapture, err)
	}
	b := img.Bounds()
	return &Capture{
		Side:    side,
		DataURI: core.EncodeDataURI("image/png", buf.Bytes()),
		Width:   b.Dx(),
		Height:  b.Dy(),
		PNG:     buf.Bytes(),
	}, nil
}

// Render draws side of snap. The selection outline is interactive chrome and
// is never drawn.
func (c *Compositor) Render(ctx context.Context, snap core.Snapshot, side core.Side, opts Options) (*image.NRGBA, error) {
	scale := c.scale
	if opts.Scale > 0 {
		scale = math.Max(opts.Scale, DefaultScale)
	}

	items := c.layout.Plan(snap, side)
	images, err := c.resolve(ctx, items, opts)
	if err != nil {
		logrus.WithFields(logrus.Fields{"side": side, "error": err}).Warn("Capture aborted")
		return nil, fmt.Errorf("%w: %v", ErrCapture, err)
	}

	// Frame of the output in canvas coordinates.
	frame := canvas.Rect{Width: c.layout.Width, Height: c.layout.Height}
	if opts.Region == RegionPrintable {
		frame = c.layout.Printable
	}
	w, h := px(frame.Width*scale), px(frame.Height*scale)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: empty output", ErrCapture)
	}
	dst := imaging.New(w, h, color.Transparent)

	if garment, ok := images[opts.Garment]; ok && opts.Region != RegionPrintable {
		// object-fit: cover
		dst = imaging.Overlay(dst, imaging.Fill(garment, w, h, imaging.Center, imaging.Lanczos), image.Pt(0, 0), 1)
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCapture, err)
		}
		r := canvas.Rect{
			X:      item.Rect.X - frame.X,
			Y:      item.Rect.Y - frame.Y,
			Width:  item.Rect.Width,
			Height: item.Rect.Height,
		}.Scale(scale)
		id := item.Layer.LayerFrame().ID
		rot := item.Layer.LayerFrame().Rotation
		if !placeable(r) || math.IsNaN(rot) || math.IsInf(rot, 0) {
			return nil, fmt.Errorf("%w: layer %s: geometry out of range", ErrCapture, id)
		}
		bw, bh := px(r.Width), px(r.Height)
		if bw <= 0 || bh <= 0 {
			continue
		}
		pos := image.Pt(px(r.X), px(r.Y))

		// Only the part of the box that can land on the output is drawn.
		clip := visibleClip(dst.Bounds(), pos, bw, bh, rot)
		if clip.Empty() {
			continue
		}

		var box *image.NRGBA
		switch l := item.Layer.(type) {
		case core.TextLayer:
			box, err = c.drawText(l, bw, bh, clip, scale)
		case core.ImageLayer:
			box = drawImage(l, images[l.Src], bw, bh, clip, scale)
		default:
			err = fmt.Errorf("unhandled layer type %T", l)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: layer %s: %v", ErrCapture, id, err)
		}

		at := pos.Add(clip.Min)
		if rot != 0 {
			// Rotate about the box centre; imaging rotates counter-clockwise.
			rotated := imaging.Rotate(box, -rot, color.Transparent)
			rb := rotated.Bounds()
			cx, cy := rotate(
				float64(clip.Min.X+clip.Max.X)/2-float64(bw)/2,
				float64(clip.Min.Y+clip.Max.Y)/2-float64(bh)/2,
				rot,
			)
			at = image.Pt(
				pos.X+px(float64(bw)/2+cx-float64(rb.Dx())/2),
				pos.Y+px(float64(bh)/2+cy-float64(rb.Dy())/2),
			)
			box = rotated
		}
		dst = imaging.Overlay(dst, box, at, 1)
	}
	return dst, nil
}

// resolve loads every distinct image source the render needs in parallel.
func (c *Compositor) resolve(ctx context.Context, items []canvas.Item, opts Options) (map[string]image.Image, error) {
	var srcs []string
	seen := make(map[string]bool)
	add := func(src string) {
		if src != "" && !seen[src] {
			seen[src] = true
			srcs = append(srcs, src)
		}
	}
	if opts.Region != RegionPrintable {
		add(opts.Garment)
	}
	for _, item := range items {
		if l, ok := item.Layer.(core.ImageLayer); ok {
			if l.Src == "" {
				return nil, fmt.Errorf("layer %s has no source", l.ID)
			}
			add(l.Src)
		}
	}

	loaded := make([]image.Image, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range srcs {
		g.Go(func() error {
			img, err := c.loader.Load(gctx, src)
			if err != nil {
				return err
			}
			loaded[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	images := make(map[string]image.Image, len(srcs))
	for i, src := range srcs {
		images[src] = loaded[i]
	}
	return images, nil
}

// drawImage contain-fits src in a w by h box, then applies the layer's zoom
// about the box centre and its offset. Only the clip part of the box is
// allocated; the source is sampled straight into it.
func drawImage(l core.ImageLayer, src image.Image, w, h int, clip image.Rectangle, scale float64) *image.NRGBA {
	box := image.NewNRGBA(image.Rect(0, 0, clip.Dx(), clip.Dy()))
	if src == nil {
		return box
	}
	sb := src.Bounds()
	if sb.Empty() {
		return box
	}

	k := math.Min(float64(w)/float64(sb.Dx()), float64(h)/float64(sb.Dy())) * l.EffectiveZoom()
	fw, fh := float64(sb.Dx())*k, float64(sb.Dy())*k
	x := (float64(w)-fw)/2 + l.OffsetX*scale - float64(clip.Min.X)
	y := (float64(h)-fh)/2 + l.OffsetY*scale - float64(clip.Min.Y)

	s2d := f64.Aff3{
		k, 0, x - float64(sb.Min.X)*k,
		0, k, y - float64(sb.Min.Y)*k,
	}
	xdraw.CatmullRom.Transform(box, s2d, src, sb, xdraw.Over, nil)
	return box
}

// visibleClip returns the part of a w by h box placed at pos and rotated by
// deg degrees about its centre that can reach out, in box coordinates.
func visibleClip(out image.Rectangle, pos image.Point, w, h int, deg float64) image.Rectangle {
	hw, hh := float64(w)/2, float64(h)/2
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, q := range []image.Point{out.Min, {out.Max.X, out.Min.Y}, {out.Min.X, out.Max.Y}, out.Max} {
		x, y := rotate(float64(q.X-pos.X)-hw, float64(q.Y-pos.Y)-hh, -deg)
		minX, maxX = math.Min(minX, x+hw), math.Max(maxX, x+hw)
		minY, maxY = math.Min(minY, y+hh), math.Max(maxY, y+hh)
	}
	if deg != 0 {
		// Antialiased rotation bleeds a pixel past the exact corners.
		minX, minY, maxX, maxY = minX-1, minY-1, maxX+1, maxY+1
	}
	r := image.Rect(
		int(math.Floor(math.Max(minX, 0))),
		int(math.Floor(math.Max(minY, 0))),
		int(math.Ceil(math.Min(maxX, float64(w)))),
		int(math.Ceil(math.Min(maxY, float64(h)))),
	)
	return r.Intersect(image.Rect(0, 0, w, h))
}

// rotate turns (x, y) clockwise on screen by deg degrees.
func rotate(x, y, deg float64) (float64, float64) {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return x*cos - y*sin, x*sin + y*cos
}

// maxCoord bounds output coordinates that can be converted to pixels.
const maxCoord = 1 << 20

func placeable(r canvas.Rect) bool {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.Abs(v) > maxCoord {
			return false
		}
	}
	return true
}

func px(v float64) int {
	return int(math.Round(v))
}
