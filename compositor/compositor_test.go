package compositor

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/Pabi691/custom-clothology/canvas"
	"github.com/Pabi691/custom-clothology/core"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var red = color.NRGBA{R: 255, A: 255}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(w, h, c)))
	return buf.Bytes()
}

func newCompositor() *Compositor {
	return New(canvas.Default, NewLoader(nil), NewFonts(""), 0)
}

func decodeCapture(t *testing.T, c *Capture) image.Image {
	t.Helper()
	mediaType, data, err := core.ParseDataURI(c.DataURI)
	require.NoError(t, err)
	require.Equal(t, "image/png", mediaType)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestCapture_EmptySide(t *testing.T) {
	c := newCompositor()
	capture, err := c.Capture(context.Background(), core.Snapshot{}, core.SideFront, Options{})
	require.NoError(t, err)

	assert.Equal(t, core.SideFront, capture.Side)
	assert.Equal(t, 1000, capture.Width)
	assert.Equal(t, 1200, capture.Height)

	img := decodeCapture(t, capture)
	_, _, _, a := img.At(500, 600).RGBA()
	assert.Zero(t, a, "empty capture should be transparent")
}

func TestCapture_ScaleHasFloor(t *testing.T) {
	c := newCompositor()
	capture, err := c.Capture(context.Background(), core.Snapshot{}, core.SideFront, Options{Scale: 1})
	require.NoError(t, err)
	assert.Equal(t, 1000, capture.Width)

	capture, err = c.Capture(context.Background(), core.Snapshot{}, core.SideFront, Options{Scale: 3})
	require.NoError(t, err)
	assert.Equal(t, 1500, capture.Width)
}

func TestCapture_PrintableRegion(t *testing.T) {
	c := newCompositor()
	capture, err := c.Capture(context.Background(), core.Snapshot{}, core.SideBack, Options{Region: RegionPrintable})
	require.NoError(t, err)
	assert.Equal(t, 350, capture.Width)
	assert.Equal(t, 480, capture.Height)
}

func TestCapture_ImageLayer(t *testing.T) {
	src := core.EncodeDataURI("image/png", solidPNG(t, 20, 10, red))
	snap := core.Snapshot{
		Back: core.Layers{core.ImageData{Src: src}.NewLayer("img")},
	}

	c := newCompositor()
	capture, err := c.Capture(context.Background(), snap, core.SideBack, Options{Region: RegionPrintable})
	require.NoError(t, err)
	img := decodeCapture(t, capture)

	// 150x150 box at (10,10), scaled by 2. A 2:1 image is contained as
	// 300x150 centred vertically.
	assert.Equal(t, red, color.NRGBAModel.Convert(img.At(20+150, 20+150)))
	_, _, _, a := img.At(20+150, 20+10).RGBA()
	assert.Zero(t, a, "letterbox area should stay transparent")
	_, _, _, a = img.At(5, 5).RGBA()
	assert.Zero(t, a, "outside the layer should stay transparent")
}

func TestCapture_TextLayer(t *testing.T) {
	snap := core.Snapshot{
		Front: core.Layers{core.TextData{Text: "HI", FontFamily: "Impact", FontSize: 40, Color: "#000"}.NewLayer("t")},
	}

	c := newCompositor()
	capture, err := c.Capture(context.Background(), snap, core.SideFront, Options{Region: RegionPrintable})
	require.NoError(t, err)
	img := decodeCapture(t, capture)

	// Text box spans (20,20)-(420,120) at scale 2.
	var inked int
	for y := 20; y < 120; y++ {
		for x := 20; x < 420; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				inked++
			}
		}
	}
	assert.Positive(t, inked, "text should draw pixels inside its box")

	_, _, _, a := img.At(300, 400).RGBA()
	assert.Zero(t, a)
}

func TestCapture_SelectionNotDrawn(t *testing.T) {
	layers := core.Layers{core.TextData{Text: "A", FontFamily: "Arial", FontSize: 20, Color: "#123456"}.NewLayer("t")}
	c := newCompositor()

	plain, err := c.Capture(context.Background(), core.Snapshot{Front: layers}, core.SideFront, Options{})
	require.NoError(t, err)
	selected, err := c.Capture(context.Background(), core.Snapshot{Front: layers, Selected: "t"}, core.SideFront, Options{})
	require.NoError(t, err)

	assert.Equal(t, plain.DataURI, selected.DataURI)
}

func TestCapture_GarmentCover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(solidPNG(t, 50, 50, red))
	}))
	defer srv.Close()

	c := New(canvas.Default, NewLoader(srv.Client()), NewFonts(""), 0)
	capture, err := c.Capture(context.Background(), core.Snapshot{}, core.SideFront, Options{Garment: srv.URL + "/front.png"})
	require.NoError(t, err)
	img := decodeCapture(t, capture)

	assert.Equal(t, red, color.NRGBAModel.Convert(img.At(0, 0)))
	assert.Equal(t, red, color.NRGBAModel.Convert(img.At(999, 1199)))
}

func TestCapture_ImageFailureAborts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	snap := core.Snapshot{
		Front: core.Layers{
			core.ImageData{Src: core.EncodeDataURI("image/png", solidPNG(t, 4, 4, red))}.NewLayer("ok"),
			core.ImageData{Src: srv.URL + "/missing.png"}.NewLayer("missing"),
		},
	}

	c := New(canvas.Default, NewLoader(srv.Client()), NewFonts(""), 0)
	capture, err := c.Capture(context.Background(), snap, core.SideFront, Options{})
	assert.ErrorIs(t, err, ErrCapture)
	assert.Nil(t, capture)
}

func TestCapture_BadTextColour(t *testing.T) {
	snap := core.Snapshot{
		Front: core.Layers{core.TextData{Text: "x", FontFamily: "Arial", FontSize: 20, Color: "blue"}.NewLayer("t")},
	}
	_, err := newCompositor().Capture(context.Background(), snap, core.SideFront, Options{})
	assert.ErrorIs(t, err, ErrCapture)
}

func TestCapture_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := core.Snapshot{Front: core.Layers{core.TextData{Text: "x", Color: "#000"}.NewLayer("t")}}

	_, err := newCompositor().Capture(ctx, snap, core.SideFront, Options{})
	assert.ErrorIs(t, err, ErrCapture)
}

func TestCapture_OffscreenLayerSkipped(t *testing.T) {
	src := core.EncodeDataURI("image/png", solidPNG(t, 4, 4, red))
	snap := core.Snapshot{
		Front: core.Layers{core.ImageLayer{
			Frame: core.Frame{ID: "far", X: 1e5, Y: 1e5, Width: 1e5, Height: 1e5},
			Src:   src,
		}},
	}

	capture, err := newCompositor().Capture(context.Background(), snap, core.SideFront, Options{})
	require.NoError(t, err)
	img := decodeCapture(t, capture)
	_, _, _, a := img.At(999, 1199).RGBA()
	assert.Zero(t, a)
}

func TestCapture_HugeZoomedLayer(t *testing.T) {
	src := core.EncodeDataURI("image/png", solidPNG(t, 20, 10, red))
	snap := core.Snapshot{
		Front: core.Layers{core.ImageLayer{
			Frame: core.Frame{ID: "big", Width: 1e5, Height: 1e5},
			Src:   src,
			Zoom:  10,
		}},
	}

	// The box starts at the printable origin (325,240 at scale 2) and the
	// zoomed image overflows every visible edge.
	capture, err := newCompositor().Capture(context.Background(), snap, core.SideFront, Options{})
	require.NoError(t, err)
	img := decodeCapture(t, capture)
	assert.Equal(t, red, color.NRGBAModel.Convert(img.At(999, 1199)))
	assert.Equal(t, red, color.NRGBAModel.Convert(img.At(330, 250)))
	_, _, _, a := img.At(10, 10).RGBA()
	assert.Zero(t, a)
}

func TestCapture_RotatedLayer(t *testing.T) {
	src := core.EncodeDataURI("image/png", solidPNG(t, 20, 20, red))
	snap := core.Snapshot{
		Back: core.Layers{core.ImageLayer{
			Frame: core.Frame{ID: "r", X: 50, Y: 50, Width: 100, Height: 100, Rotation: 45},
			Src:   src,
		}},
	}

	capture, err := newCompositor().Capture(context.Background(), snap, core.SideBack, Options{Region: RegionPrintable})
	require.NoError(t, err)
	img := decodeCapture(t, capture)

	// A 200px square centred on (200,200) turned into a diamond.
	assert.Equal(t, red, color.NRGBAModel.Convert(img.At(200, 200)))
	assert.Equal(t, red, color.NRGBAModel.Convert(img.At(200, 70)))
	_, _, _, a := img.At(105, 105).RGBA()
	assert.Zero(t, a, "unrotated corner should be empty")
}

func TestCapture_NonFiniteGeometry(t *testing.T) {
	snap := core.Snapshot{
		Front: core.Layers{core.TextLayer{
			Frame: core.Frame{ID: "t", X: 1e300, Width: 10, Height: 10},
			Text:  "x", FontSize: 20, Color: "#000",
		}},
	}
	_, err := newCompositor().Capture(context.Background(), snap, core.SideFront, Options{})
	assert.ErrorIs(t, err, ErrCapture)
}

func TestVisibleClip(t *testing.T) {
	out := image.Rect(0, 0, 100, 100)
	tests := []struct {
		name string
		pos  image.Point
		w, h int
		want image.Rectangle
	}{
		{"inside", image.Pt(10, 10), 20, 20, image.Rect(0, 0, 20, 20)},
		{"overlapping edge", image.Pt(90, 95), 20, 20, image.Rect(0, 0, 10, 5)},
		{"outside", image.Pt(200, 200), 20, 20, image.Rectangle{}},
		{"huge", image.Pt(-500000, -500000), 1000000, 1000000, image.Rect(500000, 500000, 500100, 500100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := visibleClip(out, tt.pos, tt.w, tt.h, 0)
			if tt.want.Empty() {
				assert.True(t, got.Empty())
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}

	rotated := visibleClip(out, image.Pt(-500000, -500000), 1000000, 1000000, 30)
	assert.LessOrEqual(t, rotated.Dx(), 200)
	assert.LessOrEqual(t, rotated.Dy(), 200)
}

// pngHeader returns a PNG that declares w by h pixels but carries no data.
func pngHeader(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := solidPNG(t, 1, 1, red)
	// Signature is 8 bytes, then length and type precede the IHDR body.
	ihdr := data[16:29]
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestLoader_PixelCap(t *testing.T) {
	l := NewLoader(nil)
	_, err := l.Load(context.Background(), core.EncodeDataURI("image/png", pngHeader(t, 50000, 50000)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestLoader_RefusesPrivateAddress(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(solidPNG(t, 1, 1, red))
	}))
	defer srv.Close()

	_, err := NewLoader(nil).Load(context.Background(), srv.URL+"/a.png")
	assert.ErrorIs(t, err, ErrForbiddenSource)
	assert.Zero(t, hits.Load())
}

func TestLoader_AllowHosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(solidPNG(t, 1, 1, red))
	}))
	defer srv.Close()

	_, err := NewLoader(srv.Client(), AllowHosts("cdn.example.com")).Load(context.Background(), srv.URL+"/a.png")
	assert.ErrorIs(t, err, ErrForbiddenSource)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	img, err := NewLoader(srv.Client(), AllowHosts(u.Hostname())).Load(context.Background(), srv.URL+"/a.png")
	require.NoError(t, err)
	assert.Equal(t, 1, img.Bounds().Dx())
}

func TestPublicAddr(t *testing.T) {
	for addr, want := range map[string]bool{
		"93.184.216.34":    true,
		"2606:4700::1111":  true,
		"127.0.0.1":        false,
		"10.1.2.3":         false,
		"192.168.0.10":     false,
		"169.254.169.254":  false,
		"0.0.0.0":          false,
		"::1":              false,
		"fe80::1":          false,
		"224.0.0.1":        false,
		"::ffff:127.0.0.1": false,
	} {
		assert.Equal(t, want, publicAddr(netip.MustParseAddr(addr)), addr)
	}
}

func TestLoader_RejectsNonImage(t *testing.T) {
	l := NewLoader(nil)
	_, err := l.Load(context.Background(), core.EncodeDataURI("text/plain", []byte("hi")))
	assert.Error(t, err)

	_, err = l.Load(context.Background(), "ftp://example.com/a.png")
	assert.Error(t, err)
}

func TestParseColor(t *testing.T) {
	c, err := parseColor("#f80")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0xff, G: 0x88, B: 0x00, A: 0xff}, c)

	_, err = parseColor("orange")
	assert.Error(t, err)
}
