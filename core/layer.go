package core

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Side is one of the two independent documents a garment is designed for.
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// Sides lists both sides in display order.
var Sides = []Side{SideFront, SideBack}

// ParseSide converts a string into a Side.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideFront, SideBack:
		return Side(s), nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideFront {
		return SideBack
	}
	return SideFront
}

// LayerType is the discriminator used on the wire.
type LayerType string

const (
	LayerText  LayerType = "text"
	LayerImage LayerType = "image"
)

// Creation defaults.
const (
	DefaultX           = 10
	DefaultY           = 10
	DefaultTextWidth   = 200
	DefaultTextHeight  = 50
	DefaultImageWidth  = 150
	DefaultImageHeight = 150

	MinFontSize = 10
	MaxFontSize = 100
)

// FontFamilies is the allow-list of text layer fonts.
var FontFamilies = []string{
	"Arial",
	"Verdana",
	"Georgia",
	"Times New Roman",
	"Courier New",
	"Lucida Console",
	"Impact",
}

var hexColor = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// IsFontFamily reports whether name is on the allow-list.
func IsFontFamily(name string) bool {
	for _, f := range FontFamilies {
		if f == name {
			return true
		}
	}
	return false
}

// IsHexColor reports whether s is a #rgb or #rrggbb colour.
func IsHexColor(s string) bool {
	return hexColor.MatchString(s)
}

type (
	// Frame holds the attributes every layer shares. Geometry is expressed in
	// printable-area local pixels at design resolution.
	Frame struct {
		ID       string  `json:"id"`
		X        float64 `json:"x"`
		Y        float64 `json:"y"`
		Width    float64 `json:"width"`
		Height   float64 `json:"height"`
		Rotation float64 `json:"rotation"`
	}

	// Layer is a positioned element of a design. The set of implementations
	// is closed: TextLayer and ImageLayer.
	Layer interface {
		LayerFrame() Frame
		Type() LayerType
		withFrame(Frame) Layer
	}

	// TextLayer is a run of text drawn centred in its frame.
	TextLayer struct {
		Frame
		Text       string `json:"text"`
		FontFamily string `json:"fontFamily"`
		FontSize   int    `json:"fontSize"`
		Color      string `json:"color"`
	}

	// ImageLayer is a raster source drawn contain-fitted in its frame.
	// Src is either a remote URL or a base64 data URI.
	ImageLayer struct {
		Frame
		Src     string  `json:"src"`
		Zoom    float64 `json:"zoom"`
		OffsetX float64 `json:"offsetX"`
		OffsetY float64 `json:"offsetY"`
	}
)

func (l TextLayer) LayerFrame() Frame { return l.Frame }
func (l TextLayer) Type() LayerType { return LayerText }
func (l TextLayer) withFrame(f Frame) Layer { l.Frame = f; return l }
func (l ImageLayer) LayerFrame() Frame { return l.Frame }
func (l ImageLayer) Type() LayerType { return LayerImage }
func (l ImageLayer) withFrame(f Frame) Layer { l.Frame = f; return l }

// WithFrame returns a copy of l carrying f.
func WithFrame(l Layer, f Frame) Layer {
	return l.withFrame(f)
}

// EffectiveZoom returns the zoom factor, treating unset values as 1.
func (l ImageLayer) EffectiveZoom() float64 {
	if l.Zoom <= 0 {
		return 1
	}
	return l.Zoom
}

func (l TextLayer) MarshalJSON() ([]byte, error) {
	type alias TextLayer
	return json.Marshal(struct {
		Type LayerType `json:"type"`
		alias
	}{LayerText, alias(l)})
}

func (l ImageLayer) MarshalJSON() ([]byte, error) {
	type alias ImageLayer
	return json.Marshal(struct {
		Type LayerType `json:"type"`
		alias
	}{LayerImage, alias(l)})
}

// DecodeLayer decodes a single type-discriminated layer.
func DecodeLayer(data []byte) (Layer, error) {
	var head struct {
		Type LayerType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case LayerText:
		var l TextLayer
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		return l, nil
	case LayerImage:
		var l ImageLayer
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown layer type %q", head.Type)
	}
}

// Layers is an ordered sequence of layers; index is the stacking order and
// the last element is drawn on top.
type Layers []Layer

// UnmarshalJSON decodes a list of type-discriminated layers.
func (ls *Layers) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Layers, 0, len(raw))
	for i, r := range raw {
		l, err := DecodeLayer(r)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		out = append(out, l)
	}
	*ls = out
	return nil
}

// Index returns the position of the layer with the given id, or -1.
func (ls Layers) Index(id string) int {
	for i, l := range ls {
		if l.LayerFrame().ID == id {
			return i
		}
	}
	return -1
}

// Find returns the layer with the given id.
func (ls Layers) Find(id string) (Layer, bool) {
	if i := ls.Index(id); i >= 0 {
		return ls[i], true
	}
	return nil, false
}

type (
	// LayerData is the type-specific input used to create a layer. Identity,
	// position, size and rotation are computed by the store.
	LayerData interface {
		NewLayer(id string) Layer
	}

	// TextData creates a TextLayer.
	TextData struct {
		Text       string `json:"text"`
		FontFamily string `json:"fontFamily"`
		FontSize   int    `json:"fontSize"`
		Color      string `json:"color"`
	}

	// ImageData creates an ImageLayer.
	ImageData struct {
		Src     string  `json:"src"`
		Zoom    float64 `json:"zoom,omitempty"`
		OffsetX float64 `json:"offsetX,omitempty"`
		OffsetY float64 `json:"offsetY,omitempty"`
	}
)

func (d TextData) NewLayer(id string) Layer {
	return TextLayer{
		Frame:      Frame{ID: id, X: DefaultX, Y: DefaultY, Width: DefaultTextWidth, Height: DefaultTextHeight},
		Text:       d.Text,
		FontFamily: d.FontFamily,
		FontSize:   d.FontSize,
		Color:      d.Color,
	}
}

func (d ImageData) NewLayer(id string) Layer {
	zoom := d.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	return ImageLayer{
		Frame:   Frame{ID: id, X: DefaultX, Y: DefaultY, Width: DefaultImageWidth, Height: DefaultImageHeight},
		Src:     d.Src,
		Zoom:    zoom,
		OffsetX: d.OffsetX,
		OffsetY: d.OffsetY,
	}
}

// DecodeLayerData decodes a type-discriminated creation request.
func DecodeLayerData(data []byte) (LayerData, error) {
	var head struct {
		Type LayerType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case LayerText:
		var d TextData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case LayerImage:
		var d ImageData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown layer type %q", head.Type)
	}
}

// LayerPatch is a partial update. It has no id or type field, so neither can
// be changed through it. Fields that do not apply to the target variant are
// ignored.
type LayerPatch struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`

	Text       *string `json:"text,omitempty"`
	FontFamily *string `json:"fontFamily,omitempty"`
	FontSize   *int    `json:"fontSize,omitempty"`
	Color      *string `json:"color,omitempty"`

	Src     *string  `json:"src,omitempty"`
	Zoom    *float64 `json:"zoom,omitempty"`
	OffsetX *float64 `json:"offsetX,omitempty"`
	OffsetY *float64 `json:"offsetY,omitempty"`
}

// IsEmpty reports whether the patch carries no fields.
func (p LayerPatch) IsEmpty() bool {
	return p == LayerPatch{}
}

// Apply returns a copy of l with the patch merged in.
func (p LayerPatch) Apply(l Layer) Layer {
	f := l.LayerFrame()
	setFloat(&f.X, p.X)
	setFloat(&f.Y, p.Y)
	setFloat(&f.Width, p.Width)
	setFloat(&f.Height, p.Height)
	setFloat(&f.Rotation, p.Rotation)

	switch v := l.(type) {
	case TextLayer:
		v.Frame = f
		if p.Text != nil {
			v.Text = *p.Text
		}
		if p.FontFamily != nil {
			v.FontFamily = *p.FontFamily
		}
		if p.FontSize != nil {
			v.FontSize = *p.FontSize
		}
		if p.Color != nil {
			v.Color = *p.Color
		}
		return v
	case ImageLayer:
		v.Frame = f
		if p.Src != nil {
			v.Src = *p.Src
		}
		setFloat(&v.Zoom, p.Zoom)
		setFloat(&v.OffsetX, p.OffsetX)
		setFloat(&v.OffsetY, p.OffsetY)
		return v
	default:
		panic(fmt.Sprintf("core: unhandled layer type %T", l))
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
