package compositor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// builtin maps the text layer font families to bundled Go fonts.
var builtin = map[string][]byte{
	"Arial":           goregular.TTF,
	"Verdana":         goregular.TTF,
	"Georgia":         goregular.TTF,
	"Times New Roman": goregular.TTF,
	"Courier New":     gomono.TTF,
	"Lucida Console":  gomono.TTF,
	"Impact":          gobold.TTF,
}

// Fonts resolves font families to faces. When dir is set, a file named
// "<family>.ttf" in it overrides the bundled font.
type Fonts struct {
	dir string

	mu     sync.Mutex
	parsed map[string]*opentype.Font
}

// NewFonts returns a font set reading overrides from dir, which may be empty.
func NewFonts(dir string) *Fonts {
	return &Fonts{dir: dir, parsed: make(map[string]*opentype.Font)}
}

// Face returns a new face for family at size pixels. Faces are not safe for
// concurrent use, so every caller gets its own.
func (f *Fonts) Face(family string, size float64) (font.Face, error) {
	otf, err := f.font(family)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(otf, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func (f *Fonts) font(family string) (*opentype.Font, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if otf, ok := f.parsed[family]; ok {
		return otf, nil
	}

	data, err := f.load(family)
	if err != nil {
		return nil, err
	}
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", family, err)
	}
	f.parsed[family] = otf
	return otf, nil
}

func (f *Fonts) load(family string) ([]byte, error) {
	if f.dir != "" {
		data, err := os.ReadFile(filepath.Join(f.dir, family+".ttf"))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if data, ok := builtin[family]; ok {
		return data, nil
	}
	return goregular.TTF, nil
}
