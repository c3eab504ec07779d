package panels

import (
	"slices"
	"strings"

	"github.com/Pabi691/custom-clothology/core"
)

// Swatch is a garment colour offered by the product panel.
type Swatch struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var (
	// Sizes are the garment sizes offered by the product panel.
	Sizes = []string{"S", "M", "L", "XL", "XXL"}

	// Colors are the garment colours offered by the product panel.
	Colors = []Swatch{
		{Name: "White", Value: "#FFFFFF"},
		{Name: "Black", Value: "#000000"},
		{Name: "Gray", Value: "#808080"},
		{Name: "Navy", Value: "#000080"},
		{Name: "Red", Value: "#FF0000"},
	}
)

// ValidateOptions checks a product panel choice. A colour may be given by
// swatch name or value and is returned as the value. Empty fields stay
// unset.
func ValidateOptions(o core.ProductOptions) (core.ProductOptions, error) {
	if o.Color != "" {
		value, ok := swatchValue(o.Color)
		if !ok {
			return core.ProductOptions{}, invalid("unknown color %q", o.Color)
		}
		o.Color = value
	}
	if o.Size != "" {
		size := strings.ToUpper(strings.TrimSpace(o.Size))
		if !slices.Contains(Sizes, size) {
			return core.ProductOptions{}, invalid("size must be one of %s", strings.Join(Sizes, ", "))
		}
		o.Size = size
	}
	return o, nil
}

func swatchValue(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Colors {
		if strings.EqualFold(s, c.Name) || strings.EqualFold(s, c.Value) {
			return c.Value, true
		}
	}
	return "", false
}
