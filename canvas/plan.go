package canvas

import "github.com/Pabi691/custom-clothology/core"

// Item is one entry of a render plan.
type Item struct {
	Layer core.Layer `json:"layer"`
	Z     int        `json:"z"`
	Rect  Rect       `json:"rect"`
	// Selected marks the interactive outline. It is never rasterized.
	Selected bool `json:"selected,omitempty"`
}

// Plan lists the layers of a side in drawing order, bottom first.
func (l Layout) Plan(snap core.Snapshot, side core.Side) []Item {
	layers := snap.Layers(side)
	items := make([]Item, 0, len(layers))
	for i, layer := range layers {
		f := layer.LayerFrame()
		items = append(items, Item{
			Layer:    layer,
			Z:        i + 1,
			Rect:     l.ToCanvas(f),
			Selected: side == snap.Side && f.ID == snap.Selected,
		})
	}
	return items
}
