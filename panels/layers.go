package panels

import "github.com/Pabi691/custom-clothology/core"

// LayerItem is one row of the layers panel.
type LayerItem struct {
	ID          string         `json:"id"`
	Type        core.LayerType `json:"type"`
	Label       string         `json:"label"`
	Selected    bool           `json:"selected"`
	CanMoveUp   bool           `json:"canMoveUp"`
	CanMoveDown bool           `json:"canMoveDown"`
}

// ListLayers returns the active side's layers topmost first.
func ListLayers(snap core.Snapshot) []LayerItem {
	layers := snap.Active()
	items := make([]LayerItem, 0, len(layers))
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		item := LayerItem{
			ID:          l.LayerFrame().ID,
			Type:        l.Type(),
			Label:       "Image",
			Selected:    l.LayerFrame().ID == snap.Selected,
			CanMoveUp:   i < len(layers)-1,
			CanMoveDown: i > 0,
		}
		if t, ok := l.(core.TextLayer); ok {
			item.Label = t.Text
		}
		items = append(items, item)
	}
	return items
}
