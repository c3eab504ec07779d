package core

type (
	// ProductOptions are the garment choices attached to a cart request. They
	// are independent of layer data.
	ProductOptions struct {
		Color string `json:"color,omitempty"`
		Size  string `json:"size,omitempty"`
	}

	// Snapshot is an immutable view of a document. The layer slices must not
	// be modified by holders; the store never mutates a slice it has handed
	// out.
	Snapshot struct {
		Version  uint64         `json:"version"`
		Front    Layers         `json:"front"`
		Back     Layers         `json:"back"`
		Side     Side           `json:"side"`
		Selected string         `json:"selected,omitempty"`
		Options  ProductOptions `json:"options"`
	}
)

// Layers returns the sequence of the given side.
func (s Snapshot) Layers(side Side) Layers {
	if side == SideBack {
		return s.Back
	}
	return s.Front
}

// Active returns the sequence of the active side.
func (s Snapshot) Active() Layers {
	return s.Layers(s.Side)
}

// SelectedLayer returns the selected layer on the active side, if any.
func (s Snapshot) SelectedLayer() (Layer, bool) {
	if s.Selected == "" {
		return nil, false
	}
	return s.Active().Find(s.Selected)
}
