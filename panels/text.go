package panels

import (
	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/editor"
)

// TextDefaults pre-fills the text form.
var TextDefaults = core.TextData{
	Text:       "HeY BuDDy",
	FontFamily: "Arial",
	FontSize:   32,
	Color:      "#000000",
}

// ValidateText checks a text form submission.
func ValidateText(d core.TextData) error {
	switch {
	case len(d.Text) < 1:
		return invalid("text cannot be empty")
	case !core.IsFontFamily(d.FontFamily):
		return invalid("unknown font family %q", d.FontFamily)
	case d.FontSize < core.MinFontSize || d.FontSize > core.MaxFontSize:
		return invalid("font size must be between %d and %d", core.MinFontSize, core.MaxFontSize)
	case !core.IsHexColor(d.Color):
		return invalid("color must be a hex value")
	}
	return nil
}

// Text is the text form. Live edits are debounced so a burst of keystrokes
// commits once with the last values.
type Text struct {
	store    *editor.Store
	debounce *editor.Debouncer
}

// NewText binds the text form to a store.
func NewText(store *editor.Store, debounce *editor.Debouncer) *Text {
	return &Text{store: store, debounce: debounce}
}

// selectedText returns the selected layer when it is a text layer.
func (p *Text) selectedText() (core.TextLayer, bool) {
	l, ok := p.store.Snapshot().SelectedLayer()
	if !ok {
		return core.TextLayer{}, false
	}
	t, ok := l.(core.TextLayer)
	return t, ok
}

// Submit updates the selected text layer, or adds a new one when no text
// layer is selected.
func (p *Text) Submit(d core.TextData) (core.Snapshot, error) {
	if err := ValidateText(d); err != nil {
		return core.Snapshot{}, err
	}
	p.debounce.Stop()

	if t, ok := p.selectedText(); ok {
		return p.store.UpdateLayer(t.ID, textPatch(d)), nil
	}
	snap, _ := p.store.AddLayer(d)
	return snap, nil
}

// Draft schedules a live edit of the selected text layer. It reports false
// when no text layer is selected, in which case nothing is scheduled.
func (p *Text) Draft(d core.TextData) (bool, error) {
	if err := ValidateText(d); err != nil {
		return false, err
	}
	t, ok := p.selectedText()
	if !ok {
		return false, nil
	}
	id, patch := t.ID, textPatch(d)
	p.debounce.Trigger(func() {
		p.store.UpdateLayer(id, patch)
	})
	return true, nil
}

// Commit stores text edited directly on the canvas when the editor loses
// focus. Pending drafts are dropped so they cannot overwrite it.
func (p *Text) Commit(id, text string) core.Snapshot {
	p.debounce.Stop()
	return p.store.UpdateLayer(id, core.LayerPatch{Text: &text})
}

func textPatch(d core.TextData) core.LayerPatch {
	return core.LayerPatch{
		Text:       &d.Text,
		FontFamily: &d.FontFamily,
		FontSize:   &d.FontSize,
		Color:      &d.Color,
	}
}
