package canvas

import (
	"testing"

	"github.com/Pabi691/custom-clothology/core"
)

func TestDefaultLayout(t *testing.T) {
	want := Rect{X: 162.5, Y: 120, Width: 175, Height: 240}
	if Default.Printable != want {
		t.Errorf("Printable mismatch: got %+v, want %+v", Default.Printable, want)
	}
}

func TestCoordinateMapping(t *testing.T) {
	f := core.Frame{X: 10, Y: 20, Width: 30, Height: 40}
	r := Default.ToCanvas(f)
	if r != (Rect{X: 172.5, Y: 140, Width: 30, Height: 40}) {
		t.Errorf("ToCanvas mismatch: %+v", r)
	}
	x, y := Default.ToLocal(r.X, r.Y)
	if x != f.X || y != f.Y {
		t.Errorf("ToLocal mismatch: got (%v, %v)", x, y)
	}
	if s := r.Scale(2); s.X != 345 || s.Width != 60 {
		t.Errorf("Scale mismatch: %+v", s)
	}
}

func TestClampDrag(t *testing.T) {
	f := core.Frame{ID: "a", Width: 50, Height: 50}
	tests := []struct {
		name         string
		x, y         float64
		wantX, wantY float64
	}{
		{"inside", 20, 30, 20, 30},
		{"negative", -15, -1, 0, 0},
		{"past far edge", 500, 500, 125, 190},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Default.ClampDrag(f, tt.x, tt.y)
			if got.X != tt.wantX || got.Y != tt.wantY {
				t.Errorf("got (%v, %v), want (%v, %v)", got.X, got.Y, tt.wantX, tt.wantY)
			}
			if got.ID != "a" || got.Width != 50 {
				t.Errorf("drag changed other fields: %+v", got)
			}
		})
	}

	big := core.Frame{Width: 400, Height: 400}
	if got := Default.ClampDrag(big, 30, 30); got.X != 0 || got.Y != 0 {
		t.Errorf("oversized box not pinned: %+v", got)
	}
}

func TestClampResize(t *testing.T) {
	f := core.Frame{ID: "a", X: 10, Y: 10, Width: 50, Height: 50}

	got := Default.ClampResize(f, 100, 200, 500, 500)
	if got.X != 100 || got.Y != 200 || got.Width != 75 || got.Height != 40 {
		t.Errorf("far-edge clamp mismatch: %+v", got)
	}

	got = Default.ClampResize(f, -5, 10, 0, -10)
	if got.X != 0 || got.Width != 1 || got.Height != 1 {
		t.Errorf("minimum clamp mismatch: %+v", got)
	}
}

func TestPlan(t *testing.T) {
	snap := core.Snapshot{
		Front: core.Layers{
			core.TextData{Text: "a"}.NewLayer("a"),
			core.ImageData{Src: "b"}.NewLayer("b"),
		},
		Back:     core.Layers{core.TextData{Text: "c"}.NewLayer("c")},
		Side:     core.SideFront,
		Selected: "b",
	}

	items := Default.Plan(snap, core.SideFront)
	if len(items) != 2 {
		t.Fatalf("Plan length mismatch: got %d", len(items))
	}
	if items[0].Z != 1 || items[1].Z != 2 {
		t.Errorf("Z order mismatch: %d, %d", items[0].Z, items[1].Z)
	}
	if items[0].Selected || !items[1].Selected {
		t.Errorf("Selection flags mismatch")
	}
	if items[0].Rect.X != 172.5 {
		t.Errorf("Rect not in canvas space: %+v", items[0].Rect)
	}

	back := Default.Plan(snap, core.SideBack)
	if len(back) != 1 || back[0].Selected {
		t.Errorf("Back plan mismatch: %+v", back)
	}
}
