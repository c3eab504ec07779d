// Package editor holds the document store that owns both sides of a design,
// the active side and the selection.
package editor

import (
	"sync"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Direction moves a layer through the stacking order.
type Direction string

const (
	// Up moves a layer toward the top of the stack (higher index).
	Up Direction = "up"
	// Down moves a layer toward the bottom of the stack (lower index).
	Down Direction = "down"
)

// ChangeFunc observes committed mutations.
type ChangeFunc func(core.Snapshot)

// Store is the single source of truth for a design. Every mutation is
// synchronous and replaces the touched side's slice, so snapshots handed out
// earlier are never modified. Operations addressing an unknown id are silent
// no-ops.
type Store struct {
	mu        sync.Mutex
	snap      core.Snapshot
	newID     func() string
	observers []ChangeFunc
	log       *logrus.Entry
}

// Option configures a Store.
type Option func(*Store)

// WithIDs replaces the layer id generator.
func WithIDs(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger attaches a log entry used for mutation tracing.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Store) { s.log = log }
}

// NewStore returns an empty store with the front side active.
func NewStore(opts ...Option) *Store {
	s := &Store{
		snap: core.Snapshot{
			Front: core.Layers{},
			Back:  core.Layers{},
			Side:  core.SideFront,
		},
		newID: func() string { return ulid.Make().String() },
		log:   logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to be called after every state-changing mutation.
// Observers run outside the store lock.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// mutate runs fn against a working copy of the snapshot. fn reports whether it
// changed anything; unchanged mutations neither bump the version nor notify.
func (s *Store) mutate(fn func(*core.Snapshot) bool) core.Snapshot {
	s.mu.Lock()
	next := s.snap
	if !fn(&next) {
		s.mu.Unlock()
		return next
	}
	next.Version++
	s.snap = next
	observers := append([]ChangeFunc(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o(next)
	}
	return next
}

func setActive(snap *core.Snapshot, layers core.Layers) {
	if snap.Side == core.SideBack {
		snap.Back = layers
	} else {
		snap.Front = layers
	}
}

// AddLayer creates a layer from data on the active side, appends it on top of
// the stack and selects it.
func (s *Store) AddLayer(data core.LayerData) (core.Snapshot, core.Layer) {
	var added core.Layer
	snap := s.mutate(func(snap *core.Snapshot) bool {
		cur := snap.Active()
		id := s.newID()
		for cur.Index(id) >= 0 {
			id = s.newID()
		}
		added = data.NewLayer(id)

		next := make(core.Layers, len(cur), len(cur)+1)
		copy(next, cur)
		setActive(snap, append(next, added))
		snap.Selected = id
		return true
	})
	s.log.WithFields(logrus.Fields{
		"layer_id": added.LayerFrame().ID,
		"type":     added.Type(),
		"side":     snap.Side,
	}).Debug("Layer added")
	return snap, added
}

// UpdateLayer merges patch into the layer with the given id on the active
// side. The id and type of a layer cannot change.
func (s *Store) UpdateLayer(id string, patch core.LayerPatch) core.Snapshot {
	return s.mutate(func(snap *core.Snapshot) bool {
		cur := snap.Active()
		i := cur.Index(id)
		if i < 0 || patch.IsEmpty() {
			return false
		}
		next := make(core.Layers, len(cur))
		copy(next, cur)
		next[i] = patch.Apply(cur[i])
		setActive(snap, next)
		return true
	})
}

// ReorderLayer moves a layer one step in the given direction. Moving the
// topmost layer up or the bottommost layer down does nothing.
func (s *Store) ReorderLayer(id string, dir Direction) core.Snapshot {
	return s.mutate(func(snap *core.Snapshot) bool {
		cur := snap.Active()
		i := cur.Index(id)
		if i < 0 {
			return false
		}
		j := i
		switch dir {
		case Up:
			j = i + 1
		case Down:
			j = i - 1
		}
		if j == i || j < 0 || j >= len(cur) {
			return false
		}
		next := make(core.Layers, len(cur))
		copy(next, cur)
		next[i], next[j] = next[j], next[i]
		setActive(snap, next)
		return true
	})
}

// DeleteLayer removes a layer from the active side, clearing the selection if
// it pointed at that layer.
func (s *Store) DeleteLayer(id string) core.Snapshot {
	return s.mutate(func(snap *core.Snapshot) bool {
		cur := snap.Active()
		i := cur.Index(id)
		if i < 0 {
			return false
		}
		next := make(core.Layers, 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		setActive(snap, next)
		if snap.Selected == id {
			snap.Selected = ""
		}
		return true
	})
}

// ClearAll removes every layer from the active side.
func (s *Store) ClearAll() core.Snapshot {
	return s.mutate(func(snap *core.Snapshot) bool {
		cur := snap.Active()
		if len(cur) == 0 {
			return false
		}
		if cur.Index(snap.Selected) >= 0 {
			snap.Selected = ""
		}
		setActive(snap, core.Layers{})
		return true
	})
}

// RemoveLast removes the topmost layer of the active side.
func (s *Store) RemoveLast() core.Snapshot {
	return s.mutate(func(snap *core.Snapshot) bool {
		cur := snap.Active()
		if len(cur) == 0 {
			return false
		}
		last := cur[len(cur)-1]
		next := make(core.Layers, len(cur)-1)
		copy(next, cur[:len(cur)-1])
		setActive(snap, next)
		if snap.Selected == last.LayerFrame().ID {
			snap.Selected = ""
		}
		return true
	})
}

// SetSide switches the active side. The selection is always cleared; neither
// sequence is touched.
func (s *Store) SetSide(side core.Side) core.Snapshot {
	return s.mutate(func(snap *core.Snapshot) bool {
		if snap.Side == side && snap.Selected == "" {
			return false
		}
		snap.Side = side
		snap.Selected = ""
		return true
	})
}

// SetSelected selects a layer, or clears the selection when id is empty.
func (s *Store) SetSelected(id string) core.Snapshot {
	return s.mutate(func(snap *core.Snapshot) bool {
		if snap.Selected == id {
			return false
		}
		snap.Selected = id
		return true
	})
}

// SetOptions replaces the product options.
func (s *Store) SetOptions(opts core.ProductOptions) core.Snapshot {
	return s.mutate(func(snap *core.Snapshot) bool {
		if snap.Options == opts {
			return false
		}
		snap.Options = opts
		return true
	})
}

// Restore replaces both sequences, typically from a saved design. The active
// side is kept and the selection cleared.
func (s *Store) Restore(front, back core.Layers) core.Snapshot {
	return s.mutate(func(snap *core.Snapshot) bool {
		snap.Front = dedupe(front)
		snap.Back = dedupe(back)
		snap.Selected = ""
		return true
	})
}

// dedupe copies ls, dropping layers whose id already appeared.
func dedupe(ls core.Layers) core.Layers {
	seen := make(map[string]bool, len(ls))
	out := make(core.Layers, 0, len(ls))
	for _, l := range ls {
		id := l.LayerFrame().ID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, l)
	}
	return out
}
