// Package storetest holds the behaviour every DesignStore backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Pabi691/custom-clothology/core"
)

func sample(owner, id, name string) *core.Design {
	return &core.Design{
		ID:      id,
		OwnerID: owner,
		Name:    name,
		Front: core.Layers{
			core.TextData{Text: "Hello", FontSize: 32, FontFamily: "Arial", Color: "#000000"}.NewLayer("t1"),
		},
		Back: core.Layers{
			core.ImageData{Src: "data:image/png;base64,iVBORw0KGgo="}.NewLayer("i1"),
		},
		Options: core.ProductOptions{Color: "black", Size: "M"},
	}
}

// Run exercises a store created fresh by newStore.
func Run(t *testing.T, newStore func(t *testing.T) core.DesignStore) {
	ctx := context.Background()

	t.Run("SaveAndGet", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, sample("owner", "d1", "First")); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}

		got, err := s.Get(ctx, "owner", "d1")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if got.ID != "d1" || got.OwnerID != "owner" || got.Name != "First" {
			t.Errorf("Design mismatch: %+v", got)
		}
		if len(got.Front) != 1 || len(got.Back) != 1 {
			t.Fatalf("Layers mismatch: front=%d back=%d", len(got.Front), len(got.Back))
		}
		text, ok := got.Front[0].(core.TextLayer)
		if !ok || text.Text != "Hello" || text.ID != "t1" {
			t.Errorf("Front layer mismatch: %#v", got.Front[0])
		}
		if _, ok := got.Back[0].(core.ImageLayer); !ok {
			t.Errorf("Back layer is not an image: %#v", got.Back[0])
		}
		if got.Options.Color != "black" || got.Options.Size != "M" {
			t.Errorf("Options mismatch: %+v", got.Options)
		}
		if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
			t.Error("Timestamps not set")
		}
	})

	t.Run("UpdateKeepsCreatedAt", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, sample("owner", "d1", "First")); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		first, err := s.Get(ctx, "owner", "d1")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}

		time.Sleep(10 * time.Millisecond)
		if err := s.Save(ctx, sample("owner", "d1", "Renamed")); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		second, err := s.Get(ctx, "owner", "d1")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if second.Name != "Renamed" {
			t.Errorf("Name not updated: %q", second.Name)
		}
		if !second.CreatedAt.Equal(first.CreatedAt) {
			t.Errorf("CreatedAt changed: %v -> %v", first.CreatedAt, second.CreatedAt)
		}
		if !second.UpdatedAt.After(first.UpdatedAt) {
			t.Errorf("UpdatedAt not advanced: %v -> %v", first.UpdatedAt, second.UpdatedAt)
		}
	})

	t.Run("ListIsScopedAndLight", func(t *testing.T) {
		s := newStore(t)
		for _, d := range []*core.Design{
			sample("alice", "a1", "A1"),
			sample("alice", "a2", "A2"),
			sample("bob", "b1", "B1"),
		} {
			if err := s.Save(ctx, d); err != nil {
				t.Fatalf("Save() failed: %v", err)
			}
		}

		list, err := s.List(ctx, "alice")
		if err != nil {
			t.Fatalf("List() failed: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("Expected 2 designs, got %d", len(list))
		}
		for _, d := range list {
			if d.ID == "b1" {
				t.Error("List leaked another owner's design")
			}
			if len(d.Front) != 0 || len(d.Back) != 0 {
				t.Errorf("List carried layers for %s", d.ID)
			}
		}

		empty, err := s.List(ctx, "nobody")
		if err != nil {
			t.Fatalf("List() failed: %v", err)
		}
		if empty == nil || len(empty) != 0 {
			t.Errorf("Expected empty non-nil list, got %#v", empty)
		}
	})

	t.Run("GetIsScoped", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, sample("alice", "a1", "A1")); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		if _, err := s.Get(ctx, "bob", "a1"); !errors.Is(err, core.ErrDesignNotFound) {
			t.Errorf("Expected ErrDesignNotFound for another owner, got %v", err)
		}
		if _, err := s.Get(ctx, "alice", "missing"); !errors.Is(err, core.ErrDesignNotFound) {
			t.Errorf("Expected ErrDesignNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		if err := s.Save(ctx, sample("alice", "a1", "A1")); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		if err := s.Delete(ctx, "alice", "a1"); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if _, err := s.Get(ctx, "alice", "a1"); !errors.Is(err, core.ErrDesignNotFound) {
			t.Errorf("Expected ErrDesignNotFound after delete, got %v", err)
		}
		if err := s.Delete(ctx, "alice", "a1"); err != nil {
			t.Errorf("Deleting a missing design should succeed, got %v", err)
		}
	})
}
