package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/stores/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.DesignStore {
		return NewStore(t.TempDir())
	})
}

func TestStore_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "designs"))
	if err := os.WriteFile(filepath.Join(dir, "secret.json"), []byte(`{"id":"secret"}`), 0644); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"../secret", "..", "a/b", ""} {
		if _, err := s.Get(context.Background(), "owner", id); !errors.Is(err, core.ErrInvalidDesignID) {
			t.Errorf("Get(%q): expected ErrInvalidDesignID, got %v", id, err)
		}
	}
	if err := s.Save(context.Background(), &core.Design{ID: "x", OwnerID: "../owner"}); !errors.Is(err, core.ErrInvalidDesignID) {
		t.Errorf("Save with bad owner: expected ErrInvalidDesignID, got %v", err)
	}
}

func TestStore_SkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := s.Save(context.Background(), &core.Design{ID: "good", OwnerID: "owner", Name: "Good"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "owner", "bad.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(context.Background(), "owner")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "good" {
		t.Errorf("Expected only the good design, got %+v", list)
	}
}
