package core

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"
)

var (
	// ErrDesignNotFound is returned by design stores for unknown ids.
	ErrDesignNotFound = errors.New("design not found")
	// ErrInvalidDesignID is returned for ids that are not plain names.
	ErrInvalidDesignID = errors.New("invalid design id")
)

type (
	// Design is a saved copy of a session's document, owned by the holder of
	// the commerce token that created it.
	Design struct {
		ID        string         `json:"id"`
		OwnerID   string         `json:"-"` // Not exposed in JSON responses, used internally.
		Name      string         `json:"name"`
		Thumbnail string         `json:"thumbnail,omitempty"`
		Front     Layers         `json:"front,omitempty"`
		Back      Layers         `json:"back,omitempty"`
		Options   ProductOptions `json:"options"`
		CreatedAt time.Time      `json:"createdAt"`
		UpdatedAt time.Time      `json:"updatedAt"`
	}

	// DesignStore defines the persistence layer for saved designs.
	// All operations are scoped to an owner.
	DesignStore interface {
		// List returns metadata for all designs of an owner.
		// The returned designs do not carry layers.
		List(ctx context.Context, ownerID string) ([]*Design, error)

		// Get returns a single design, ensuring it belongs to the owner.
		// Unknown ids yield ErrDesignNotFound.
		Get(ctx context.Context, ownerID, id string) (*Design, error)

		// Save creates or updates a design.
		Save(ctx context.Context, design *Design) error

		// Delete removes a design, ensuring it belongs to the owner. Deleting
		// a missing design succeeds.
		Delete(ctx context.Context, ownerID, id string) error
	}
)

// Summary returns a copy of d without layer data, for list views.
func (d *Design) Summary() *Design {
	return &Design{
		ID:        d.ID,
		OwnerID:   d.OwnerID,
		Name:      d.Name,
		Thumbnail: d.Thumbnail,
		Options:   d.Options,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// CheckDesignID rejects ids that could escape a storage prefix: empty ids,
// dot directories and anything containing a path separator.
func CheckDesignID(id string) error {
	if id == "" || id == "." || id == ".." || path.Base(id) != id || len(id) > 128 {
		return fmt.Errorf("%w: %q", ErrInvalidDesignID, id)
	}
	for _, r := range id {
		if r == '\\' || r < 0x20 {
			return fmt.Errorf("%w: %q", ErrInvalidDesignID, id)
		}
	}
	return nil
}
