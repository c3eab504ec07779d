// Package session keeps one editing session per shopper: the document store,
// the product being customized and the inactivity timer.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Pabi691/custom-clothology/clients/commerce"
	"github.com/Pabi691/custom-clothology/compositor"
	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/editor"
)

var (
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCaptureBusy is returned when a capture is already running for the
	// session. Captures are not queued.
	ErrCaptureBusy = errors.New("capture already in progress")
)

// Product identifies the garment a session customizes.
type Product struct {
	Slug      string  `json:"slug"`
	ProductID string  `json:"productId"`
	Price     float64 `json:"price"`
}

// Capturer rasterizes one side of a snapshot.
type Capturer interface {
	Capture(ctx context.Context, snap core.Snapshot, side core.Side, opts compositor.Options) (*compositor.Capture, error)
}

// Session is a single shopper's editing state.
type Session struct {
	ID        string            `json:"id"`
	Token     string            `json:"-"`
	Product   Product           `json:"product"`
	Garment   commerce.Product  `json:"garment"`
	CreatedAt time.Time         `json:"createdAt"`
	Store     *editor.Store     `json:"-"`
	Drafts    *editor.Debouncer `json:"-"`

	expiry  *editor.Debouncer
	capture sync.Mutex
}

// GarmentImage returns the base image of side.
func (s *Session) GarmentImage(side core.Side) string {
	if side == core.SideBack {
		return s.Garment.Back
	}
	return s.Garment.Front
}

// Capture rasterizes side from the current snapshot. The active side of the
// store is never touched. A capture that overlaps another one for the same
// session fails with ErrCaptureBusy.
func (s *Session) Capture(ctx context.Context, c Capturer, side core.Side, opts compositor.Options) (*compositor.Capture, error) {
	caps, err := s.CaptureSides(ctx, c, []core.Side{side}, opts)
	if err != nil {
		return nil, err
	}
	return caps[0], nil
}

// CaptureSides rasterizes several sides from one snapshot under a single
// capture lock, so all results describe the same document version.
func (s *Session) CaptureSides(ctx context.Context, c Capturer, sides []core.Side, opts compositor.Options) ([]*compositor.Capture, error) {
	if !s.capture.TryLock() {
		return nil, ErrCaptureBusy
	}
	defer s.capture.Unlock()

	snap := s.Store.Snapshot()
	caps := make([]*compositor.Capture, 0, len(sides))
	for _, side := range sides {
		o := opts
		if o.Garment == "" {
			o.Garment = s.GarmentImage(side)
		}
		res, err := c.Capture(ctx, snap, side, o)
		if err != nil {
			return nil, err
		}
		caps = append(caps, res)
	}
	return caps, nil
}
