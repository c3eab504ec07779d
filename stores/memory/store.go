package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/sirupsen/logrus"
)

// memStore implements DesignStore in process memory.
type memStore struct {
	mu sync.RWMutex
	// designs is keyed by owner id, then design id.
	designs map[string]map[string]*core.Design
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{designs: make(map[string]map[string]*core.Design)}
}

func (s *memStore) List(ctx context.Context, ownerID string) ([]*core.Design, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := s.designs[ownerID]
	designs := make([]*core.Design, 0, len(owned))
	for _, d := range owned {
		designs = append(designs, d.Summary())
	}
	sort.Slice(designs, func(i, j int) bool {
		return designs[i].UpdatedAt.After(designs[j].UpdatedAt)
	})

	logrus.WithField("owner_id", ownerID).Debugf("Listed %d designs", len(designs))
	return designs, nil
}

func (s *memStore) Get(ctx context.Context, ownerID, id string) (*core.Design, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.designs[ownerID][id]
	if !ok {
		logrus.WithFields(logrus.Fields{"owner_id": ownerID, "design_id": id}).Warn("Design not found")
		return nil, fmt.Errorf("%w: %s", core.ErrDesignNotFound, id)
	}
	cp := *d
	return &cp, nil
}

func (s *memStore) Save(ctx context.Context, design *core.Design) error {
	if design.OwnerID == "" {
		return fmt.Errorf("owner id cannot be empty")
	}
	if design.ID == "" {
		return fmt.Errorf("design id cannot be empty for save operation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owned, ok := s.designs[design.OwnerID]
	if !ok {
		owned = make(map[string]*core.Design)
		s.designs[design.OwnerID] = owned
	}

	now := time.Now()
	design.CreatedAt = now
	if existing, ok := owned[design.ID]; ok {
		design.CreatedAt = existing.CreatedAt
	}
	design.UpdatedAt = now

	cp := *design
	owned[design.ID] = &cp
	logrus.WithFields(logrus.Fields{"owner_id": design.OwnerID, "design_id": design.ID}).Info("Design saved")
	return nil
}

func (s *memStore) Delete(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.designs[ownerID][id]; !ok {
		// Already gone.
		return nil
	}
	delete(s.designs[ownerID], id)
	logrus.WithFields(logrus.Fields{"owner_id": ownerID, "design_id": id}).Info("Design deleted")
	return nil
}
