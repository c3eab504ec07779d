package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/sirupsen/logrus"
)

const ext = ".json"

type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based store. Each design is one JSON
// file under <basePath>/<owner>/.
func NewStore(basePath string) *fsStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Fatalf("failed to create base directory: %v", err)
	}
	return &fsStore{basePath: basePath}
}

func (s *fsStore) designPath(ownerID, id string) (string, error) {
	if err := core.CheckDesignID(ownerID); err != nil {
		return "", err
	}
	if err := core.CheckDesignID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, ownerID, id+ext), nil
}

func (s *fsStore) List(ctx context.Context, ownerID string) ([]*core.Design, error) {
	if err := core.CheckDesignID(ownerID); err != nil {
		return nil, err
	}
	ownerPath := filepath.Join(s.basePath, ownerID)
	log := logrus.WithFields(logrus.Fields{"owner_id": ownerID, "path": ownerPath})

	files, err := os.ReadDir(ownerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*core.Design{}, nil
		}
		log.WithError(err).Error("Failed to read owner directory")
		return nil, err
	}

	designs := make([]*core.Design, 0, len(files))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ext) {
			continue
		}
		d, err := readDesign(filepath.Join(ownerPath, file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read design file %s, skipping", file.Name())
			continue
		}
		designs = append(designs, d.Summary())
	}
	sort.Slice(designs, func(i, j int) bool {
		return designs[i].UpdatedAt.After(designs[j].UpdatedAt)
	})

	log.Debugf("Listed %d designs", len(designs))
	return designs, nil
}

func (s *fsStore) Get(ctx context.Context, ownerID, id string) (*core.Design, error) {
	filePath, err := s.designPath(ownerID, id)
	if err != nil {
		return nil, err
	}
	d, err := readDesign(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrDesignNotFound, id)
		}
		logrus.WithFields(logrus.Fields{"owner_id": ownerID, "design_id": id}).WithError(err).Error("Failed to read design file")
		return nil, err
	}
	d.OwnerID = ownerID
	return d, nil
}

func (s *fsStore) Save(ctx context.Context, design *core.Design) error {
	filePath, err := s.designPath(design.OwnerID, design.ID)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"owner_id": design.OwnerID, "design_id": design.ID, "path": filePath})

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		log.WithError(err).Error("Failed to create owner directory")
		return err
	}

	now := time.Now()
	design.CreatedAt = now
	if existing, err := readDesign(filePath); err == nil {
		design.CreatedAt = existing.CreatedAt
	}
	design.UpdatedAt = now

	data, err := json.Marshal(design)
	if err != nil {
		return fmt.Errorf("marshal design: %w", err)
	}

	// Write then rename so readers never see a partial file.
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write design file")
		return err
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return err
	}

	log.Info("Design saved")
	return nil
}

func (s *fsStore) Delete(ctx context.Context, ownerID, id string) error {
	filePath, err := s.designPath(ownerID, id)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		logrus.WithField("path", filePath).WithError(err).Error("Failed to delete design file")
		return err
	}
	logrus.WithFields(logrus.Fields{"owner_id": ownerID, "design_id": id}).Info("Design deleted")
	return nil
}

func readDesign(path string) (*core.Design, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d core.Design
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal design: %w", err)
	}
	return &d, nil
}
