package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based store.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	designTableStmt := `
	CREATE TABLE IF NOT EXISTS designs (
		id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		name TEXT,
		thumbnail TEXT,
		front TEXT,
		back TEXT,
		options TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		PRIMARY KEY (owner_id, id)
	);`
	if _, err = db.Exec(designTableStmt); err != nil {
		log.Fatalf("failed to create designs table: %v", err)
	}

	return &sqliteStore{db}
}

// Close releases the database handle.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) List(ctx context.Context, ownerID string) ([]*core.Design, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, thumbnail, options, created_at, updated_at FROM designs WHERE owner_id = ? ORDER BY updated_at DESC", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	designs := []*core.Design{}
	for rows.Next() {
		d := core.Design{OwnerID: ownerID}
		var options string
		if err := rows.Scan(&d.ID, &d.Name, &d.Thumbnail, &options, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &d.Options); err != nil {
			logrus.WithField("design_id", d.ID).WithError(err).Warn("Failed to decode design options")
		}
		designs = append(designs, &d)
	}
	return designs, rows.Err()
}

func (s *sqliteStore) Get(ctx context.Context, ownerID, id string) (*core.Design, error) {
	d := core.Design{ID: id, OwnerID: ownerID}
	var front, back, options string
	err := s.db.QueryRowContext(ctx, "SELECT name, thumbnail, front, back, options, created_at, updated_at FROM designs WHERE owner_id = ? AND id = ?", ownerID, id).
		Scan(&d.Name, &d.Thumbnail, &front, &back, &options, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrDesignNotFound, id)
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(front), &d.Front); err != nil {
		return nil, fmt.Errorf("decode front layers: %w", err)
	}
	if err := json.Unmarshal([]byte(back), &d.Back); err != nil {
		return nil, fmt.Errorf("decode back layers: %w", err)
	}
	if err := json.Unmarshal([]byte(options), &d.Options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return &d, nil
}

func (s *sqliteStore) Save(ctx context.Context, design *core.Design) error {
	front, err := marshalLayers(design.Front)
	if err != nil {
		return err
	}
	back, err := marshalLayers(design.Back)
	if err != nil {
		return err
	}
	options, err := json.Marshal(design.Options)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var createdAt time.Time
	err = tx.QueryRowContext(ctx, "SELECT created_at FROM designs WHERE owner_id = ? AND id = ?", design.OwnerID, design.ID).Scan(&createdAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	now := time.Now().UTC()
	if errors.Is(err, sql.ErrNoRows) {
		createdAt = now
		_, err = tx.ExecContext(ctx, "INSERT INTO designs (id, owner_id, name, thumbnail, front, back, options, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			design.ID, design.OwnerID, design.Name, design.Thumbnail, front, back, string(options), now, now)
	} else {
		_, err = tx.ExecContext(ctx, "UPDATE designs SET name = ?, thumbnail = ?, front = ?, back = ?, options = ?, updated_at = ? WHERE owner_id = ? AND id = ?",
			design.Name, design.Thumbnail, front, back, string(options), now, design.OwnerID, design.ID)
	}
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	design.CreatedAt = createdAt
	design.UpdatedAt = now
	logrus.WithFields(logrus.Fields{"owner_id": design.OwnerID, "design_id": design.ID}).Info("Design saved")
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, ownerID, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM designs WHERE owner_id = ? AND id = ?", ownerID, id)
	return err
}

func marshalLayers(ls core.Layers) (string, error) {
	if ls == nil {
		ls = core.Layers{}
	}
	data, err := json.Marshal(ls)
	if err != nil {
		return "", fmt.Errorf("encode layers: %w", err)
	}
	return string(data), nil
}
