package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"youngin-studio/core"
	"youngin-studio/stores/sqlite/migrations"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore opens the database and brings its schema up to date.
func NewStore(dataSourceName string) *sqliteStore {
	s, err := Open(dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite store: %v", err)
	}
	return s
}

// Open is NewStore returning errors instead of exiting.
func Open(dataSourceName string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc's sqlite gives each connection to ":memory:" its own database.
	db.SetMaxOpenConns(1)

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteStore{db}, nil
}

// Close releases the database.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) Save(ctx context.Context, design *core.Design) (string, error) {
	id := ulid.Make().String()
	now := time.Now().UTC()
	createdAt := design.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	log := logrus.WithFields(logrus.Fields{
		"user_id":     design.UserID,
		"design_id":   id,
		"data_length": len(design.SceneState),
	})

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO designs (id, user_id, user_name, garment_type, name, image, fabric_state, created_at, last_modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, design.UserID, design.UserName, string(design.Garment), design.Name, design.Image, []byte(design.SceneState), createdAt.UTC(), now)
	if err != nil {
		log.WithError(err).Error("Failed to save design")
		return "", err
	}
	log.Info("Design saved successfully")
	return id, nil
}

func (s *sqliteStore) ListByOwner(ctx context.Context, userID string) ([]*core.Design, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_name, garment_type, name, image, created_at, last_modified
		 FROM designs WHERE user_id = ? ORDER BY last_modified DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	designs := []*core.Design{}
	for rows.Next() {
		design := core.Design{UserID: userID}
		var garment string
		var image sql.NullString
		if err := rows.Scan(&design.ID, &design.UserName, &garment, &design.Name, &image, &design.CreatedAt, &design.LastModified); err != nil {
			return nil, err
		}
		design.Garment = core.Garment(garment)
		design.Image = image.String
		designs = append(designs, &design)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logrus.WithField("user_id", userID).Infof("Listed %d designs", len(designs))
	return designs, nil
}

func (s *sqliteStore) Get(ctx context.Context, userID, id string) (*core.Design, error) {
	design := core.Design{ID: id, UserID: userID}
	var garment string
	var image sql.NullString
	var state []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT user_name, garment_type, name, image, fabric_state, created_at, last_modified
		 FROM designs WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&design.UserName, &garment, &design.Name, &image, &state, &design.CreatedAt, &design.LastModified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrDesignNotFound, id)
		}
		return nil, err
	}
	design.Garment = core.Garment(garment)
	design.Image = image.String
	design.SceneState = state
	return &design, nil
}

func (s *sqliteStore) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM designs WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrDesignNotFound, id)
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id}).Info("Design deleted successfully")
	return nil
}
