package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"youngin-studio/core"
)

// memStore implements DesignStore in process memory. Designs are lost on restart.
type memStore struct {
	mu sync.RWMutex
	// designs is keyed by userID, then by design ID.
	designs map[string]map[string]*core.Design
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{designs: make(map[string]map[string]*core.Design)}
}

// Save stores a copy of a new design under a fresh ID.
func (s *memStore) Save(ctx context.Context, design *core.Design) (string, error) {
	if design.UserID == "" {
		return "", fmt.Errorf("UserID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := ulid.Make().String()
	now := time.Now()
	stored := *design
	stored.ID = id
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.LastModified = now
	stored.SceneState = append([]byte(nil), design.SceneState...)

	userDesigns, ok := s.designs[design.UserID]
	if !ok {
		userDesigns = make(map[string]*core.Design)
		s.designs[design.UserID] = userDesigns
	}
	userDesigns[id] = &stored

	logrus.WithFields(logrus.Fields{
		"user_id":     design.UserID,
		"design_id":   id,
		"garment":     design.Garment,
		"data_length": len(design.SceneState),
	}).Info("Design saved successfully")
	return id, nil
}

// ListByOwner returns summaries of a user's designs, newest first.
func (s *memStore) ListByOwner(ctx context.Context, userID string) ([]*core.Design, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userDesigns := s.designs[userID]
	designs := make([]*core.Design, 0, len(userDesigns))
	for _, d := range userDesigns {
		designs = append(designs, d.Summary())
	}
	core.SortNewestFirst(designs)

	logrus.WithField("user_id", userID).Infof("Listed %d designs", len(designs))
	return designs, nil
}

// Get returns a copy of a single design, ensuring it belongs to the user.
func (s *memStore) Get(ctx context.Context, userID, id string) (*core.Design, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id})

	d, ok := s.designs[userID][id]
	if !ok {
		log.Warn("Design not found for user")
		return nil, fmt.Errorf("%w: %s", core.ErrDesignNotFound, id)
	}

	out := *d
	out.SceneState = append([]byte(nil), d.SceneState...)
	log.Info("Design retrieved successfully")
	return &out, nil
}

// Delete removes a design, ensuring it belongs to the user.
func (s *memStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id})

	if _, ok := s.designs[userID][id]; !ok {
		log.Warn("Design not found for deletion")
		return fmt.Errorf("%w: %s", core.ErrDesignNotFound, id)
	}
	delete(s.designs[userID], id)
	log.Info("Design deleted successfully")
	return nil
}
