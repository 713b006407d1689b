package core

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"
)

// ErrDesignNotFound is returned by stores when no design matches the owner and id.
var ErrDesignNotFound = errors.New("design not found")

type (
	// Design is a persisted studio design: the garment it was drawn on, the scene
	// snapshot and a composited preview. Designs are immutable once saved.
	Design struct {
		ID           string          `json:"id"`
		UserID       string          `json:"userId"`
		UserName     string          `json:"userName"`
		Garment      Garment         `json:"garmentType"`
		Name         string          `json:"name"`
		Image        string          `json:"image,omitempty"`       // PNG data URL of the composite.
		SceneState   json.RawMessage `json:"fabricState,omitempty"` // Scene snapshot, not included in list views.
		CreatedAt    time.Time       `json:"createdAt"`
		LastModified time.Time       `json:"lastModified"`
	}

	// DesignStore defines the persistence layer for saved designs.
	// All reads and deletes are scoped to the owning user.
	DesignStore interface {
		// Save persists a new design and returns its generated ID.
		Save(ctx context.Context, design *Design) (string, error)

		// ListByOwner returns all designs owned by a user.
		// The returned designs do not carry SceneState to keep the response light.
		ListByOwner(ctx context.Context, userID string) ([]*Design, error)

		// Get returns a single design, ensuring it belongs to the user.
		Get(ctx context.Context, userID, id string) (*Design, error)

		// Delete removes a design, ensuring it belongs to the user.
		Delete(ctx context.Context, userID, id string) error
	}
)

// Summary returns a copy of the design without its scene state.
func (d *Design) Summary() *Design {
	return &Design{
		ID:           d.ID,
		UserID:       d.UserID,
		UserName:     d.UserName,
		Garment:      d.Garment,
		Name:         d.Name,
		Image:        d.Image,
		CreatedAt:    d.CreatedAt,
		LastModified: d.LastModified,
	}
}

// SortNewestFirst orders designs by LastModified, newest first, breaking ties by
// descending ID so every store lists in the same order.
func SortNewestFirst(designs []*Design) {
	sort.Slice(designs, func(i, j int) bool {
		if designs[i].LastModified.Equal(designs[j].LastModified) {
			return designs[i].ID > designs[j].ID
		}
		return designs[i].LastModified.After(designs[j].LastModified)
	})
}
