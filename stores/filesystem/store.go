package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"youngin-studio/core"
)

const designExt = ".json"

// fsStore keeps one JSON file per design under <basePath>/<userID>/.
type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based store.
func NewStore(basePath string) *fsStore {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		log.Fatalf("failed to create base directory: %v", err)
	}
	return &fsStore{basePath: basePath}
}

func (s *fsStore) getUserDesignPath(userID string) (string, error) {
	if !validName(userID) {
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	return filepath.Join(s.basePath, userID), nil
}

func (s *fsStore) getDesignPath(userID, id string) (string, error) {
	userPath, err := s.getUserDesignPath(userID)
	if err != nil {
		return "", err
	}
	if !validName(id) {
		return "", fmt.Errorf("invalid design id %q: access denied", id)
	}
	return filepath.Join(userPath, id+designExt), nil
}

// validName rejects anything that is not a single path element.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func (s *fsStore) Save(ctx context.Context, design *core.Design) (string, error) {
	id := ulid.Make().String()
	filePath, err := s.getDesignPath(design.UserID, id)
	if err != nil {
		return "", err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": design.UserID, "design_id": id, "path": filePath})

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		log.WithError(err).Error("Failed to create user directory")
		return "", err
	}

	stored := *design
	stored.ID = id
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.LastModified = now

	data, err := json.Marshal(&stored)
	if err != nil {
		log.WithError(err).Error("Failed to marshal design for saving")
		return "", err
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		log.WithError(err).Error("Failed to write design file")
		return "", err
	}

	log.Info("Design saved successfully")
	return id, nil
}

func (s *fsStore) ListByOwner(ctx context.Context, userID string) ([]*core.Design, error) {
	userPath, err := s.getUserDesignPath(userID)
	if err != nil {
		return nil, err
	}
	log := logrus.WithField("user_id", userID).WithField("path", userPath)

	files, err := os.ReadDir(userPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info("User directory does not exist, returning empty list.")
			return []*core.Design{}, nil
		}
		log.WithError(err).Error("Failed to read user directory")
		return nil, err
	}

	designs := make([]*core.Design, 0, len(files))
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != designExt {
			continue
		}
		data, err := os.ReadFile(filepath.Join(userPath, file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read design file %s, skipping", file.Name())
			continue
		}
		var design core.Design
		if err := json.Unmarshal(data, &design); err != nil {
			log.WithError(err).Warnf("Failed to unmarshal design file %s, skipping", file.Name())
			continue
		}
		designs = append(designs, design.Summary())
	}
	core.SortNewestFirst(designs)

	log.Infof("Listed %d designs", len(designs))
	return designs, nil
}

func (s *fsStore) Get(ctx context.Context, userID, id string) (*core.Design, error) {
	filePath, err := s.getDesignPath(userID, id)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id, "path": filePath})

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Design file not found")
			return nil, fmt.Errorf("%w: %s", core.ErrDesignNotFound, id)
		}
		log.WithError(err).Error("Failed to read design file")
		return nil, err
	}

	var design core.Design
	if err := json.Unmarshal(data, &design); err != nil {
		log.WithError(err).Error("Failed to unmarshal design data")
		return nil, err
	}

	log.Info("Design retrieved successfully")
	return &design, nil
}

func (s *fsStore) Delete(ctx context.Context, userID, id string) error {
	filePath, err := s.getDesignPath(userID, id)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"user_id": userID, "design_id": id, "path": filePath})

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			log.Warn("Design file not found for deletion")
			return fmt.Errorf("%w: %s", core.ErrDesignNotFound, id)
		}
		log.WithError(err).Error("Failed to delete design file")
		return err
	}

	log.Info("Design deleted successfully")
	return nil
}
