package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"youngin-studio/core"
	"youngin-studio/metrics"
	"youngin-studio/scene"
)

// Surface is the drawing surface a session edits.
type Surface interface {
	Size() (int, int)
	Add(obj scene.Object) error
	Remove(id string) bool
	Find(id string) (scene.Object, bool)
	SetActive(id string) error
	Active() scene.Object
	DiscardActive()
	Objects() []scene.Object
	Clear()
	SendToBack(id string)
	Snapshot() ([]byte, error)
	Load(snapshot []byte) error
	Render() (image.Image, error)
}

// View is a read-only picture of a session for clients.
type View struct {
	SessionID string            `json:"sessionId"`
	Garment   core.Garment      `json:"garment"`
	Template  string            `json:"template,omitempty"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Cursor    int               `json:"cursor"`
	Length    int               `json:"length"`
	CanUndo   bool              `json:"canUndo"`
	CanRedo   bool              `json:"canRedo"`
	ActiveID  string            `json:"activeObjectId,omitempty"`
	Objects   []json.RawMessage `json:"objects"`
}

// Session is one designer's canvas: surface, history and garment. All methods are
// safe for concurrent use; operations on a session are serialized.
type Session struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time

	mu         sync.Mutex
	surface    Surface
	history    *History
	garments   *GarmentSelector
	compositor *Compositor
	store      core.DesignStore
	events     Notifier

	saving   atomic.Bool
	lastUsed atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

// LastUsed returns when the session was last looked up by its owner.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) log() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"session_id": s.ID, "user_id": s.OwnerID})
}

// RecordState captures the current surface into the history.
func (s *Session) RecordState() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordLocked()
}

func (s *Session) recordLocked() error {
	snap, err := s.surface.Snapshot()
	if err != nil {
		metrics.RecordHistory("record", false)
		return fmt.Errorf("snapshot surface: %w", err)
	}
	s.history.Record(snap)
	metrics.RecordHistory("record", true)
	return nil
}

// Undo steps back one snapshot. It reports false when already at the oldest one.
func (s *Session) Undo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.history.Undo()
	if !ok {
		metrics.RecordHistory("undo", false)
		return false, nil
	}
	if err := s.restoreLocked(snap); err != nil {
		s.history.Redo()
		return false, err
	}
	metrics.RecordHistory("undo", true)
	s.notifyLocked()
	return true, nil
}

// Redo steps forward one snapshot. It reports false when already at the newest one.
func (s *Session) Redo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.history.Redo()
	if !ok {
		metrics.RecordHistory("redo", false)
		return false, nil
	}
	if err := s.restoreLocked(snap); err != nil {
		s.history.Undo()
		return false, err
	}
	metrics.RecordHistory("redo", true)
	s.notifyLocked()
	return true, nil
}

// Restore loads a snapshot into the surface without touching the history.
// A snapshot that fails to load leaves the surface as it was.
func (s *Session) Restore(snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.restoreLocked(snapshot); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

func (s *Session) restoreLocked(snapshot []byte) error {
	if err := s.surface.Load(snapshot); err != nil {
		metrics.RecordHistory("restore", false)
		s.log().WithError(err).Error("Failed to restore snapshot, keeping current canvas")
		return fmt.Errorf("restore snapshot: %w", err)
	}
	s.lockBackgroundsLocked()
	return nil
}

// lockBackgroundsLocked keeps garment layers unselectable and behind user content.
func (s *Session) lockBackgroundsLocked() {
	objects := s.surface.Objects()
	for i := len(objects) - 1; i >= 0; i-- {
		if !objects[i].Base().GarmentBackground {
			continue
		}
		id := objects[i].Base().ID
		if live, ok := s.surface.Find(id); ok {
			live.Base().Selectable = false
			live.Base().Evented = false
		}
		s.surface.SendToBack(id)
	}
}

// AddObject places obj on top of the canvas, selects it and records the change.
func (s *Session) AddObject(obj scene.Object) (scene.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := obj.Base()
	if p.ID == "" {
		p.ID = ulid.Make().String()
	}
	p.Selectable = !p.GarmentBackground
	p.Evented = !p.GarmentBackground

	if err := s.surface.Add(obj); err != nil {
		return nil, err
	}
	if p.GarmentBackground {
		s.surface.SendToBack(p.ID)
	} else if err := s.surface.SetActive(p.ID); err != nil {
		return nil, err
	}
	if err := s.recordLocked(); err != nil {
		return nil, err
	}
	s.notifyLocked()
	return scene.Clone(obj), nil
}

// UpdateObject applies a style patch to an object and records the change.
func (s *Session) UpdateObject(id string, patch scene.Patch) (scene.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.surface.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	updated := scene.Clone(obj)
	patch.Apply(updated)
	if err := scene.Validate(updated); err != nil {
		return nil, err
	}
	patch.Apply(obj)

	if err := s.recordLocked(); err != nil {
		return nil, err
	}
	s.notifyLocked()
	return scene.Clone(obj), nil
}

// RemoveObject deletes an object and records the change.
func (s *Session) RemoveObject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.surface.Remove(id) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	if err := s.recordLocked(); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// SetActive selects an object.
func (s *Session) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.surface.Find(id); !ok {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	if err := s.surface.SetActive(id); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// DiscardActive clears the selection.
func (s *Session) DiscardActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface.DiscardActive()
	s.notifyLocked()
}

// Clear empties the canvas and records the change.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.surface.Clear()
	if err := s.recordLocked(); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// SelectGarment switches the garment template. See GarmentSelector.Select.
func (s *Session) SelectGarment(ctx context.Context, garment core.Garment, picker ImagePicker) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed, err := s.garments.Select(ctx, garment, picker)
	if err != nil || !changed {
		return changed, err
	}
	s.removeBackgroundsLocked()
	if err := s.recordLocked(); err != nil {
		return true, err
	}
	s.log().WithField("garment", s.garments.Current()).Info("Garment changed")
	s.notifyLocked()
	return true, nil
}

// removeBackgroundsLocked drops template layers left over from an older garment.
func (s *Session) removeBackgroundsLocked() {
	for _, obj := range s.surface.Objects() {
		if obj.Base().GarmentBackground {
			s.surface.Remove(obj.Base().ID)
		}
	}
}

// Composite renders the garment preview as PNG. The active object is deselected
// first and stays deselected afterwards.
func (s *Session) Composite(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, err := s.compositeLocked(ctx)
	if err != nil {
		return nil, err
	}
	s.notifyLocked()
	return EncodePNG(img)
}

func (s *Session) compositeLocked(ctx context.Context) (image.Image, error) {
	s.surface.DiscardActive()
	overlay, err := s.surface.Render()
	if err != nil {
		return nil, fmt.Errorf("render surface: %w", err)
	}
	w, h := s.surface.Size()
	return s.compositor.Composite(ctx, s.garments.Template(), overlay, w, h), nil
}

// Save persists the current design for user. Only one save runs at a time per
// session; a concurrent call fails with ErrSaveInProgress.
func (s *Session) Save(ctx context.Context, user *core.User, name string) (*core.Design, error) {
	if user == nil || user.Subject == "" {
		return nil, ErrOwnerRequired
	}
	if !s.saving.CompareAndSwap(false, true) {
		metrics.RecordSave("rejected")
		return nil, ErrSaveInProgress
	}
	defer s.saving.Store(false)

	design, err := s.buildDesign(ctx, user, name)
	if err != nil {
		metrics.RecordSave("error")
		return nil, err
	}

	id, err := s.store.Save(ctx, design)
	if err != nil {
		metrics.RecordSave("error")
		s.log().WithError(err).Error("Failed to save design")
		return nil, fmt.Errorf("save design: %w", err)
	}
	design.ID = id
	metrics.RecordSave("ok")
	s.log().WithField("design_id", id).Info("Design saved")
	s.events.DesignSaved(s.ID, id)
	return design, nil
}

// Saving reports whether a save is in flight.
func (s *Session) Saving() bool {
	return s.saving.Load()
}

func (s *Session) buildDesign(ctx context.Context, user *core.User, name string) (*core.Design, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, err := s.compositeLocked(ctx)
	if err != nil {
		return nil, err
	}
	s.notifyLocked()
	preview, err := EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	state, err := s.surface.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot surface: %w", err)
	}

	now := time.Now()
	garment := s.garments.Current()
	if name == "" {
		name = fmt.Sprintf("Custom %s %s", garment, now.Format("2006-01-02"))
	}
	return &core.Design{
		UserID:       user.Subject,
		UserName:     user.DisplayName(),
		Garment:      garment,
		Name:         name,
		Image:        scene.EncodeDataURL("image/png", preview),
		SceneState:   state,
		CreatedAt:    now,
		LastModified: now,
	}, nil
}

// LoadDesign replaces the canvas with a saved design and its garment, then records it.
func (s *Session) LoadDesign(design *core.Design) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.restoreLocked(design.SceneState); err != nil {
		return err
	}
	s.garments.restore(design.Garment)
	if err := s.recordLocked(); err != nil {
		return err
	}
	s.log().WithField("design_id", design.ID).Info("Design loaded into session")
	s.notifyLocked()
	return nil
}

// State returns a view of the session.
func (s *Session) State() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	w, h := s.surface.Size()
	view := View{
		SessionID: s.ID,
		Garment:   s.garments.Current(),
		Width:     w,
		Height:    h,
		Cursor:    s.history.Cursor(),
		Length:    s.history.Len(),
		CanUndo:   s.history.CanUndo(),
		CanRedo:   s.history.CanRedo(),
		Objects:   []json.RawMessage{},
	}
	if tpl := s.garments.Template(); !scene.IsDataURL(tpl) {
		view.Template = tpl
	}
	if active := s.surface.Active(); active != nil {
		view.ActiveID = active.Base().ID
	}
	for _, obj := range s.surface.Objects() {
		raw, err := scene.MarshalObject(obj)
		if err != nil {
			s.log().WithError(err).Warn("Skipping object that failed to encode")
			continue
		}
		view.Objects = append(view.Objects, raw)
	}
	return view
}

func (s *Session) notifyLocked() {
	s.events.SessionChanged(s.viewLocked())
}
