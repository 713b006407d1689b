package scene

import (
	"fmt"
	"image"
)

// Surface is an in-memory drawing surface. It is not safe for concurrent use;
// the owning studio session serializes access.
type Surface struct {
	width   int
	height  int
	objects []Object
	active  string
}

// NewSurface creates an empty width x height surface.
func NewSurface(width, height int) *Surface {
	return &Surface{width: width, height: height}
}

// Size returns the surface dimensions in pixels.
func (s *Surface) Size() (int, int) {
	return s.width, s.height
}

// Add appends obj on top of the stacking order.
func (s *Surface) Add(obj Object) error {
	if err := Validate(obj); err != nil {
		return err
	}
	if s.index(obj.Base().ID) >= 0 {
		return fmt.Errorf("object %s already on surface", obj.Base().ID)
	}
	s.objects = append(s.objects, obj)
	return nil
}

// Remove deletes the object with the given id and reports whether it existed.
func (s *Surface) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.objects = append(s.objects[:i], s.objects[i+1:]...)
	if s.active == id {
		s.active = ""
	}
	return true
}

// Find returns the live object with the given id.
func (s *Surface) Find(id string) (Object, bool) {
	i := s.index(id)
	if i < 0 {
		return nil, false
	}
	return s.objects[i], true
}

// SetActive selects an object. Locked objects cannot be selected.
func (s *Surface) SetActive(id string) error {
	obj, ok := s.Find(id)
	if !ok {
		return fmt.Errorf("object %s not found", id)
	}
	if !obj.Base().Selectable {
		return fmt.Errorf("object %s is not selectable", id)
	}
	s.active = id
	return nil
}

// Active returns the selected object, or nil.
func (s *Surface) Active() Object {
	if s.active == "" {
		return nil
	}
	obj, _ := s.Find(s.active)
	return obj
}

// DiscardActive clears the selection.
func (s *Surface) DiscardActive() {
	s.active = ""
}

// Objects returns copies of all objects in stacking order, bottom first.
func (s *Surface) Objects() []Object {
	out := make([]Object, len(s.objects))
	for i, obj := range s.objects {
		out[i] = obj.clone()
	}
	return out
}

// Clear removes every object.
func (s *Surface) Clear() {
	s.objects = nil
	s.active = ""
}

// SendToBack moves an object beneath all others.
func (s *Surface) SendToBack(id string) {
	i := s.index(id)
	if i <= 0 {
		return
	}
	obj := s.objects[i]
	copy(s.objects[1:i+1], s.objects[:i])
	s.objects[0] = obj
}

// Snapshot serializes the whole surface.
func (s *Surface) Snapshot() ([]byte, error) {
	return EncodeSnapshot(s.width, s.height, s.objects)
}

// Load replaces the surface content with a snapshot. On error the surface is unchanged.
func (s *Surface) Load(snapshot []byte) error {
	objects, err := DecodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	s.objects = objects
	s.active = ""
	return nil
}

// Render draws all objects onto a transparent bitmap the size of the surface.
func (s *Surface) Render() (image.Image, error) {
	return render(s.width, s.height, s.objects)
}

func (s *Surface) index(id string) int {
	for i, obj := range s.objects {
		if obj.Base().ID == id {
			return i
		}
	}
	return -1
}
