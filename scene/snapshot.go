package scene

import (
	"encoding/json"
	"fmt"
)

// SnapshotVersion is written into every snapshot.
const SnapshotVersion = 1

type snapshotJSON struct {
	Version int               `json:"version"`
	Width   int               `json:"width"`
	Height  int               `json:"height"`
	Objects []json.RawMessage `json:"objects"`
}

// MarshalObject encodes obj with its "type" discriminator.
func MarshalObject(obj Object) ([]byte, error) {
	switch o := obj.(type) {
	case *Shape:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Shape
		}{KindShape, o})
	case *Text:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Text
		}{KindText, o})
	case *Image:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Image
		}{KindImage, o})
	}
	return nil, fmt.Errorf("unsupported object %T", obj)
}

// UnmarshalObject decodes a single object and validates it.
func UnmarshalObject(data []byte) (Object, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}

	var obj Object
	switch head.Type {
	case KindShape:
		obj = &Shape{}
	case KindText:
		obj = &Text{}
	case KindImage:
		obj = &Image{}
	default:
		return nil, fmt.Errorf("unknown object type %q", head.Type)
	}
	if err := json.Unmarshal(data, obj); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type, err)
	}
	if err := Validate(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// EncodeSnapshot serializes the objects of a width x height surface.
func EncodeSnapshot(width, height int, objects []Object) ([]byte, error) {
	snap := snapshotJSON{
		Version: SnapshotVersion,
		Width:   width,
		Height:  height,
		Objects: make([]json.RawMessage, 0, len(objects)),
	}
	for _, obj := range objects {
		raw, err := MarshalObject(obj)
		if err != nil {
			return nil, err
		}
		snap.Objects = append(snap.Objects, raw)
	}
	return json.Marshal(snap)
}

// DecodeSnapshot parses a snapshot. It fails as a whole if any object is invalid.
func DecodeSnapshot(data []byte) ([]Object, error) {
	var snap snapshotJSON
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	objects := make([]Object, 0, len(snap.Objects))
	for i, raw := range snap.Objects {
		obj, err := UnmarshalObject(raw)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}
