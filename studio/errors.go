package studio

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrObjectNotFound     = errors.New("object not found")
	ErrSaveInProgress     = errors.New("a save is already in progress")
	ErrSurfaceUnavailable = errors.New("drawing surface unavailable")
	ErrUnknownGarment     = errors.New("unknown garment")
	ErrOwnerRequired      = errors.New("owner id is required")
	ErrInvalidUpload      = errors.New("upload is not an image")
)
