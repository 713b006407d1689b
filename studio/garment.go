package studio

import (
	"context"
	"fmt"

	"youngin-studio/catalog"
	"youngin-studio/core"
	"youngin-studio/scene"
)

// ImagePicker asks the designer for an image. An empty result means the pick was cancelled.
type ImagePicker interface {
	PickImage(ctx context.Context) (string, error)
}

// PickerFunc adapts a function to ImagePicker.
type PickerFunc func(ctx context.Context) (string, error)

func (f PickerFunc) PickImage(ctx context.Context) (string, error) { return f(ctx) }

// Upload is a picker that already holds the uploaded data URL; empty means cancelled.
func Upload(dataURL string) ImagePicker {
	return PickerFunc(func(context.Context) (string, error) { return dataURL, nil })
}

// GarmentSelector tracks the active garment and the session's custom upload.
type GarmentSelector struct {
	catalog *catalog.Catalog
	current core.Garment
	custom  string
}

func NewGarmentSelector(c *catalog.Catalog) *GarmentSelector {
	return &GarmentSelector{catalog: c, current: core.DefaultGarment}
}

// Current returns the active garment.
func (g *GarmentSelector) Current() core.Garment {
	return g.current
}

// Template returns the template reference of the active garment, or "" when none is set.
func (g *GarmentSelector) Template() string {
	if g.current == core.GarmentCustom {
		return g.custom
	}
	src, _ := g.catalog.Template(g.current)
	return src
}

// Select switches garments and reports whether the selection changed. Choosing
// custom asks picker for an upload; a cancelled pick falls back to the default garment.
func (g *GarmentSelector) Select(ctx context.Context, garment core.Garment, picker ImagePicker) (bool, error) {
	if garment == g.current {
		return false, nil
	}

	if garment != core.GarmentCustom {
		if _, ok := g.catalog.Template(garment); !ok {
			return false, fmt.Errorf("%w: %s", ErrUnknownGarment, garment)
		}
		g.current = garment
		return true, nil
	}

	var upload string
	if picker != nil {
		var err error
		if upload, err = picker.PickImage(ctx); err != nil {
			return false, fmt.Errorf("pick custom garment: %w", err)
		}
	}
	if upload == "" {
		changed := g.current != core.DefaultGarment
		g.current = core.DefaultGarment
		return changed, nil
	}

	if err := scene.CheckImageDataURL(upload); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidUpload, err)
	}
	g.custom = upload
	g.current = core.GarmentCustom
	return true, nil
}

// restore sets the garment of a loaded design without prompting. Uploads are not
// saved with designs, so a loaded custom garment composites on white until the
// designer picks a new upload.
func (g *GarmentSelector) restore(garment core.Garment) {
	if _, err := core.ParseGarment(string(garment)); err != nil {
		garment = core.DefaultGarment
	}
	g.current = garment
	g.custom = ""
}
