// Package scene implements the drawing surface the design studio edits: a flat,
// ordered list of shape, text and image objects that serializes to a portable JSON
// snapshot and renders to a transparent bitmap.
package scene

import "fmt"

// Kind discriminates the object variants in a snapshot.
type Kind string

const (
	KindShape Kind = "shape"
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// ShapeKind selects the geometry of a Shape.
type ShapeKind string

const (
	ShapeCircle ShapeKind = "circle"
	ShapeRect   ShapeKind = "rect"
	ShapePath   ShapeKind = "path"
)

type (
	// Props holds the attributes every object carries.
	Props struct {
		ID          string  `json:"id"`
		Left        float64 `json:"left"`
		Top         float64 `json:"top"`
		Width       float64 `json:"width"`
		Height      float64 `json:"height"`
		Fill        string  `json:"fill,omitempty"`
		Stroke      string  `json:"stroke,omitempty"`
		StrokeWidth float64 `json:"strokeWidth,omitempty"`
		Selectable  bool    `json:"selectable"`
		Evented     bool    `json:"evented"`

		// GarmentBackground marks template layers; they stay locked behind user content.
		GarmentBackground bool `json:"isGarmentBackground,omitempty"`
	}

	// Point is a vertex of a free-drawn path, relative to the object's Left/Top.
	Point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// Shape is a filled and/or stroked geometric object, including brush strokes.
	Shape struct {
		Props
		Shape  ShapeKind `json:"shape"`
		Points []Point   `json:"points,omitempty"`
	}

	// Text is a single line of text anchored at its top-left corner.
	Text struct {
		Props
		Text       string  `json:"text"`
		FontSize   float64 `json:"fontSize"`
		FontWeight string  `json:"fontWeight,omitempty"`
	}

	// Image is a raster placed on the surface; Src is a data URL.
	Image struct {
		Props
		Src string `json:"src"`
	}
)

// Object is one of *Shape, *Text or *Image.
type Object interface {
	Kind() Kind
	Base() *Props
	clone() Object
}

func (s *Shape) Kind() Kind    { return KindShape }
func (s *Shape) Base() *Props  { return &s.Props }
func (t *Text) Kind() Kind     { return KindText }
func (t *Text) Base() *Props   { return &t.Props }
func (i *Image) Kind() Kind    { return KindImage }
func (i *Image) Base() *Props  { return &i.Props }
func (s *Shape) clone() Object { c := *s; c.Points = append([]Point(nil), s.Points...); return &c }
func (t *Text) clone() Object  { c := *t; return &c }
func (i *Image) clone() Object { c := *i; return &c }

// Clone returns a deep copy of obj.
func Clone(obj Object) Object {
	if obj == nil {
		return nil
	}
	return obj.clone()
}

// Validate checks the variant-specific invariants of obj.
func Validate(obj Object) error {
	if obj == nil {
		return fmt.Errorf("object is nil")
	}
	p := obj.Base()
	if p.Width < 0 || p.Height < 0 {
		return fmt.Errorf("object %s has negative size", p.ID)
	}
	switch o := obj.(type) {
	case *Shape:
		switch o.Shape {
		case ShapeCircle, ShapeRect:
		case ShapePath:
			if len(o.Points) == 0 {
				return fmt.Errorf("path %s has no points", p.ID)
			}
		default:
			return fmt.Errorf("unknown shape %q", o.Shape)
		}
	case *Text:
		if o.FontSize <= 0 {
			return fmt.Errorf("text %s has no font size", p.ID)
		}
	case *Image:
		if o.Src == "" {
			return fmt.Errorf("image %s has no source", p.ID)
		}
	}
	return nil
}

// Patch is a partial style update; nil fields are left unchanged.
type Patch struct {
	Left        *float64 `json:"left,omitempty"`
	Top         *float64 `json:"top,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Fill        *string  `json:"fill,omitempty"`
	Stroke      *string  `json:"stroke,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`
	Text        *string  `json:"text,omitempty"`
	FontSize    *float64 `json:"fontSize,omitempty"`
}

// Apply updates obj in place. Text fields are ignored for non-text objects.
func (p Patch) Apply(obj Object) {
	b := obj.Base()
	if p.Left != nil {
		b.Left = *p.Left
	}
	if p.Top != nil {
		b.Top = *p.Top
	}
	if p.Width != nil {
		b.Width = *p.Width
	}
	if p.Height != nil {
		b.Height = *p.Height
	}
	if p.Fill != nil {
		// Unfilled brush strokes take the colour on their stroke.
		if s, ok := obj.(*Shape); ok && s.Shape == ShapePath && s.Fill == "" {
			s.Stroke = *p.Fill
		} else {
			b.Fill = *p.Fill
		}
	}
	if p.Stroke != nil {
		b.Stroke = *p.Stroke
	}
	if p.StrokeWidth != nil {
		b.StrokeWidth = *p.StrokeWidth
	}
	if t, ok := obj.(*Text); ok {
		if p.Text != nil {
			t.Text = *p.Text
		}
		if p.FontSize != nil {
			t.FontSize = *p.FontSize
		}
	}
}
