package scene

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontsOnce   sync.Once
	regularFont *text.FontSource
	boldFont    *text.FontSource
	fontsErr    error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		regularFont, fontsErr = text.NewFontSource(goregular.TTF)
		if fontsErr != nil {
			return
		}
		boldFont, fontsErr = text.NewFontSource(gobold.TTF)
	})
	return fontsErr
}

func render(width, height int, objects []Object) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.Clear()

	for _, obj := range objects {
		var err error
		switch o := obj.(type) {
		case *Shape:
			err = drawShape(dc, o)
		case *Text:
			err = drawText(dc, o)
		case *Image:
			err = drawImage(dc, o)
		}
		if err != nil {
			// A broken object must not blank the rest of the design.
			logrus.WithFields(logrus.Fields{
				"object_id": obj.Base().ID,
				"type":      obj.Kind(),
			}).WithError(err).Warn("Skipping object that failed to render")
		}
	}

	if err := dc.FlushGPU(); err != nil {
		return nil, fmt.Errorf("flush render: %w", err)
	}
	return dc.Image(), nil
}

func drawShape(dc *gg.Context, s *Shape) error {
	switch s.Shape {
	case ShapeCircle:
		dc.DrawEllipse(s.Left+s.Width/2, s.Top+s.Height/2, s.Width/2, s.Height/2)
	case ShapeRect:
		dc.DrawRectangle(s.Left, s.Top, s.Width, s.Height)
	case ShapePath:
		for i, p := range s.Points {
			if i == 0 {
				dc.MoveTo(s.Left+p.X, s.Top+p.Y)
				continue
			}
			dc.LineTo(s.Left+p.X, s.Top+p.Y)
		}
	default:
		return fmt.Errorf("unknown shape %q", s.Shape)
	}
	return paint(dc, s.Fill, s.Stroke, s.StrokeWidth)
}

func paint(dc *gg.Context, fill, stroke string, strokeWidth float64) error {
	doStroke := stroke != "" && strokeWidth > 0
	if fill != "" && fill != "transparent" {
		dc.SetHexColor(fill)
		if doStroke {
			if err := dc.FillPreserve(); err != nil {
				return err
			}
		} else if err := dc.Fill(); err != nil {
			return err
		}
	}
	if doStroke {
		dc.SetHexColor(stroke)
		dc.SetLineWidth(strokeWidth)
		return dc.Stroke()
	}
	dc.ClearPath()
	return nil
}

func drawText(dc *gg.Context, t *Text) error {
	if err := loadFonts(); err != nil {
		return fmt.Errorf("load fonts: %w", err)
	}
	source := regularFont
	if t.FontWeight == "bold" {
		source = boldFont
	}
	dc.SetFont(source.Face(t.FontSize))
	fill := t.Fill
	if fill == "" {
		fill = "#000000"
	}
	dc.SetHexColor(fill)
	// Top is the top of the line box; gg draws from the baseline.
	dc.DrawString(t.Text, t.Left, t.Top+t.FontSize)
	return nil
}

func drawImage(dc *gg.Context, i *Image) error {
	img, err := DecodeImageDataURL(i.Src)
	if err != nil {
		return err
	}
	w, h := i.Width, i.Height
	if w == 0 || h == 0 {
		b := img.Bounds()
		w, h = float64(b.Dx()), float64(b.Dy())
	}
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:             i.Left,
		Y:             i.Top,
		DstWidth:      w,
		DstHeight:     h,
		Interpolation: gg.InterpBilinear,
		Opacity:       1.0,
		BlendMode:     gg.BlendNormal,
	})
	return nil
}
