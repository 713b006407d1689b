package studio

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"

	"youngin-studio/metrics"
)

// TemplateLoader decodes garment template images.
type TemplateLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// Placement is where a template lands inside the output canvas.
type Placement struct {
	X, Y          float64
	Width, Height float64
	Scale         float64
}

// Contain fits an imgW x imgH image inside outW x outH, preserving aspect ratio
// and centering it. The result never crops and never exceeds the output bounds.
func Contain(imgW, imgH, outW, outH int) Placement {
	if imgW <= 0 || imgH <= 0 {
		return Placement{}
	}
	scale := math.Min(float64(outW)/float64(imgW), float64(outH)/float64(imgH))
	w := float64(imgW) * scale
	h := float64(imgH) * scale
	return Placement{
		X:      (float64(outW) - w) / 2,
		Y:      (float64(outH) - h) / 2,
		Width:  w,
		Height: h,
		Scale:  scale,
	}
}

// Rect rounds the placement to whole pixels.
func (p Placement) Rect() image.Rectangle {
	return image.Rect(
		int(math.Round(p.X)),
		int(math.Round(p.Y)),
		int(math.Round(p.X+p.Width)),
		int(math.Round(p.Y+p.Height)),
	)
}

// Compositor flattens a garment template and the drawing surface into one bitmap.
type Compositor struct {
	loader TemplateLoader
}

func NewCompositor(loader TemplateLoader) *Compositor {
	return &Compositor{loader: loader}
}

// Composite draws the template contain-fitted (or white when there is none, or it
// fails to load) and the overlay on top at the origin.
func (c *Compositor) Composite(ctx context.Context, template string, overlay image.Image, width, height int) *image.RGBA {
	start := time.Now()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	drawn := false
	if template != "" && c.loader != nil {
		img, err := c.loader.Load(ctx, template)
		if err != nil {
			logrus.WithError(err).WithField("template", shorten(template)).Warn("Template failed to load, compositing on white")
		} else {
			b := img.Bounds()
			place := Contain(b.Dx(), b.Dy(), width, height)
			xdraw.CatmullRom.Scale(dst, place.Rect(), img, b, xdraw.Over, nil)
			drawn = true
		}
	}
	if !drawn {
		xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	}

	if overlay != nil {
		xdraw.Draw(dst, overlay.Bounds().Sub(overlay.Bounds().Min), overlay, overlay.Bounds().Min, xdraw.Over)
	}

	metrics.ObserveComposite(template != "", time.Since(start))
	return dst
}

// EncodePNG encodes a composite for download or persistence.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// shorten keeps data URLs out of log lines.
func shorten(src string) string {
	if len(src) > 64 {
		return src[:64] + "..."
	}
	return src
}
