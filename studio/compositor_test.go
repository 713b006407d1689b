package studio

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLoader struct {
	images map[string]image.Image
	calls  []string
}

func (f *fakeLoader) Load(_ context.Context, src string) (image.Image, error) {
	f.calls = append(f.calls, src)
	img, ok := f.images[src]
	if !ok {
		return nil, errors.New("not found")
	}
	return img, nil
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestContain(t *testing.T) {
	p := Contain(400, 800, 500, 600)
	assert.InDelta(t, 0.75, p.Scale, 1e-9)
	assert.InDelta(t, 300, p.Width, 1e-9)
	assert.InDelta(t, 600, p.Height, 1e-9)
	assert.InDelta(t, 100, p.X, 1e-9)
	assert.InDelta(t, 0, p.Y, 1e-9)
	assert.Equal(t, image.Rect(100, 0, 400, 600), p.Rect())
}

func TestContain_NeverExceedsBounds(t *testing.T) {
	cases := [][4]int{
		{400, 800, 500, 600},
		{1000, 100, 500, 600},
		{10, 10, 500, 600},
		{500, 600, 500, 600},
		{3, 7, 11, 13},
	}
	for _, c := range cases {
		p := Contain(c[0], c[1], c[2], c[3])
		r := p.Rect()
		assert.True(t, r.In(image.Rect(0, 0, c[2], c[3])), "case %v placed at %v", c, r)
		assert.InDelta(t, float64(c[0])/float64(c[1]), p.Width/p.Height, 1e-9)
		assert.InDelta(t, p.X, float64(c[2])-p.X-p.Width, 1e-9, "horizontally centered")
		assert.InDelta(t, p.Y, float64(c[3])-p.Y-p.Height, 1e-9, "vertically centered")
	}
	assert.Equal(t, Placement{}, Contain(0, 10, 500, 600))
}

func TestComposite_WhiteWithoutTemplate(t *testing.T) {
	c := NewCompositor(&fakeLoader{})
	img := c.Composite(context.Background(), "", nil, 20, 10)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(5, 5))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(19, 9))
}

func TestComposite_TemplateLetterboxedAndOverlayOnTop(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	loader := &fakeLoader{images: map[string]image.Image{"tpl.png": solid(400, 800, red)}}
	c := NewCompositor(loader)

	overlay := image.NewRGBA(image.Rect(0, 0, 500, 600))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			overlay.SetRGBA(x, y, blue)
			overlay.SetRGBA(200+x, 300+y, blue)
		}
	}

	img := c.Composite(context.Background(), "tpl.png", overlay, 500, 600)

	inside := img.RGBAAt(250, 50)
	assert.Greater(t, inside.R, uint8(250), "template drawn inside its placement")
	assert.Equal(t, uint8(0), inside.B)
	assert.Equal(t, uint8(0), img.RGBAAt(50, 300).A, "letterbox area stays empty")
	assert.Equal(t, uint8(0), img.RGBAAt(450, 300).A, "letterbox area stays empty")
	assert.Equal(t, blue, img.RGBAAt(5, 5), "overlay drawn at origin")
	assert.Equal(t, blue, img.RGBAAt(205, 305), "overlay drawn over template")
	assert.Equal(t, []string{"tpl.png"}, loader.calls)
}

func TestComposite_FailedTemplateFallsBackToWhite(t *testing.T) {
	c := NewCompositor(&fakeLoader{})
	overlay := image.NewRGBA(image.Rect(0, 0, 20, 20))
	overlay.SetRGBA(1, 1, color.RGBA{0, 255, 0, 255})

	img := c.Composite(context.Background(), "broken.png", overlay, 20, 20)
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(10, 10))
	assert.Equal(t, color.RGBA{0, 255, 0, 255}, img.RGBAAt(1, 1))
}

func TestEncodePNG(t *testing.T) {
	data, err := EncodePNG(solid(2, 2, color.RGBA{1, 2, 3, 255}))
	assert.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}
