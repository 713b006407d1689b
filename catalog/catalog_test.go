package catalog

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"youngin-studio/core"
	"youngin-studio/scene"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDefault(t *testing.T) {
	c := Default()
	src, ok := c.Template(core.GarmentTShirt)
	assert.True(t, ok)
	assert.Equal(t, "assets/tshirt.png", src)

	_, ok = c.Template(core.GarmentCustom)
	assert.False(t, ok)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garments.toml")
	content := `
root = "/srv/youngin"

[garments.hoodie]
name = "Oversized Hoodie"
image = "assets/hoodie-v2.png"
color = "#000000"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/youngin", c.Root)
	assert.Equal(t, "Oversized Hoodie", c.Garments[core.GarmentHoodie].Name)

	src, ok := c.Template(core.GarmentTShirt)
	assert.True(t, ok)
	assert.Equal(t, "assets/tshirt.png", src)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("[garments.socks]\nimage = \"s.png\"\n"), 0644))
	_, err = Load(unknown)
	assert.Error(t, err)

	custom := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(custom, []byte("[garments.custom]\nimage = \"c.png\"\n"), 0644))
	_, err = Load(custom)
	assert.Error(t, err)

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("garments = ["), 0644))
	_, err = Load(broken)
	assert.Error(t, err)
}

func TestLoader_Sources(t *testing.T) {
	ctx := context.Background()
	data := pngBytes(t, 40, 80)
	l := NewLoaderFS(fstest.MapFS{"assets/tshirt.png": {Data: data}})

	img, err := l.Load(ctx, "assets/tshirt.png")
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())

	img, err = l.Load(ctx, scene.EncodeDataURL("image/png", data))
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dy())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tshirt.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	img, err = l.Load(ctx, srv.URL+"/tshirt.png")
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())

	_, err = l.Load(ctx, srv.URL+"/missing.png")
	assert.Error(t, err)
	_, err = l.Load(ctx, "assets/missing.png")
	assert.Error(t, err)
	_, err = l.Load(ctx, "../etc/passwd")
	assert.Error(t, err)
}

func TestLoader_RejectsOversizedTemplates(t *testing.T) {
	ctx := context.Background()
	data := pngBytes(t, scene.MaxImageSide+1, 1)
	l := NewLoaderFS(fstest.MapFS{"assets/wide.png": {Data: data}})

	_, err := l.Load(ctx, "assets/wide.png")
	assert.ErrorIs(t, err, scene.ErrImageTooLarge)

	_, err = l.Load(ctx, scene.EncodeDataURL("image/png", data))
	assert.ErrorIs(t, err, scene.ErrImageTooLarge)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	_, err = l.Load(ctx, srv.URL+"/wide.png")
	assert.ErrorIs(t, err, scene.ErrImageTooLarge)
}
