package catalog

import (
	"context"
	"fmt"
	"image"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"youngin-studio/scene"
)

// maxTemplateBytes caps how much of a remote template is read.
const maxTemplateBytes = 32 << 20

// Loader resolves template references to decoded images.
type Loader struct {
	files  fs.FS
	client *http.Client
}

// NewLoader serves relative paths from root.
func NewLoader(root string) *Loader {
	return NewLoaderFS(os.DirFS(root))
}

// NewLoaderFS serves relative paths from fsys.
func NewLoaderFS(fsys fs.FS) *Loader {
	return &Loader{files: fsys, client: http.DefaultClient}
}

// Load decodes the image behind src: a data URL, an http(s) URL or a path.
func (l *Loader) Load(ctx context.Context, src string) (image.Image, error) {
	switch {
	case scene.IsDataURL(src):
		return scene.DecodeImageDataURL(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetch(ctx, src)
	}

	name := path.Clean(strings.TrimPrefix(src, "/"))
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid template path %q", src)
	}
	data, err := fs.ReadFile(l.files, name)
	if err != nil {
		return nil, fmt.Errorf("open template %s: %w", name, err)
	}

	img, err := scene.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode template %s: %w", name, err)
	}
	return img, nil
}

func (l *Loader) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch template %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch template %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTemplateBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch template %s: %w", url, err)
	}
	img, err := scene.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode template %s: %w", url, err)
	}
	return img, nil
}
