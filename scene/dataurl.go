package scene

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	_ "golang.org/x/image/webp"
)

// MaxImageSide bounds the width and height of any image the studio decodes.
const MaxImageSide = 4096

// ErrImageTooLarge is returned for images wider or taller than MaxImageSide.
var ErrImageTooLarge = errors.New("image too large")

// EncodeDataURL wraps raw bytes in a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURL reports whether s looks like a data URL.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// DecodeDataURL returns the media type and payload of a data URL.
func DecodeDataURL(s string) (string, []byte, error) {
	if !IsDataURL(s) {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL")
	}

	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if mimeType == "" {
		mimeType = "text/plain"
	}
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("decode data URL payload: %w", err)
		}
		return mimeType, data, nil
	}

	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL payload: %w", err)
	}
	return mimeType, []byte(unescaped), nil
}

// DecodeImageDataURL decodes a PNG, JPEG, GIF or WebP data URL.
func DecodeImageDataURL(s string) (image.Image, error) {
	data, err := imageDataURLPayload(s)
	if err != nil {
		return nil, err
	}
	return DecodeImage(data)
}

// CheckImageDataURL reports whether s is an image data URL within the size cap,
// reading only the image header.
func CheckImageDataURL(s string) error {
	data, err := imageDataURLPayload(s)
	if err != nil {
		return err
	}
	return checkImageSize(data)
}

// DecodeImage decodes data once its header shows it fits within MaxImageSide.
func DecodeImage(data []byte) (image.Image, error) {
	if err := checkImageSize(data); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func imageDataURLPayload(s string) ([]byte, error) {
	mimeType, data, err := DecodeDataURL(s)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("data URL is %s, not an image", mimeType)
	}
	return data, nil
}

func checkImageSize(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width > MaxImageSide || cfg.Height > MaxImageSide {
		return fmt.Errorf("%w: %dx%d exceeds %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height, MaxImageSide, MaxImageSide)
	}
	return nil
}
