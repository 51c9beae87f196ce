// Package imagecodec sniffs, decodes and encodes the photos accepted by the service.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	// registers the webp decoder with image.Decode
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyImage        = errors.New("empty image")
	ErrUnsupportedType   = errors.New("unsupported image type")
	ErrUnsupportedFormat = errors.New("unsupported output format")
)

// Format names returned by Decode
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWEBP = "webp"
)

var allowedTypes = map[string]string{
	"image/jpeg": FormatJPEG,
	"image/png":  FormatPNG,
	"image/webp": FormatWEBP,
}

// Sniff detects the media type of data and returns the matching format name
func Sniff(data []byte) (mimeType, format string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmptyImage
	}

	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if f, ok := allowedTypes[m.String()]; ok {
			return m.String(), f, nil
		}
	}

	return mt.String(), "", fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
}

// Decode sniffs and decodes data. EXIF orientation is applied so detectors
// and compositing see the photo upright.
func Decode(data []byte) (image.Image, string, error) {
	_, format, err := Sniff(data)
	if err != nil {
		return nil, "", err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", format, err)
	}

	return img, format, nil
}

// Rotated reports whether img, the oriented decode of data, no longer has the
// encoded dimensions. That happens for EXIF orientations 5 to 8.
func Rotated(data []byte, img image.Image) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false
	}
	b := img.Bounds()
	return cfg.Width != b.Dx() || cfg.Height != b.Dy()
}

// UprightBytes returns bytes in the pixel coordinates of img. data is kept
// unless decoding rotated it, then img is re-encoded as JPEG.
func UprightBytes(data []byte, img image.Image) ([]byte, error) {
	if img == nil || !Rotated(data, img) {
		return data, nil
	}
	return Encode(img, imaging.JPEG)
}

// ParseFormat resolves an output format name such as "png" or "jpg".
// WebP is decode-only.
func ParseFormat(name string) (imaging.Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	f, err := imaging.FormatFromExtension(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	switch f {
	case imaging.JPEG, imaging.PNG:
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// Encode writes img in the given format
func Encode(img image.Image, format imaging.Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// ContentType returns the media type for an output format
func ContentType(format imaging.Format) string {
	switch format {
	case imaging.JPEG:
		return "image/jpeg"
	case imaging.PNG:
		return "image/png"
	case imaging.GIF:
		return "image/gif"
	case imaging.TIFF:
		return "image/tiff"
	case imaging.BMP:
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}
