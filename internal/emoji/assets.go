package emoji

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/saturnino-fabrica-de-software/emojify/internal/domain"
)

//go:embed assets/*.png
var assetsFS embed.FS

// ErrNoAssets is returned when a directory holds none of the expected files
var ErrNoAssets = errors.New("no emoji assets found")

// assetNames maps each expression to the file that draws it
var assetNames = map[domain.Expression]string{
	domain.ExpressionSmile:          "smile.png",
	domain.ExpressionFrown:          "frown.png",
	domain.ExpressionLeftWink:       "leftwink.png",
	domain.ExpressionRightWink:      "rightwink.png",
	domain.ExpressionLeftWinkFrown:  "leftwinkfrown.png",
	domain.ExpressionRightWinkFrown: "rightwinkfrown.png",
	domain.ExpressionClosedEyeSmile: "closed_smile.png",
	domain.ExpressionClosedEyeFrown: "closed_frown.png",
}

// AssetName returns the file name used for an expression
func AssetName(e domain.Expression) (string, bool) {
	name, ok := assetNames[e]
	return name, ok
}

// Set holds one decoded emoji image per expression. A Set loaded from a
// directory may be partial; Lookup reports the missing expressions.
type Set struct {
	images map[domain.Expression]image.Image
}

// NewSet builds a set from already decoded images
func NewSet(images map[domain.Expression]image.Image) *Set {
	copied := make(map[domain.Expression]image.Image, len(images))
	for e, img := range images {
		copied[e] = img
	}
	return &Set{images: copied}
}

// LoadEmbedded decodes the emoji images compiled into the binary
func LoadEmbedded() (*Set, error) {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		return nil, fmt.Errorf("open embedded assets: %w", err)
	}
	set, err := load(sub)
	if err != nil {
		return nil, fmt.Errorf("load embedded assets: %w", err)
	}
	return set, nil
}

// LoadDir decodes emoji images from dir. Missing files are skipped.
func LoadDir(dir string) (*Set, error) {
	set, err := load(os.DirFS(filepath.Clean(dir)))
	if err != nil {
		return nil, fmt.Errorf("load assets from %s: %w", dir, err)
	}
	return set, nil
}

func load(fsys fs.FS) (*Set, error) {
	images := make(map[domain.Expression]image.Image, len(assetNames))
	for expression, name := range assetNames {
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		images[expression] = img
	}

	if len(images) == 0 {
		return nil, ErrNoAssets
	}

	return &Set{images: images}, nil
}

// Lookup returns the emoji image for an expression
func (s *Set) Lookup(e domain.Expression) (image.Image, bool) {
	img, ok := s.images[e]
	return img, ok
}

// Missing lists the expressions without an image
func (s *Set) Missing() []domain.Expression {
	var missing []domain.Expression
	for _, e := range domain.AllExpressions() {
		if _, ok := s.images[e]; !ok {
			missing = append(missing, e)
		}
	}
	return missing
}

// Len returns the number of loaded images
func (s *Set) Len() int {
	return len(s.images)
}
