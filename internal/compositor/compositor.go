// Package compositor scales emoji images to face boxes and draws them over a photo.
package compositor

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
)

// ScaleFactor shrinks the emoji relative to the face width
const ScaleFactor = 0.9

// TargetSize returns the emoji size for a face. The height scale factor is
// applied after the aspect-ratio division, which truncates first.
func TargetSize(box provider.BoundingBox, emoji image.Rectangle) (w, h int) {
	if emoji.Dx() <= 0 || emoji.Dy() <= 0 {
		return 0, 0
	}
	w = int(float64(box.Width) * ScaleFactor)
	h = int(float64(emoji.Dy()*w/emoji.Dx()) * ScaleFactor)
	return w, h
}

// Placement returns where a resized emoji of size w x h is drawn for box.
// The point may fall partly or fully outside the photo.
func Placement(box provider.BoundingBox, w, h int) image.Rectangle {
	x := box.Right() + box.Width/2 - w/2
	y := box.CenterY() + box.Height/2 - h/3
	return image.Rect(x, y, x+w, y+h)
}

// Layout computes the target rectangle for an emoji over a face. ok is false
// when the emoji would collapse to zero pixels.
func Layout(box provider.BoundingBox, emoji image.Rectangle) (image.Rectangle, bool) {
	w, h := TargetSize(box, emoji)
	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	return Placement(box, w, h), true
}

// Overlay returns a copy of background with emoji drawn over box. Pixels
// that land outside the background are dropped.
func Overlay(background, emoji image.Image, box provider.BoundingBox) *image.NRGBA {
	rect, ok := Layout(box, emoji.Bounds())
	if !ok {
		return imaging.Clone(background)
	}

	resized := imaging.Resize(emoji, rect.Dx(), rect.Dy(), imaging.NearestNeighbor)
	origin := background.Bounds().Min.Add(rect.Min)

	return imaging.Overlay(background, resized, origin, 1.0)
}

// Layer pairs a face box with the emoji drawn over it
type Layer struct {
	Box   provider.BoundingBox
	Emoji image.Image
}

// Compose applies every layer in order and returns a new image with the
// same dimensions as photo. Later layers draw over earlier ones.
func Compose(photo image.Image, layers []Layer) *image.NRGBA {
	out := imaging.Clone(photo)
	for _, layer := range layers {
		if layer.Emoji == nil {
			continue
		}
		out = Overlay(out, layer.Emoji, layer.Box)
	}
	return out
}
