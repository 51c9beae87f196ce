package compositor

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
)

var (
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.NRGBA{R: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

func TestTargetSize(t *testing.T) {
	tests := []struct {
		name  string
		width int
		emoji image.Rectangle
		wantW int
		wantH int
	}{
		{"square asset", 200, image.Rect(0, 0, 100, 100), 180, 162},
		{"wide asset", 100, image.Rect(0, 0, 200, 100), 90, 40},
		{"tall asset", 100, image.Rect(0, 0, 64, 128), 90, 162},
		{"tiny face collapses", 1, image.Rect(0, 0, 128, 128), 0, 0},
		{"empty asset", 100, image.Rectangle{}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := TargetSize(provider.BoundingBox{Width: tt.width, Height: tt.width}, tt.emoji)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestPlacement(t *testing.T) {
	box := provider.BoundingBox{Left: 100, Top: 100, Width: 200, Height: 200}

	rect := Placement(box, 180, 162)

	assert.Equal(t, image.Pt(310, 246), rect.Min)
	assert.Equal(t, 180, rect.Dx())
	assert.Equal(t, 162, rect.Dy())
}

func TestLayout_SkipsZeroSize(t *testing.T) {
	_, ok := Layout(provider.BoundingBox{Width: 1, Height: 1}, image.Rect(0, 0, 128, 128))
	assert.False(t, ok)

	rect, ok := Layout(provider.BoundingBox{Left: 100, Top: 100, Width: 200, Height: 200}, image.Rect(0, 0, 100, 100))
	require.True(t, ok)
	assert.Equal(t, image.Rect(310, 246, 490, 408), rect)
}

func TestOverlay_DrawsAtPlacement(t *testing.T) {
	background := imaging.New(800, 800, white)
	emoji := imaging.New(100, 100, red)
	box := provider.BoundingBox{Left: 100, Top: 100, Width: 200, Height: 200}

	out := Overlay(background, emoji, box)

	require.Equal(t, background.Bounds(), out.Bounds())
	assert.Equal(t, red, out.NRGBAAt(310, 246))
	assert.Equal(t, red, out.NRGBAAt(489, 407))
	assert.Equal(t, white, out.NRGBAAt(309, 246))
	assert.Equal(t, white, out.NRGBAAt(490, 246))
	assert.Equal(t, white, out.NRGBAAt(310, 408))
	assert.Equal(t, white, out.NRGBAAt(150, 150), "face interior outside the emoji stays untouched")

	assert.Equal(t, white, background.NRGBAAt(310, 246), "background must not be modified")
}

func TestOverlay_TransparentPixelsKeepBackground(t *testing.T) {
	background := imaging.New(400, 400, white)
	emoji := imaging.New(100, 100, color.NRGBA{})
	box := provider.BoundingBox{Left: 50, Top: 50, Width: 100, Height: 100}

	out := Overlay(background, emoji, box)

	assert.Equal(t, background.Pix, out.Pix)
}

func TestCompose_PreservesDimensions(t *testing.T) {
	photo := imaging.New(640, 480, white)
	emoji := imaging.New(128, 128, red)

	boxes := []provider.BoundingBox{
		{Left: 0, Top: 0, Width: 100, Height: 100},
		{Left: 600, Top: 400, Width: 200, Height: 200},
		{Left: -300, Top: -300, Width: 50, Height: 50},
		{Left: 5000, Top: 5000, Width: 80, Height: 80},
		{Left: 10, Top: 10, Width: 1, Height: 1},
		{Left: 0, Top: 0, Width: 2000, Height: 2000},
	}

	for _, box := range boxes {
		out := Compose(photo, []Layer{{Box: box, Emoji: emoji}})
		assert.Equal(t, 640, out.Bounds().Dx(), "box %+v", box)
		assert.Equal(t, 480, out.Bounds().Dy(), "box %+v", box)
	}
}

func TestCompose_NoLayersLeavesPixelsUnchanged(t *testing.T) {
	photo := imaging.New(64, 48, blue)
	photo.SetNRGBA(3, 4, red)

	out := Compose(photo, nil)

	assert.Equal(t, photo.Pix, out.Pix)
	assert.Equal(t, photo.Bounds(), out.Bounds())
}

func TestCompose_OffCanvasLeavesPixelsUnchanged(t *testing.T) {
	photo := imaging.New(100, 100, white)
	emoji := imaging.New(64, 64, red)

	out := Compose(photo, []Layer{{Box: provider.BoundingBox{Left: 1000, Top: 1000, Width: 50, Height: 50}, Emoji: emoji}})

	assert.Equal(t, photo.Pix, out.Pix)
}

func TestCompose_LaterLayersDrawOnTop(t *testing.T) {
	photo := imaging.New(800, 800, white)
	box := provider.BoundingBox{Left: 100, Top: 100, Width: 200, Height: 200}

	out := Compose(photo, []Layer{
		{Box: box, Emoji: imaging.New(100, 100, red)},
		{Box: box, Emoji: imaging.New(100, 100, blue)},
	})

	assert.Equal(t, blue, out.NRGBAAt(400, 300))
}

func TestCompose_SkipsNilEmoji(t *testing.T) {
	photo := imaging.New(200, 200, white)

	out := Compose(photo, []Layer{{Box: provider.BoundingBox{Width: 100, Height: 100}}})

	assert.Equal(t, photo.Pix, out.Pix)
}
