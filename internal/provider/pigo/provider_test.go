package pigo

import (
	"context"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	pigocore "github.com/esimov/pigo/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
)

type fakeCascade struct {
	dets      []pigocore.Detection
	gotParams pigocore.CascadeParams
	gotIoU    float64
	clustered bool
}

func (f *fakeCascade) RunCascade(cp pigocore.CascadeParams, angle float64) []pigocore.Detection {
	f.gotParams = cp
	return f.dets
}

func (f *fakeCascade) ClusterDetections(detections []pigocore.Detection, iouThreshold float64) []pigocore.Detection {
	f.clustered = true
	f.gotIoU = iouThreshold
	return detections
}

func TestNewProvider_MissingCascade(t *testing.T) {
	_, err := NewProvider(DefaultConfig())
	assert.ErrorIs(t, err, ErrMissingCascade)

	cfg := DefaultConfig()
	cfg.CascadePath = filepath.Join(t.TempDir(), "facefinder")
	_, err = NewProvider(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read cascade file")
}

func TestFaceFromDetection(t *testing.T) {
	face := faceFromDetection(pigocore.Detection{Row: 120, Col: 200, Scale: 80, Q: 30})

	assert.Equal(t, provider.BoundingBox{Left: 160, Top: 80, Width: 80, Height: 80}, face.BoundingBox)
	assert.Equal(t, 0.0, face.SmilingProbability)
	assert.Equal(t, 1.0, face.LeftEyeOpenProbability)
	assert.Equal(t, 1.0, face.RightEyeOpenProbability)
}

func TestProvider_DetectFaces(t *testing.T) {
	fake := &fakeCascade{
		dets: []pigocore.Detection{
			{Row: 50, Col: 50, Scale: 40, Q: 12},
			{Row: 150, Col: 150, Scale: 60, Q: 2},
		},
	}
	p := &Provider{classifier: fake, config: DefaultConfig()}

	detector, err := p.Open(context.Background())
	require.NoError(t, err)
	defer detector.Close()

	photo := &provider.Photo{Image: imaging.New(320, 240, color.NRGBA{R: 10, G: 20, B: 30, A: 255})}
	faces, err := detector.DetectFaces(context.Background(), photo)

	require.NoError(t, err)
	require.Len(t, faces, 1, "detections below the quality threshold are dropped")
	assert.Equal(t, provider.BoundingBox{Left: 30, Top: 30, Width: 40, Height: 40}, faces[0].BoundingBox)

	assert.True(t, fake.clustered)
	assert.Equal(t, 0.2, fake.gotIoU)
	assert.Equal(t, 320, fake.gotParams.ImageParams.Cols)
	assert.Equal(t, 240, fake.gotParams.ImageParams.Rows)
	assert.Len(t, fake.gotParams.ImageParams.Pixels, 320*240)
}

func TestProvider_DetectFaces_CanceledContext(t *testing.T) {
	p := &Provider{classifier: &fakeCascade{}, config: DefaultConfig()}
	detector, err := p.Open(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = detector.DetectFaces(ctx, &provider.Photo{Image: imaging.New(10, 10, color.NRGBA{})})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "pigo", p.Name())
}
