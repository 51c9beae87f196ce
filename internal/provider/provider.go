package provider

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
)

// ErrDetectorClosed is returned when a detector handle is used after Close
var ErrDetectorClosed = errors.New("face detector already closed")

// Opener hands out detector handles for face detection providers
type Opener interface {
	// Open returns a detector handle for a single request. The caller must
	// Close it once the detection result has been handled.
	Open(ctx context.Context) (FaceDetector, error)

	// Name identifies the provider (e.g. "rekognition")
	Name() string
}

// FaceDetector detects faces and classifies their expression probabilities
type FaceDetector interface {
	// DetectFaces returns every face found in the photo. An empty slice
	// with a nil error means the photo contains no face.
	DetectFaces(ctx context.Context, photo *Photo) ([]DetectedFace, error)

	// Close releases the detector handle
	Close() error
}

// Photo is an input image in both encoded and decoded form
type Photo struct {
	Data   []byte
	Image  image.Image
	Format string
}

// Width returns the decoded image width in pixels
func (p *Photo) Width() int {
	return p.Image.Bounds().Dx()
}

// Height returns the decoded image height in pixels
func (p *Photo) Height() int {
	return p.Image.Bounds().Dy()
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox             BoundingBox `json:"bounding_box"`
	SmilingProbability      float64     `json:"smiling_probability"`
	LeftEyeOpenProbability  float64     `json:"left_eye_open_probability"`
	RightEyeOpenProbability float64     `json:"right_eye_open_probability"`
}

// BoundingBox represents the face area in pixel coordinates
type BoundingBox struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns the exclusive right edge
func (b BoundingBox) Right() int {
	return b.Left + b.Width
}

// Bottom returns the exclusive bottom edge
func (b BoundingBox) Bottom() int {
	return b.Top + b.Height
}

// CenterY returns the vertical center, rounded down
func (b BoundingBox) CenterY() int {
	return (b.Top + b.Bottom()) >> 1
}

// ClampProbability limits v to [0, 1]
func ClampProbability(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// DetectFunc performs a single detection call
type DetectFunc func(ctx context.Context, photo *Photo) ([]DetectedFace, error)

// Handle adapts a DetectFunc into a FaceDetector that refuses work after Close
type Handle struct {
	detect  DetectFunc
	release func() error
	closed  atomic.Bool
}

// NewHandle creates a detector handle. release may be nil.
func NewHandle(detect DetectFunc, release func() error) *Handle {
	return &Handle{detect: detect, release: release}
}

// DetectFaces runs the wrapped detection unless the handle was closed
func (h *Handle) DetectFaces(ctx context.Context, photo *Photo) ([]DetectedFace, error) {
	if h.closed.Load() {
		return nil, ErrDetectorClosed
	}
	return h.detect(ctx, photo)
}

// Close releases the handle. A second Close returns ErrDetectorClosed.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return ErrDetectorClosed
	}
	if h.release != nil {
		return h.release()
	}
	return nil
}

// Closed reports whether Close has been called
func (h *Handle) Closed() bool {
	return h.closed.Load()
}

var _ FaceDetector = (*Handle)(nil)
