// Package pigo detects faces locally with the pigo pixel-intensity cascade.
// pigo only locates faces, so every detected face reports a zero smiling
// probability and open eyes.
package pigo

import (
	"context"
	"errors"
	"fmt"
	"os"

	pigocore "github.com/esimov/pigo/core"

	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
)

const providerName = "pigo"

// ErrMissingCascade is returned when no cascade file is configured
var ErrMissingCascade = errors.New("pigo cascade path not configured")

// Config holds the cascade location and detection tuning
type Config struct {
	CascadePath string
	MinSize     int
	MaxSize     int
	ShiftFactor float64
	ScaleFactor float64
	// IoUThreshold merges overlapping detections
	IoUThreshold float64
	// QualityThreshold drops weak detections
	QualityThreshold float32
}

// DefaultConfig returns detection parameters suited to portrait photos
func DefaultConfig() Config {
	return Config{
		MinSize:          20,
		MaxSize:          2000,
		ShiftFactor:      0.1,
		ScaleFactor:      1.1,
		IoUThreshold:     0.2,
		QualityThreshold: 5.0,
	}
}

// cascade is the part of *pigocore.Pigo used for detection
type cascade interface {
	RunCascade(cp pigocore.CascadeParams, angle float64) []pigocore.Detection
	ClusterDetections(detections []pigocore.Detection, iouThreshold float64) []pigocore.Detection
}

// Provider implements provider.Opener with a local cascade classifier
type Provider struct {
	classifier cascade
	config     Config
}

var _ provider.Opener = (*Provider)(nil)

// NewProvider reads and unpacks the facefinder cascade at cfg.CascadePath
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.CascadePath == "" {
		return nil, ErrMissingCascade
	}

	data, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("read cascade file: %w", err)
	}

	classifier, err := pigocore.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade file: %w", err)
	}

	return &Provider{classifier: classifier, config: cfg}, nil
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return providerName
}

// Open returns a detector handle. The unpacked cascade is read-only and shared.
func (p *Provider) Open(_ context.Context) (provider.FaceDetector, error) {
	return provider.NewHandle(p.detectFaces, nil), nil
}

func (p *Provider) detectFaces(ctx context.Context, photo *provider.Photo) ([]provider.DetectedFace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := pigocore.ImgToNRGBA(photo.Image)
	cols, rows := src.Bounds().Dx(), src.Bounds().Dy()

	params := pigocore.CascadeParams{
		MinSize:     p.config.MinSize,
		MaxSize:     p.config.MaxSize,
		ShiftFactor: p.config.ShiftFactor,
		ScaleFactor: p.config.ScaleFactor,
		ImageParams: pigocore.ImageParams{
			Pixels: pigocore.RgbToGrayscale(src),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := p.classifier.RunCascade(params, 0.0)
	dets = p.classifier.ClusterDetections(dets, p.config.IoUThreshold)

	faces := make([]provider.DetectedFace, 0, len(dets))
	for _, det := range dets {
		if det.Q < p.config.QualityThreshold {
			continue
		}
		faces = append(faces, faceFromDetection(det))
	}

	return faces, nil
}

// faceFromDetection converts a center/scale detection into a square box
func faceFromDetection(det pigocore.Detection) provider.DetectedFace {
	return provider.DetectedFace{
		BoundingBox: provider.BoundingBox{
			Left:   det.Col - det.Scale/2,
			Top:    det.Row - det.Scale/2,
			Width:  det.Scale,
			Height: det.Scale,
		},
		SmilingProbability:      0,
		LeftEyeOpenProbability:  1,
		RightEyeOpenProbability: 1,
	}
}
