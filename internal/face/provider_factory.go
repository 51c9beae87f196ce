package face

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/emojify/internal/config"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider/pigo"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider/rekognition"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider/vision"
)

// ProviderType defines supported face detection provider types
type ProviderType string

const (
	// ProviderTypeMock returns deterministic faces (dev/test)
	ProviderTypeMock ProviderType = "mock"
	// ProviderTypeDeepFace is the self-hosted DeepFace API
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeRekognition is the AWS Rekognition provider (cloud, for prod)
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypeVision is the Google Cloud Vision provider
	ProviderTypeVision ProviderType = "vision"
	// ProviderTypePigo runs a local cascade detector without classification
	ProviderTypePigo ProviderType = "pigo"
)

// NewOpener creates the detector opener selected by cfg.FaceProvider
//
// Environment variables:
//   - FACE_PROVIDER: mock, deepface, rekognition, vision or pigo (default: "mock")
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
//   - AWS_REGION: AWS region for Rekognition (default: "us-east-1")
//   - GOOGLE_CREDENTIALS_FILE: service account file for Vision (optional)
//   - PIGO_CASCADE_PATH: facefinder cascade for pigo (required for pigo)
//
// Openers that hold connections implement io.Closer.
func NewOpener(ctx context.Context, cfg *config.Config, logger *slog.Logger) (provider.Opener, error) {
	providerType := ProviderType(cfg.FaceProvider)

	switch providerType {
	case ProviderTypeMock, "":
		return mock.New(), nil

	case ProviderTypeDeepFace:
		return createDeepFaceProvider(cfg), nil

	case ProviderTypeRekognition:
		prov, err := rekognition.NewProvider(ctx, rekognition.Config{Region: cfg.AWSRegion},
			rekognition.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create rekognition provider: %w", err)
		}
		return prov, nil

	case ProviderTypeVision:
		prov, err := vision.NewProvider(ctx, vision.Config{CredentialsFile: cfg.GoogleCredentialsFile},
			vision.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create vision provider: %w", err)
		}
		return prov, nil

	case ProviderTypePigo:
		pigoConfig := pigo.DefaultConfig()
		pigoConfig.CascadePath = cfg.PigoCascadePath
		prov, err := pigo.NewProvider(pigoConfig)
		if err != nil {
			return nil, fmt.Errorf("create pigo provider: %w", err)
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s, %s, %s, %s)",
			cfg.FaceProvider, ProviderTypeMock, ProviderTypeDeepFace, ProviderTypeRekognition,
			ProviderTypeVision, ProviderTypePigo)
	}
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) provider.Opener {
	deepfaceConfig := deepface.DefaultConfig()
	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DetectionTimeout > 0 {
		deepfaceConfig.Timeout = cfg.DetectionTimeout
	}

	return deepface.NewProvider(deepfaceConfig)
}
