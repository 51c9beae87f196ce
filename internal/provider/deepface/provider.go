package deepface

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/saturnino-fabrica-de-software/emojify/internal/imagecodec"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
)

const (
	providerName = "deepface"

	// emotionHappy is the emotion key used as the smiling probability
	emotionHappy = "happy"

	// eyeOpenUnknown is reported for both eyes: DeepFace does not classify eye state
	eyeOpenUnknown = 1.0
)

// Provider implements provider.Opener using DeepFace API
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return providerName
}

// Open returns a detector handle backed by the shared HTTP client
func (p *Provider) Open(_ context.Context) (provider.FaceDetector, error) {
	return provider.NewHandle(p.detectFaces, nil), nil
}

// detectFaces detects faces and their happiness score in the image
func (p *Provider) detectFaces(ctx context.Context, photo *provider.Photo) ([]provider.DetectedFace, error) {
	data, err := imagecodec.UprightBytes(photo.Data, photo.Image)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	img, err := dataURI(data)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	resp, err := p.client.Analyze(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	faces := make([]provider.DetectedFace, 0, len(resp.Results))
	for _, result := range resp.Results {
		// without enforced detection DeepFace reports the whole image at zero confidence
		if result.FaceConfidence != nil && *result.FaceConfidence <= 0 {
			continue
		}
		faces = append(faces, faceFromResult(result))
	}

	return faces, nil
}

func faceFromResult(result AnalyzeResult) provider.DetectedFace {
	return provider.DetectedFace{
		BoundingBox: provider.BoundingBox{
			Left:   result.Region.X,
			Top:    result.Region.Y,
			Width:  result.Region.W,
			Height: result.Region.H,
		},
		SmilingProbability:      provider.ClampProbability(result.Emotion[emotionHappy] / 100),
		LeftEyeOpenProbability:  eyeOpenUnknown,
		RightEyeOpenProbability: eyeOpenUnknown,
	}
}

// dataURI encodes image bytes the way DeepFace expects base64 input
func dataURI(data []byte) (string, error) {
	mime, _, err := imagecodec.Sniff(data)
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Ensure Provider implements provider.Opener
var _ provider.Opener = (*Provider)(nil)
