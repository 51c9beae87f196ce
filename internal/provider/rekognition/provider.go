package rekognition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/disintegration/imaging"

	"github.com/saturnino-fabrica-de-software/emojify/internal/imagecodec"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024

	providerName = "rekognition"
)

// Provider implements provider.Opener using AWS Rekognition
type Provider struct {
	client *Client
	logger *slog.Logger
}

// ProviderOption defines optional configuration for Provider
type ProviderOption func(*Provider)

// WithLogger sets the logger for the provider
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// Ensure Provider implements provider.Opener interface at compile time
var _ provider.Opener = (*Provider)(nil)

// NewProvider creates a new Rekognition provider
func NewProvider(ctx context.Context, cfg Config, opts ...ProviderOption) (*Provider, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}

	return newProvider(client, opts...), nil
}

func newProvider(client *Client, opts ...ProviderOption) *Provider {
	p := &Provider{
		client: client,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return providerName
}

// Open returns a detector handle. The AWS client is shared, so the handle
// holds nothing that needs releasing.
func (p *Provider) Open(_ context.Context) (provider.FaceDetector, error) {
	return provider.NewHandle(p.detectFaces, nil), nil
}

// detectFaces detects faces using the Rekognition DetectFaces API
// Returns an empty slice if no faces are detected (not an error)
func (p *Provider) detectFaces(ctx context.Context, photo *provider.Photo) ([]provider.DetectedFace, error) {
	data, err := requestBytes(photo)
	if err != nil {
		return nil, err
	}

	details, err := p.client.DetectFaces(ctx, data)
	if err != nil {
		return nil, err
	}

	width, height := photo.Width(), photo.Height()
	faces := make([]provider.DetectedFace, 0, len(details))
	for _, detail := range details {
		if detail.BoundingBox == nil {
			continue
		}
		faces = append(faces, FaceFromDetail(detail, width, height))
	}

	p.logger.DebugContext(ctx, "rekognition detection completed",
		slog.Int("faces", len(faces)),
		slog.Int("image_size", len(data)),
	)

	return faces, nil
}

// requestBytes returns image bytes Rekognition accepts. Photos above the API
// limit, in a format it cannot read, or rotated by EXIF orientation on decode
// are re-encoded as JPEG.
func requestBytes(photo *provider.Photo) ([]byte, error) {
	rotated := photo.Image != nil && imagecodec.Rotated(photo.Data, photo.Image)
	if !rotated && len(photo.Data) > 0 && len(photo.Data) <= maxImageSize && photo.Format != imagecodec.FormatWEBP {
		return photo.Data, nil
	}

	data, err := imagecodec.Encode(photo.Image, imaging.JPEG)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(data), maxImageSize)
	}
	return data, nil
}

// FaceFromDetail converts a Rekognition face detail into pixel coordinates
// and probabilities. Rekognition reports ratios of the image size.
func FaceFromDetail(detail types.FaceDetail, width, height int) provider.DetectedFace {
	face := provider.DetectedFace{
		SmilingProbability:      0,
		LeftEyeOpenProbability:  1,
		RightEyeOpenProbability: 1,
	}

	if bb := detail.BoundingBox; bb != nil {
		face.BoundingBox = provider.BoundingBox{
			Left:   int(deref(bb.Left) * float32(width)),
			Top:    int(deref(bb.Top) * float32(height)),
			Width:  int(deref(bb.Width) * float32(width)),
			Height: int(deref(bb.Height) * float32(height)),
		}
	}

	if detail.Smile != nil && detail.Smile.Confidence != nil {
		face.SmilingProbability = attributeProbability(detail.Smile.Value, *detail.Smile.Confidence)
	}

	if detail.EyesOpen != nil && detail.EyesOpen.Confidence != nil {
		open := attributeProbability(detail.EyesOpen.Value, *detail.EyesOpen.Confidence)
		face.LeftEyeOpenProbability = open
		face.RightEyeOpenProbability = open
	}

	return face
}

// attributeProbability turns a boolean attribute and its confidence (0-100)
// into the probability that the attribute is true
func attributeProbability(value bool, confidence float32) float64 {
	c := provider.ClampProbability(float64(confidence) / 100)
	if value {
		return c
	}
	return 1 - c
}

func deref(v *float32) float32 {
	if v == nil {
		return 0
	}
	return *v
}
