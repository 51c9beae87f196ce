// Package vision detects faces with the Google Cloud Vision API.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	visionapi "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/saturnino-fabrica-de-software/emojify/internal/imagecodec"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
)

const (
	providerName = "vision"

	// maxFaces bounds the number of faces returned per image
	maxFaces = 100

	// eyeOpenUnknown is reported for both eyes: Vision has no eye state
	eyeOpenUnknown = 1.0
)

// Config holds configuration for the Vision provider
type Config struct {
	// CredentialsFile is a service account JSON file. Empty uses
	// Application Default Credentials.
	CredentialsFile string
}

type annotateFunc func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)

// Provider implements provider.Opener using Cloud Vision face detection
type Provider struct {
	annotate annotateFunc
	close    func() error
	logger   *slog.Logger
}

// ProviderOption defines optional configuration for Provider
type ProviderOption func(*Provider)

// WithLogger sets the logger for the provider
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

var _ provider.Opener = (*Provider)(nil)

// NewProvider creates an image annotator client and wraps it as a provider.
// Close must be called on shutdown.
func NewProvider(ctx context.Context, cfg Config, opts ...ProviderOption) (*Provider, error) {
	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := visionapi.NewImageAnnotatorClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}

	annotate := func(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
		return client.BatchAnnotateImages(ctx, req)
	}

	return newProvider(annotate, client.Close, opts...), nil
}

func newProvider(annotate annotateFunc, closeFn func() error, opts ...ProviderOption) *Provider {
	p := &Provider{
		annotate: annotate,
		close:    closeFn,
		logger:   slog.Default(),
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

// Open returns a detector handle over the shared annotator client
func (p *Provider) Open(_ context.Context) (provider.FaceDetector, error) {
	return provider.NewHandle(p.detectFaces, nil), nil
}

// Close releases the underlying gRPC connection
func (p *Provider) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

func (p *Provider) detectFaces(ctx context.Context, photo *provider.Photo) ([]provider.DetectedFace, error) {
	data, err := imagecodec.UprightBytes(photo.Data, photo.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_FACE_DETECTION, MaxResults: maxFaces},
				},
			},
		},
	}

	resp, err := p.annotate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("annotate image: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return nil, ErrEmptyResponse
	}

	result := resp.GetResponses()[0]
	if result.GetError() != nil && result.GetError().GetCode() != 0 {
		return nil, fmt.Errorf("%w: %s", ErrAnnotationFailed, result.GetError().GetMessage())
	}

	faces := make([]provider.DetectedFace, 0, len(result.GetFaceAnnotations()))
	for _, annotation := range result.GetFaceAnnotations() {
		faces = append(faces, FaceFromAnnotation(annotation))
	}

	p.logger.DebugContext(ctx, "vision detection completed", slog.Int("faces", len(faces)))

	return faces, nil
}

// FaceFromAnnotation converts a Vision face annotation. The skin-only
// fd_bounding_poly is preferred over the head bounding_poly.
func FaceFromAnnotation(annotation *visionpb.FaceAnnotation) provider.DetectedFace {
	poly := annotation.GetFdBoundingPoly()
	if len(poly.GetVertices()) == 0 {
		poly = annotation.GetBoundingPoly()
	}

	return provider.DetectedFace{
		BoundingBox:             boxFromPoly(poly),
		SmilingProbability:      LikelihoodProbability(annotation.GetJoyLikelihood()),
		LeftEyeOpenProbability:  eyeOpenUnknown,
		RightEyeOpenProbability: eyeOpenUnknown,
	}
}

func boxFromPoly(poly *visionpb.BoundingPoly) provider.BoundingBox {
	vertices := poly.GetVertices()
	if len(vertices) == 0 {
		return provider.BoundingBox{}
	}

	minX, minY := int32(math.MaxInt32), int32(math.MaxInt32)
	maxX, maxY := int32(math.MinInt32), int32(math.MinInt32)
	for _, v := range vertices {
		minX = min(minX, v.GetX())
		minY = min(minY, v.GetY())
		maxX = max(maxX, v.GetX())
		maxY = max(maxY, v.GetY())
	}

	return provider.BoundingBox{
		Left:   int(minX),
		Top:    int(minY),
		Width:  int(maxX - minX),
		Height: int(maxY - minY),
	}
}

// LikelihoodProbability maps a Vision likelihood bucket to a probability
func LikelihoodProbability(l visionpb.Likelihood) float64 {
	switch l {
	case visionpb.Likelihood_VERY_UNLIKELY:
		return 0.05
	case visionpb.Likelihood_UNLIKELY:
		return 0.25
	case visionpb.Likelihood_POSSIBLE:
		return 0.5
	case visionpb.Likelihood_LIKELY:
		return 0.75
	case visionpb.Likelihood_VERY_LIKELY:
		return 0.95
	default:
		return 0
	}
}
