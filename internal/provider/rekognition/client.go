package rekognition

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"
)

const (
	errCodeAccessDenied       = "AccessDeniedException"
	errCodeInvalidParameter   = "InvalidParameterException"
	errCodeInvalidImageFormat = "InvalidImageFormatException"
	errCodeImageTooLarge      = "ImageTooLargeException"
	errCodeThroughput         = "ProvisionedThroughputExceededException"
	errCodeThrottling         = "ThrottlingException"
)

// API is the subset of the Rekognition client used by this package
type API interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// Client wraps the AWS Rekognition client
type Client struct {
	rekognition API
	config      Config
}

// NewClient creates a new Rekognition client with the provided configuration
// It uses the AWS default credential chain to authenticate
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		rekognition: rekognition.NewFromConfig(awsCfg),
		config:      cfg,
	}, nil
}

// DetectFaces calls the DetectFaces API requesting every facial attribute
func (c *Client) DetectFaces(ctx context.Context, image []byte) ([]types.FaceDetail, error) {
	input := &rekognition.DetectFacesInput{
		Image: &types.Image{
			Bytes: image,
		},
		Attributes: []types.Attribute{types.AttributeAll},
	}

	output, err := c.rekognition.DetectFaces(ctx, input)
	if err != nil {
		return nil, parseAPIError(err)
	}

	return output.FaceDetails, nil
}

// parseAPIError maps Rekognition error codes to package errors
func parseAPIError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeAccessDenied:
			return fmt.Errorf("detect faces: %w", ErrInvalidCredentials)
		case errCodeInvalidParameter, errCodeInvalidImageFormat, errCodeImageTooLarge:
			if msg := apiErr.ErrorMessage(); msg != "" {
				return fmt.Errorf("%w: %s", ErrInvalidImage, msg)
			}
			return ErrInvalidImage
		case errCodeThroughput, errCodeThrottling:
			return fmt.Errorf("detect faces: %w", ErrThrottled)
		}
	}

	return fmt.Errorf("detect faces: %w", err)
}
