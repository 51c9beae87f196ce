package vision

import "errors"

var (
	// ErrAnnotationFailed indicates the API returned an error for the image
	ErrAnnotationFailed = errors.New("vision annotation failed")

	// ErrInvalidImage indicates the photo could not be prepared for the request
	ErrInvalidImage = errors.New("invalid image for vision api")

	// ErrEmptyResponse indicates the API returned no response for the request
	ErrEmptyResponse = errors.New("empty response from vision api")
)
