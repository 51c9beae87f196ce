package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so wrapped copies
// produced by WithError still satisfy errors.Is against the template.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrImageTooLarge = &AppError{
		Code:       "IMAGE_TOO_LARGE",
		Message:    "Image exceeds the maximum upload size",
		StatusCode: 413,
	}

	ErrUnsupportedMediaType = &AppError{
		Code:       "UNSUPPORTED_MEDIA_TYPE",
		Message:    "Only JPEG, PNG and WebP images are accepted",
		StatusCode: 415,
	}

	ErrDetectionFailed = &AppError{
		Code:       "DETECTION_FAILED",
		Message:    "Face detection failed, please try again",
		StatusCode: 502,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}
)
