package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// ImageResponse stands for the composite image bytes
type ImageResponse struct{}

// RectData is a pixel rectangle
type RectData struct {
	X      int `json:"x" example:"310"`
	Y      int `json:"y" example:"246"`
	Width  int `json:"width" example:"180"`
	Height int `json:"height" example:"162"`
}

// FaceData describes one detected face
type FaceData struct {
	BoundingBox             RectData `json:"bounding_box"`
	SmilingProbability      float64  `json:"smiling_probability" example:"0.2"`
	LeftEyeOpenProbability  float64  `json:"left_eye_open_probability" example:"0.3"`
	RightEyeOpenProbability float64  `json:"right_eye_open_probability" example:"0.9"`
	Expression              string   `json:"expression" example:"left_wink"`
	Placement               RectData `json:"placement"`
	Applied                 bool     `json:"applied" example:"true"`
}

// AnalysisResponse is the body of POST /v1/analyze
type AnalysisResponse struct {
	Provider string     `json:"provider" example:"rekognition"`
	Width    int        `json:"width" example:"600"`
	Height   int        `json:"height" example:"500"`
	Faces    []FaceData `json:"faces"`
	Notices  []string   `json:"notices,omitempty"`
}

// EmojificationResponse is a stored history record
type EmojificationResponse struct {
	ID          string   `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ImageSHA256 string   `json:"image_sha256" example:"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"`
	Provider    string   `json:"provider" example:"mock"`
	FacesCount  int      `json:"faces_count" example:"2"`
	Expressions []string `json:"expressions" example:"smile,frown"`
	Width       int      `json:"width" example:"600"`
	Height      int      `json:"height" example:"500"`
	LatencyMs   int64    `json:"latency_ms" example:"45"`
	CreatedAt   string   `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// ListEmojificationsResponse wraps the history listing
type ListEmojificationsResponse struct {
	Emojifications []EmojificationResponse `json:"emojifications"`
	Count          int                     `json:"count" example:"1"`
}

// ExpressionData maps an expression to its emoji asset
type ExpressionData struct {
	Expression string `json:"expression" example:"closed_eye_smile"`
	Asset      string `json:"asset" example:"closed_smile.png"`
	Available  bool   `json:"available" example:"true"`
}

// ExpressionsResponse is the body of GET /v1/expressions
type ExpressionsResponse struct {
	Expressions []ExpressionData `json:"expressions"`
}

var imageErrors = []response.Response{
	response.New(ErrorResponse{Code: "IMAGE_TOO_LARGE", Message: "Image exceeds the maximum upload size"}, "413", "Payload Too Large"),
	response.New(ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Only JPEG, PNG and WebP images are accepted"}, "415", "Unsupported Media Type"),
	response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity"),
	response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
	response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded, please try again later"}, "429", "Too Many Requests"),
	response.New(ErrorResponse{Code: "DETECTION_FAILED", Message: "Face detection failed, please try again"}, "502", "Bad Gateway"),
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Emojify API",
		Version:     "v1.0.0",
		Description: "Detects the faces in a photo and draws an emoji matching each facial expression",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/emojify - Emojify a photo
		endpoint.New(
			endpoint.POST,
			"/emojify",
			endpoint.WithTags("Emojify"),
			endpoint.WithSummary("Overlay an emoji on every face"),
			endpoint.WithDescription("Accepts a multipart form with an \"image\" field (or a raw image/* body) and returns the composite with the same dimensions. Photos without faces return a JSON notice."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data"), mime.MIME("image/jpeg"), mime.MIME("image/png"), mime.MIME("image/webp")}),
			endpoint.WithProduce([]mime.MIME{mime.MIME("image/png"), mime.MIME("image/jpeg"), mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ImageResponse{}, "200", "Composite image, or a no-face notice as JSON"),
			}),
			endpoint.WithErrors(imageErrors),
		),

		// POST /v1/analyze - Analyze a photo
		endpoint.New(
			endpoint.POST,
			"/analyze",
			endpoint.WithTags("Emojify"),
			endpoint.WithSummary("Detect and classify faces"),
			endpoint.WithDescription("Returns each face with its probabilities, expression and where the emoji would be drawn, without compositing"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AnalysisResponse{}, "200", "Analysis completed successfully"),
			}),
			endpoint.WithErrors(imageErrors),
		),

		// GET /v1/emojifications - List history
		endpoint.New(
			endpoint.GET,
			"/emojifications",
			endpoint.WithTags("History"),
			endpoint.WithSummary("List recent emojifications"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Number of records (1-100, default: 20)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListEmojificationsResponse{}, "200", "History retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "limit must be between 1 and 100"}, "422", "Unprocessable Entity"),
			}),
		),

		// GET /v1/emojifications/:id - Get history record
		endpoint.New(
			endpoint.GET,
			"/emojifications/{id}",
			endpoint.WithTags("History"),
			endpoint.WithSummary("Get a stored emojification"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("id", parameter.Path, parameter.WithDescription("Emojification id from the X-Emojification-ID header")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmojificationResponse{}, "200", "Record retrieved successfully"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NOT_FOUND", Message: "Resource not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "id must be a UUID"}, "422", "Unprocessable Entity"),
			}),
		),

		// GET /v1/expressions - List expressions
		endpoint.New(
			endpoint.GET,
			"/expressions",
			endpoint.WithTags("Emojify"),
			endpoint.WithSummary("List the supported expressions"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ExpressionsResponse{}, "200", "Expressions and their emoji assets"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
