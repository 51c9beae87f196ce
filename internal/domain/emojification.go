package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notices surfaced to the caller. Neither is an error.
const (
	NoticeNoFaces = "No faces detected in the image"
	NoticeNoEmoji = "No matching emoji for expression"
)

// Rect is an axis-aligned rectangle in pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FaceResult describes one detected face and the emoji chosen for it.
type FaceResult struct {
	BoundingBox             Rect       `json:"bounding_box"`
	SmilingProbability      float64    `json:"smiling_probability"`
	LeftEyeOpenProbability  float64    `json:"left_eye_open_probability"`
	RightEyeOpenProbability float64    `json:"right_eye_open_probability"`
	Expression              Expression `json:"expression"`
	Placement               *Rect      `json:"placement,omitempty"`
	Applied                 bool       `json:"applied"`
}

// EmojifyResult is the outcome of a single emojify request.
type EmojifyResult struct {
	ID          uuid.UUID
	Provider    string
	Width       int
	Height      int
	Faces       []FaceResult
	Notices     []string
	Image       []byte
	ContentType string
	LatencyMs   int64
	Cached      bool
}

// FacesCount returns the number of detected faces.
func (r *EmojifyResult) FacesCount() int {
	return len(r.Faces)
}

// Expressions returns the expression of every face in detection order.
func (r *EmojifyResult) Expressions() []Expression {
	out := make([]Expression, 0, len(r.Faces))
	for _, f := range r.Faces {
		out = append(out, f.Expression)
	}
	return out
}

// Analysis is the detection and classification outcome without compositing.
type Analysis struct {
	Provider string       `json:"provider"`
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	Faces    []FaceResult `json:"faces"`
	Notices  []string     `json:"notices,omitempty"`
}

// Emojification is the persisted history record of an emojify request.
type Emojification struct {
	ID          uuid.UUID    `json:"id"`
	ImageSHA256 string       `json:"image_sha256"`
	Provider    string       `json:"provider"`
	FacesCount  int          `json:"faces_count"`
	Expressions []Expression `json:"expressions"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	LatencyMs   int64        `json:"latency_ms"`
	CreatedAt   time.Time    `json:"created_at"`
}
