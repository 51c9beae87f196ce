package deepface

// ActionEmotion asks /analyze for the emotion distribution of each face
const ActionEmotion = "emotion"

// FacialArea is a face region in pixels
type FacialArea struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// AnalyzeRequest for POST /analyze
type AnalyzeRequest struct {
	Img              string   `json:"img"`     // data URI with a base64 payload
	Actions          []string `json:"actions"` // ["age", "gender", "emotion", "race"]
	Detector         string   `json:"detector_backend"`
	EnforceDetection bool     `json:"enforce_detection"`
}

// AnalyzeResponse from POST /analyze
type AnalyzeResponse struct {
	Results []AnalyzeResult `json:"results"`
}

// AnalyzeResult holds one face. Emotion values are percentages (0-100).
type AnalyzeResult struct {
	Region          FacialArea         `json:"region"`
	Emotion         map[string]float64 `json:"emotion"`
	DominantEmotion string             `json:"dominant_emotion"`
	FaceConfidence  *float64           `json:"face_confidence,omitempty"`
}
