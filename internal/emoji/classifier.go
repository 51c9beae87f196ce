package emoji

import (
	"context"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/emojify/internal/domain"
	"github.com/saturnino-fabrica-de-software/emojify/internal/provider"
)

const (
	// SmilingProbThreshold is exclusive: a face smiles when its probability is above it
	SmilingProbThreshold = 0.15
	// EyeOpenProbThreshold is exclusive: an eye is closed when its probability is below it
	EyeOpenProbThreshold = 0.5
)

// Classify maps the three classification probabilities to an expression.
func Classify(smilingProb, leftEyeOpenProb, rightEyeOpenProb float64) domain.Expression {
	smiling := smilingProb > SmilingProbThreshold
	leftEyeClosed := leftEyeOpenProb < EyeOpenProbThreshold
	rightEyeClosed := rightEyeOpenProb < EyeOpenProbThreshold

	if smiling {
		switch {
		case leftEyeClosed && !rightEyeClosed:
			return domain.ExpressionLeftWink
		case rightEyeClosed && !leftEyeClosed:
			return domain.ExpressionRightWink
		case leftEyeClosed:
			return domain.ExpressionClosedEyeSmile
		default:
			return domain.ExpressionSmile
		}
	}

	switch {
	case leftEyeClosed && !rightEyeClosed:
		return domain.ExpressionLeftWinkFrown
	case rightEyeClosed && !leftEyeClosed:
		return domain.ExpressionRightWinkFrown
	case leftEyeClosed:
		return domain.ExpressionClosedEyeFrown
	default:
		return domain.ExpressionFrown
	}
}

// Classifier wraps Classify with debug logging of inputs and result
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier creates a classifier that logs through logger
func NewClassifier(logger *slog.Logger) *Classifier {
	return &Classifier{logger: logger.With("component", "classifier")}
}

// Classify picks the expression for a detected face
func (c *Classifier) Classify(ctx context.Context, face provider.DetectedFace) domain.Expression {
	expression := Classify(face.SmilingProbability, face.LeftEyeOpenProbability, face.RightEyeOpenProbability)

	c.logger.DebugContext(ctx, "expression classified",
		slog.Float64("smiling_prob", face.SmilingProbability),
		slog.Float64("left_eye_open_prob", face.LeftEyeOpenProbability),
		slog.Float64("right_eye_open_prob", face.RightEyeOpenProbability),
		slog.String("expression", expression.String()),
	)

	return expression
}
