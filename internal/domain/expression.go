package domain

// Expression is the facial expression derived from a detected face.
type Expression string

const (
	ExpressionSmile          Expression = "smile"
	ExpressionFrown          Expression = "frown"
	ExpressionLeftWink       Expression = "left_wink"
	ExpressionRightWink      Expression = "right_wink"
	ExpressionLeftWinkFrown  Expression = "left_wink_frown"
	ExpressionRightWinkFrown Expression = "right_wink_frown"
	ExpressionClosedEyeSmile Expression = "closed_eye_smile"
	ExpressionClosedEyeFrown Expression = "closed_eye_frown"
)

// expressions lists every expression in declaration order
var expressions = []Expression{
	ExpressionSmile,
	ExpressionFrown,
	ExpressionLeftWink,
	ExpressionRightWink,
	ExpressionLeftWinkFrown,
	ExpressionRightWinkFrown,
	ExpressionClosedEyeSmile,
	ExpressionClosedEyeFrown,
}

// AllExpressions returns every expression in declaration order. The slice
// is a copy owned by the caller.
func AllExpressions() []Expression {
	out := make([]Expression, len(expressions))
	copy(out, expressions)
	return out
}

// Valid reports whether e is one of the known expressions.
func (e Expression) Valid() bool {
	for _, known := range expressions {
		if e == known {
			return true
		}
	}
	return false
}

func (e Expression) String() string {
	return string(e)
}
