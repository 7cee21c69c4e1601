package upstream

// Estimator estimates the token cost of a payload.
type Estimator interface {
	Estimate(payload []byte) int
}

// EstimatorFunc adapts a function to Estimator.
type EstimatorFunc func(payload []byte) int

// Estimate implements Estimator.
func (f EstimatorFunc) Estimate(payload []byte) int { return f(payload) }

// DefaultCharsPerToken is a conservative ratio for mixed-language text.
const DefaultCharsPerToken = 4.0

// CharEstimator estimates tokens from payload length.
type CharEstimator struct {
	// CharsPerToken is the assumed number of bytes per token.
	CharsPerToken float64

	// CompletionTokens is added to every non-empty estimate to account
	// for the response.
	CompletionTokens int
}

// NewCharEstimator returns a CharEstimator. A non-positive ratio uses
// DefaultCharsPerToken.
func NewCharEstimator(charsPerToken float64, completionTokens int) *CharEstimator {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return &CharEstimator{CharsPerToken: charsPerToken, CompletionTokens: max(completionTokens, 0)}
}

// Estimate implements Estimator. Empty payloads cost nothing; any non-empty
// payload costs at least one token.
func (e *CharEstimator) Estimate(payload []byte) int {
	if len(payload) == 0 {
		return 0
	}
	ratio := e.CharsPerToken
	if ratio <= 0 {
		ratio = DefaultCharsPerToken
	}

	tokens := int(float64(len(payload))/ratio + 0.5)
	if tokens < 1 {
		tokens = 1
	}
	return tokens + e.CompletionTokens
}

// Fixed is an Estimator that returns the same cost for every payload. It
// suits services billed per request, such as document parsing.
type Fixed int

// Estimate implements Estimator.
func (f Fixed) Estimate([]byte) int { return int(f) }
