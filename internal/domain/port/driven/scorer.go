package driven

import (
	"context"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
)

// ScoreContext is the prompt context handed to the scoring oracle: the PR
// title plus the concatenated, plain-text review feedback.
type ScoreContext struct {
	Title        string
	CommentCount int
	CommentsText string
}

// Scorer defines the driven port for the opaque scoring oracle. The adapter
// owns output sanitization: wrapping markers stripped, numeric scores clamped
// to [0, 10], zero-value fallback when output is malformed. Only
// transport-level failures surface as errors.
type Scorer interface {
	Score(ctx context.Context, sc ScoreContext) (model.ReviewAnalysis, error)
}
