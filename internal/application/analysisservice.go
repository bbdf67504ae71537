package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// ErrScoringUnavailable indicates no scoring oracle was configured.
var ErrScoringUnavailable = errors.New("scoring oracle not configured")

// PRAnalysis is the stored outcome of scoring one pull request's review
// feedback.
type PRAnalysis struct {
	PRID         int64
	Title        string
	CommentCount int
	Analysis     model.ReviewAnalysis
}

// AnalysisService scores a pull request's review feedback through the
// scoring oracle and persists the resulting quality subscores.
type AnalysisService struct {
	prStore      driven.PRStore
	commentStore driven.CommentStore
	scorer       driven.Scorer
}

// NewAnalysisService creates an AnalysisService. A nil scorer is allowed;
// AnalyzePR then returns ErrScoringUnavailable.
func NewAnalysisService(prStore driven.PRStore, commentStore driven.CommentStore, scorer driven.Scorer) *AnalysisService {
	return &AnalysisService{
		prStore:      prStore,
		commentStore: commentStore,
		scorer:       scorer,
	}
}

// AnalyzePR scores the review feedback of one stored pull request and writes
// the subscores back to the row. A pull request with no ingested comments
// yields the zero analysis without calling the oracle.
func (s *AnalysisService) AnalyzePR(ctx context.Context, prID int64) (*PRAnalysis, error) {
	if s.scorer == nil {
		return nil, ErrScoringUnavailable
	}

	pr, err := s.prStore.GetByID(ctx, prID)
	if err != nil {
		return nil, fmt.Errorf("loading PR %d: %w", prID, err)
	}
	if pr == nil {
		return nil, driven.ErrPRNotFound
	}

	comments, err := s.commentStore.ListByPR(ctx, prID)
	if err != nil {
		return nil, fmt.Errorf("loading comments for PR %d: %w", prID, err)
	}

	result := &PRAnalysis{
		PRID:         prID,
		Title:        pr.Title,
		CommentCount: len(comments),
	}

	if len(comments) == 0 {
		slog.Info("no review feedback to score", "pr", prID)
		return result, nil
	}

	analysis, err := s.scorer.Score(ctx, driven.ScoreContext{
		Title:        pr.Title,
		CommentCount: len(comments),
		CommentsText: formatComments(comments),
	})
	if err != nil {
		return nil, fmt.Errorf("scoring PR %d: %w", prID, err)
	}

	if err := s.prStore.UpdateScores(ctx, prID, analysis.Scores); err != nil {
		return nil, fmt.Errorf("storing scores for PR %d: %w", prID, err)
	}

	result.Analysis = analysis

	return result, nil
}

// formatComments renders the comment set as one plain-text block for the
// scoring prompt, one line per comment.
func formatComments(comments []model.Comment) string {
	var b strings.Builder
	for i, c := range comments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s: %s", c.Type, c.Author, commentPlaintext(c.Body))
	}
	return b.String()
}
