package driven

import (
	"context"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
)

// CommentStore defines the driven port for comment persistence.
type CommentStore interface {
	// UpsertBatch inserts or updates the given comments atomically, keyed
	// by their deterministic comment key. Re-ingesting the same batch never
	// creates duplicate rows.
	UpsertBatch(ctx context.Context, comments []model.Comment) error
	// ListByPR returns all comments for one pull request, newest first.
	ListByPR(ctx context.Context, prID int64) ([]model.Comment, error)
	// ListByPRs returns all comments belonging to any of the given pull
	// requests, in no particular order.
	ListByPRs(ctx context.Context, prIDs []int64) ([]model.Comment, error)
}
