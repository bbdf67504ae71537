package driven

import (
	"context"
	"errors"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
)

// ErrPRNotFound indicates the requested pull request is not stored.
var ErrPRNotFound = errors.New("pull request not found")

// PRStore defines the driven port for pull request persistence.
type PRStore interface {
	// UpsertBatch inserts or updates the given pull requests atomically,
	// keyed by remote id. Updates overwrite every mapped field except the
	// quality subscores, which are preserved across upserts.
	UpsertBatch(ctx context.Context, prs []model.PullRequest) error
	// GetByID returns nil, nil when the pull request does not exist.
	GetByID(ctx context.Context, id int64) (*model.PullRequest, error)
	// ListByAuthor returns the author's pull requests, newest first.
	// A nil since returns the full history.
	ListByAuthor(ctx context.Context, authorID int64, since *time.Time) ([]model.PullRequest, error)
	// ListByAuthorBetween returns the author's pull requests created inside
	// [start, end], newest first.
	ListByAuthorBetween(ctx context.Context, authorID int64, start, end time.Time) ([]model.PullRequest, error)
	// UpdateScores writes the quality subscores for a single pull request.
	UpdateScores(ctx context.Context, id int64, scores model.QualityScores) error
}
