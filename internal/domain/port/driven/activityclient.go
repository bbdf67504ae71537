// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
)

// ErrUnrecognizedRepoURL indicates a pull request's web URL does not match
// the configured remote host pattern. Callers treat it as a per-item skip,
// never a pipeline abort.
var ErrUnrecognizedRepoURL = errors.New("repository URL does not match remote host")

// ActivityClient defines the driven port for the remote activity API.
// Every listing operation pages internally at a fixed size of 100 and
// concatenates results. Remote failures (rate limit, not-found, network)
// surface as wrapped errors without retry; retry policy belongs to callers.
type ActivityClient interface {
	// SearchPullRequests returns all pull requests authored by author and
	// created on or after since (day granularity).
	SearchPullRequests(ctx context.Context, author string, since time.Time) ([]model.PullRequest, error)
	// SearchOpenPullRequests returns all currently-open pull requests
	// authored by author, regardless of creation date.
	SearchOpenPullRequests(ctx context.Context, author string) ([]model.PullRequest, error)
	// ListIssueComments returns all PR-level discussion comments.
	ListIssueComments(ctx context.Context, owner, repo string, prNumber int) ([]model.Comment, error)
	// ListReviewComments returns all inline review comments.
	ListReviewComments(ctx context.Context, owner, repo string, prNumber int) ([]model.Comment, error)
	// FetchUser resolves a login to its remote account identity.
	FetchUser(ctx context.Context, login string) (*model.TrackedUser, error)
	// ParseRepoURL extracts owner and repo from a pull request's canonical
	// web URL. Returns ErrUnrecognizedRepoURL when the URL does not match
	// the configured host.
	ParseRepoURL(rawURL string) (owner, repo string, err error)
}
