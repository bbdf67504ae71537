package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// ProgressFunc receives pipeline progress events. Events are informational;
// the pipeline never blocks on the callback.
type ProgressFunc func(event string, args ...any)

// CommentPipeline ingests review feedback for a batch of freshly reconciled
// pull requests. It runs detached from the request that triggered it, on its
// own persistence handle, so a slow comment fetch never delays the sync
// response.
//
// Per-PR failures (unparseable repo URL, fetch errors) are recorded and
// skipped. Persistence failures are fatal: the comment watermark only
// advances after every fetched comment is stored.
type CommentPipeline struct {
	client       driven.ActivityClient
	commentStore driven.CommentStore
	userStore    driven.UserStore
	progress     ProgressFunc
}

// NewCommentPipeline creates a CommentPipeline. A nil progress callback
// defaults to structured logging.
func NewCommentPipeline(
	client driven.ActivityClient,
	commentStore driven.CommentStore,
	userStore driven.UserStore,
	progress ProgressFunc,
) *CommentPipeline {
	if progress == nil {
		progress = func(event string, args ...any) {
			slog.Info(event, args...)
		}
	}

	return &CommentPipeline{
		client:       client,
		commentStore: commentStore,
		userStore:    userStore,
		progress:     progress,
	}
}

// Run fetches and stores all comments for the given pull requests, then
// advances the user's comment watermark. Comments are normalized with their
// deterministic key before storage, so re-running over the same batch
// converges instead of duplicating.
func (p *CommentPipeline) Run(ctx context.Context, githubID int64, username string, prs []model.PullRequest) error {
	p.progress("comment ingestion started", "user", username, "prs", len(prs))

	var issueBatch, reviewBatch []model.Comment
	var skipped int

	for _, pr := range prs {
		owner, repo, err := p.client.ParseRepoURL(pr.RepoURL)
		if err != nil {
			if errors.Is(err, driven.ErrUnrecognizedRepoURL) {
				p.progress("skipping pull request with unrecognized repo url",
					"user", username, "pr", pr.ID, "url", pr.RepoURL)
				skipped++
				continue
			}
			return fmt.Errorf("parsing repo url for PR %d: %w", pr.ID, err)
		}

		// skipped counts pull requests, not fetches, so a PR whose issue
		// and review fetches both fail is reported once.
		prFailed := false

		issueComments, err := p.client.ListIssueComments(ctx, owner, repo, pr.Number)
		if err != nil {
			p.progress("issue comment fetch failed",
				"user", username, "pr", pr.ID, "error", err)
			prFailed = true
		} else {
			issueBatch = append(issueBatch, normalizeComments(pr.ID, issueComments)...)
		}

		reviewComments, err := p.client.ListReviewComments(ctx, owner, repo, pr.Number)
		if err != nil {
			p.progress("review comment fetch failed",
				"user", username, "pr", pr.ID, "error", err)
			prFailed = true
		} else {
			reviewBatch = append(reviewBatch, normalizeComments(pr.ID, reviewComments)...)
		}

		if prFailed {
			skipped++
		}
	}

	if err := p.commentStore.UpsertBatch(ctx, issueBatch); err != nil {
		return fmt.Errorf("storing issue comments for %s: %w", username, err)
	}

	if err := p.commentStore.UpsertBatch(ctx, reviewBatch); err != nil {
		return fmt.Errorf("storing review comments for %s: %w", username, err)
	}

	if err := p.userStore.SetLastCommentSync(ctx, githubID, time.Now().UTC()); err != nil {
		return fmt.Errorf("advancing comment watermark for %s: %w", username, err)
	}

	p.progress("comment ingestion completed",
		"user", username,
		"issue_comments", len(issueBatch),
		"review_comments", len(reviewBatch),
		"skipped", skipped,
	)

	return nil
}

// normalizeComments assigns the owning pull request and the deterministic
// comment key to adapter-produced comments.
func normalizeComments(prID int64, comments []model.Comment) []model.Comment {
	normalized := make([]model.Comment, 0, len(comments))
	for _, c := range comments {
		c.PRID = prID
		c.Key = model.CommentKey(prID, c.AuthorID, c.CreatedAt, c.Body)
		normalized = append(normalized, c)
	}
	return normalized
}
