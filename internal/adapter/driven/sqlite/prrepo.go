package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PRStore = (*PRRepo)(nil)

// PRRepo is the SQLite implementation of the PRStore port interface.
type PRRepo struct {
	db *DB
}

// NewPRRepo creates a new PRRepo backed by the given DB.
func NewPRRepo(db *DB) *PRRepo {
	return &PRRepo{db: db}
}

const prColumns = `id, number, title, repo_url, comments_url, state, author_id, labels,
	       total_comments, is_draft, created_at, merged_at, closed_at,
	       code_quality, logic_functionality, performance_security, testing_documentation, ui_ux`

// UpsertBatch inserts or updates pull requests in one transaction, keyed by
// remote id. The conflict clause overwrites every mapped field but leaves the
// five quality subscore columns untouched, so analysis results survive
// re-reconciliation. Labels are serialized as a JSON array; a nil slice is
// stored as NULL.
func (r *PRRepo) UpsertBatch(ctx context.Context, prs []model.PullRequest) error {
	if len(prs) == 0 {
		return nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const query = `
		INSERT INTO pull_requests (
			id, number, title, repo_url, comments_url, state, author_id,
			labels, total_comments, is_draft, created_at, merged_at, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number,
			title = excluded.title,
			repo_url = excluded.repo_url,
			comments_url = excluded.comments_url,
			state = excluded.state,
			author_id = excluded.author_id,
			labels = excluded.labels,
			total_comments = excluded.total_comments,
			is_draft = excluded.is_draft,
			created_at = excluded.created_at,
			merged_at = excluded.merged_at,
			closed_at = excluded.closed_at
	`

	for _, pr := range prs {
		var labelsJSON any
		if pr.Labels != nil {
			data, err := json.Marshal(pr.Labels)
			if err != nil {
				return fmt.Errorf("marshal labels for PR %d: %w", pr.ID, err)
			}
			labelsJSON = string(data)
		}

		isDraft := 0
		if pr.IsDraft {
			isDraft = 1
		}

		var mergedAt, closedAt any
		if pr.MergedAt != nil {
			mergedAt = formatTime(*pr.MergedAt)
		}
		if pr.ClosedAt != nil {
			closedAt = formatTime(*pr.ClosedAt)
		}

		if _, err := tx.ExecContext(ctx, query,
			pr.ID, pr.Number, pr.Title, pr.RepoURL, pr.CommentsURL, string(pr.State),
			pr.AuthorID, labelsJSON, pr.TotalComments, isDraft,
			formatTime(pr.CreatedAt), mergedAt, closedAt,
		); err != nil {
			return fmt.Errorf("upsert PR %d: %w", pr.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit PR batch: %w", err)
	}

	return nil
}

// GetByID retrieves a single pull request by remote id. Returns nil, nil when
// it does not exist.
func (r *PRRepo) GetByID(ctx context.Context, id int64) (*model.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE id = ?`

	pr, err := scanPR(r.db.Reader.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get PR %d: %w", id, err)
	}

	return pr, nil
}

// ListByAuthor returns the author's pull requests, newest first. A nil since
// returns the full history.
func (r *PRRepo) ListByAuthor(ctx context.Context, authorID int64, since *time.Time) ([]model.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE author_id = ?`
	args := []any{authorID}

	if since != nil {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(*since))
	}
	query += ` ORDER BY created_at DESC`

	return r.queryPRs(ctx, query, args...)
}

// ListByAuthorBetween returns the author's pull requests created inside
// [start, end], newest first.
func (r *PRRepo) ListByAuthorBetween(ctx context.Context, authorID int64, start, end time.Time) ([]model.PullRequest, error) {
	query := `SELECT ` + prColumns + `
		FROM pull_requests
		WHERE author_id = ? AND created_at >= ? AND created_at <= ?
		ORDER BY created_at DESC`

	return r.queryPRs(ctx, query, authorID, formatTime(start), formatTime(end))
}

// UpdateScores writes the quality subscores for one pull request. Returns an
// error when the pull request does not exist.
func (r *PRRepo) UpdateScores(ctx context.Context, id int64, scores model.QualityScores) error {
	const query = `
		UPDATE pull_requests
		SET code_quality = ?, logic_functionality = ?, performance_security = ?,
		    testing_documentation = ?, ui_ux = ?
		WHERE id = ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		scores.CodeQuality, scores.LogicFunctionality, scores.PerformanceSecurity,
		scores.TestingDocumentation, scores.UIUX, id,
	)
	if err != nil {
		return fmt.Errorf("update scores for PR %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("pull request %d not found", id)
	}

	return nil
}

func (r *PRRepo) queryPRs(ctx context.Context, query string, args ...any) ([]model.PullRequest, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pull requests: %w", err)
	}
	defer rows.Close()

	var prs []model.PullRequest
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		prs = append(prs, *pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}

	return prs, nil
}

func scanPR(s scanner) (*model.PullRequest, error) {
	var pr model.PullRequest
	var state string
	var isDraft int
	var labelsJSON sql.NullString
	var createdAt string
	var mergedAt, closedAt sql.NullString

	err := s.Scan(
		&pr.ID, &pr.Number, &pr.Title, &pr.RepoURL, &pr.CommentsURL, &state,
		&pr.AuthorID, &labelsJSON, &pr.TotalComments, &isDraft,
		&createdAt, &mergedAt, &closedAt,
		&pr.Scores.CodeQuality, &pr.Scores.LogicFunctionality,
		&pr.Scores.PerformanceSecurity, &pr.Scores.TestingDocumentation,
		&pr.Scores.UIUX,
	)
	if err != nil {
		return nil, err
	}

	pr.State = model.PRState(state)
	pr.IsDraft = isDraft != 0

	if labelsJSON.Valid {
		if err := json.Unmarshal([]byte(labelsJSON.String), &pr.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}

	pr.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	pr.MergedAt, err = parseNullTime(mergedAt)
	if err != nil {
		return nil, fmt.Errorf("parse merged_at: %w", err)
	}

	pr.ClosedAt, err = parseNullTime(closedAt)
	if err != nil {
		return nil, fmt.Errorf("parse closed_at: %w", err)
	}

	return &pr, nil
}
