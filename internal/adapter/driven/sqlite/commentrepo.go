package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CommentStore = (*CommentRepo)(nil)

// CommentRepo is the SQLite implementation of the CommentStore port interface.
type CommentRepo struct {
	db *DB
}

// NewCommentRepo creates a new CommentRepo backed by the given DB.
func NewCommentRepo(db *DB) *CommentRepo {
	return &CommentRepo{db: db}
}

// UpsertBatch inserts or updates comments in one transaction, keyed by the
// deterministic comment key. The conflict clause overwrites the mutable
// fields so a re-ingested batch converges instead of duplicating rows.
func (r *CommentRepo) UpsertBatch(ctx context.Context, comments []model.Comment) error {
	if len(comments) == 0 {
		return nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const query = `
		INSERT INTO comments (comment_key, pr_id, type, body, author, author_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(comment_key) DO UPDATE SET
			type = excluded.type,
			body = excluded.body,
			author = excluded.author,
			author_id = excluded.author_id,
			created_at = excluded.created_at
	`

	for _, c := range comments {
		if _, err := tx.ExecContext(ctx, query,
			c.Key, c.PRID, string(c.Type), c.Body, c.Author, c.AuthorID, formatTime(c.CreatedAt),
		); err != nil {
			return fmt.Errorf("upsert comment for PR %d: %w", c.PRID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit comment batch: %w", err)
	}

	return nil
}

// ListByPR returns all comments for one pull request, newest first.
func (r *CommentRepo) ListByPR(ctx context.Context, prID int64) ([]model.Comment, error) {
	const query = `
		SELECT comment_key, pr_id, type, body, author, author_id, created_at
		FROM comments
		WHERE pr_id = ?
		ORDER BY created_at DESC
	`

	return r.queryComments(ctx, query, prID)
}

// ListByPRs returns all comments belonging to any of the given pull requests.
func (r *CommentRepo) ListByPRs(ctx context.Context, prIDs []int64) ([]model.Comment, error) {
	if len(prIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(prIDs))
	placeholders = placeholders[:len(placeholders)-1]

	query := `
		SELECT comment_key, pr_id, type, body, author, author_id, created_at
		FROM comments
		WHERE pr_id IN (` + placeholders + `)`

	args := make([]any, len(prIDs))
	for i, id := range prIDs {
		args[i] = id
	}

	return r.queryComments(ctx, query, args...)
}

func (r *CommentRepo) queryComments(ctx context.Context, query string, args ...any) ([]model.Comment, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		var cType string
		var createdAt string

		if err := rows.Scan(&c.Key, &c.PRID, &cType, &c.Body, &c.Author, &c.AuthorID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}

		c.Type = model.CommentType(cType)
		c.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}

		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}
