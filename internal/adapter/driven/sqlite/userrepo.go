package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserStore = (*UserRepo)(nil)

// UserRepo is the SQLite implementation of the UserStore port interface.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, username, github_id, display_name, avatar_url, added_at, last_pr_sync, last_comment_sync`

// Add inserts a new tracked user. Returns driven.ErrUserAlreadyExists when
// the login or remote id is already tracked.
func (r *UserRepo) Add(ctx context.Context, user model.TrackedUser) error {
	const query = `
		INSERT INTO tracked_users (id, username, github_id, display_name, avatar_url, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		user.ID, user.Username, user.GitHubID, user.DisplayName, user.AvatarURL, formatTime(user.AddedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return driven.ErrUserAlreadyExists
		}
		return fmt.Errorf("insert tracked user %s: %w", user.Username, err)
	}

	return nil
}

// GetByUsername retrieves a tracked user by login. Returns nil, nil when the
// user does not exist.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.TrackedUser, error) {
	query := `SELECT ` + userColumns + ` FROM tracked_users WHERE username = ?`

	user, err := scanUser(r.db.Reader.QueryRowContext(ctx, query, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tracked user %s: %w", username, err)
	}

	return user, nil
}

// GetByGitHubID retrieves a tracked user by remote account id. Returns
// nil, nil when the user does not exist.
func (r *UserRepo) GetByGitHubID(ctx context.Context, githubID int64) (*model.TrackedUser, error) {
	query := `SELECT ` + userColumns + ` FROM tracked_users WHERE github_id = ?`

	user, err := scanUser(r.db.Reader.QueryRowContext(ctx, query, githubID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tracked user id %d: %w", githubID, err)
	}

	return user, nil
}

// ListAll returns all tracked users ordered by login.
func (r *UserRepo) ListAll(ctx context.Context) ([]model.TrackedUser, error) {
	query := `SELECT ` + userColumns + ` FROM tracked_users ORDER BY username`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tracked users: %w", err)
	}
	defer rows.Close()

	var users []model.TrackedUser
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracked user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked users: %w", err)
	}

	return users, nil
}

// SetLastPRSync advances the PR-reconciliation watermark.
func (r *UserRepo) SetLastPRSync(ctx context.Context, githubID int64, t time.Time) error {
	return r.setWatermark(ctx, "last_pr_sync", githubID, t)
}

// SetLastCommentSync advances the comment-ingestion watermark.
func (r *UserRepo) SetLastCommentSync(ctx context.Context, githubID int64, t time.Time) error {
	return r.setWatermark(ctx, "last_comment_sync", githubID, t)
}

func (r *UserRepo) setWatermark(ctx context.Context, column string, githubID int64, t time.Time) error {
	query := fmt.Sprintf(`UPDATE tracked_users SET %s = ? WHERE github_id = ?`, column)

	result, err := r.db.Writer.ExecContext(ctx, query, formatTime(t), githubID)
	if err != nil {
		return fmt.Errorf("set %s for user %d: %w", column, githubID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return driven.ErrUserNotFound
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.TrackedUser, error) {
	var user model.TrackedUser
	var addedAt string
	var lastPRSync, lastCommentSync sql.NullString

	err := s.Scan(
		&user.ID, &user.Username, &user.GitHubID, &user.DisplayName,
		&user.AvatarURL, &addedAt, &lastPRSync, &lastCommentSync,
	)
	if err != nil {
		return nil, err
	}

	user.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	user.LastPRSync, err = parseNullTime(lastPRSync)
	if err != nil {
		return nil, fmt.Errorf("parse last_pr_sync: %w", err)
	}

	user.LastCommentSync, err = parseNullTime(lastCommentSync)
	if err != nil {
		return nil, fmt.Errorf("parse last_comment_sync: %w", err)
	}

	return &user, nil
}

// formatTime renders a timestamp into the canonical stored text form. Every
// write and every WHERE comparison binds through this helper; binding a raw
// time.Time would let the driver pick a layout parseTime does not accept.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

// parseNullTime parses a nullable datetime column into a *time.Time.
func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}

	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
