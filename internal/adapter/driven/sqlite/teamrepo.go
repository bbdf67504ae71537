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
var _ driven.TeamStore = (*TeamRepo)(nil)

// TeamRepo is the SQLite implementation of the TeamStore port interface.
type TeamRepo struct {
	db *DB
}

// NewTeamRepo creates a new TeamRepo backed by the given DB.
func NewTeamRepo(db *DB) *TeamRepo {
	return &TeamRepo{db: db}
}

// Create inserts a new team. Returns driven.ErrTeamAlreadyExists when the
// name is taken.
func (r *TeamRepo) Create(ctx context.Context, team model.Team) error {
	const query = `
		INSERT INTO teams (id, name, description, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		team.ID, team.Name, team.Description, formatTime(team.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return driven.ErrTeamAlreadyExists
		}
		return fmt.Errorf("insert team %s: %w", team.Name, err)
	}

	return nil
}

// GetByID retrieves a team by id. Returns nil, nil when it does not exist.
func (r *TeamRepo) GetByID(ctx context.Context, id string) (*model.Team, error) {
	const query = `SELECT id, name, description, created_at, last_sync FROM teams WHERE id = ?`

	team, err := scanTeam(r.db.Reader.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team %s: %w", id, err)
	}

	return team, nil
}

// GetByName retrieves a team by name. Returns nil, nil when it does not exist.
func (r *TeamRepo) GetByName(ctx context.Context, name string) (*model.Team, error) {
	const query = `SELECT id, name, description, created_at, last_sync FROM teams WHERE name = ?`

	team, err := scanTeam(r.db.Reader.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get team %s: %w", name, err)
	}

	return team, nil
}

// ListAll returns all teams, newest first.
func (r *TeamRepo) ListAll(ctx context.Context) ([]model.Team, error) {
	const query = `SELECT id, name, description, created_at, last_sync FROM teams ORDER BY created_at DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, *team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}

	return teams, nil
}

// AddMember inserts a membership row.
func (r *TeamRepo) AddMember(ctx context.Context, member model.TeamMember) error {
	const query = `
		INSERT INTO team_members (id, team_id, user_id, assigned_at, assigned_by)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		member.ID, member.TeamID, member.UserID, formatTime(member.AssignedAt), member.AssignedBy,
	)
	if err != nil {
		return fmt.Errorf("insert team member %s into %s: %w", member.UserID, member.TeamID, err)
	}

	return nil
}

// ListMembers returns memberships with resolved users, in assignment order.
func (r *TeamRepo) ListMembers(ctx context.Context, teamID string) ([]model.TeamMemberDetail, error) {
	const query = `
		SELECT tm.id, tm.team_id, tm.user_id, tm.assigned_at, tm.assigned_by,
		       u.id, u.username, u.github_id, u.display_name, u.avatar_url,
		       u.added_at, u.last_pr_sync, u.last_comment_sync
		FROM team_members tm
		JOIN tracked_users u ON u.id = tm.user_id
		WHERE tm.team_id = ?
		ORDER BY tm.assigned_at
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("query team members for %s: %w", teamID, err)
	}
	defer rows.Close()

	var members []model.TeamMemberDetail
	for rows.Next() {
		var detail model.TeamMemberDetail
		var assignedAt, addedAt string
		var lastPRSync, lastCommentSync sql.NullString

		err := rows.Scan(
			&detail.Membership.ID, &detail.Membership.TeamID, &detail.Membership.UserID,
			&assignedAt, &detail.Membership.AssignedBy,
			&detail.User.ID, &detail.User.Username, &detail.User.GitHubID,
			&detail.User.DisplayName, &detail.User.AvatarURL,
			&addedAt, &lastPRSync, &lastCommentSync,
		)
		if err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}

		detail.Membership.AssignedAt, err = parseTime(assignedAt)
		if err != nil {
			return nil, fmt.Errorf("parse assigned_at: %w", err)
		}

		detail.User.AddedAt, err = parseTime(addedAt)
		if err != nil {
			return nil, fmt.Errorf("parse added_at: %w", err)
		}

		detail.User.LastPRSync, err = parseNullTime(lastPRSync)
		if err != nil {
			return nil, fmt.Errorf("parse last_pr_sync: %w", err)
		}

		detail.User.LastCommentSync, err = parseNullTime(lastCommentSync)
		if err != nil {
			return nil, fmt.Errorf("parse last_comment_sync: %w", err)
		}

		members = append(members, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team members: %w", err)
	}

	return members, nil
}

// SetLastSync advances the team watermark. The team watermark records that a
// sync attempt was made, not that every member succeeded.
func (r *TeamRepo) SetLastSync(ctx context.Context, teamID string, t time.Time) error {
	const query = `UPDATE teams SET last_sync = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, formatTime(t), teamID)
	if err != nil {
		return fmt.Errorf("set last_sync for team %s: %w", teamID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return driven.ErrTeamNotFound
	}

	return nil
}

func scanTeam(s scanner) (*model.Team, error) {
	var team model.Team
	var createdAt string
	var lastSync sql.NullString

	err := s.Scan(&team.ID, &team.Name, &team.Description, &createdAt, &lastSync)
	if err != nil {
		return nil, err
	}

	team.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	team.LastSync, err = parseNullTime(lastSync)
	if err != nil {
		return nil, fmt.Errorf("parse last_sync: %w", err)
	}

	return &team, nil
}
