package driven

import (
	"context"
	"errors"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
)

// Sentinel errors returned by TeamStore implementations.
var (
	// ErrTeamNotFound indicates the requested team does not exist.
	ErrTeamNotFound = errors.New("team not found")

	// ErrTeamAlreadyExists indicates a team with the same name already exists.
	ErrTeamAlreadyExists = errors.New("team already exists")
)

// TeamStore defines the driven port for team and membership persistence.
// The sync engine only reads memberships and advances the team watermark;
// team structure is mutated through the API layer alone.
type TeamStore interface {
	Create(ctx context.Context, team model.Team) error
	// GetByID returns nil, nil when the team does not exist.
	GetByID(ctx context.Context, id string) (*model.Team, error)
	// GetByName returns nil, nil when no team has the given name.
	GetByName(ctx context.Context, name string) (*model.Team, error)
	ListAll(ctx context.Context) ([]model.Team, error)
	AddMember(ctx context.Context, member model.TeamMember) error
	// ListMembers returns memberships with resolved users, in assignment order.
	ListMembers(ctx context.Context, teamID string) ([]model.TeamMemberDetail, error)
	SetLastSync(ctx context.Context, teamID string, t time.Time) error
}
