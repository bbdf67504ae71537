package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// TeamDetail is a team with its resolved membership.
type TeamDetail struct {
	Team    model.Team
	Members []model.TeamMemberDetail
}

// TeamService manages teams and their memberships.
type TeamService struct {
	teamStore driven.TeamStore
	userStore driven.UserStore
}

// NewTeamService creates a TeamService with the required dependencies.
func NewTeamService(teamStore driven.TeamStore, userStore driven.UserStore) *TeamService {
	return &TeamService{
		teamStore: teamStore,
		userStore: userStore,
	}
}

// Create makes a new team. Duplicate names return driven.ErrTeamAlreadyExists.
func (s *TeamService) Create(ctx context.Context, name, description string) (*model.Team, error) {
	team := model.Team{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.teamStore.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("creating team %s: %w", name, err)
	}

	return &team, nil
}

// Get returns one team with its members.
func (s *TeamService) Get(ctx context.Context, teamID string) (*TeamDetail, error) {
	team, err := s.teamStore.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading team %s: %w", teamID, err)
	}
	if team == nil {
		return nil, driven.ErrTeamNotFound
	}

	members, err := s.teamStore.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing members of team %s: %w", teamID, err)
	}

	return &TeamDetail{Team: *team, Members: members}, nil
}

// List returns all teams.
func (s *TeamService) List(ctx context.Context) ([]model.Team, error) {
	teams, err := s.teamStore.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}

	return teams, nil
}

// AddMember assigns a tracked user to a team. The user must already be
// registered; assignedBy records who made the assignment.
func (s *TeamService) AddMember(ctx context.Context, teamID, username, assignedBy string) (*model.TeamMember, error) {
	team, err := s.teamStore.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading team %s: %w", teamID, err)
	}
	if team == nil {
		return nil, driven.ErrTeamNotFound
	}

	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", username, err)
	}
	if user == nil {
		return nil, driven.ErrUserNotFound
	}

	member := model.TeamMember{
		ID:         uuid.NewString(),
		TeamID:     teamID,
		UserID:     user.ID,
		AssignedAt: time.Now().UTC(),
		AssignedBy: assignedBy,
	}

	if err := s.teamStore.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("adding %s to team %s: %w", username, team.Name, err)
	}

	return &member, nil
}
