package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// commentIngestor is the piece of the pipeline the sync engine hands off to.
// Satisfied by *CommentPipeline in production and by mocks in tests.
type commentIngestor interface {
	Run(ctx context.Context, githubID int64, username string, prs []model.PullRequest) error
}

// SyncResult summarizes one user reconciliation. CommentsProcessing reports
// that comment ingestion was handed off, not that it finished; callers poll
// the sync status endpoint for completion.
type SyncResult struct {
	Username           string
	PRsSynced          int
	CommentsProcessing bool
}

// MemberSyncResult is one member's slot in a team sync. A failed member
// carries the error text; the rest of the team proceeds regardless.
type MemberSyncResult struct {
	Username  string
	Success   bool
	PRsSynced int
	Error     string
}

// TeamSyncResult summarizes a whole-team reconciliation.
type TeamSyncResult struct {
	TeamID         string
	Members        []MemberSyncResult
	TotalPRsSynced int
	Succeeded      int
	Failed         int
}

// SyncService drives incremental pull request reconciliation. Each user sync
// fetches everything created since the user's watermark plus all currently
// open pull requests, upserts the merged set, advances the PR watermark, and
// hands the batch to the comment pipeline in the background.
type SyncService struct {
	client    driven.ActivityClient
	userStore driven.UserStore
	prStore   driven.PRStore
	teamStore driven.TeamStore
	ingestor  commentIngestor
	epoch     time.Time // Sync floor for users with no watermark yet.
}

// NewSyncService creates a SyncService with the required dependencies.
func NewSyncService(
	client driven.ActivityClient,
	userStore driven.UserStore,
	prStore driven.PRStore,
	teamStore driven.TeamStore,
	ingestor commentIngestor,
	epoch time.Time,
) *SyncService {
	return &SyncService{
		client:    client,
		userStore: userStore,
		prStore:   prStore,
		teamStore: teamStore,
		ingestor:  ingestor,
		epoch:     epoch,
	}
}

// SyncUser reconciles one tracked user's pull requests. The since boundary is
// the PR watermark truncated to day granularity (the search API only accepts
// dates), or the configured epoch for a first sync. Open pull requests are
// always re-fetched so state transitions on old PRs are never missed.
func (s *SyncService) SyncUser(ctx context.Context, username string) (*SyncResult, error) {
	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", username, err)
	}
	if user == nil {
		return nil, driven.ErrUserNotFound
	}

	since := s.epoch
	if user.LastPRSync != nil {
		since = user.LastPRSync.UTC().Truncate(24 * time.Hour)
	}

	created, err := s.client.SearchPullRequests(ctx, user.Username, since)
	if err != nil {
		return nil, fmt.Errorf("fetching created PRs for %s: %w", username, err)
	}

	open, err := s.client.SearchOpenPullRequests(ctx, user.Username)
	if err != nil {
		return nil, fmt.Errorf("fetching open PRs for %s: %w", username, err)
	}

	batch := mergePRs(created, open)

	if err := s.prStore.UpsertBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("storing PRs for %s: %w", username, err)
	}

	if err := s.userStore.SetLastPRSync(ctx, user.GitHubID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("advancing PR watermark for %s: %w", username, err)
	}

	slog.Info("pull requests reconciled",
		"user", user.Username,
		"since", since.Format("2006-01-02"),
		"count", len(batch),
	)

	// Comment ingestion is detached from the request: it outlives the HTTP
	// context and advances its own watermark when done.
	go func() {
		if err := s.ingestor.Run(context.Background(), user.GitHubID, user.Username, batch); err != nil {
			slog.Error("comment ingestion failed", "user", user.Username, "error", err)
		}
	}()

	return &SyncResult{
		Username:           user.Username,
		PRsSynced:          len(batch),
		CommentsProcessing: true,
	}, nil
}

// SyncTeam reconciles every member of a team sequentially. One member's
// failure never aborts the rest; the team watermark advances unconditionally
// because it records the attempt, not per-member success.
func (s *SyncService) SyncTeam(ctx context.Context, teamID string) (*TeamSyncResult, error) {
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

	result := &TeamSyncResult{
		TeamID:  teamID,
		Members: make([]MemberSyncResult, 0, len(members)),
	}

	for _, member := range members {
		slot := MemberSyncResult{Username: member.User.Username}

		sync, err := s.SyncUser(ctx, member.User.Username)
		if err != nil {
			slot.Error = err.Error()
			result.Failed++
			slog.Warn("team member sync failed",
				"team", team.Name,
				"user", member.User.Username,
				"error", err,
			)
		} else {
			slot.Success = true
			slot.PRsSynced = sync.PRsSynced
			result.TotalPRsSynced += sync.PRsSynced
			result.Succeeded++
		}

		result.Members = append(result.Members, slot)
	}

	if err := s.teamStore.SetLastSync(ctx, teamID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("advancing team watermark for %s: %w", teamID, err)
	}

	return result, nil
}

// UserSyncStatus returns the tracked user whose watermarks determine the
// tri-state sync status.
func (s *SyncService) UserSyncStatus(ctx context.Context, username string) (*model.TrackedUser, error) {
	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", username, err)
	}
	if user == nil {
		return nil, driven.ErrUserNotFound
	}

	return user, nil
}

// mergePRs concatenates the two search result sets, deduplicating by remote
// id. The created-since set wins on overlap; both sets carry the same remote
// snapshot so the choice is cosmetic.
func mergePRs(created, open []model.PullRequest) []model.PullRequest {
	merged := make([]model.PullRequest, 0, len(created)+len(open))
	seen := make(map[int64]struct{}, len(created))

	for _, pr := range created {
		merged = append(merged, pr)
		seen[pr.ID] = struct{}{}
	}

	for _, pr := range open {
		if _, ok := seen[pr.ID]; ok {
			continue
		}
		merged = append(merged, pr)
	}

	return merged
}
