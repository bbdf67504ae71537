package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// timelineDays maps the timeline query values to lookback windows.
var timelineDays = map[string]int{
	"week":    7,
	"2weeks":  14,
	"month":   30,
	"3months": 90,
	"6months": 180,
	"year":    365,
}

const defaultTimeline = "month"

// ErrInvalidQuarter indicates a quarter value outside Q1-Q4.
var ErrInvalidQuarter = errors.New("invalid quarter, expected Q1-Q4")

// PRSummary aggregates one set of pull requests.
type PRSummary struct {
	Total         int
	Merged        int
	Open          int
	Closed        int
	TotalComments int
}

// UserReport is a single user's activity over a timeline window.
type UserReport struct {
	Username string
	Timeline string
	Since    time.Time
	Summary  PRSummary
	PRs      []model.PullRequest
}

// RepoActivity groups one member's pull requests by repository.
type RepoActivity struct {
	Repo   string
	Total  int
	Merged int
}

// MemberReport is one member's slice of a team report.
type MemberReport struct {
	Username    string
	DisplayName string
	Summary     PRSummary
	Repos       []RepoActivity
}

// TeamReport aggregates a team's activity over one calendar quarter.
type TeamReport struct {
	TeamID   string
	TeamName string
	Quarter  string
	Year     int
	Start    time.Time
	End      time.Time
	Summary  PRSummary
	Members  []MemberReport
}

// MemberCommentAnalysis splits the review feedback one member received by
// commenter origin.
type MemberCommentAnalysis struct {
	Username       string
	TotalComments  int
	FromTeam       int
	FromExternal   int
	IssueComments  int
	ReviewComments int
}

// TeamCommentAnalysis is the per-member feedback origin breakdown for a team.
type TeamCommentAnalysis struct {
	TeamID            string
	TeamName          string
	Quarter           string
	Year              int
	Members           []MemberCommentAnalysis
	TotalFromTeam     int
	TotalFromExternal int
}

// MemberSyncStatus is one member's watermark state.
type MemberSyncStatus struct {
	Username        string
	Status          model.SyncStatus
	LastPRSync      *time.Time
	LastCommentSync *time.Time
}

// TeamSyncStatus reports the sync state of every member plus the team
// watermark.
type TeamSyncStatus struct {
	TeamID   string
	TeamName string
	LastSync *time.Time
	Members  []MemberSyncStatus
}

// ReportService assembles read-only reports from stored data. It never
// touches the remote API; reports reflect whatever the last sync ingested.
type ReportService struct {
	userStore    driven.UserStore
	prStore      driven.PRStore
	commentStore driven.CommentStore
	teamStore    driven.TeamStore
}

// NewReportService creates a ReportService with the required dependencies.
func NewReportService(
	userStore driven.UserStore,
	prStore driven.PRStore,
	commentStore driven.CommentStore,
	teamStore driven.TeamStore,
) *ReportService {
	return &ReportService{
		userStore:    userStore,
		prStore:      prStore,
		commentStore: commentStore,
		teamStore:    teamStore,
	}
}

// UserReport returns one user's pull requests over the given timeline window.
// Unknown timeline values fall back to the default month window.
func (s *ReportService) UserReport(ctx context.Context, username, timeline string) (*UserReport, error) {
	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", username, err)
	}
	if user == nil {
		return nil, driven.ErrUserNotFound
	}

	days, ok := timelineDays[timeline]
	if !ok {
		timeline = defaultTimeline
		days = timelineDays[defaultTimeline]
	}

	since := time.Now().UTC().AddDate(0, 0, -days)

	prs, err := s.prStore.ListByAuthor(ctx, user.GitHubID, &since)
	if err != nil {
		return nil, fmt.Errorf("listing PRs for %s: %w", username, err)
	}

	return &UserReport{
		Username: user.Username,
		Timeline: timeline,
		Since:    since,
		Summary:  summarize(prs),
		PRs:      prs,
	}, nil
}

// TeamReport aggregates every member's pull requests inside one calendar
// quarter, with a per-repository breakdown per member.
func (s *ReportService) TeamReport(ctx context.Context, teamID, quarter string, year int) (*TeamReport, error) {
	team, err := s.teamStore.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading team %s: %w", teamID, err)
	}
	if team == nil {
		return nil, driven.ErrTeamNotFound
	}

	start, end, err := quarterRange(quarter, year)
	if err != nil {
		return nil, err
	}

	members, err := s.teamStore.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing members of team %s: %w", teamID, err)
	}

	report := &TeamReport{
		TeamID:   teamID,
		TeamName: team.Name,
		Quarter:  quarter,
		Year:     year,
		Start:    start,
		End:      end,
		Members:  make([]MemberReport, 0, len(members)),
	}

	for _, member := range members {
		prs, err := s.prStore.ListByAuthorBetween(ctx, member.User.GitHubID, start, end)
		if err != nil {
			return nil, fmt.Errorf("listing PRs for %s: %w", member.User.Username, err)
		}

		memberReport := MemberReport{
			Username:    member.User.Username,
			DisplayName: member.User.DisplayName,
			Summary:     summarize(prs),
			Repos:       groupByRepo(prs),
		}

		report.Summary.Total += memberReport.Summary.Total
		report.Summary.Merged += memberReport.Summary.Merged
		report.Summary.Open += memberReport.Summary.Open
		report.Summary.Closed += memberReport.Summary.Closed
		report.Summary.TotalComments += memberReport.Summary.TotalComments

		report.Members = append(report.Members, memberReport)
	}

	return report, nil
}

// CommentAnalysis splits each member's received feedback over one quarter
// into comments from teammates and comments from outside the team, using the
// members' remote ids as the team boundary.
func (s *ReportService) CommentAnalysis(ctx context.Context, teamID, quarter string, year int) (*TeamCommentAnalysis, error) {
	team, err := s.teamStore.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading team %s: %w", teamID, err)
	}
	if team == nil {
		return nil, driven.ErrTeamNotFound
	}

	start, end, err := quarterRange(quarter, year)
	if err != nil {
		return nil, err
	}

	members, err := s.teamStore.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing members of team %s: %w", teamID, err)
	}

	teamIDs := make(map[int64]struct{}, len(members))
	for _, member := range members {
		teamIDs[member.User.GitHubID] = struct{}{}
	}

	analysis := &TeamCommentAnalysis{
		TeamID:   teamID,
		TeamName: team.Name,
		Quarter:  quarter,
		Year:     year,
		Members:  make([]MemberCommentAnalysis, 0, len(members)),
	}

	for _, member := range members {
		prs, err := s.prStore.ListByAuthorBetween(ctx, member.User.GitHubID, start, end)
		if err != nil {
			return nil, fmt.Errorf("listing PRs for %s: %w", member.User.Username, err)
		}

		prIDs := make([]int64, 0, len(prs))
		for _, pr := range prs {
			prIDs = append(prIDs, pr.ID)
		}

		comments, err := s.commentStore.ListByPRs(ctx, prIDs)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s: %w", member.User.Username, err)
		}

		memberAnalysis := MemberCommentAnalysis{Username: member.User.Username}
		for _, c := range comments {
			memberAnalysis.TotalComments++

			if c.Type == model.CommentTypeReview {
				memberAnalysis.ReviewComments++
			} else {
				memberAnalysis.IssueComments++
			}

			if _, ok := teamIDs[c.AuthorID]; ok {
				memberAnalysis.FromTeam++
				analysis.TotalFromTeam++
			} else {
				memberAnalysis.FromExternal++
				analysis.TotalFromExternal++
			}
		}

		analysis.Members = append(analysis.Members, memberAnalysis)
	}

	return analysis, nil
}

// SyncStatus reports every member's tri-state sync status plus the team
// watermark.
func (s *ReportService) SyncStatus(ctx context.Context, teamID string) (*TeamSyncStatus, error) {
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

	status := &TeamSyncStatus{
		TeamID:   teamID,
		TeamName: team.Name,
		LastSync: team.LastSync,
		Members:  make([]MemberSyncStatus, 0, len(members)),
	}

	for _, member := range members {
		status.Members = append(status.Members, MemberSyncStatus{
			Username:        member.User.Username,
			Status:          member.User.SyncStatus(),
			LastPRSync:      member.User.LastPRSync,
			LastCommentSync: member.User.LastCommentSync,
		})
	}

	return status, nil
}

// summarize computes the aggregate counters for one PR set.
func summarize(prs []model.PullRequest) PRSummary {
	summary := PRSummary{Total: len(prs)}
	for _, pr := range prs {
		switch {
		case pr.IsMerged():
			summary.Merged++
		case pr.State == model.PRStateOpen:
			summary.Open++
		default:
			summary.Closed++
		}
		summary.TotalComments += pr.TotalComments
	}
	return summary
}

// groupByRepo buckets pull requests by their owner/repo name, preserving
// first-seen order.
func groupByRepo(prs []model.PullRequest) []RepoActivity {
	index := make(map[string]int)
	var repos []RepoActivity

	for _, pr := range prs {
		name := repoNameFromURL(pr.RepoURL)

		i, ok := index[name]
		if !ok {
			i = len(repos)
			index[name] = i
			repos = append(repos, RepoActivity{Repo: name})
		}

		repos[i].Total++
		if pr.IsMerged() {
			repos[i].Merged++
		}
	}

	return repos
}

// repoNameFromURL extracts "owner/repo" from a pull request web URL.
// Unparseable URLs bucket under "unknown".
func repoNameFromURL(rawURL string) string {
	trimmed := strings.TrimPrefix(rawURL, "https://")
	trimmed = strings.TrimPrefix(trimmed, "http://")

	parts := strings.Split(trimmed, "/")
	if len(parts) < 3 {
		return "unknown"
	}

	return parts[1] + "/" + parts[2]
}

// quarterRange resolves a calendar quarter to its inclusive time bounds.
func quarterRange(quarter string, year int) (time.Time, time.Time, error) {
	var startMonth time.Month

	switch strings.ToUpper(quarter) {
	case "Q1":
		startMonth = time.January
	case "Q2":
		startMonth = time.April
	case "Q3":
		startMonth = time.July
	case "Q4":
		startMonth = time.October
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidQuarter, quarter)
	}

	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0).Add(-time.Second)

	return start, end, nil
}
