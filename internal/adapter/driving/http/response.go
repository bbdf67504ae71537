package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/application"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
)

// apiResponse is the envelope every endpoint answers with.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeSuccess writes a success envelope.
func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, apiResponse{Success: true, Message: message, Data: data})
}

// writeFailure writes a failure envelope. detail is the internal error text,
// included only when the caller decides it is safe to expose.
func writeFailure(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, apiResponse{Success: false, Message: message, Error: detail})
}

// UserResponse is the JSON representation of a tracked user.
type UserResponse struct {
	ID              string  `json:"id"`
	Username        string  `json:"username"`
	GitHubID        int64   `json:"github_id"`
	DisplayName     string  `json:"display_name"`
	AvatarURL       string  `json:"avatar_url"`
	AddedAt         string  `json:"added_at"`
	LastPRSync      *string `json:"last_pr_sync"`
	LastCommentSync *string `json:"last_comment_sync"`
	SyncStatus      string  `json:"sync_status"`
}

// PRResponse is the JSON representation of a pull request.
type PRResponse struct {
	ID            int64          `json:"id"`
	Number        int            `json:"number"`
	Title         string         `json:"title"`
	RepoURL       string         `json:"repo_url"`
	State         string         `json:"state"`
	IsDraft       bool           `json:"is_draft"`
	IsMerged      bool           `json:"is_merged"`
	Labels        []string       `json:"labels"`
	TotalComments int            `json:"total_comments"`
	CreatedAt     string         `json:"created_at"`
	MergedAt      *string        `json:"merged_at"`
	ClosedAt      *string        `json:"closed_at"`
	Scores        ScoresResponse `json:"scores"`
}

// ScoresResponse is the JSON representation of the quality subscores.
type ScoresResponse struct {
	CodeQuality          int `json:"code_quality"`
	LogicFunctionality   int `json:"logic_functionality"`
	PerformanceSecurity  int `json:"performance_security"`
	TestingDocumentation int `json:"testing_documentation"`
	UIUX                 int `json:"ui_ux"`
}

// TeamResponse is the JSON representation of a team.
type TeamResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CreatedAt   string  `json:"created_at"`
	LastSync    *string `json:"last_sync"`
}

// TeamDetailResponse is a team with its resolved membership.
type TeamDetailResponse struct {
	TeamResponse
	Members []TeamMemberResponse `json:"members"`
}

// TeamMemberResponse is one membership row with the resolved user.
type TeamMemberResponse struct {
	AssignedAt string       `json:"assigned_at"`
	AssignedBy string       `json:"assigned_by"`
	User       UserResponse `json:"user"`
}

// SyncResultResponse reports the outcome of one user sync.
type SyncResultResponse struct {
	Username           string `json:"username"`
	PRsSynced          int    `json:"prs_synced"`
	CommentsProcessing bool   `json:"comments_processing"`
}

// TeamSyncResultResponse reports the outcome of a team sync.
type TeamSyncResultResponse struct {
	TeamID         string                     `json:"team_id"`
	TotalPRsSynced int                        `json:"total_prs_synced"`
	Succeeded      int                        `json:"succeeded"`
	Failed         int                        `json:"failed"`
	Members        []MemberSyncResultResponse `json:"members"`
}

// MemberSyncResultResponse is one member's slot in a team sync result.
type MemberSyncResultResponse struct {
	Username  string `json:"username"`
	Success   bool   `json:"success"`
	PRsSynced int    `json:"prs_synced"`
	Error     string `json:"error,omitempty"`
}

// UserReportResponse is a single user's activity report.
type UserReportResponse struct {
	Username string            `json:"username"`
	Timeline string            `json:"timeline"`
	Since    string            `json:"since"`
	Summary  PRSummaryResponse `json:"summary"`
	PRs      []PRResponse      `json:"prs"`
}

// PRSummaryResponse aggregates one set of pull requests.
type PRSummaryResponse struct {
	Total         int `json:"total"`
	Merged        int `json:"merged"`
	Open          int `json:"open"`
	Closed        int `json:"closed"`
	TotalComments int `json:"total_comments"`
}

// TeamReportResponse is a team's quarterly activity report.
type TeamReportResponse struct {
	TeamID   string                 `json:"team_id"`
	TeamName string                 `json:"team_name"`
	Quarter  string                 `json:"quarter"`
	Year     int                    `json:"year"`
	Start    string                 `json:"start"`
	End      string                 `json:"end"`
	Summary  PRSummaryResponse      `json:"summary"`
	Members  []MemberReportResponse `json:"members"`
}

// MemberReportResponse is one member's slice of a team report.
type MemberReportResponse struct {
	Username    string                 `json:"username"`
	DisplayName string                 `json:"display_name"`
	Summary     PRSummaryResponse      `json:"summary"`
	Repos       []RepoActivityResponse `json:"repos"`
}

// RepoActivityResponse groups pull requests by repository.
type RepoActivityResponse struct {
	Repo   string `json:"repo"`
	Total  int    `json:"total"`
	Merged int    `json:"merged"`
}

// CommentAnalysisResponse is the per-member feedback origin breakdown.
type CommentAnalysisResponse struct {
	TeamID            string                          `json:"team_id"`
	TeamName          string                          `json:"team_name"`
	Quarter           string                          `json:"quarter"`
	Year              int                             `json:"year"`
	TotalFromTeam     int                             `json:"total_from_team"`
	TotalFromExternal int                             `json:"total_from_external"`
	Members           []MemberCommentAnalysisResponse `json:"members"`
}

// MemberCommentAnalysisResponse is one member's feedback origin split.
type MemberCommentAnalysisResponse struct {
	Username       string `json:"username"`
	TotalComments  int    `json:"total_comments"`
	FromTeam       int    `json:"from_team"`
	FromExternal   int    `json:"from_external"`
	IssueComments  int    `json:"issue_comments"`
	ReviewComments int    `json:"review_comments"`
}

// TeamSyncStatusResponse reports every member's watermark state.
type TeamSyncStatusResponse struct {
	TeamID   string                     `json:"team_id"`
	TeamName string                     `json:"team_name"`
	LastSync *string                    `json:"last_sync"`
	Members  []MemberSyncStatusResponse `json:"members"`
}

// MemberSyncStatusResponse is one member's watermark state.
type MemberSyncStatusResponse struct {
	Username        string  `json:"username"`
	Status          string  `json:"status"`
	LastPRSync      *string `json:"last_pr_sync"`
	LastCommentSync *string `json:"last_comment_sync"`
}

// AnalysisResponse is the scoring outcome for one pull request.
type AnalysisResponse struct {
	PRID           int64             `json:"pr_id"`
	Title          string            `json:"title"`
	CommentCount   int               `json:"comment_count"`
	OverallScore   float64           `json:"overall_score"`
	Scores         ScoresResponse    `json:"scores"`
	Classification map[string]int    `json:"classification"`
	Reasoning      map[string]string `json:"reasoning"`
}

func toUserResponse(u model.TrackedUser) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Username:        u.Username,
		GitHubID:        u.GitHubID,
		DisplayName:     u.DisplayName,
		AvatarURL:       u.AvatarURL,
		AddedAt:         u.AddedAt.UTC().Format(time.RFC3339),
		LastPRSync:      formatTimePtr(u.LastPRSync),
		LastCommentSync: formatTimePtr(u.LastCommentSync),
		SyncStatus:      string(u.SyncStatus()),
	}
}

func toPRResponse(pr model.PullRequest) PRResponse {
	labels := pr.Labels
	if labels == nil {
		labels = []string{}
	}

	return PRResponse{
		ID:            pr.ID,
		Number:        pr.Number,
		Title:         pr.Title,
		RepoURL:       pr.RepoURL,
		State:         string(pr.State),
		IsDraft:       pr.IsDraft,
		IsMerged:      pr.IsMerged(),
		Labels:        labels,
		TotalComments: pr.TotalComments,
		CreatedAt:     pr.CreatedAt.UTC().Format(time.RFC3339),
		MergedAt:      formatTimePtr(pr.MergedAt),
		ClosedAt:      formatTimePtr(pr.ClosedAt),
		Scores:        toScoresResponse(pr.Scores),
	}
}

func toScoresResponse(s model.QualityScores) ScoresResponse {
	return ScoresResponse{
		CodeQuality:          s.CodeQuality,
		LogicFunctionality:   s.LogicFunctionality,
		PerformanceSecurity:  s.PerformanceSecurity,
		TestingDocumentation: s.TestingDocumentation,
		UIUX:                 s.UIUX,
	}
}

func toTeamResponse(t model.Team) TeamResponse {
	return TeamResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		LastSync:    formatTimePtr(t.LastSync),
	}
}

func toTeamDetailResponse(detail application.TeamDetail) TeamDetailResponse {
	members := make([]TeamMemberResponse, 0, len(detail.Members))
	for _, m := range detail.Members {
		members = append(members, TeamMemberResponse{
			AssignedAt: m.Membership.AssignedAt.UTC().Format(time.RFC3339),
			AssignedBy: m.Membership.AssignedBy,
			User:       toUserResponse(m.User),
		})
	}

	return TeamDetailResponse{
		TeamResponse: toTeamResponse(detail.Team),
		Members:      members,
	}
}

func toSyncResultResponse(r application.SyncResult) SyncResultResponse {
	return SyncResultResponse{
		Username:           r.Username,
		PRsSynced:          r.PRsSynced,
		CommentsProcessing: r.CommentsProcessing,
	}
}

func toTeamSyncResultResponse(r application.TeamSyncResult) TeamSyncResultResponse {
	members := make([]MemberSyncResultResponse, 0, len(r.Members))
	for _, m := range r.Members {
		members = append(members, MemberSyncResultResponse{
			Username:  m.Username,
			Success:   m.Success,
			PRsSynced: m.PRsSynced,
			Error:     m.Error,
		})
	}

	return TeamSyncResultResponse{
		TeamID:         r.TeamID,
		TotalPRsSynced: r.TotalPRsSynced,
		Succeeded:      r.Succeeded,
		Failed:         r.Failed,
		Members:        members,
	}
}

func toPRSummaryResponse(s application.PRSummary) PRSummaryResponse {
	return PRSummaryResponse{
		Total:         s.Total,
		Merged:        s.Merged,
		Open:          s.Open,
		Closed:        s.Closed,
		TotalComments: s.TotalComments,
	}
}

func toUserReportResponse(r application.UserReport) UserReportResponse {
	prs := make([]PRResponse, 0, len(r.PRs))
	for _, pr := range r.PRs {
		prs = append(prs, toPRResponse(pr))
	}

	return UserReportResponse{
		Username: r.Username,
		Timeline: r.Timeline,
		Since:    r.Since.UTC().Format(time.RFC3339),
		Summary:  toPRSummaryResponse(r.Summary),
		PRs:      prs,
	}
}

func toTeamReportResponse(r application.TeamReport) TeamReportResponse {
	members := make([]MemberReportResponse, 0, len(r.Members))
	for _, m := range r.Members {
		repos := make([]RepoActivityResponse, 0, len(m.Repos))
		for _, repo := range m.Repos {
			repos = append(repos, RepoActivityResponse{Repo: repo.Repo, Total: repo.Total, Merged: repo.Merged})
		}

		members = append(members, MemberReportResponse{
			Username:    m.Username,
			DisplayName: m.DisplayName,
			Summary:     toPRSummaryResponse(m.Summary),
			Repos:       repos,
		})
	}

	return TeamReportResponse{
		TeamID:   r.TeamID,
		TeamName: r.TeamName,
		Quarter:  r.Quarter,
		Year:     r.Year,
		Start:    r.Start.UTC().Format(time.RFC3339),
		End:      r.End.UTC().Format(time.RFC3339),
		Summary:  toPRSummaryResponse(r.Summary),
		Members:  members,
	}
}

func toCommentAnalysisResponse(a application.TeamCommentAnalysis) CommentAnalysisResponse {
	members := make([]MemberCommentAnalysisResponse, 0, len(a.Members))
	for _, m := range a.Members {
		members = append(members, MemberCommentAnalysisResponse{
			Username:       m.Username,
			TotalComments:  m.TotalComments,
			FromTeam:       m.FromTeam,
			FromExternal:   m.FromExternal,
			IssueComments:  m.IssueComments,
			ReviewComments: m.ReviewComments,
		})
	}

	return CommentAnalysisResponse{
		TeamID:            a.TeamID,
		TeamName:          a.TeamName,
		Quarter:           a.Quarter,
		Year:              a.Year,
		TotalFromTeam:     a.TotalFromTeam,
		TotalFromExternal: a.TotalFromExternal,
		Members:           members,
	}
}

func toTeamSyncStatusResponse(s application.TeamSyncStatus) TeamSyncStatusResponse {
	members := make([]MemberSyncStatusResponse, 0, len(s.Members))
	for _, m := range s.Members {
		members = append(members, MemberSyncStatusResponse{
			Username:        m.Username,
			Status:          string(m.Status),
			LastPRSync:      formatTimePtr(m.LastPRSync),
			LastCommentSync: formatTimePtr(m.LastCommentSync),
		})
	}

	return TeamSyncStatusResponse{
		TeamID:   s.TeamID,
		TeamName: s.TeamName,
		LastSync: formatTimePtr(s.LastSync),
		Members:  members,
	}
}

func toAnalysisResponse(a application.PRAnalysis) AnalysisResponse {
	return AnalysisResponse{
		PRID:         a.PRID,
		Title:        a.Title,
		CommentCount: a.CommentCount,
		OverallScore: a.Analysis.OverallScore(),
		Scores:       toScoresResponse(a.Analysis.Scores),
		Classification: map[string]int{
			"code_quality":          a.Analysis.Classification.CodeQuality,
			"logic_functionality":   a.Analysis.Classification.LogicFunctionality,
			"performance_security":  a.Analysis.Classification.PerformanceSecurity,
			"testing_documentation": a.Analysis.Classification.TestingDocumentation,
			"repeated_comments":     a.Analysis.Classification.RepeatedComments,
			"ignorable":             a.Analysis.Classification.Ignorable,
		},
		Reasoning: a.Analysis.Reasoning,
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
