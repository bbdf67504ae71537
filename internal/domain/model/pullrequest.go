package model

import "time"

// PRState is the lifecycle state reported by the remote API.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
)

// QualityScores are the 0-10 review-feedback subscores assigned by the
// scoring oracle. Zero values mean "not yet analyzed".
type QualityScores struct {
	CodeQuality          int
	LogicFunctionality   int
	PerformanceSecurity  int
	TestingDocumentation int
	UIUX                 int
}

// Clamp returns a copy with every subscore forced into [0, 10].
func (q QualityScores) Clamp() QualityScores {
	return QualityScores{
		CodeQuality:          clampScore(q.CodeQuality),
		LogicFunctionality:   clampScore(q.LogicFunctionality),
		PerformanceSecurity:  clampScore(q.PerformanceSecurity),
		TestingDocumentation: clampScore(q.TestingDocumentation),
		UIUX:                 clampScore(q.UIUX),
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// PullRequest is one remote pull request, keyed by the remote's immutable
// numeric id rather than the mutable PR number. Rows are created on first
// reconciliation, overwritten on every later one (scores excepted), and
// never deleted.
type PullRequest struct {
	ID            int64 // Remote immutable id; primary key.
	Number        int
	Title         string
	RepoURL       string // Canonical web URL; owner/repo are parsed from it.
	CommentsURL   string
	State         PRState
	AuthorID      int64    // TrackedUser.GitHubID of the author.
	Labels        []string // nil when the remote reports no labels.
	TotalComments int      // Comment count as reported by the remote.
	IsDraft       bool

	CreatedAt time.Time
	MergedAt  *time.Time
	ClosedAt  *time.Time

	Scores QualityScores // Preserved across upserts; written only by analysis.
}

// IsMerged reports whether the remote recorded a merge timestamp.
func (p PullRequest) IsMerged() bool {
	return p.MergedAt != nil
}
