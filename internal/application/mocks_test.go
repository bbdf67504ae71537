package application_test

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockActivityClient struct {
	searchPRs     func(ctx context.Context, author string, since time.Time) ([]model.PullRequest, error)
	searchOpenPRs func(ctx context.Context, author string) ([]model.PullRequest, error)
	listIssue     func(owner, repo string, prNumber int) ([]model.Comment, error)
	listReview    func(owner, repo string, prNumber int) ([]model.Comment, error)
	fetchUser     func(login string) (*model.TrackedUser, error)
}

func (m *mockActivityClient) SearchPullRequests(ctx context.Context, author string, since time.Time) ([]model.PullRequest, error) {
	if m.searchPRs == nil {
		return nil, nil
	}
	return m.searchPRs(ctx, author, since)
}

func (m *mockActivityClient) SearchOpenPullRequests(ctx context.Context, author string) ([]model.PullRequest, error) {
	if m.searchOpenPRs == nil {
		return nil, nil
	}
	return m.searchOpenPRs(ctx, author)
}

func (m *mockActivityClient) ListIssueComments(_ context.Context, owner, repo string, prNumber int) ([]model.Comment, error) {
	if m.listIssue == nil {
		return nil, nil
	}
	return m.listIssue(owner, repo, prNumber)
}

func (m *mockActivityClient) ListReviewComments(_ context.Context, owner, repo string, prNumber int) ([]model.Comment, error) {
	if m.listReview == nil {
		return nil, nil
	}
	return m.listReview(owner, repo, prNumber)
}

func (m *mockActivityClient) FetchUser(_ context.Context, login string) (*model.TrackedUser, error) {
	return m.fetchUser(login)
}

// ParseRepoURL mirrors the production adapter's github.com host check so
// pipeline tests can exercise the unrecognized-URL skip path.
func (m *mockActivityClient) ParseRepoURL(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != "github.com" {
		return "", "", driven.ErrUnrecognizedRepoURL
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", driven.ErrUnrecognizedRepoURL
	}

	return parts[0], parts[1], nil
}

type watermarkCall struct {
	GitHubID int64
	At       time.Time
}

type mockUserStore struct {
	mu           sync.Mutex
	users        map[string]model.TrackedUser // Keyed by username.
	prSyncs      []watermarkCall
	commentSyncs []watermarkCall
	watermarkErr error
}

func newMockUserStore(users ...model.TrackedUser) *mockUserStore {
	m := &mockUserStore{users: make(map[string]model.TrackedUser)}
	for _, u := range users {
		m.users[u.Username] = u
	}
	return m
}

func (m *mockUserStore) Add(_ context.Context, user model.TrackedUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.Username]; ok {
		return driven.ErrUserAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserStore) GetByUsername(_ context.Context, username string) (*model.TrackedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m *mockUserStore) GetByGitHubID(_ context.Context, githubID int64) (*model.TrackedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.GitHubID == githubID {
			return &user, nil
		}
	}
	return nil, nil
}

func (m *mockUserStore) ListAll(_ context.Context) ([]model.TrackedUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var users []model.TrackedUser
	for _, user := range m.users {
		users = append(users, user)
	}
	return users, nil
}

func (m *mockUserStore) SetLastPRSync(_ context.Context, githubID int64, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watermarkErr != nil {
		return m.watermarkErr
	}
	m.prSyncs = append(m.prSyncs, watermarkCall{GitHubID: githubID, At: t})
	return nil
}

func (m *mockUserStore) SetLastCommentSync(_ context.Context, githubID int64, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watermarkErr != nil {
		return m.watermarkErr
	}
	m.commentSyncs = append(m.commentSyncs, watermarkCall{GitHubID: githubID, At: t})
	return nil
}

func (m *mockUserStore) prSyncCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prSyncs)
}

func (m *mockUserStore) commentSyncCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commentSyncs)
}

type mockPRStore struct {
	mu        sync.Mutex
	batches   [][]model.PullRequest
	stored    map[int64]model.PullRequest
	scores    map[int64]model.QualityScores
	upsertErr error
}

func newMockPRStore(prs ...model.PullRequest) *mockPRStore {
	m := &mockPRStore{stored: make(map[int64]model.PullRequest), scores: make(map[int64]model.QualityScores)}
	for _, pr := range prs {
		m.stored[pr.ID] = pr
	}
	return m
}

func (m *mockPRStore) UpsertBatch(_ context.Context, prs []model.PullRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.upsertErr != nil {
		return m.upsertErr
	}

	m.batches = append(m.batches, prs)
	for _, pr := range prs {
		m.stored[pr.ID] = pr
	}
	return nil
}

func (m *mockPRStore) GetByID(_ context.Context, id int64) (*model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pr, ok := m.stored[id]
	if !ok {
		return nil, nil
	}
	return &pr, nil
}

func (m *mockPRStore) ListByAuthor(_ context.Context, authorID int64, since *time.Time) ([]model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var prs []model.PullRequest
	for _, pr := range m.stored {
		if pr.AuthorID != authorID {
			continue
		}
		if since != nil && pr.CreatedAt.Before(*since) {
			continue
		}
		prs = append(prs, pr)
	}
	return prs, nil
}

func (m *mockPRStore) ListByAuthorBetween(_ context.Context, authorID int64, start, end time.Time) ([]model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var prs []model.PullRequest
	for _, pr := range m.stored {
		if pr.AuthorID != authorID || pr.CreatedAt.Before(start) || pr.CreatedAt.After(end) {
			continue
		}
		prs = append(prs, pr)
	}
	return prs, nil
}

func (m *mockPRStore) UpdateScores(_ context.Context, id int64, scores model.QualityScores) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stored[id]; !ok {
		return driven.ErrPRNotFound
	}
	m.scores[id] = scores
	return nil
}

type mockCommentStore struct {
	mu        sync.Mutex
	batches   [][]model.Comment
	stored    []model.Comment
	upsertErr error
}

func (m *mockCommentStore) UpsertBatch(_ context.Context, comments []model.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.upsertErr != nil {
		return m.upsertErr
	}

	m.batches = append(m.batches, comments)
	m.stored = append(m.stored, comments...)
	return nil
}

func (m *mockCommentStore) ListByPR(_ context.Context, prID int64) ([]model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var comments []model.Comment
	for _, c := range m.stored {
		if c.PRID == prID {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

func (m *mockCommentStore) ListByPRs(_ context.Context, prIDs []int64) ([]model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[int64]struct{}, len(prIDs))
	for _, id := range prIDs {
		wanted[id] = struct{}{}
	}

	var comments []model.Comment
	for _, c := range m.stored {
		if _, ok := wanted[c.PRID]; ok {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

func (m *mockCommentStore) allStored() []model.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Comment(nil), m.stored...)
}

type mockTeamStore struct {
	mu        sync.Mutex
	teams     map[string]model.Team
	members   map[string][]model.TeamMemberDetail
	lastSyncs []string // Team ids, in call order.
}

func newMockTeamStore(teams ...model.Team) *mockTeamStore {
	m := &mockTeamStore{
		teams:   make(map[string]model.Team),
		members: make(map[string][]model.TeamMemberDetail),
	}
	for _, team := range teams {
		m.teams[team.ID] = team
	}
	return m
}

func (m *mockTeamStore) Create(_ context.Context, team model.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.teams {
		if existing.Name == team.Name {
			return driven.ErrTeamAlreadyExists
		}
	}
	m.teams[team.ID] = team
	return nil
}

func (m *mockTeamStore) GetByID(_ context.Context, id string) (*model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	team, ok := m.teams[id]
	if !ok {
		return nil, nil
	}
	return &team, nil
}

func (m *mockTeamStore) GetByName(_ context.Context, name string) (*model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, team := range m.teams {
		if team.Name == name {
			return &team, nil
		}
	}
	return nil, nil
}

func (m *mockTeamStore) ListAll(_ context.Context) ([]model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var teams []model.Team
	for _, team := range m.teams {
		teams = append(teams, team)
	}
	return teams, nil
}

func (m *mockTeamStore) AddMember(_ context.Context, member model.TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.members[member.TeamID] = append(m.members[member.TeamID], model.TeamMemberDetail{Membership: member})
	return nil
}

func (m *mockTeamStore) ListMembers(_ context.Context, teamID string) ([]model.TeamMemberDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.members[teamID], nil
}

func (m *mockTeamStore) SetLastSync(_ context.Context, teamID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.teams[teamID]; !ok {
		return driven.ErrTeamNotFound
	}
	m.lastSyncs = append(m.lastSyncs, teamID)
	return nil
}

type mockScorer struct {
	score     func(sc driven.ScoreContext) (model.ReviewAnalysis, error)
	lastCtx   driven.ScoreContext
	callCount int
}

func (m *mockScorer) Score(_ context.Context, sc driven.ScoreContext) (model.ReviewAnalysis, error) {
	m.lastCtx = sc
	m.callCount++
	if m.score == nil {
		return model.ReviewAnalysis{}, nil
	}
	return m.score(sc)
}

// mockIngestor records the hand-off from the sync engine and signals done so
// tests can wait for the detached goroutine.
type mockIngestor struct {
	mu    sync.Mutex
	calls []ingestCall
	done  chan struct{}
}

type ingestCall struct {
	GitHubID int64
	Username string
	PRs      []model.PullRequest
}

func newMockIngestor() *mockIngestor {
	return &mockIngestor{done: make(chan struct{}, 8)}
}

func (m *mockIngestor) Run(_ context.Context, githubID int64, username string, prs []model.PullRequest) error {
	m.mu.Lock()
	m.calls = append(m.calls, ingestCall{GitHubID: githubID, Username: username, PRs: prs})
	m.mu.Unlock()

	m.done <- struct{}{}
	return nil
}

func (m *mockIngestor) wait(timeout time.Duration) bool {
	select {
	case <-m.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (m *mockIngestor) recorded() []ingestCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ingestCall(nil), m.calls...)
}
