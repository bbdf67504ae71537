package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/SaikatGlitchCodes/metrictracker-be/internal/adapter/driving/http"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/application"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockActivityClient struct {
	fetchUser func(login string) (*model.TrackedUser, error)
	searchPRs func(author string, since time.Time) ([]model.PullRequest, error)
}

func (m *mockActivityClient) SearchPullRequests(_ context.Context, author string, since time.Time) ([]model.PullRequest, error) {
	if m.searchPRs == nil {
		return nil, nil
	}
	return m.searchPRs(author, since)
}

func (m *mockActivityClient) SearchOpenPullRequests(_ context.Context, _ string) ([]model.PullRequest, error) {
	return nil, nil
}

func (m *mockActivityClient) ListIssueComments(_ context.Context, _, _ string, _ int) ([]model.Comment, error) {
	return nil, nil
}

func (m *mockActivityClient) ListReviewComments(_ context.Context, _, _ string, _ int) ([]model.Comment, error) {
	return nil, nil
}

func (m *mockActivityClient) FetchUser(_ context.Context, login string) (*model.TrackedUser, error) {
	if m.fetchUser == nil {
		return nil, errors.New("not implemented")
	}
	return m.fetchUser(login)
}

func (m *mockActivityClient) ParseRepoURL(_ string) (string, string, error) {
	return "", "", driven.ErrUnrecognizedRepoURL
}

type mockUserStore struct {
	users map[string]model.TrackedUser
	err   error
}

func newMockUserStore(users ...model.TrackedUser) *mockUserStore {
	m := &mockUserStore{users: make(map[string]model.TrackedUser)}
	for _, u := range users {
		m.users[u.Username] = u
	}
	return m
}

func (m *mockUserStore) Add(_ context.Context, user model.TrackedUser) error {
	m.users[user.Username] = user
	return m.err
}

func (m *mockUserStore) GetByUsername(_ context.Context, username string) (*model.TrackedUser, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m *mockUserStore) GetByGitHubID(_ context.Context, _ int64) (*model.TrackedUser, error) {
	return nil, nil
}

func (m *mockUserStore) ListAll(_ context.Context) ([]model.TrackedUser, error) {
	var users []model.TrackedUser
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, m.err
}

func (m *mockUserStore) SetLastPRSync(_ context.Context, _ int64, _ time.Time) error      { return nil }
func (m *mockUserStore) SetLastCommentSync(_ context.Context, _ int64, _ time.Time) error { return nil }

type mockPRStore struct {
	stored map[int64]model.PullRequest
}

func (m *mockPRStore) UpsertBatch(_ context.Context, _ []model.PullRequest) error { return nil }

func (m *mockPRStore) GetByID(_ context.Context, id int64) (*model.PullRequest, error) {
	pr, ok := m.stored[id]
	if !ok {
		return nil, nil
	}
	return &pr, nil
}

func (m *mockPRStore) ListByAuthor(_ context.Context, _ int64, _ *time.Time) ([]model.PullRequest, error) {
	return nil, nil
}

func (m *mockPRStore) ListByAuthorBetween(_ context.Context, _ int64, _, _ time.Time) ([]model.PullRequest, error) {
	return nil, nil
}

func (m *mockPRStore) UpdateScores(_ context.Context, _ int64, _ model.QualityScores) error {
	return nil
}

type mockCommentStore struct{}

func (m *mockCommentStore) UpsertBatch(_ context.Context, _ []model.Comment) error { return nil }
func (m *mockCommentStore) ListByPR(_ context.Context, _ int64) ([]model.Comment, error) {
	return nil, nil
}
func (m *mockCommentStore) ListByPRs(_ context.Context, _ []int64) ([]model.Comment, error) {
	return nil, nil
}

type mockTeamStore struct {
	teams map[string]model.Team
}

func newMockTeamStore(teams ...model.Team) *mockTeamStore {
	m := &mockTeamStore{teams: make(map[string]model.Team)}
	for _, t := range teams {
		m.teams[t.ID] = t
	}
	return m
}

func (m *mockTeamStore) Create(_ context.Context, team model.Team) error {
	for _, existing := range m.teams {
		if existing.Name == team.Name {
			return driven.ErrTeamAlreadyExists
		}
	}
	m.teams[team.ID] = team
	return nil
}

func (m *mockTeamStore) GetByID(_ context.Context, id string) (*model.Team, error) {
	team, ok := m.teams[id]
	if !ok {
		return nil, nil
	}
	return &team, nil
}

func (m *mockTeamStore) GetByName(_ context.Context, _ string) (*model.Team, error) {
	return nil, nil
}

func (m *mockTeamStore) ListAll(_ context.Context) ([]model.Team, error) { return nil, nil }

func (m *mockTeamStore) AddMember(_ context.Context, _ model.TeamMember) error { return nil }

func (m *mockTeamStore) ListMembers(_ context.Context, _ string) ([]model.TeamMemberDetail, error) {
	return nil, nil
}

func (m *mockTeamStore) SetLastSync(_ context.Context, _ string, _ time.Time) error { return nil }

// --- Test server setup ---

type handlerDeps struct {
	client   *mockActivityClient
	users    *mockUserStore
	prs      *mockPRStore
	comments *mockCommentStore
	teams    *mockTeamStore
	scorer   driven.Scorer
	ping     func(context.Context) error
	devMode  bool
}

func newTestServer(t *testing.T, deps handlerDeps) *httptest.Server {
	t.Helper()

	if deps.client == nil {
		deps.client = &mockActivityClient{}
	}
	if deps.users == nil {
		deps.users = newMockUserStore()
	}
	if deps.prs == nil {
		deps.prs = &mockPRStore{stored: make(map[int64]model.PullRequest)}
	}
	if deps.comments == nil {
		deps.comments = &mockCommentStore{}
	}
	if deps.teams == nil {
		deps.teams = newMockTeamStore()
	}

	logger := slog.New(slog.DiscardHandler)
	epoch := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	pipeline := application.NewCommentPipeline(deps.client, deps.comments, deps.users, func(string, ...any) {})

	h := httphandler.NewHandler(
		application.NewUserService(deps.client, deps.users),
		application.NewTeamService(deps.teams, deps.users),
		application.NewSyncService(deps.client, deps.users, deps.prs, deps.teams, pipeline, epoch),
		application.NewReportService(deps.users, deps.prs, deps.comments, deps.teams),
		application.NewAnalysisService(deps.prs, deps.comments, deps.scorer),
		deps.ping,
		deps.devMode,
		logger,
	)

	server := httptest.NewServer(httphandler.NewServeMux(h, logger))
	t.Cleanup(server.Close)

	return server
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var envelope map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	_ = resp.Body.Close()
	return envelope
}

// --- Tests ---

func TestHealth(t *testing.T) {
	server := newTestServer(t, handlerDeps{})

	resp, err := http.Get(server.URL + "/api/v1/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	assert.Equal(t, true, envelope["success"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	server := newTestServer(t, handlerDeps{
		ping: func(context.Context) error { return errors.New("database is locked") },
	})

	resp, err := http.Get(server.URL + "/api/v1/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	assert.Equal(t, false, envelope["success"])
}

func TestRegisterUser(t *testing.T) {
	client := &mockActivityClient{
		fetchUser: func(login string) (*model.TrackedUser, error) {
			return &model.TrackedUser{Username: login, GitHubID: 583231, DisplayName: "Alice"}, nil
		},
	}

	server := newTestServer(t, handlerDeps{client: client})

	resp, err := http.Post(server.URL+"/api/v1/users", "application/json", strings.NewReader(`{"username":"alice"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	assert.Equal(t, true, envelope["success"])

	data := envelope["data"].(map[string]any)
	assert.Equal(t, "alice", data["username"])
	assert.Equal(t, "not_started", data["sync_status"])
}

func TestRegisterUser_MissingUsername(t *testing.T) {
	server := newTestServer(t, handlerDeps{})

	resp, err := http.Post(server.URL+"/api/v1/users", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterUser_Duplicate(t *testing.T) {
	users := newMockUserStore(model.TrackedUser{ID: "u1", Username: "alice", GitHubID: 583231})
	server := newTestServer(t, handlerDeps{users: users})

	resp, err := http.Post(server.URL+"/api/v1/users", "application/json", strings.NewReader(`{"username":"alice"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	assert.Equal(t, false, envelope["success"])
}

func TestGetUser_NotFound(t *testing.T) {
	server := newTestServer(t, handlerDeps{})

	resp, err := http.Get(server.URL + "/api/v1/users/nobody")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSyncUser(t *testing.T) {
	client := &mockActivityClient{
		searchPRs: func(_ string, _ time.Time) ([]model.PullRequest, error) {
			return []model.PullRequest{{ID: 1, Number: 1, AuthorID: 7, CreatedAt: time.Now()}}, nil
		},
	}
	users := newMockUserStore(model.TrackedUser{ID: "u1", Username: "alice", GitHubID: 7})

	server := newTestServer(t, handlerDeps{client: client, users: users})

	resp, err := http.Post(server.URL+"/api/v1/users/alice/sync", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, float64(1), data["prs_synced"])
	assert.Equal(t, true, data["comments_processing"])
}

func TestSyncUser_Unknown(t *testing.T) {
	server := newTestServer(t, handlerDeps{})

	resp, err := http.Post(server.URL+"/api/v1/users/nobody/sync", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUserSyncStatus(t *testing.T) {
	prSync := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	users := newMockUserStore(model.TrackedUser{ID: "u1", Username: "alice", GitHubID: 7, LastPRSync: &prSync})

	server := newTestServer(t, handlerDeps{users: users})

	resp, err := http.Get(server.URL + "/api/v1/users/alice/sync-status")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "processing", data["status"])
}

func TestCreateTeam(t *testing.T) {
	server := newTestServer(t, handlerDeps{})

	resp, err := http.Post(server.URL+"/api/v1/teams", "application/json", strings.NewReader(`{"name":"platform","description":"infra"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "platform", data["name"])
	assert.NotEmpty(t, data["id"])
}

func TestCreateTeam_MissingName(t *testing.T) {
	server := newTestServer(t, handlerDeps{})

	resp, err := http.Post(server.URL+"/api/v1/teams", "application/json", strings.NewReader(`{"description":"infra"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTeamReport_UnknownTeam(t *testing.T) {
	server := newTestServer(t, handlerDeps{})

	resp, err := http.Get(server.URL + "/api/v1/teams/missing/report?quarter=Q1&year=2025")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalyzePR_InvalidID(t *testing.T) {
	server := newTestServer(t, handlerDeps{})

	resp, err := http.Post(server.URL+"/api/v1/prs/abc/analyze", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzePR_ScorerUnavailable(t *testing.T) {
	prs := &mockPRStore{stored: map[int64]model.PullRequest{101: {ID: 101, Title: "change"}}}
	server := newTestServer(t, handlerDeps{prs: prs})

	resp, err := http.Post(server.URL+"/api/v1/prs/101/analyze", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestInternalErrorHidesDetail(t *testing.T) {
	users := newMockUserStore()
	users.err = errors.New("disk exploded")

	server := newTestServer(t, handlerDeps{users: users})

	resp, err := http.Get(server.URL + "/api/v1/users/alice")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	assert.Equal(t, "internal server error", envelope["message"])
	assert.Nil(t, envelope["error"])
}

func TestInternalErrorShowsDetailInDevMode(t *testing.T) {
	users := newMockUserStore()
	users.err = errors.New("disk exploded")

	server := newTestServer(t, handlerDeps{users: users, devMode: true})

	resp, err := http.Get(server.URL + "/api/v1/users/alice")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	assert.Contains(t, envelope["error"], "disk exploded")
}
