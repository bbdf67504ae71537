package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

func testUser(username string, githubID int64) model.TrackedUser {
	return model.TrackedUser{
		ID:          uuid.NewString(),
		Username:    username,
		GitHubID:    githubID,
		DisplayName: "Test User",
		AvatarURL:   "https://avatars.example.com/u/1",
		AddedAt:     time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUserRepo_AddAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	user := testUser("octocat", 583231)
	require.NoError(t, repo.Add(ctx, user))

	got, err := repo.GetByUsername(ctx, "octocat")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, int64(583231), got.GitHubID)
	assert.Nil(t, got.LastPRSync)
	assert.Nil(t, got.LastCommentSync)
	assert.Equal(t, model.SyncNotStarted, got.SyncStatus())

	byID, err := repo.GetByGitHubID(ctx, 583231)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "octocat", byID.Username)
}

func TestUserRepo_Add_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, testUser("octocat", 583231)))

	err := repo.Add(ctx, testUser("octocat", 999))
	assert.ErrorIs(t, err, driven.ErrUserAlreadyExists)
}

func TestUserRepo_GetByUsername_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)

	got, err := repo.GetByUsername(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepo_Watermarks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, testUser("octocat", 583231)))

	prSync := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetLastPRSync(ctx, 583231, prSync))

	got, err := repo.GetByGitHubID(ctx, 583231)
	require.NoError(t, err)
	require.NotNil(t, got.LastPRSync)
	assert.True(t, got.LastPRSync.Equal(prSync))
	assert.Nil(t, got.LastCommentSync)
	assert.Equal(t, model.SyncProcessing, got.SyncStatus())

	commentSync := prSync.Add(30 * time.Second)
	require.NoError(t, repo.SetLastCommentSync(ctx, 583231, commentSync))

	got, err = repo.GetByGitHubID(ctx, 583231)
	require.NoError(t, err)
	require.NotNil(t, got.LastCommentSync)
	assert.True(t, got.LastCommentSync.Equal(commentSync))
	assert.Equal(t, model.SyncCompleted, got.SyncStatus())
}

func TestUserRepo_TimestampStoredAsText(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, testUser("octocat", 583231)))

	// A zoned, sub-second timestamp must survive the round trip. Binding a
	// raw time.Time would let the driver store time.Time.String() output,
	// which no read path can parse back.
	loc := time.FixedZone("IST", 5*3600+1800)
	prSync := time.Date(2025, 3, 1, 15, 30, 0, 123456789, loc)
	require.NoError(t, repo.SetLastPRSync(ctx, 583231, prSync))

	got, err := repo.GetByGitHubID(ctx, 583231)
	require.NoError(t, err)
	require.NotNil(t, got.LastPRSync)
	assert.True(t, got.LastPRSync.Equal(prSync))

	var raw string
	err = db.Reader.QueryRowContext(ctx,
		`SELECT last_pr_sync FROM tracked_users WHERE github_id = ?`, 583231,
	).Scan(&raw)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01T10:00:00.123456789Z", raw)
}

func TestUserRepo_SetWatermark_UnknownUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	err := repo.SetLastPRSync(ctx, 999, time.Now())
	assert.ErrorIs(t, err, driven.ErrUserNotFound)

	err = repo.SetLastCommentSync(ctx, 999, time.Now())
	assert.ErrorIs(t, err, driven.ErrUserNotFound)
}

func TestUserRepo_ListAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, testUser("alice", 1)))
	require.NoError(t, repo.Add(ctx, testUser("bob", 2)))

	users, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
