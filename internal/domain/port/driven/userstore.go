package driven

import (
	"context"
	"errors"
	"time"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
)

// Sentinel errors returned by UserStore implementations and the services
// built on top of them.
var (
	// ErrUserNotFound indicates the requested tracked user does not exist.
	ErrUserNotFound = errors.New("tracked user not found")

	// ErrUserAlreadyExists indicates a user with the same login or remote id
	// is already tracked.
	ErrUserAlreadyExists = errors.New("tracked user already exists")
)

// UserStore defines the driven port for tracked-user persistence. The two
// watermark setters are the only mutation points the sync engine uses; user
// rows are never deleted by the engine.
type UserStore interface {
	Add(ctx context.Context, user model.TrackedUser) error
	// GetByUsername returns nil, nil when no user has the given login.
	GetByUsername(ctx context.Context, username string) (*model.TrackedUser, error)
	// GetByGitHubID returns nil, nil when no user has the given remote id.
	GetByGitHubID(ctx context.Context, githubID int64) (*model.TrackedUser, error)
	ListAll(ctx context.Context) ([]model.TrackedUser, error)
	SetLastPRSync(ctx context.Context, githubID int64, t time.Time) error
	SetLastCommentSync(ctx context.Context, githubID int64, t time.Time) error
}
