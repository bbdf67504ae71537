package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// UserService manages the set of tracked users. Registration resolves the
// login against the remote API so the stored row carries the remote identity
// the sync engine keys on.
type UserService struct {
	client    driven.ActivityClient
	userStore driven.UserStore
}

// NewUserService creates a UserService with the required dependencies.
func NewUserService(client driven.ActivityClient, userStore driven.UserStore) *UserService {
	return &UserService{
		client:    client,
		userStore: userStore,
	}
}

// Register starts tracking a user. The login is resolved remotely before
// storing; an unknown login surfaces the remote error. Registering an
// already-tracked login returns driven.ErrUserAlreadyExists.
func (s *UserService) Register(ctx context.Context, username string) (*model.TrackedUser, error) {
	existing, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("checking existing user %s: %w", username, err)
	}
	if existing != nil {
		return nil, driven.ErrUserAlreadyExists
	}

	remote, err := s.client.FetchUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("resolving user %s: %w", username, err)
	}

	user := *remote
	user.ID = uuid.NewString()
	user.AddedAt = time.Now().UTC()

	if err := s.userStore.Add(ctx, user); err != nil {
		return nil, fmt.Errorf("storing user %s: %w", username, err)
	}

	return &user, nil
}

// Get returns one tracked user by login.
func (s *UserService) Get(ctx context.Context, username string) (*model.TrackedUser, error) {
	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", username, err)
	}
	if user == nil {
		return nil, driven.ErrUserNotFound
	}

	return user, nil
}

// List returns all tracked users.
func (s *UserService) List(ctx context.Context) ([]model.TrackedUser, error) {
	users, err := s.userStore.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	return users, nil
}
