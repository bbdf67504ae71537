// Package model contains the core domain entities and derived values.
package model

import "time"

// SyncStatus is the tri-state comment-sync status derived from a user's
// two watermarks.
type SyncStatus string

const (
	SyncNotStarted SyncStatus = "not_started"
	SyncProcessing SyncStatus = "processing"
	SyncCompleted  SyncStatus = "completed"
)

// TrackedUser is an engineer whose pull-request activity is synchronized.
// LastPRSync and LastCommentSync are independent watermarks: the first marks
// the last successful PR reconciliation, the second the last completed
// comment ingestion. The sync engine advances them but never deletes a user.
type TrackedUser struct {
	ID          string // Surrogate UUID.
	Username    string // Remote login, unique.
	GitHubID    int64  // Immutable numeric account id, unique.
	DisplayName string
	AvatarURL   string
	AddedAt     time.Time

	LastPRSync      *time.Time
	LastCommentSync *time.Time
}

// SyncStatus derives the comment-sync status from the two watermarks.
// Completed means a comment sync finished at or after the most recent PR
// sync; any other combination with at least one watermark set is still
// processing.
func (u TrackedUser) SyncStatus() SyncStatus {
	if u.LastCommentSync != nil {
		if u.LastPRSync != nil && !u.LastCommentSync.Before(*u.LastPRSync) {
			return SyncCompleted
		}
		return SyncProcessing
	}
	if u.LastPRSync != nil {
		return SyncProcessing
	}
	return SyncNotStarted
}
