package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// CommentType distinguishes PR-level discussion comments from inline review
// comments.
type CommentType string

const (
	CommentTypeIssue  CommentType = "issue"
	CommentTypeReview CommentType = "review"
)

// Comment is one normalized remote comment attached to a stored pull request.
// Created only by the ingestion pipeline; never mutated elsewhere, never
// deleted.
type Comment struct {
	Key       string // Deterministic surrogate identity, see CommentKey.
	PRID      int64  // PullRequest.ID of the owning pull request.
	Type      CommentType
	Body      string
	Author    string
	AuthorID  int64
	CreatedAt time.Time
}

// CommentKey builds the deterministic identity used to deduplicate comments.
// The remote API exposes no stable id in the normalized shape we store, so
// identity is a SHA-256 over the tuple that makes a comment unique. Ingesting
// the same comment twice always yields the same key.
func CommentKey(prID, authorID int64, createdAt time.Time, body string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d\x00%d\x00%d\x00%s", prID, authorID, createdAt.UTC().Unix(), body)
	return hex.EncodeToString(h.Sum(nil))
}
