// Package github implements the ActivityClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/model"
	"github.com/SaikatGlitchCodes/metrictracker-be/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ActivityClient = (*Client)(nil)

// Client implements the driven.ActivityClient port using the go-github library.
type Client struct {
	gh   *gh.Client
	host string // Hostname expected in pull request web URLs, "github.com" in production.
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token, host string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:   client,
		host: host,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, host string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{
		gh:   client,
		host: host,
	}, nil
}

// SearchPullRequests retrieves all pull requests authored by the given login
// and created on or after since. The since boundary is day-granular because
// the search qualifier syntax only accepts dates.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) SearchPullRequests(ctx context.Context, author string, since time.Time) ([]model.PullRequest, error) {
	query := fmt.Sprintf("author:%s is:pr created:>=%s", author, since.UTC().Format("2006-01-02"))
	return c.searchPullRequests(ctx, query)
}

// SearchOpenPullRequests retrieves all currently-open pull requests authored
// by the given login, regardless of creation date. Used to re-reconcile open
// pull requests that predate the incremental watermark.
func (c *Client) SearchOpenPullRequests(ctx context.Context, author string) ([]model.PullRequest, error) {
	query := fmt.Sprintf("author:%s is:pr is:open", author)
	return c.searchPullRequests(ctx, query)
}

func (c *Client) searchPullRequests(ctx context.Context, query string) ([]model.PullRequest, error) {
	opts := &gh.SearchOptions{
		Sort:  "created",
		Order: "desc",
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	var allPRs []model.PullRequest

	for {
		result, resp, err := c.gh.Search.Issues(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("searching pull requests %q (page %d): %w", query, opts.Page, err)
		}

		logRateLimit(resp, "search/issues", opts.Page, len(result.Issues))

		for _, issue := range result.Issues {
			allPRs = append(allPRs, mapSearchIssue(issue))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if allPRs == nil {
		allPRs = []model.PullRequest{}
	}

	return allPRs, nil
}

// ListIssueComments retrieves all general PR-level comments (from the Issues API)
// for a pull request. It handles pagination automatically.
func (c *Client) ListIssueComments(ctx context.Context, owner, repo string, prNumber int) ([]model.Comment, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var allComments []model.Comment

	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing issue comments for %s/%s#%d (page %d): %w", owner, repo, prNumber, opts.Page, err)
		}

		for _, comment := range comments {
			allComments = append(allComments, mapIssueComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allComments, nil
}

// ListReviewComments retrieves all inline review comments for a pull request.
// It handles pagination automatically.
func (c *Client) ListReviewComments(ctx context.Context, owner, repo string, prNumber int) ([]model.Comment, error) {
	opts := &gh.PullRequestListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var allComments []model.Comment

	for {
		comments, resp, err := c.gh.PullRequests.ListComments(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, fmt.Errorf("listing review comments for %s/%s#%d (page %d): %w", owner, repo, prNumber, opts.Page, err)
		}

		for _, comment := range comments {
			allComments = append(allComments, mapReviewComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allComments, nil
}

// FetchUser resolves a login to its remote account identity. The returned
// user carries only remote fields; the caller assigns local identity before
// storing.
func (c *Client) FetchUser(ctx context.Context, login string) (*model.TrackedUser, error) {
	user, resp, err := c.gh.Users.Get(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", login, err)
	}

	logRateLimit(resp, "users/"+login, 0, 1)

	return &model.TrackedUser{
		Username:    user.GetLogin(),
		GitHubID:    user.GetID(),
		DisplayName: user.GetName(),
		AvatarURL:   user.GetAvatarURL(),
	}, nil
}

// ParseRepoURL extracts owner and repo from a pull request's canonical web
// URL, e.g. https://github.com/acme/platform/pull/42. URLs on a different
// host return driven.ErrUnrecognizedRepoURL.
func (c *Client) ParseRepoURL(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", driven.ErrUnrecognizedRepoURL, rawURL)
	}

	if u.Host != c.host {
		return "", "", fmt.Errorf("%w: %q", driven.ErrUnrecognizedRepoURL, rawURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", driven.ErrUnrecognizedRepoURL, rawURL)
	}

	return parts[0], parts[1], nil
}

// mapSearchIssue converts a go-github search result Issue to a domain model
// PullRequest. Search results surface pull requests through the issue shape;
// merge state arrives via the pull request links sub-object.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapSearchIssue(issue *gh.Issue) model.PullRequest {
	state := model.PRStateOpen
	if issue.GetState() == "closed" {
		state = model.PRStateClosed
	}

	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}

	var mergedAt *time.Time
	if links := issue.GetPullRequestLinks(); links != nil && links.MergedAt != nil {
		t := links.MergedAt.Time
		mergedAt = &t
	}

	var closedAt *time.Time
	if issue.ClosedAt != nil {
		t := issue.GetClosedAt().Time
		closedAt = &t
	}

	return model.PullRequest{
		ID:            issue.GetID(),
		Number:        issue.GetNumber(),
		Title:         issue.GetTitle(),
		RepoURL:       issue.GetHTMLURL(),
		CommentsURL:   issue.GetCommentsURL(),
		State:         state,
		AuthorID:      issue.GetUser().GetID(),
		Labels:        labels,
		TotalComments: issue.GetComments(),
		IsDraft:       issue.GetDraft(),
		CreatedAt:     issue.GetCreatedAt().Time,
		MergedAt:      mergedAt,
		ClosedAt:      closedAt,
	}
}

// mapIssueComment converts a go-github IssueComment to a domain model Comment.
// Key and PRID are assigned by the caller before storing; the adapter has no
// knowledge of which stored pull request owns the comment.
func mapIssueComment(c *gh.IssueComment) model.Comment {
	return model.Comment{
		Type:      model.CommentTypeIssue,
		Body:      c.GetBody(),
		Author:    c.GetUser().GetLogin(),
		AuthorID:  c.GetUser().GetID(),
		CreatedAt: c.GetCreatedAt().Time,
	}
}

// mapReviewComment converts a go-github PullRequestComment to a domain model Comment.
func mapReviewComment(c *gh.PullRequestComment) model.Comment {
	return model.Comment{
		Type:      model.CommentTypeReview,
		Body:      c.GetBody(),
		Author:    c.GetUser().GetLogin(),
		AuthorID:  c.GetUser().GetID(),
		CreatedAt: c.GetCreatedAt().Time,
	}
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}
