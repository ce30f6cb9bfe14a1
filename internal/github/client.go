// Package github wraps the GitHub REST API for the lookups the notebook host
// needs beyond git itself: default branches and upstream staleness.
package github

import (
	"context"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"

	"github.com/mike-a-ellis/notebook-host/internal/auth"
)

// Client wraps the GitHub API client with rate limiting support
type Client struct {
	*github.Client
}

// NewClient creates a GitHub client that waits out primary and secondary
// rate limits. When creds is non-nil the client authenticates with the
// bound token; otherwise it is anonymous.
func NewClient(ctx context.Context, creds *auth.Context) (*Client, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)
	if creds != nil {
		ghClient = ghClient.WithAuthToken(creds.Token())
	}

	return &Client{Client: ghClient}, nil
}
