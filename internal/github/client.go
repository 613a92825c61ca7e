package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/cli/go-gh/v2/pkg/api"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client wraps read-only GitHub API access. Authentication comes from
// the gh environment (GH_TOKEN or gh auth login).
type Client struct {
	rest    *api.RESTClient
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a GitHub client. limiter throttles API calls and
// may be nil.
func NewClient(limiter *rate.Limiter, logger *zap.Logger) (*Client, error) {
	rest, err := api.DefaultRESTClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create REST client: %w", err)
	}
	return &Client{
		rest:    rest,
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Close releases resources
func (c *Client) Close() error {
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return c.rest.Get(endpoint, out)
}

// ParseRepo splits "owner/repo" into owner and repo
func ParseRepo(fullRepo string) (string, string, error) {
	parts := strings.Split(fullRepo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format: %s (expected owner/repo)", fullRepo)
	}
	return parts[0], parts[1], nil
}

// RepoExists checks if a repository exists
func (c *Client) RepoExists(ctx context.Context, fullRepo string) (bool, error) {
	var result struct{}
	err := c.get(ctx, fmt.Sprintf("repos/%s", fullRepo), &result)
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
