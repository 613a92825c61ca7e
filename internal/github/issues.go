package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/devinsight/devinsight/pkg/models"
)

// ListOptions configures issue listing
type ListOptions struct {
	State   string // "open", "closed", "all"
	PerPage int
	Page    int
	Since   time.Time
}

// apiIssue is the wire shape of the /issues endpoint. The endpoint
// mixes pull requests in; the pull_request key marks them.
type apiIssue struct {
	ID          int64      `json:"id"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	State       string     `json:"state"`
	HTMLURL     string     `json:"html_url"`
	User        apiUser    `json:"user"`
	Labels      []apiLabel `json:"labels"`
	Assignees   []apiUser  `json:"assignees"`
	Comments    int        `json:"comments"`
	PullRequest *struct {
		HTMLURL string `json:"html_url"`
	} `json:"pull_request,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at"`
}

type apiUser struct {
	Login string `json:"login"`
	Type  string `json:"type"`
}

type apiLabel struct {
	Name string `json:"name"`
}

// toRecord converts an API issue into a warehouse record. Contributor
// fields are merged later from the contributors endpoint.
func (i *apiIssue) toRecord(fullRepo string) models.Record {
	labels := make([]string, len(i.Labels))
	for j, l := range i.Labels {
		labels[j] = l.Name
	}
	assignees := make([]string, len(i.Assignees))
	for j, a := range i.Assignees {
		assignees[j] = a.Login
	}

	return models.Record{
		ID:            i.ID,
		Number:        i.Number,
		Title:         i.Title,
		Body:          i.Body,
		State:         i.State,
		RepoName:      fullRepo,
		Creator:       i.User.Login,
		CreatorType:   i.User.Type,
		IsPR:          i.PullRequest != nil,
		Labels:        labels,
		Assignees:     assignees,
		CommentsCount: i.Comments,
		URL:           i.HTMLURL,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
		ClosedAt:      i.ClosedAt,
	}
}

// ListIssues fetches one page of issues from a repository.
func (c *Client) ListIssues(ctx context.Context, fullRepo string, opts ListOptions) ([]models.Record, error) {
	if opts.PerPage == 0 {
		opts.PerPage = 100
	}
	if opts.State == "" {
		opts.State = "all"
	}
	if opts.Page == 0 {
		opts.Page = 1
	}

	params := url.Values{}
	params.Set("state", opts.State)
	params.Set("per_page", strconv.Itoa(opts.PerPage))
	params.Set("page", strconv.Itoa(opts.Page))
	params.Set("sort", "updated")
	params.Set("direction", "desc")
	if !opts.Since.IsZero() {
		params.Set("since", opts.Since.UTC().Format(time.RFC3339))
	}

	endpoint := fmt.Sprintf("repos/%s/issues?%s", fullRepo, params.Encode())

	var apiIssues []apiIssue
	if err := c.get(ctx, endpoint, &apiIssues); err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	records := make([]models.Record, 0, len(apiIssues))
	for _, ai := range apiIssues {
		records = append(records, ai.toRecord(fullRepo))
	}
	return records, nil
}

// ListAllIssues fetches all issues using pagination. Pull requests are
// kept with their is_pr flag set.
func (c *Client) ListAllIssues(ctx context.Context, fullRepo string, since time.Time, pageSize int) ([]models.Record, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	var all []models.Record
	page := 1
	for {
		records, err := c.ListIssues(ctx, fullRepo, ListOptions{
			State:   "all",
			PerPage: pageSize,
			Page:    page,
			Since:   since,
		})
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			break
		}

		all = append(all, records...)

		if len(records) < pageSize {
			break
		}
		page++
	}
	return all, nil
}
