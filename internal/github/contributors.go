package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/devinsight/devinsight/pkg/models"
)

// Contributor is one entry from the repo contributors endpoint.
type Contributor struct {
	Login         string `json:"login"`
	Type          string `json:"type"`
	Contributions int    `json:"contributions"`
}

// ListContributors fetches all contributors of a repository with
// their commit contribution totals.
func (c *Client) ListContributors(ctx context.Context, fullRepo string) ([]Contributor, error) {
	var all []Contributor
	page := 1
	perPage := 100

	for {
		params := url.Values{}
		params.Set("per_page", strconv.Itoa(perPage))
		params.Set("page", strconv.Itoa(page))
		params.Set("anon", "false")

		endpoint := fmt.Sprintf("repos/%s/contributors?%s", fullRepo, params.Encode())

		var pageData []Contributor
		if err := c.get(ctx, endpoint, &pageData); err != nil {
			return nil, fmt.Errorf("failed to list contributors: %w", err)
		}
		if len(pageData) == 0 {
			break
		}

		all = append(all, pageData...)

		if len(pageData) < perPage {
			break
		}
		page++
	}
	return all, nil
}

// MergeContributorStats attaches contributor totals to each record
// whose creator appears in contributors. Creators missing from the
// list keep zero contribution counts.
func MergeContributorStats(records []models.Record, contributors []Contributor) []models.Record {
	byLogin := make(map[string]Contributor, len(contributors))
	for _, c := range contributors {
		if c.Login != "" {
			byLogin[c.Login] = c
		}
	}

	for i := range records {
		creator := records[i].Creator
		records[i].ContributorLogin = creator
		if creator == "" {
			continue
		}
		records[i].ContributorRole = "author"
		if c, ok := byLogin[creator]; ok {
			records[i].Contributions = c.Contributions
			records[i].CommitCount = c.Contributions
		}
	}
	return records
}
