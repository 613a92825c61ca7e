package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/devinsight/devinsight/internal/recordstore"
	"github.com/devinsight/devinsight/internal/synthesizer"
	"github.com/devinsight/devinsight/internal/vectordb"
	"github.com/devinsight/devinsight/pkg/models"
)

// AskRequest is the request body for POST /ask. Either question or
// query carries the user input.
type AskRequest struct {
	Question string `json:"question"`
	Query    string `json:"query"`
}

// InfoResponse is the response body for GET /.
type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ReportsResponse is the response body for GET /reports.
type ReportsResponse struct {
	Issues       IssueStats                    `json:"issues"`
	Contributors []recordstore.ContributorStat `json:"contributors"`
	Blockers     []recordstore.Blocker         `json:"blockers"`
}

// IssueStats is the issue rollup inside a report.
type IssueStats struct {
	Closed           int     `json:"closed"`
	Open             int     `json:"open"`
	AvgResolutionHrs float64 `json:"avg_resolution_hrs"`
}

// RecentIssue is one entry of GET /issues/recent.
type RecentIssue struct {
	RecordID         int64  `json:"issue_id"`
	Number           int    `json:"number"`
	Title            string `json:"title"`
	RepoName         string `json:"repo_name"`
	State            string `json:"state"`
	ContributorLogin string `json:"contributor_login"`
	CommitCount      int    `json:"commit_count"`
	CreatedAt        string `json:"created_at"`
	ClosedAt         string `json:"closed_at,omitempty"`
}

// RecentIssuesResponse is the response body for GET /issues/recent.
type RecentIssuesResponse struct {
	RecentIssues []RecentIssue `json:"recent_issues"`
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, InfoResponse{
		Name:    "DevInsight API",
		Version: "1.0",
		Status:  "running",
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Service: "DevInsight API"})
}

func (s *Server) handleAsk(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid ask request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	input := req.Question
	if input == "" {
		input = req.Query
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question/query cannot be empty")
	}

	result, err := s.engine.Answer(c.Request().Context(), input, models.Filters{})
	if err != nil {
		if errors.Is(err, vectordb.ErrRetrievalUnavailable) || errors.Is(err, synthesizer.ErrGenerationUnavailable) {
			s.logger.Error("backend unavailable", zap.Error(err))
			return echo.NewHTTPError(http.StatusServiceUnavailable, "backend temporarily unavailable")
		}
		s.logger.Error("query failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process query")
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleReports(c echo.Context) error {
	stats, err := s.store.AggregateStats(c.Request().Context(), recordstore.StatsFilters{})
	if err != nil {
		s.logger.Error("reports query failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "warehouse unavailable")
	}

	resp := ReportsResponse{
		Issues: IssueStats{
			Closed:           stats.ClosedCount,
			Open:             stats.OpenCount,
			AvgResolutionHrs: stats.AvgResolutionHours,
		},
		Contributors: stats.TopContributors,
		Blockers:     stats.Blockers,
	}
	if resp.Contributors == nil {
		resp.Contributors = []recordstore.ContributorStat{}
	}
	if resp.Blockers == nil {
		resp.Blockers = []recordstore.Blocker{}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRecentIssues(c echo.Context) error {
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	records, err := s.store.RecentRecords(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error("recent issues query failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "warehouse unavailable")
	}

	issues := make([]RecentIssue, 0, len(records))
	for _, rec := range records {
		issue := RecentIssue{
			RecordID:         rec.ID,
			Number:           rec.Number,
			Title:            rec.Title,
			RepoName:         rec.RepoName,
			State:            rec.State,
			ContributorLogin: rec.ContributorLogin,
			CommitCount:      rec.CommitCount,
			CreatedAt:        rec.CreatedAt.UTC().Format(time.RFC3339),
		}
		if rec.ClosedAt != nil {
			issue.ClosedAt = rec.ClosedAt.UTC().Format(time.RFC3339)
		}
		issues = append(issues, issue)
	}
	return c.JSON(http.StatusOK, RecentIssuesResponse{RecentIssues: issues})
}
