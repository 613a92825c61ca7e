package models

// NoDataAnswer is returned verbatim when retrieval produced no
// candidates; the generative model is never invoked in that case.
const NoDataAnswer = "no data found"

// RetrievalCandidate is an indexed document scored against a query.
// Created per-query and discarded with the request.
type RetrievalCandidate struct {
	Document IndexedDocument `json:"document"`
	Score    float64         `json:"score"`
	Rank     int             `json:"rank"`
}

// SourceRef identifies one cited source in an answer.
type SourceRef struct {
	RecordID    int64   `json:"identifier"`
	Title       string  `json:"title"`
	RepoName    string  `json:"repo_name"`
	State       string  `json:"state"`
	Contributor string  `json:"contributor"`
	CommitCount int     `json:"commit_count"`
	CreatedAt   string  `json:"created_at"`
	Score       float64 `json:"score"`
}

// AnswerResult is the response of the query engine: generated text
// plus the sources that actually made it into the grounding context.
type AnswerResult struct {
	Answer     string      `json:"answer"`
	Sources    []SourceRef `json:"sources"`
	NumSources int         `json:"num_sources"`
}

// NoDataResult builds the canned result for an empty candidate set.
func NoDataResult() AnswerResult {
	return AnswerResult{
		Answer:     NoDataAnswer,
		Sources:    []SourceRef{},
		NumSources: 0,
	}
}

// SourceFromCandidate maps a retrieval candidate to its citation form.
func SourceFromCandidate(c RetrievalCandidate) SourceRef {
	created := ""
	if !c.Document.CreatedAt.IsZero() {
		created = c.Document.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return SourceRef{
		RecordID:    c.Document.RecordID,
		Title:       c.Document.Title,
		RepoName:    c.Document.RepoName,
		State:       c.Document.State,
		Contributor: c.Document.ContributorLogin,
		CommitCount: c.Document.CommitCount,
		CreatedAt:   created,
		Score:       c.Score,
	}
}

// IndexStats contains the terminal summary of an indexing run.
type IndexStats struct {
	Total      int     `json:"total"`
	Indexed    int     `json:"indexed"`
	Skipped    int     `json:"skipped"`
	Failed     int     `json:"failed"`
	FailedIDs  []int64 `json:"failed_ids,omitempty"`
	DurationMs int     `json:"duration_ms"`
}
