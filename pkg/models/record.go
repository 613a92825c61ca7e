package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is a normalized issue (or contributor-enriched issue) from the
// source repository host, as stored in the warehouse.
type Record struct {
	ID               int64      `json:"issue_id"`
	Number           int        `json:"number"`
	Title            string     `json:"title"`
	Body             string     `json:"body"`
	State            string     `json:"state"` // "open" or "closed"
	RepoName         string     `json:"repo_name"`
	Creator          string     `json:"creator"`
	CreatorType      string     `json:"creator_type"`
	IsPR             bool       `json:"is_pr"`
	Labels           []string   `json:"labels"`
	Assignees        []string   `json:"assignees"`
	CommentsCount    int        `json:"comments_count"`
	URL              string     `json:"html_url"`
	ContributorLogin string     `json:"contributor_login"`
	ContributorRole  string     `json:"contributor_role"`
	Contributions    int        `json:"contributions"`
	CommitCount      int        `json:"commit_count"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
}

// DocID generates a deterministic index-document identifier for the
// record, so re-indexing overwrites instead of duplicating.
func (r *Record) DocID() string {
	return RecordDocID(r.RepoName, r.ID)
}

// RecordDocID generates a deterministic UUID from record identity.
func RecordDocID(repoName string, id int64) string {
	data := fmt.Sprintf("%s#%d", repoName, id)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(data)).String()
}

// EmbeddingText builds the canonical text representation submitted to
// the embedding model.
func (r *Record) EmbeddingText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n\nBody: %s\n\n", r.Title, r.Body)
	fmt.Fprintf(&b, "repo: %s contributor: %s", r.RepoName, r.ContributorLogin)
	return b.String()
}

// ContentHash returns a SHA-256 hash over the embeddable text and the
// mutable fields (state, closed timestamp). A changed hash means the
// record must be re-embedded and re-upserted.
func (r *Record) ContentHash() string {
	closed := ""
	if r.ClosedAt != nil {
		closed = r.ClosedAt.UTC().Format(time.RFC3339)
	}
	data := fmt.Sprintf("%s|%s|%s", r.EmbeddingText(), r.State, closed)
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

// Document converts the record into its indexable representation. The
// vector is attached later by the indexing pipeline.
func (r *Record) Document() IndexedDocument {
	doc := IndexedDocument{
		DocID:            r.DocID(),
		RecordID:         r.ID,
		Number:           r.Number,
		Title:            r.Title,
		Text:             r.EmbeddingText(),
		State:            r.State,
		RepoName:         r.RepoName,
		Creator:          r.Creator,
		Labels:           r.Labels,
		URL:              r.URL,
		ContributorLogin: r.ContributorLogin,
		CommitCount:      r.CommitCount,
		ContentHash:      r.ContentHash(),
		CreatedAt:        r.CreatedAt,
	}
	if r.ClosedAt != nil {
		doc.ClosedAt = *r.ClosedAt
	}
	return doc
}

// IndexedDocument is the unit stored in the vector index: record
// metadata, embeddable text, and the embedding vector.
type IndexedDocument struct {
	DocID            string    `json:"doc_id"`
	RecordID         int64     `json:"record_id"`
	Number           int       `json:"number"`
	Title            string    `json:"title"`
	Text             string    `json:"text"`
	State            string    `json:"state"`
	RepoName         string    `json:"repo_name"`
	Creator          string    `json:"creator"`
	Labels           []string  `json:"labels"`
	URL              string    `json:"url"`
	ContributorLogin string    `json:"contributor_login"`
	CommitCount      int       `json:"commit_count"`
	ContentHash      string    `json:"content_hash"`
	CreatedAt        time.Time `json:"created_at"`
	ClosedAt         time.Time `json:"closed_at,omitempty"`
	Vector           []float32 `json:"-"`
}

// Filters restricts retrieval to a slice of the index. Zero values
// mean "no restriction".
type Filters struct {
	State         string
	RepoName      string
	Contributor   string
	CreatedAfter  time.Time
	CreatedBefore time.Time
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.State == "" && f.RepoName == "" && f.Contributor == "" &&
		f.CreatedAfter.IsZero() && f.CreatedBefore.IsZero()
}
