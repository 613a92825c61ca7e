package synthesizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/devinsight/devinsight/pkg/models"
)

const systemInstruction = `You are an expert GitHub analytics assistant. You answer questions about issues, contributors, and commit activity using only the retrieved data you are given.`

const promptTemplate = `Today's date is: %s

Based on ONLY the retrieved GitHub issues data provided below, answer the user's question directly and accurately.

=== RETRIEVED GITHUB ISSUES DATA ===
%s
=== END DATA ===

USER QUESTION: %s

ANALYSIS INSTRUCTIONS:
1. Read each issue's fields (title, contributor, commit count, state, dates, labels, repo).
2. Quote exact values from the data: contributor names, counts, dates.
3. Do not use any knowledge beyond the data above.
4. If the data is insufficient to answer, say so explicitly.

Provide a direct, factual answer based on the data above:`

// renderPrompt builds the deterministic grounding prompt.
func renderPrompt(date time.Time, context, query string) string {
	return fmt.Sprintf(promptTemplate, date.UTC().Format("2006-01-02"), context, query)
}

// formatCandidate renders one retrieved document as a context block.
func formatCandidate(c models.RetrievalCandidate) string {
	doc := c.Document

	body := doc.Text
	if len(body) > 500 {
		body = body[:500]
	}

	closed := "N/A"
	if !doc.ClosedAt.IsZero() {
		closed = doc.ClosedAt.UTC().Format(time.RFC3339)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", doc.Title)
	fmt.Fprintf(&b, "Body: %s\n", body)
	fmt.Fprintf(&b, "Contributor: %s\n", doc.ContributorLogin)
	fmt.Fprintf(&b, "Commit Count: %d\n", doc.CommitCount)
	fmt.Fprintf(&b, "State: %s\n", doc.State)
	fmt.Fprintf(&b, "Created: %s\n", doc.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Closed: %s\n", closed)
	fmt.Fprintf(&b, "Labels: %s\n", strings.Join(doc.Labels, ", "))
	fmt.Fprintf(&b, "Repo: %s\n", doc.RepoName)
	return b.String()
}
