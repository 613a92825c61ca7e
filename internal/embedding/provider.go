package embedding

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Provider defines the interface for embedding generation. Vectors are
// returned in input order with one vector per text, all of the same
// fixed dimension.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Truncate cuts text to at most maxChars bytes, backing off to the
// nearest rune boundary so the result stays valid UTF-8, and logs a
// warning when a cut happens. Texts over the model limit are
// shortened, never rejected.
func Truncate(logger *zap.Logger, text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	if logger != nil {
		logger.Warn("truncating text before embedding",
			zap.Int("original_len", len(text)),
			zap.Int("limit", maxChars))
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// CleanText removes excessive whitespace from text
func CleanText(text string) string {
	text = strings.TrimSpace(text)
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// BatchError reports the inputs that could not be embedded after all
// retries. Successful batches are unaffected.
type BatchError struct {
	FailedIndexes []int
	Cause         error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("embedding failed for %d texts: %v", len(e.FailedIndexes), e.Cause)
}

func (e *BatchError) Unwrap() error {
	return e.Cause
}
