package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/devinsight/devinsight/internal/retry"
)

type fakeProvider struct {
	dims     int
	calls    [][]string
	failFor  string // any batch containing this text fails
	failures int
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, append([]string(nil), texts...))
	for _, t := range texts {
		if f.failFor != "" && strings.Contains(t, f.failFor) {
			f.failures++
			return nil, errors.New("remote embedding error")
		}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		// Deterministic per-text vector so order is checkable.
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (f *fakeProvider) Dimensions() int { return f.dims }
func (f *fakeProvider) Close() error    { return nil }

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond, Multiplier: 1.0, MaxInterval: time.Millisecond}
}

func TestTruncate_ExactLimitWithWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	long := strings.Repeat("x", 100)
	got := Truncate(logger, long, 40)

	if len(got) != 40 {
		t.Errorf("Truncate length = %d, want exactly 40", len(got))
	}
	if logs.Len() != 1 {
		t.Errorf("expected one truncation warning, got %d", logs.Len())
	}

	// Under the limit: untouched, no warning.
	short := "short text"
	if Truncate(logger, short, 40) != short {
		t.Errorf("Truncate modified text under the limit")
	}
	if logs.Len() != 1 {
		t.Errorf("unexpected warning for text under the limit")
	}
}

func TestTruncate_KeepsRuneBoundaries(t *testing.T) {
	// Each rune is 3 bytes, so a 10-byte limit lands mid-rune.
	text := strings.Repeat("語", 20)
	got := Truncate(zap.NewNop(), text, 10)

	if !utf8.ValidString(got) {
		t.Fatalf("truncated text is not valid UTF-8: %q", got)
	}
	if len(got) != 9 {
		t.Errorf("truncated length = %d, want 9 (last whole rune before the limit)", len(got))
	}

	// An ASCII cut still lands exactly on the limit.
	if got := Truncate(zap.NewNop(), strings.Repeat("x", 20), 10); len(got) != 10 {
		t.Errorf("ASCII truncated length = %d, want 10", len(got))
	}
}

func TestBatcher_SplitsAndPreservesOrder(t *testing.T) {
	fake := &fakeProvider{dims: 2}
	b := NewBatcher(fake, 2, 0, fastPolicy(), nil, zap.NewNop())

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := b.EmbedAll(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedAll error: %v", err)
	}

	if len(vecs) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(texts))
	}
	for i, text := range texts {
		if vecs[i] == nil || vecs[i][0] != float32(len(text)) {
			t.Errorf("vector %d out of order: %v for %q", i, vecs[i], text)
		}
	}
	if len(fake.calls) != 3 {
		t.Errorf("batch count = %d, want 3", len(fake.calls))
	}
}

func TestBatcher_PartialFailureKeepsSuccesses(t *testing.T) {
	fake := &fakeProvider{dims: 2, failFor: "poison"}
	b := NewBatcher(fake, 2, 0, fastPolicy(), nil, zap.NewNop())

	texts := []string{"ok-1", "ok-2", "poison", "ok-3"}
	vecs, err := b.EmbedAll(context.Background(), texts)

	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("want BatchError, got %v", err)
	}

	// Only the poison text itself is reported, even though its batch
	// also covered index 3.
	if len(be.FailedIndexes) != 1 || be.FailedIndexes[0] != 2 {
		t.Errorf("FailedIndexes = %v, want [2]", be.FailedIndexes)
	}

	// Everything outside the poison text still gets a vector.
	if vecs[0] == nil || vecs[1] == nil || vecs[3] == nil {
		t.Errorf("healthy texts lost their vectors: %v", vecs)
	}
	if vecs[2] != nil {
		t.Errorf("failed entry should be nil")
	}

	// Full batch retried twice, then the halved poison text twice more.
	if fake.failures != 4 {
		t.Errorf("failures = %d, want 4", fake.failures)
	}
}

func TestBatcher_HalvingIsolatesSinglePoisonText(t *testing.T) {
	fake := &fakeProvider{dims: 2, failFor: "poison"}
	b := NewBatcher(fake, 4, 0, fastPolicy(), nil, zap.NewNop())

	texts := []string{"ok-1", "poison", "ok-2", "ok-3"}
	vecs, err := b.EmbedAll(context.Background(), texts)

	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("want BatchError, got %v", err)
	}
	if len(be.FailedIndexes) != 1 || be.FailedIndexes[0] != 1 {
		t.Errorf("FailedIndexes = %v, want [1]", be.FailedIndexes)
	}
	for _, i := range []int{0, 2, 3} {
		if vecs[i] == nil {
			t.Errorf("vector %d missing for %q", i, texts[i])
		}
	}
	if vecs[1] != nil {
		t.Errorf("poison entry should be nil")
	}
}

func TestBatcher_TruncatesBeforeSubmission(t *testing.T) {
	fake := &fakeProvider{dims: 2}
	b := NewBatcher(fake, 10, 5, fastPolicy(), nil, zap.NewNop())

	_, err := b.EmbedAll(context.Background(), []string{strings.Repeat("z", 50)})
	if err != nil {
		t.Fatalf("EmbedAll error: %v", err)
	}

	if got := fake.calls[0][0]; len(got) != 5 {
		t.Errorf("submitted text length = %d, want 5", len(got))
	}
}
