package embedding

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/devinsight/devinsight/internal/retry"
)

// Batcher splits large inputs into provider-sized batches, truncates
// oversized texts, rate-limits remote calls, and retries transient
// batch failures. A failed batch never aborts the batches that already
// succeeded; the failed inputs are reported in a BatchError.
type Batcher struct {
	provider  Provider
	batchSize int
	maxChars  int
	policy    retry.Policy
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewBatcher builds a batcher around provider. A nil limiter disables
// rate limiting.
func NewBatcher(provider Provider, batchSize, maxChars int, policy retry.Policy, limiter *rate.Limiter, logger *zap.Logger) *Batcher {
	if batchSize <= 0 {
		batchSize = 25
	}
	return &Batcher{
		provider:  provider,
		batchSize: batchSize,
		maxChars:  maxChars,
		policy:    policy,
		limiter:   limiter,
		logger:    logger,
	}
}

// EmbedAll embeds every text, in order. The returned slice always has
// one entry per input; entries for texts that failed after all retries
// are nil, and those indexes are reported in a *BatchError. A failing
// batch is retried at halved size down to single texts, so only the
// genuinely unembeddable inputs are skipped. Any other error kind
// means nothing was embedded.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) ([][]float32, error) {
	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = Truncate(b.logger, t, b.maxChars)
	}

	out := make([][]float32, len(texts))
	var failed []int
	var lastErr error

	var embed func(batch []string, base int) error
	embed = func(batch []string, base int) error {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		var vecs [][]float32
		err := b.policy.Do(ctx, func() error {
			var embedErr error
			vecs, embedErr = b.provider.EmbedBatch(ctx, batch)
			return embedErr
		})
		if err == nil {
			copy(out[base:base+len(batch)], vecs)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if len(batch) == 1 {
			b.logger.Warn("text failed to embed after retries",
				zap.Int("index", base),
				zap.Error(err))
			failed = append(failed, base)
			lastErr = err
			return nil
		}

		// Halve the batch to isolate the offending texts.
		mid := len(batch) / 2
		b.logger.Warn("embedding batch failed, retrying at reduced size",
			zap.Int("start", base),
			zap.Int("size", len(batch)),
			zap.Error(err))
		if err := embed(batch[:mid], base); err != nil {
			return err
		}
		return embed(batch[mid:], base+mid)
	}

	for start := 0; start < len(prepared); start += b.batchSize {
		end := start + b.batchSize
		if end > len(prepared) {
			end = len(prepared)
		}
		if err := embed(prepared[start:end], start); err != nil {
			return nil, err
		}
	}

	if len(failed) > 0 {
		return out, &BatchError{FailedIndexes: failed, Cause: lastErr}
	}
	return out, nil
}

// Embed embeds a single query text with the same truncation policy.
func (b *Batcher) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := b.EmbedAll(ctx, []string{text})
	if err != nil {
		var be *BatchError
		if errors.As(err, &be) {
			return nil, be.Cause
		}
		return nil, err
	}
	return vecs[0], nil
}

// Dimensions returns the underlying provider's vector width.
func (b *Batcher) Dimensions() int {
	return b.provider.Dimensions()
}
