package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/devinsight/devinsight/internal/embedding"
	"github.com/devinsight/devinsight/internal/recordstore"
	"github.com/devinsight/devinsight/pkg/models"
)

// Embedder is the embedding surface the pipeline consumes.
type Embedder interface {
	EmbedAll(ctx context.Context, texts []string) ([][]float32, error)
}

// Index is the vector index surface the pipeline writes to.
type Index interface {
	EnsureCollection(ctx context.Context) error
	DeleteCollection(ctx context.Context) error
	ContentHashes(ctx context.Context) (map[string]string, error)
	UpsertBatch(ctx context.Context, docs []*models.IndexedDocument) error
}

// Options control a single indexing run.
type Options struct {
	// Since restricts the run to records updated at or after this
	// time. Zero means a full run.
	Since time.Time
	// Rebuild drops and recreates the collection before indexing.
	Rebuild bool
	// Progress renders a terminal progress bar.
	Progress bool
}

// Pipeline moves warehouse records into the vector index. Runs are
// idempotent: unchanged records are skipped by content hash, and
// re-upserts of changed ones overwrite in place.
type Pipeline struct {
	store       recordstore.Store
	embedder    Embedder
	index       Index
	batchSize   int
	concurrency int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// New creates a Pipeline. limiter throttles index writes and may be
// nil.
func New(store recordstore.Store, embedder Embedder, index Index, batchSize, concurrency int, limiter *rate.Limiter, logger *zap.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = 50
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pipeline{
		store:       store,
		embedder:    embedder,
		index:       index,
		batchSize:   batchSize,
		concurrency: concurrency,
		limiter:     limiter,
		logger:      logger,
	}
}

// Run executes one indexing pass and returns the terminal summary. A
// record failing to embed or upsert marks it failed without aborting
// the run; only setup errors abort.
func (p *Pipeline) Run(ctx context.Context, opts Options) (models.IndexStats, error) {
	start := time.Now()
	stats := models.IndexStats{}

	if opts.Rebuild {
		if err := p.index.DeleteCollection(ctx); err != nil {
			return stats, fmt.Errorf("failed to drop collection: %w", err)
		}
		p.logger.Info("collection dropped for rebuild")
	}
	if err := p.index.EnsureCollection(ctx); err != nil {
		return stats, fmt.Errorf("failed to ensure collection: %w", err)
	}

	records, err := p.store.FetchRecords(ctx, opts.Since)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch records: %w", err)
	}
	stats.Total = len(records)
	p.logger.Info("records fetched",
		zap.Int("count", len(records)),
		zap.Time("since", opts.Since))

	existing, err := p.index.ContentHashes(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read index state: %w", err)
	}

	pending := make([]models.Record, 0, len(records))
	for _, rec := range records {
		if hash, ok := existing[rec.DocID()]; ok && hash == rec.ContentHash() {
			stats.Skipped++
			continue
		}
		pending = append(pending, rec)
	}
	p.logger.Info("change detection complete",
		zap.Int("pending", len(pending)),
		zap.Int("skipped", stats.Skipped))

	var bar *progressbar.ProgressBar
	if opts.Progress && len(pending) > 0 {
		bar = progressbar.Default(int64(len(pending)), "indexing")
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := 0; i < len(pending); i += p.batchSize {
		end := i + p.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[i:end]

		g.Go(func() error {
			indexed, failed := p.processBatch(gctx, batch)
			mu.Lock()
			stats.Indexed += indexed
			stats.Failed += len(failed)
			stats.FailedIDs = append(stats.FailedIDs, failed...)
			mu.Unlock()
			if bar != nil {
				_ = bar.Add(len(batch))
			}
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	sort.Slice(stats.FailedIDs, func(a, b int) bool { return stats.FailedIDs[a] < stats.FailedIDs[b] })
	stats.DurationMs = int(time.Since(start).Milliseconds())
	p.logger.Info("indexing run complete",
		zap.Int("total", stats.Total),
		zap.Int("indexed", stats.Indexed),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int("duration_ms", stats.DurationMs))
	return stats, nil
}

// processBatch embeds and upserts one batch. Returns the number of
// indexed records and the record IDs that failed.
func (p *Pipeline) processBatch(ctx context.Context, batch []models.Record) (int, []int64) {
	texts := make([]string, len(batch))
	for i, rec := range batch {
		texts[i] = rec.EmbeddingText()
	}

	vectors, err := p.embedder.EmbedAll(ctx, texts)
	var batchErr *embedding.BatchError
	if err != nil && !errors.As(err, &batchErr) {
		p.logger.Error("batch embedding failed", zap.Error(err), zap.Int("size", len(batch)))
		return 0, recordIDs(batch)
	}

	var failed []int64
	docs := make([]*models.IndexedDocument, 0, len(batch))
	embedded := make([]models.Record, 0, len(batch))
	for i, rec := range batch {
		if vectors[i] == nil {
			failed = append(failed, rec.ID)
			continue
		}
		doc := rec.Document()
		doc.Vector = vectors[i]
		docs = append(docs, &doc)
		embedded = append(embedded, rec)
	}

	indexed, upsertFailed := p.upsert(ctx, docs, embedded)
	return indexed, append(failed, upsertFailed...)
}

// upsert writes docs, splitting the batch in half on failure until
// single offending records are isolated.
func (p *Pipeline) upsert(ctx context.Context, docs []*models.IndexedDocument, recs []models.Record) (int, []int64) {
	if len(docs) == 0 {
		return 0, nil
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return 0, recordIDs(recs)
		}
	}

	if err := p.index.UpsertBatch(ctx, docs); err != nil {
		if len(docs) == 1 {
			p.logger.Warn("record failed to index",
				zap.Int64("record_id", recs[0].ID),
				zap.Error(err))
			return 0, []int64{recs[0].ID}
		}
		mid := len(docs) / 2
		leftOK, leftFailed := p.upsert(ctx, docs[:mid], recs[:mid])
		rightOK, rightFailed := p.upsert(ctx, docs[mid:], recs[mid:])
		return leftOK + rightOK, append(leftFailed, rightFailed...)
	}
	return len(docs), nil
}

func recordIDs(recs []models.Record) []int64 {
	ids := make([]int64, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids
}
