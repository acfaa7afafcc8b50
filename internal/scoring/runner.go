package scoring

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/shockwave22/StreamPulse/internal/domain"
)

// ScoreWriter is the subset of store operations the Runner needs.
type ScoreWriter interface {
	GetScore(ctx context.Context, itemID string, model domain.Model) (*domain.SentimentScore, error)
	PutScore(ctx context.Context, score domain.SentimentScore) error
}

// BatchResult counts what one scoring batch did. Fallbacks are items the
// lexicon rescued after a transformer failure; Deferred items stay unscored
// for the next run.
type BatchResult struct {
	Scored    map[domain.Model]int
	Skipped   int
	Failures  int
	Fallbacks int
	Deferred  int
}

func newBatchResult() *BatchResult {
	return &BatchResult{Scored: make(map[domain.Model]int)}
}

// Runner executes the scoring stage over a batch of content items.
type Runner struct {
	store       ScoreWriter
	lexicon     *LexiconScorer
	transformer *TransformerScorer
	workers     int
	batchSize   int
	clock       clockwork.Clock
}

// NewRunner creates a scoring runner. transformer may be nil when only the
// lexicon model is configured; workers bounds the lexicon worker pool and
// batchSize bounds in-flight transformer batches.
func NewRunner(store ScoreWriter, lexicon *LexiconScorer, transformer *TransformerScorer, workers, batchSize int, clock clockwork.Clock) *Runner {
	return &Runner{
		store:       store,
		lexicon:     lexicon,
		transformer: transformer,
		workers:     workers,
		batchSize:   batchSize,
		clock:       clock,
	}
}

// ScoreBatch scores items with the given model, skipping (item, model) pairs
// that already have a score. Per-item failures never abort the batch.
func (r *Runner) ScoreBatch(ctx context.Context, items []domain.ContentItem, model domain.Model) (*BatchResult, error) {
	return r.run(ctx, items, model, false)
}

// RescoreBatch scores items unconditionally, overwriting existing scores.
// Re-scoring is an explicit operation (e.g. after a model change), never an
// implicit side effect of a normal run.
func (r *Runner) RescoreBatch(ctx context.Context, items []domain.ContentItem, model domain.Model) (*BatchResult, error) {
	return r.run(ctx, items, model, true)
}

func (r *Runner) run(ctx context.Context, items []domain.ContentItem, model domain.Model, force bool) (*BatchResult, error) {
	result := newBatchResult()

	pending, err := r.filterPending(ctx, items, model, force, result)
	if err != nil {
		return result, err
	}
	if len(pending) == 0 {
		return result, nil
	}

	switch model {
	case domain.ModelLexicon:
		r.runLexicon(ctx, pending, result)
	case domain.ModelTransformer:
		r.runTransformer(ctx, pending, result)
	default:
		return result, errors.New("unknown scoring model: " + string(model))
	}

	return result, nil
}

// filterPending drops items already scored for the model. Store errors defer
// the item rather than failing the batch.
func (r *Runner) filterPending(ctx context.Context, items []domain.ContentItem, model domain.Model, force bool, result *BatchResult) ([]domain.ContentItem, error) {
	if force {
		return items, nil
	}

	var (
		mu      sync.Mutex
		pending []domain.ContentItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, item := range items {
		g.Go(func() error {
			_, err := r.store.GetScore(gctx, item.ID, model)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.Skipped++
			case errors.Is(err, domain.ErrScoreNotFound):
				pending = append(pending, item)
			default:
				slog.WarnContext(gctx, "Score lookup failed, deferring item", "item_id", item.ID, "error", err)
				result.Deferred++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pending, nil
}

// runLexicon scores items on a bounded worker pool. The lexicon never fails;
// only store timeouts can defer an item.
func (r *Runner) runLexicon(ctx context.Context, items []domain.ContentItem, result *BatchResult) {
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, item := range items {
		g.Go(func() error {
			polarity, _ := r.lexicon.Score(gctx, item.Text)
			stored := r.putScore(gctx, item.ID, domain.ModelLexicon, polarity)

			mu.Lock()
			defer mu.Unlock()
			if stored {
				result.Scored[domain.ModelLexicon]++
			} else {
				result.Deferred++
			}
			return nil
		})
	}
	_ = g.Wait()
}

// runTransformer scores items in sequential bounded batches to cap memory.
// A failed batch falls back to the lexicon per item; cancellation defers the
// remainder instead of dropping it.
func (r *Runner) runTransformer(ctx context.Context, items []domain.ContentItem, result *BatchResult) {
	for start := 0; start < len(items); start += r.batchSize {
		end := min(start+r.batchSize, len(items))
		batch := items[start:end]

		if ctx.Err() != nil {
			result.Deferred += len(items) - start
			return
		}

		texts := make([]string, len(batch))
		for i, item := range batch {
			texts[i] = item.Text
		}

		polarities, err := r.transformer.ScoreBatch(ctx, texts)
		if err != nil {
			result.Failures += len(batch)
			slog.WarnContext(ctx, "Transformer batch failed, falling back to lexicon",
				"batch_size", len(batch), "error", err)
			r.fallback(ctx, batch, result)
			continue
		}

		for i, item := range batch {
			if r.putScore(ctx, item.ID, domain.ModelTransformer, polarities[i]) {
				result.Scored[domain.ModelTransformer]++
			} else {
				result.Deferred++
			}
		}
	}
}

func (r *Runner) fallback(ctx context.Context, items []domain.ContentItem, result *BatchResult) {
	for _, item := range items {
		if ctx.Err() != nil {
			result.Deferred += 1
			continue
		}
		polarity, _ := r.lexicon.Score(ctx, item.Text)
		if r.putScore(ctx, item.ID, domain.ModelLexicon, polarity) {
			result.Scored[domain.ModelLexicon]++
			result.Fallbacks++
		} else {
			result.Deferred++
		}
	}
}

// putScore stores one score row; the stored Model is the model that actually
// produced the polarity. Returns false when the write failed and the item
// should be deferred.
func (r *Runner) putScore(ctx context.Context, itemID string, model domain.Model, polarity domain.Polarity) bool {
	score := domain.SentimentScore{
		ItemID:     itemID,
		Model:      model,
		Polarity:   polarity.Score,
		Confidence: polarity.Confidence,
		ComputedAt: r.clock.Now().UTC(),
	}
	if err := r.store.PutScore(ctx, score); err != nil {
		slog.WarnContext(ctx, "Score write failed, deferring item", "item_id", itemID, "model", model, "error", err)
		return false
	}
	return true
}
