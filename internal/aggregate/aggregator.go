// Package aggregate folds scored content and survey responses into daily
// per-bucket aggregates. A bucket is always recomputed wholesale from the
// underlying rows, never patched incrementally, so an aggregate is consistent
// with the raw data even after backfills or re-scoring.
package aggregate

import (
	"context"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/shockwave22/StreamPulse/internal/domain"
	apperrors "github.com/shockwave22/StreamPulse/internal/errors"
	"github.com/shockwave22/StreamPulse/internal/normalize"
)

// Config holds the bucketing policy for one aggregation run. Thresholds and
// the confidence floor are fixed per run so every bucket of a run is computed
// under the same policy.
type Config struct {
	// PositiveThreshold and NegativeThreshold split polarity into the three
	// sentiment buckets: >= positive, <= negative, else neutral.
	PositiveThreshold float64
	NegativeThreshold float64

	// ConfidenceFloor excludes low-confidence scores from mean/stddev.
	ConfidenceFloor float64

	// CountLowConfidence keeps below-floor scores in count and in the
	// sentiment bucket counts even though they are excluded from mean and
	// stddev. When false they are excluded from everything.
	CountLowConfidence bool

	// RetentionDays bounds how far back a bucket day may lie. Zero disables
	// the check.
	RetentionDays int
}

// Store is the subset of store operations the Aggregator needs.
type Store interface {
	ListScores(ctx context.Context, titleSlug, source string, from, to time.Time) ([]domain.ScoredItem, error)
	ListResponses(ctx context.Context, titleSlug string, from, to time.Time) ([]domain.SurveyResponse, error)
	PutAggregate(ctx context.Context, aggregate domain.DailyAggregate) error
}

// Aggregator recomputes daily aggregates. It is safe for concurrent use
// across distinct buckets; serializing concurrent recomputes of the same
// bucket is the caller's responsibility.
type Aggregator struct {
	store    Store
	registry *normalize.Registry
	model    domain.Model
	cfg      Config
	clock    clockwork.Clock
}

func New(store Store, registry *normalize.Registry, model domain.Model, cfg Config, clock clockwork.Clock) *Aggregator {
	return &Aggregator{
		store:    store,
		registry: registry,
		model:    model,
		cfg:      cfg,
		clock:    clock,
	}
}

// Aggregate fully recomputes the (title, source, day) bucket from the
// underlying rows, stores the replacement and returns it. A bucket with zero
// matching rows yields a valid count=0 aggregate, not an error.
func (a *Aggregator) Aggregate(ctx context.Context, titleSlug, source string, day time.Time) (domain.DailyAggregate, error) {
	key := domain.BucketKey{TitleSlug: titleSlug, Source: source, Day: domain.Day(day)}

	if err := a.checkBucket(key); err != nil {
		return domain.DailyAggregate{}, err
	}

	from := key.Day
	to := key.Day.Add(24 * time.Hour)

	var (
		agg domain.DailyAggregate
		err error
	)
	if source == domain.SourceSurvey {
		agg, err = a.foldSurvey(ctx, key, from, to)
	} else {
		agg, err = a.foldScores(ctx, key, from, to)
	}
	if err != nil {
		return domain.DailyAggregate{}, err
	}

	if err := a.store.PutAggregate(ctx, agg); err != nil {
		return domain.DailyAggregate{}, apperrors.ExternalError("failed to store aggregate", err).
			WithField("bucket", key.String())
	}
	return agg, nil
}

// checkBucket validates the bucket key against the registry and retention
// window. Violations are integrity errors: the bucket is skipped and the run
// reports a failure rather than writing a bogus aggregate.
func (a *Aggregator) checkBucket(key domain.BucketKey) error {
	if _, ok := a.registry.Lookup(key.TitleSlug); !ok {
		return apperrors.IntegrityError("bucket references unknown title", domain.ErrUnknownTitle).
			WithField("title_slug", key.TitleSlug)
	}

	if a.cfg.RetentionDays > 0 {
		oldest := domain.Day(a.clock.Now()).AddDate(0, 0, -a.cfg.RetentionDays)
		if key.Day.Before(oldest) {
			return apperrors.IntegrityError("bucket day outside retention window", nil).
				WithField("bucket", key.String()).
				WithField("retention_days", a.cfg.RetentionDays)
		}
	}
	return nil
}

func (a *Aggregator) foldScores(ctx context.Context, key domain.BucketKey, from, to time.Time) (domain.DailyAggregate, error) {
	scored, err := a.store.ListScores(ctx, key.TitleSlug, key.Source, from, to)
	if err != nil {
		return domain.DailyAggregate{}, apperrors.ExternalError("failed to list scores for bucket", err).
			WithField("bucket", key.String())
	}

	agg := domain.EmptyAggregate(key)
	var stats welford

	for _, row := range selectScores(scored, a.model) {
		lowConfidence := row.Score.Confidence < a.cfg.ConfidenceFloor
		if lowConfidence && !a.cfg.CountLowConfidence {
			continue
		}

		agg.Count++
		a.bucketPolarity(&agg, row.Score.Polarity)
		if !lowConfidence {
			stats.add(row.Score.Polarity)
		}
	}

	agg.MeanPolarity = stats.mean()
	agg.StddevPolarity = stats.stddev()
	return agg, nil
}

// selectScores picks exactly one score per item: the preferred model's score
// when present, otherwise whatever score the item has. Items rescued by the
// lexicon fallback during a transformer outage still contribute to the bucket,
// and no item is ever counted twice. Row order is preserved.
func selectScores(scored []domain.ScoredItem, preferred domain.Model) []domain.ScoredItem {
	chosen := make(map[string]int, len(scored))
	out := scored[:0:0]

	for _, row := range scored {
		i, ok := chosen[row.Item.ID]
		if !ok {
			chosen[row.Item.ID] = len(out)
			out = append(out, row)
			continue
		}
		if out[i].Score.Model != preferred && row.Score.Model == preferred {
			out[i] = row
		}
	}
	return out
}

// foldSurvey treats each response's rescaled satisfaction as a polarity so
// survey buckets and social buckets share one shape, then fills the
// survey-only averages.
func (a *Aggregator) foldSurvey(ctx context.Context, key domain.BucketKey, from, to time.Time) (domain.DailyAggregate, error) {
	responses, err := a.store.ListResponses(ctx, key.TitleSlug, from, to)
	if err != nil {
		return domain.DailyAggregate{}, apperrors.ExternalError("failed to list survey responses for bucket", err).
			WithField("bucket", key.String())
	}

	agg := domain.EmptyAggregate(key)
	var (
		stats           welford
		satisfactionSum int
		recommendCount  int
		completionSum   float64
	)

	for _, resp := range responses {
		polarity := domain.RescaleSatisfaction(resp.Satisfaction)

		agg.Count++
		a.bucketPolarity(&agg, polarity)
		stats.add(polarity)

		satisfactionSum += resp.Satisfaction
		completionSum += resp.CompletionRate
		if resp.WouldRecommend {
			recommendCount++
		}
	}

	agg.MeanPolarity = stats.mean()
	agg.StddevPolarity = stats.stddev()
	if agg.Count > 0 {
		agg.AvgSatisfaction = float64(satisfactionSum) / float64(agg.Count)
		agg.RecommendationRate = float64(recommendCount) / float64(agg.Count)
		agg.AvgCompletionRate = completionSum / float64(agg.Count)
	}
	return agg, nil
}

func (a *Aggregator) bucketPolarity(agg *domain.DailyAggregate, polarity float64) {
	switch {
	case polarity >= a.cfg.PositiveThreshold:
		agg.PositiveCount++
	case polarity <= a.cfg.NegativeThreshold:
		agg.NegativeCount++
	default:
		agg.NeutralCount++
	}
}

// welford accumulates mean and population standard deviation in one pass
// without catastrophic cancellation.
type welford struct {
	n  int
	mu float64
	m2 float64
}

func (w *welford) add(x float64) {
	w.n++
	delta := x - w.mu
	w.mu += delta / float64(w.n)
	w.m2 += delta * (x - w.mu)
}

func (w *welford) mean() float64 {
	if w.n == 0 {
		return 0
	}
	return w.mu
}

func (w *welford) stddev() float64 {
	if w.n == 0 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.n))
}
