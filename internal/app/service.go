// Package app is the application layer — the only component that references
// multiple pipeline stages. Each stage is an idempotent, independently
// invokable operation returning a run summary; the external scheduler is a
// pure caller with no logic of its own.
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/shockwave22/StreamPulse/internal/aggregate"
	"github.com/shockwave22/StreamPulse/internal/compare"
	"github.com/shockwave22/StreamPulse/internal/config"
	"github.com/shockwave22/StreamPulse/internal/domain"
	apperrors "github.com/shockwave22/StreamPulse/internal/errors"
	"github.com/shockwave22/StreamPulse/internal/metrics"
	"github.com/shockwave22/StreamPulse/internal/normalize"
	"github.com/shockwave22/StreamPulse/internal/platform/correlation"
	"github.com/shockwave22/StreamPulse/internal/scoring"
)

// IngestQueue feeds raw records and survey responses into the pipeline.
// Collectors push, the ingest stage pops.
type IngestQueue interface {
	PopRecords(ctx context.Context, limit int) ([]domain.RawRecord, int, error)
	PopResponses(ctx context.Context, limit int) ([]domain.SurveyResponse, int, error)
}

// Service orchestrates the pipeline stages. queue may be nil when records are
// handed in directly via IngestRecords.
type Service struct {
	cfg        *config.Config
	store      domain.Store
	queue      IngestQueue
	registry   *normalize.Registry
	normalizer *normalize.Normalizer
	runner     *scoring.Runner
	aggregator *aggregate.Aggregator
	comparator *compare.Comparator
	metrics    *metrics.PipelineMetrics
	clock      clockwork.Clock

	// bucketGroup collapses concurrent recomputes of the same bucket so two
	// interleaved recomputes can never race a lost update.
	bucketGroup singleflight.Group
}

// NewService wires the pipeline stages. transformer may be nil when only the
// lexicon model is configured.
func NewService(cfg *config.Config, store domain.Store, queue IngestQueue, registry *normalize.Registry,
	transformer *scoring.TransformerScorer, m *metrics.PipelineMetrics, clock clockwork.Clock) *Service {
	store = withTimeout(store, cfg.StoreTimeout)
	lexicon := scoring.NewLexiconScorer()

	return &Service{
		cfg:        cfg,
		store:      store,
		queue:      queue,
		registry:   registry,
		normalizer: normalize.NewNormalizer(registry),
		runner:     scoring.NewRunner(store, lexicon, transformer, cfg.ScoreWorkers, cfg.InferenceBatchSize, clock),
		aggregator: aggregate.New(store, registry, cfg.Model(), aggregate.Config{
			PositiveThreshold:  cfg.PositiveThreshold,
			NegativeThreshold:  cfg.NegativeThreshold,
			ConfidenceFloor:    cfg.ConfidenceFloor,
			CountLowConfidence: cfg.CountLowConfidence,
			RetentionDays:      cfg.RetentionDays,
		}, clock),
		comparator: compare.New(store, registry, cfg.SourceList(), cfg.AlignmentWindow),
		metrics:    m,
		clock:      clock,
	}
}

// newRun tags the context with a fresh run ID so every log line of the run
// carries it.
func (s *Service) newRun(ctx context.Context) (context.Context, *domain.RunSummary) {
	runID := uuid.NewString()
	return correlation.WithRunID(ctx, runID), domain.NewRunSummary(runID)
}

func (s *Service) observeStage(stage string, start time.Time) {
	if s.metrics != nil {
		s.metrics.StageDuration.WithLabelValues(stage).Observe(s.clock.Since(start).Seconds())
	}
}

// Ingest drains the queue up to the batch limit, normalizes and persists what
// it finds. Rejected records are counted and dropped, never fatal.
func (s *Service) Ingest(ctx context.Context) (*domain.RunSummary, error) {
	ctx, summary := s.newRun(ctx)
	defer s.observeStage("ingest", s.clock.Now())

	if s.queue == nil {
		return summary, apperrors.InternalError("no ingest queue configured", nil)
	}

	records, malformed, err := s.queue.PopRecords(ctx, s.cfg.IngestBatchLimit)
	if err != nil {
		return summary, apperrors.ExternalError("failed to drain ingest queue", err)
	}
	if malformed > 0 {
		slog.WarnContext(ctx, "Dead-lettered malformed raw records", "count", malformed)
	}

	s.ingestRecords(ctx, records, summary)

	responses, malformed, err := s.queue.PopResponses(ctx, s.cfg.IngestBatchLimit)
	if err != nil {
		return summary, apperrors.ExternalError("failed to drain survey queue", err)
	}
	if malformed > 0 {
		slog.WarnContext(ctx, "Dead-lettered malformed survey responses", "count", malformed)
	}
	if len(responses) > 0 {
		if err := s.store.PutResponses(ctx, responses); err != nil {
			return summary, apperrors.ExternalError("failed to store survey responses", err)
		}
	}

	slog.InfoContext(ctx, "Ingest complete",
		"ingested", summary.Ingested, "rejected", summary.TotalRejected(), "responses", len(responses))
	return summary, nil
}

// IngestRecords normalizes and persists records handed in directly, bypassing
// the queue. Used by tests and by callers that already hold a batch.
func (s *Service) IngestRecords(ctx context.Context, records []domain.RawRecord) (*domain.RunSummary, error) {
	ctx, summary := s.newRun(ctx)
	s.ingestRecords(ctx, records, summary)
	return summary, nil
}

func (s *Service) ingestRecords(ctx context.Context, records []domain.RawRecord, summary *domain.RunSummary) {
	for _, raw := range records {
		item, reason := s.normalizer.Normalize(raw)
		if reason != domain.RejectNone {
			summary.AddRejected(reason)
			if s.metrics != nil {
				s.metrics.ItemsRejected.WithLabelValues(string(reason)).Inc()
			}
			continue
		}

		if err := s.store.PutItem(ctx, *item); err != nil {
			slog.WarnContext(ctx, "Failed to store content item, skipping", "item_id", item.ID, "error", err)
			summary.Deferred++
			continue
		}

		summary.Ingested++
		if s.metrics != nil {
			s.metrics.ItemsIngested.Inc()
		}
	}
}

// Score picks up unscored items for the configured model and scores them.
// Already-scored (item, model) pairs are skipped by the runner.
func (s *Service) Score(ctx context.Context) (*domain.RunSummary, error) {
	ctx, summary := s.newRun(ctx)
	defer s.observeStage("score", s.clock.Now())

	items, err := s.store.ListUnscored(ctx, s.cfg.Model(), s.cfg.ScoreBatchLimit)
	if err != nil {
		return summary, apperrors.ExternalError("failed to list unscored items", err)
	}

	result, err := s.runner.ScoreBatch(ctx, items, s.cfg.Model())
	s.recordScoring(summary, result)
	if err != nil {
		return summary, err
	}

	slog.InfoContext(ctx, "Scoring complete",
		"scored", summary.ScoredByModel, "failures", summary.ScoringFailures,
		"fallbacks", summary.Fallbacks, "deferred", summary.Deferred)
	return summary, nil
}

// Rescore overwrites existing scores for every already-scored item of the
// configured model in [from, to). Explicit operation for model or threshold
// changes; a normal run never re-scores.
func (s *Service) Rescore(ctx context.Context, from, to time.Time) (*domain.RunSummary, error) {
	ctx, summary := s.newRun(ctx)
	defer s.observeStage("rescore", s.clock.Now())

	seen := make(map[string]struct{})
	var items []domain.ContentItem
	for _, title := range s.registry.Titles() {
		for _, source := range s.cfg.SourceList() {
			scored, err := s.store.ListScores(ctx, title.Slug, source, from, to)
			if err != nil {
				return summary, apperrors.ExternalError("failed to list scores for rescore", err).
					WithField("title_slug", title.Slug).WithField("source", source)
			}
			for _, row := range scored {
				if row.Score.Model != s.cfg.Model() {
					continue
				}
				if _, ok := seen[row.Item.ID]; ok {
					continue
				}
				seen[row.Item.ID] = struct{}{}
				items = append(items, row.Item)
			}
		}
	}

	result, err := s.runner.RescoreBatch(ctx, items, s.cfg.Model())
	s.recordScoring(summary, result)
	if err != nil {
		return summary, err
	}

	slog.InfoContext(ctx, "Rescore complete", "items", len(items), "scored", summary.ScoredByModel)
	return summary, nil
}

func (s *Service) recordScoring(summary *domain.RunSummary, result *scoring.BatchResult) {
	if result == nil {
		return
	}
	for model, n := range result.Scored {
		summary.ScoredByModel[model] += n
		if s.metrics != nil {
			s.metrics.ItemsScored.WithLabelValues(string(model)).Add(float64(n))
		}
	}
	summary.ScoringFailures += result.Failures
	summary.Fallbacks += result.Fallbacks
	summary.Deferred += result.Deferred
	if s.metrics != nil {
		if result.Failures > 0 {
			s.metrics.ScoringFailures.WithLabelValues(string(s.cfg.Model())).Add(float64(result.Failures))
		}
		s.metrics.Fallbacks.Add(float64(result.Fallbacks))
		s.metrics.ItemsDeferred.Add(float64(result.Deferred))
	}
}

// AggregateRange recomputes every bucket for every tracked title over
// [from, to): one bucket per title, source (social plus survey) and day.
// Bucket failures are counted, never fatal; distinct buckets recompute in
// parallel while identical buckets are collapsed to one recompute.
func (s *Service) AggregateRange(ctx context.Context, from, to time.Time) (*domain.RunSummary, error) {
	ctx, summary := s.newRun(ctx)
	defer s.observeStage("aggregate", s.clock.Now())

	sources := append(s.cfg.SourceList(), domain.SourceSurvey)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ScoreWorkers)

	for _, title := range s.registry.Titles() {
		for _, source := range sources {
			for day := domain.Day(from); day.Before(domain.Day(to)); day = day.Add(24 * time.Hour) {
				g.Go(func() error {
					_, err := s.recomputeBucket(gctx, title.Slug, source, day)

					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						summary.BucketsFailed++
						if s.metrics != nil {
							s.metrics.BucketsFailed.Inc()
						}
						slog.WarnContext(gctx, "Bucket recompute failed",
							"title_slug", title.Slug, "source", source, "day", day.Format("2006-01-02"), "error", err)
						return nil
					}
					summary.AggregatesRecomputed++
					if s.metrics != nil {
						s.metrics.AggregatesRecomputed.Inc()
					}
					return nil
				})
			}
		}
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	slog.InfoContext(ctx, "Aggregation complete",
		"recomputed", summary.AggregatesRecomputed, "failed", summary.BucketsFailed)
	return summary, nil
}

// RecomputeBucket recomputes a single bucket; concurrent calls for the same
// key share one recompute.
func (s *Service) RecomputeBucket(ctx context.Context, titleSlug, source string, day time.Time) (domain.DailyAggregate, error) {
	return s.recomputeBucket(ctx, titleSlug, source, day)
}

func (s *Service) recomputeBucket(ctx context.Context, titleSlug, source string, day time.Time) (domain.DailyAggregate, error) {
	key := domain.BucketKey{TitleSlug: titleSlug, Source: source, Day: domain.Day(day)}
	result, err, _ := s.bucketGroup.Do(key.String(), func() (any, error) {
		return s.aggregator.Aggregate(ctx, titleSlug, source, day)
	})
	if err != nil {
		return domain.DailyAggregate{}, err
	}
	return result.(domain.DailyAggregate), nil
}

// Compare builds the alignment report for one title over [from, to).
func (s *Service) Compare(ctx context.Context, titleSlug string, from, to time.Time) (domain.AlignmentReport, error) {
	defer s.observeStage("compare", s.clock.Now())
	return s.comparator.Compare(ctx, titleSlug, from, to)
}

// Run executes the whole pipeline: ingest, score, aggregate. Stage failures
// merge into one summary; the first fatal error stops the run.
func (s *Service) Run(ctx context.Context, from, to time.Time) (*domain.RunSummary, error) {
	ctx, summary := s.newRun(ctx)

	if s.queue != nil {
		ingested, err := s.Ingest(ctx)
		summary.Merge(ingested)
		if err != nil {
			return summary, err
		}
	}

	scored, err := s.Score(ctx)
	summary.Merge(scored)
	if err != nil {
		return summary, err
	}

	aggregated, err := s.AggregateRange(ctx, from, to)
	summary.Merge(aggregated)
	if err != nil {
		return summary, err
	}

	slog.InfoContext(ctx, "Pipeline run complete", "run_id", summary.RunID)
	return summary, nil
}

// Titles exposes the registry for the read-only API.
func (s *Service) Titles() []domain.Title {
	return s.registry.Titles()
}

// Aggregates lists computed aggregates for the dashboard.
func (s *Service) Aggregates(ctx context.Context, titleSlug, source string, from, to time.Time) ([]domain.DailyAggregate, error) {
	if _, ok := s.registry.Lookup(titleSlug); !ok {
		return nil, apperrors.NotFoundError("unknown title", domain.ErrUnknownTitle).
			WithField("title_slug", titleSlug)
	}
	return s.store.ListAggregates(ctx, titleSlug, source, from, to)
}
