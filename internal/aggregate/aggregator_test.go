package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shockwave22/StreamPulse/internal/domain"
	apperrors "github.com/shockwave22/StreamPulse/internal/errors"
	"github.com/shockwave22/StreamPulse/internal/normalize"
)

type fakeAggregateStore struct {
	mu         sync.Mutex
	scores     []domain.ScoredItem
	responses  []domain.SurveyResponse
	aggregates map[string]domain.DailyAggregate
	listErr    error
	putErr     error
}

func newFakeAggregateStore() *fakeAggregateStore {
	return &fakeAggregateStore{aggregates: make(map[string]domain.DailyAggregate)}
}

func (f *fakeAggregateStore) ListScores(_ context.Context, titleSlug, source string, from, to time.Time) ([]domain.ScoredItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.ScoredItem
	for _, row := range f.scores {
		if row.Item.TitleSlug != titleSlug || row.Item.Source != source {
			continue
		}
		if row.Item.CreatedAt.Before(from) || !row.Item.CreatedAt.Before(to) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeAggregateStore) ListResponses(_ context.Context, titleSlug string, from, to time.Time) ([]domain.SurveyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SurveyResponse
	for _, resp := range f.responses {
		if resp.TitleSlug != titleSlug {
			continue
		}
		if resp.SubmittedAt.Before(from) || !resp.SubmittedAt.Before(to) {
			continue
		}
		out = append(out, resp)
	}
	return out, nil
}

func (f *fakeAggregateStore) PutAggregate(_ context.Context, aggregate domain.DailyAggregate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.aggregates[aggregate.Key().String()] = aggregate
	return nil
}

func testRegistry(t *testing.T) *normalize.Registry {
	t.Helper()
	registry, err := normalize.NewRegistry([]domain.Title{
		{Slug: "wednesday", Name: "Wednesday", Keywords: []string{"wednesday"}},
		{Slug: "stranger-things", Name: "Stranger Things", Keywords: []string{"stranger things"}},
	})
	require.NoError(t, err)
	return registry
}

func defaultConfig() Config {
	return Config{
		PositiveThreshold:  0.05,
		NegativeThreshold:  -0.05,
		ConfidenceFloor:    0,
		CountLowConfidence: true,
		RetentionDays:      0,
	}
}

func scoredRow(titleSlug, source string, createdAt time.Time, polarity, confidence float64) domain.ScoredItem {
	return domain.ScoredItem{
		Item: domain.ContentItem{
			ID:        titleSlug + "/" + createdAt.Format(time.RFC3339Nano),
			Source:    source,
			TitleSlug: titleSlug,
			Text:      "text",
			CreatedAt: createdAt,
		},
		Score: domain.SentimentScore{
			Model:      domain.ModelLexicon,
			Polarity:   polarity,
			Confidence: confidence,
		},
	}
}

func TestAggregate_ThreeItemBucket(t *testing.T) {
	store := newFakeAggregateStore()
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	for i, polarity := range []float64{0.6, -0.2, 0.0} {
		store.scores = append(store.scores,
			scoredRow("wednesday", "twitter", day.Add(time.Duration(i)*time.Hour), polarity, 1.0))
	}

	agg := New(store, testRegistry(t), domain.ModelLexicon, defaultConfig(), clockwork.NewFakeClock())
	result, err := agg.Aggregate(context.Background(), "wednesday", "twitter", day)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.InDelta(t, 0.1333, result.MeanPolarity, 0.0001)
	assert.Equal(t, 1, result.PositiveCount)
	assert.Equal(t, 1, result.NeutralCount)
	assert.Equal(t, 1, result.NegativeCount)
	assert.Equal(t, result.Count, result.PositiveCount+result.NeutralCount+result.NegativeCount)

	stored, ok := store.aggregates[result.Key().String()]
	require.True(t, ok, "aggregate must be persisted")
	assert.Equal(t, result, stored)
}

func TestAggregate_Idempotent(t *testing.T) {
	store := newFakeAggregateStore()
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	store.scores = append(store.scores,
		scoredRow("wednesday", "twitter", day.Add(time.Hour), 0.4, 1.0),
		scoredRow("wednesday", "twitter", day.Add(2*time.Hour), -0.6, 1.0))

	agg := New(store, testRegistry(t), domain.ModelLexicon, defaultConfig(), clockwork.NewFakeClock())
	first, err := agg.Aggregate(context.Background(), "wednesday", "twitter", day)
	require.NoError(t, err)
	second, err := agg.Aggregate(context.Background(), "wednesday", "twitter", day)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregate_EmptyBucketIsWellFormed(t *testing.T) {
	store := newFakeAggregateStore()
	agg := New(store, testRegistry(t), domain.ModelLexicon, defaultConfig(), clockwork.NewFakeClock())

	result, err := agg.Aggregate(context.Background(), "wednesday", "twitter",
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.Zero(t, result.MeanPolarity)
	assert.Zero(t, result.StddevPolarity)
	assert.Len(t, store.aggregates, 1, "empty bucket is still written")
}

func TestAggregate_TruncatesDayToUTC(t *testing.T) {
	store := newFakeAggregateStore()
	zone := time.FixedZone("CET", 3600)
	day := time.Date(2024, 1, 5, 0, 30, 0, 0, zone) // 2024-01-04 23:30 UTC
	store.scores = append(store.scores,
		scoredRow("wednesday", "twitter", time.Date(2024, 1, 4, 23, 45, 0, 0, time.UTC), 0.5, 1.0))

	agg := New(store, testRegistry(t), domain.ModelLexicon, defaultConfig(), clockwork.NewFakeClock())
	result, err := agg.Aggregate(context.Background(), "wednesday", "twitter", day)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), result.Day)
	assert.Equal(t, 1, result.Count)
}

func TestAggregate_LowConfidenceCountedButExcludedFromMean(t *testing.T) {
	store := newFakeAggregateStore()
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	store.scores = append(store.scores,
		scoredRow("wednesday", "twitter", day.Add(time.Hour), 0.5, 1.0),
		scoredRow("wednesday", "twitter", day.Add(2*time.Hour), -1.0, 0.2))

	cfg := defaultConfig()
	cfg.ConfidenceFloor = 0.5
	agg := New(store, testRegistry(t), domain.ModelLexicon, cfg, clockwork.NewFakeClock())

	result, err := agg.Aggregate(context.Background(), "wednesday", "twitter", day)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 1, result.PositiveCount)
	assert.Equal(t, 1, result.NegativeCount)
	assert.InDelta(t, 0.5, result.MeanPolarity, 1e-9, "low-confidence score must not move the mean")
	assert.Zero(t, result.StddevPolarity)
}

func TestAggregate_LowConfidenceExcludedEntirely(t *testing.T) {
	store := newFakeAggregateStore()
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	store.scores = append(store.scores,
		scoredRow("wednesday", "twitter", day.Add(time.Hour), 0.5, 1.0),
		scoredRow("wednesday", "twitter", day.Add(2*time.Hour), -1.0, 0.2))

	cfg := defaultConfig()
	cfg.ConfidenceFloor = 0.5
	cfg.CountLowConfidence = false
	agg := New(store, testRegistry(t), domain.ModelLexicon, cfg, clockwork.NewFakeClock())

	result, err := agg.Aggregate(context.Background(), "wednesday", "twitter", day)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.Zero(t, result.NegativeCount)
	assert.InDelta(t, 0.5, result.MeanPolarity, 1e-9)
}

func TestAggregate_FallbackScoresIncluded(t *testing.T) {
	// During a transformer outage items are scored by the lexicon fallback.
	// Those scores must still feed transformer-mode aggregates.
	store := newFakeAggregateStore()
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	for i, polarity := range []float64{0.6, -0.2, 0.0} {
		store.scores = append(store.scores,
			scoredRow("wednesday", "twitter", day.Add(time.Duration(i)*time.Hour), polarity, 1.0))
	}

	agg := New(store, testRegistry(t), domain.ModelTransformer, defaultConfig(), clockwork.NewFakeClock())
	result, err := agg.Aggregate(context.Background(), "wednesday", "twitter", day)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.InDelta(t, 0.1333, result.MeanPolarity, 0.0001)
}

func TestAggregate_PrefersConfiguredModelScorePerItem(t *testing.T) {
	store := newFakeAggregateStore()
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	// One item scored by both models: the transformer score wins in
	// transformer mode, and the item is counted exactly once.
	both := scoredRow("wednesday", "twitter", day.Add(time.Hour), 0.9, 1.0)
	both.Score.Model = domain.ModelTransformer
	lexiconDup := both
	lexiconDup.Score.Model = domain.ModelLexicon
	lexiconDup.Score.Polarity = -0.4

	// A second item rescued by the fallback only.
	fallbackOnly := scoredRow("wednesday", "twitter", day.Add(2*time.Hour), 0.1, 1.0)

	store.scores = append(store.scores, lexiconDup, both, fallbackOnly)

	agg := New(store, testRegistry(t), domain.ModelTransformer, defaultConfig(), clockwork.NewFakeClock())
	result, err := agg.Aggregate(context.Background(), "wednesday", "twitter", day)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.InDelta(t, 0.5, result.MeanPolarity, 1e-9, "mean uses transformer polarity, not the lexicon duplicate")
	assert.Equal(t, 2, result.PositiveCount)
}

func TestAggregate_UnknownTitleIsIntegrityError(t *testing.T) {
	store := newFakeAggregateStore()
	agg := New(store, testRegistry(t), domain.ModelLexicon, defaultConfig(), clockwork.NewFakeClock())

	_, err := agg.Aggregate(context.Background(), "no-such-title", "twitter",
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeIntegrity))
	assert.True(t, errors.Is(err, domain.ErrUnknownTitle))
	assert.Empty(t, store.aggregates, "failed bucket must not be written")
}

func TestAggregate_OutsideRetentionIsIntegrityError(t *testing.T) {
	store := newFakeAggregateStore()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	cfg := defaultConfig()
	cfg.RetentionDays = 90
	agg := New(store, testRegistry(t), domain.ModelLexicon, cfg, clock)

	_, err := agg.Aggregate(context.Background(), "wednesday", "twitter",
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeIntegrity))

	// The oldest retained day is still aggregatable.
	_, err = agg.Aggregate(context.Background(), "wednesday", "twitter",
		time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
}

func TestAggregate_SurveyBucket(t *testing.T) {
	store := newFakeAggregateStore()
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	store.responses = []domain.SurveyResponse{
		{RespondentID: "r1", TitleSlug: "wednesday", Satisfaction: 5, WouldRecommend: true, CompletionRate: 1.0, SubmittedAt: day.Add(time.Hour)},
		{RespondentID: "r2", TitleSlug: "wednesday", Satisfaction: 3, WouldRecommend: false, CompletionRate: 0.5, SubmittedAt: day.Add(2 * time.Hour)},
		{RespondentID: "r3", TitleSlug: "wednesday", Satisfaction: 1, WouldRecommend: false, CompletionRate: 0.2, SubmittedAt: day.Add(3 * time.Hour)},
	}

	agg := New(store, testRegistry(t), domain.ModelLexicon, defaultConfig(), clockwork.NewFakeClock())
	result, err := agg.Aggregate(context.Background(), "wednesday", domain.SourceSurvey, day)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	// Satisfaction 5, 3, 1 rescale to +1, 0, -1.
	assert.InDelta(t, 0.0, result.MeanPolarity, 1e-9)
	assert.Equal(t, 1, result.PositiveCount)
	assert.Equal(t, 1, result.NeutralCount)
	assert.Equal(t, 1, result.NegativeCount)
	assert.InDelta(t, 3.0, result.AvgSatisfaction, 1e-9)
	assert.InDelta(t, 1.0/3.0, result.RecommendationRate, 1e-9)
	assert.InDelta(t, (1.0+0.5+0.2)/3, result.AvgCompletionRate, 1e-9)
}

func TestAggregate_SurveyFieldsZeroForSocial(t *testing.T) {
	store := newFakeAggregateStore()
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	store.scores = append(store.scores,
		scoredRow("wednesday", "twitter", day.Add(time.Hour), 0.5, 1.0))

	agg := New(store, testRegistry(t), domain.ModelLexicon, defaultConfig(), clockwork.NewFakeClock())
	result, err := agg.Aggregate(context.Background(), "wednesday", "twitter", day)

	require.NoError(t, err)
	assert.Zero(t, result.AvgSatisfaction)
	assert.Zero(t, result.RecommendationRate)
	assert.Zero(t, result.AvgCompletionRate)
}

func TestAggregate_StoreErrorsSurfaceAsExternal(t *testing.T) {
	store := newFakeAggregateStore()
	store.listErr = errors.New("connection refused")
	agg := New(store, testRegistry(t), domain.ModelLexicon, defaultConfig(), clockwork.NewFakeClock())

	_, err := agg.Aggregate(context.Background(), "wednesday", "twitter",
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TypeExternal))
}

func TestWelford_MatchesDirectComputation(t *testing.T) {
	values := []float64{0.6, -0.2, 0.0, 0.9, -0.7}

	var w welford
	var sum float64
	for _, v := range values {
		w.add(v)
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	assert.InDelta(t, mean, w.mean(), 1e-12)
	assert.InDelta(t, variance, w.stddev()*w.stddev(), 1e-12)
}
