package app

import (
	"context"
	"time"

	"github.com/shockwave22/StreamPulse/internal/domain"
)

// timeoutStore decorates a Store with a per-call timeout so no pipeline stage
// can block indefinitely on store I/O. Callers treat a deadline error like any
// other store failure: the affected item is deferred, never dropped silently.
type timeoutStore struct {
	inner   domain.Store
	timeout time.Duration
}

func withTimeout(inner domain.Store, timeout time.Duration) domain.Store {
	if timeout <= 0 {
		return inner
	}
	return &timeoutStore{inner: inner, timeout: timeout}
}

func (s *timeoutStore) GetItem(ctx context.Context, id string) (*domain.ContentItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.GetItem(ctx, id)
}

func (s *timeoutStore) PutItem(ctx context.Context, item domain.ContentItem) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.PutItem(ctx, item)
}

func (s *timeoutStore) GetScore(ctx context.Context, itemID string, model domain.Model) (*domain.SentimentScore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.GetScore(ctx, itemID, model)
}

func (s *timeoutStore) PutScore(ctx context.Context, score domain.SentimentScore) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.PutScore(ctx, score)
}

func (s *timeoutStore) ListScores(ctx context.Context, titleSlug, source string, from, to time.Time) ([]domain.ScoredItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.ListScores(ctx, titleSlug, source, from, to)
}

func (s *timeoutStore) ListUnscored(ctx context.Context, model domain.Model, limit int) ([]domain.ContentItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.ListUnscored(ctx, model, limit)
}

func (s *timeoutStore) PutResponses(ctx context.Context, responses []domain.SurveyResponse) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.PutResponses(ctx, responses)
}

func (s *timeoutStore) ListResponses(ctx context.Context, titleSlug string, from, to time.Time) ([]domain.SurveyResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.ListResponses(ctx, titleSlug, from, to)
}

func (s *timeoutStore) PutAggregate(ctx context.Context, aggregate domain.DailyAggregate) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.PutAggregate(ctx, aggregate)
}

func (s *timeoutStore) GetAggregate(ctx context.Context, titleSlug, source string, day time.Time) (*domain.DailyAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.GetAggregate(ctx, titleSlug, source, day)
}

func (s *timeoutStore) ListAggregates(ctx context.Context, titleSlug, source string, from, to time.Time) ([]domain.DailyAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.inner.ListAggregates(ctx, titleSlug, source, from, to)
}
