// Package memstore is an in-memory Store for tests and local development. It
// honors the same merge and replacement semantics as the postgres adapter.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shockwave22/StreamPulse/internal/domain"
)

type scoreKey struct {
	itemID string
	model  domain.Model
}

// Store keeps everything in maps behind one RW mutex. Reads under the read
// lock copy values out, so callers never observe a partially written record.
type Store struct {
	mu         sync.RWMutex
	items      map[string]domain.ContentItem
	scores     map[scoreKey]domain.SentimentScore
	responses  []domain.SurveyResponse
	aggregates map[domain.BucketKey]domain.DailyAggregate
}

func New() *Store {
	return &Store{
		items:      make(map[string]domain.ContentItem),
		scores:     make(map[scoreKey]domain.SentimentScore),
		aggregates: make(map[domain.BucketKey]domain.DailyAggregate),
	}
}

func (s *Store) GetItem(_ context.Context, id string) (*domain.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &item, nil
}

// PutItem inserts or merges on fingerprint collision: the stored row keeps
// everything from the first write except Engagement, which takes the new
// value. Matches the postgres ON CONFLICT clause.
func (s *Store) PutItem(_ context.Context, item domain.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[item.ID]; ok {
		existing.Engagement = item.Engagement
		s.items[item.ID] = existing
		return nil
	}
	s.items[item.ID] = item
	return nil
}

func (s *Store) GetScore(_ context.Context, itemID string, model domain.Model) (*domain.SentimentScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[scoreKey{itemID: itemID, model: model}]
	if !ok {
		return nil, domain.ErrScoreNotFound
	}
	return &score, nil
}

func (s *Store) PutScore(_ context.Context, score domain.SentimentScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[scoreKey{itemID: score.ItemID, model: score.Model}] = score
	return nil
}

func (s *Store) ListScores(_ context.Context, titleSlug, source string, from, to time.Time) ([]domain.ScoredItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ScoredItem
	for key, score := range s.scores {
		item, ok := s.items[key.itemID]
		if !ok {
			continue
		}
		if item.TitleSlug != titleSlug || item.Source != source {
			continue
		}
		if !inRange(item.CreatedAt, from, to) {
			continue
		}
		out = append(out, domain.ScoredItem{Item: item, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Item.CreatedAt.Equal(out[j].Item.CreatedAt) {
			return out[i].Item.CreatedAt.Before(out[j].Item.CreatedAt)
		}
		if out[i].Item.ID != out[j].Item.ID {
			return out[i].Item.ID < out[j].Item.ID
		}
		return out[i].Score.Model < out[j].Score.Model
	})
	return out, nil
}

func (s *Store) ListUnscored(_ context.Context, model domain.Model, limit int) ([]domain.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ContentItem
	for id, item := range s.items {
		if _, scored := s.scores[scoreKey{itemID: id, model: model}]; scored {
			continue
		}
		out = append(out, item)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) PutResponses(_ context.Context, responses []domain.SurveyResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, responses...)
	return nil
}

func (s *Store) ListResponses(_ context.Context, titleSlug string, from, to time.Time) ([]domain.SurveyResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.SurveyResponse
	for _, resp := range s.responses {
		if resp.TitleSlug != titleSlug || !inRange(resp.SubmittedAt, from, to) {
			continue
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *Store) PutAggregate(_ context.Context, aggregate domain.DailyAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aggregates[aggregate.Key()] = aggregate
	return nil
}

func (s *Store) GetAggregate(_ context.Context, titleSlug, source string, day time.Time) (*domain.DailyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := domain.BucketKey{TitleSlug: titleSlug, Source: source, Day: domain.Day(day)}
	agg, ok := s.aggregates[key]
	if !ok {
		return nil, domain.ErrAggregateNotFound
	}
	return &agg, nil
}

func (s *Store) ListAggregates(_ context.Context, titleSlug, source string, from, to time.Time) ([]domain.DailyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DailyAggregate
	for key, agg := range s.aggregates {
		if key.TitleSlug != titleSlug || key.Source != source || !inRange(key.Day, from, to) {
			continue
		}
		out = append(out, agg)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

// Ping reports store health; always healthy for the in-memory store.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
