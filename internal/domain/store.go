package domain

import (
	"context"
	"time"
)

// Store is the persistence contract consumed by the pipeline. All lookups are
// keyed; the only range scans the core needs are "scores/responses/aggregates
// in a date range for a title", which implementations must support
// efficiently.
type Store interface {
	// GetItem returns ErrItemNotFound when the fingerprint is unknown.
	GetItem(ctx context.Context, id string) (*ContentItem, error)

	// PutItem inserts or merges an item. On fingerprint collision the stored
	// row keeps its original CreatedAt (first write wins) and takes the new
	// Engagement (last write wins).
	PutItem(ctx context.Context, item ContentItem) error

	// GetScore returns ErrScoreNotFound when the (item, model) pair is
	// unscored.
	GetScore(ctx context.Context, itemID string, model Model) (*SentimentScore, error)

	// PutScore upserts the single score row for (item_id, model).
	PutScore(ctx context.Context, score SentimentScore) error

	// ListScores returns every score whose item matches title and source and
	// whose item CreatedAt falls in [from, to).
	ListScores(ctx context.Context, titleSlug, source string, from, to time.Time) ([]ScoredItem, error)

	// ListUnscored returns up to limit items that have no score for model.
	ListUnscored(ctx context.Context, model Model, limit int) ([]ContentItem, error)

	PutResponses(ctx context.Context, responses []SurveyResponse) error

	// ListResponses returns responses for a title with SubmittedAt in [from, to).
	ListResponses(ctx context.Context, titleSlug string, from, to time.Time) ([]SurveyResponse, error)

	// PutAggregate replaces the bucket wholesale. Readers see either the old
	// or the fully replaced aggregate, never a partial one.
	PutAggregate(ctx context.Context, aggregate DailyAggregate) error

	// GetAggregate returns ErrAggregateNotFound when the bucket was never
	// computed.
	GetAggregate(ctx context.Context, titleSlug, source string, day time.Time) (*DailyAggregate, error)

	// ListAggregates returns computed aggregates with Day in [from, to).
	ListAggregates(ctx context.Context, titleSlug, source string, from, to time.Time) ([]DailyAggregate, error)
}
