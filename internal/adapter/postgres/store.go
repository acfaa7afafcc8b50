package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shockwave22/StreamPulse/internal/domain"
)

// Store implements domain.Store on a pgx pool. Writes rely on ON CONFLICT
// upserts so every operation is single-statement atomic: readers see the old
// row or the new row, never a half-written one.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) GetItem(ctx context.Context, id string) (*domain.ContentItem, error) {
	const query = `
		SELECT id, source, title_slug, text, author, created_at, engagement
		FROM content_items
		WHERE id = $1`

	var item domain.ContentItem
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&item.ID, &item.Source, &item.TitleSlug, &item.Text,
		&item.Author, &item.CreatedAt, &item.Engagement)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}
	return &item, nil
}

// PutItem upserts on the fingerprint. The conflict branch deliberately leaves
// created_at untouched (first write wins) and refreshes engagement (last
// write wins).
func (s *Store) PutItem(ctx context.Context, item domain.ContentItem) error {
	const query = `
		INSERT INTO content_items (id, source, title_slug, text, author, created_at, engagement)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET engagement = EXCLUDED.engagement`

	_, err := s.pool.Exec(ctx, query,
		item.ID, item.Source, item.TitleSlug, item.Text,
		item.Author, item.CreatedAt, item.Engagement)
	if err != nil {
		return fmt.Errorf("failed to put content item: %w", err)
	}
	return nil
}

func (s *Store) GetScore(ctx context.Context, itemID string, model domain.Model) (*domain.SentimentScore, error) {
	const query = `
		SELECT item_id, model, polarity, confidence, computed_at
		FROM sentiment_scores
		WHERE item_id = $1 AND model = $2`

	var score domain.SentimentScore
	err := s.pool.QueryRow(ctx, query, itemID, string(model)).Scan(
		&score.ItemID, &score.Model, &score.Polarity, &score.Confidence, &score.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrScoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sentiment score: %w", err)
	}
	return &score, nil
}

func (s *Store) PutScore(ctx context.Context, score domain.SentimentScore) error {
	const query = `
		INSERT INTO sentiment_scores (item_id, model, polarity, confidence, computed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (item_id, model) DO UPDATE SET
			polarity = EXCLUDED.polarity,
			confidence = EXCLUDED.confidence,
			computed_at = EXCLUDED.computed_at`

	_, err := s.pool.Exec(ctx, query,
		score.ItemID, string(score.Model), score.Polarity, score.Confidence, score.ComputedAt)
	if err != nil {
		return fmt.Errorf("failed to put sentiment score: %w", err)
	}
	return nil
}

func (s *Store) ListScores(ctx context.Context, titleSlug, source string, from, to time.Time) ([]domain.ScoredItem, error) {
	const query = `
		SELECT i.id, i.source, i.title_slug, i.text, i.author, i.created_at, i.engagement,
		       s.item_id, s.model, s.polarity, s.confidence, s.computed_at
		FROM sentiment_scores s
		JOIN content_items i ON i.id = s.item_id
		WHERE i.title_slug = $1 AND i.source = $2 AND i.created_at >= $3 AND i.created_at < $4
		ORDER BY i.created_at, i.id, s.model`

	rows, err := s.pool.Query(ctx, query, titleSlug, source, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoredItem
	for rows.Next() {
		var row domain.ScoredItem
		if err := rows.Scan(
			&row.Item.ID, &row.Item.Source, &row.Item.TitleSlug, &row.Item.Text,
			&row.Item.Author, &row.Item.CreatedAt, &row.Item.Engagement,
			&row.Score.ItemID, &row.Score.Model, &row.Score.Polarity,
			&row.Score.Confidence, &row.Score.ComputedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scored item: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scored items: %w", err)
	}
	return out, nil
}

func (s *Store) ListUnscored(ctx context.Context, model domain.Model, limit int) ([]domain.ContentItem, error) {
	const query = `
		SELECT i.id, i.source, i.title_slug, i.text, i.author, i.created_at, i.engagement
		FROM content_items i
		LEFT JOIN sentiment_scores s ON s.item_id = i.id AND s.model = $1
		WHERE s.item_id IS NULL
		ORDER BY i.created_at, i.id
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, string(model), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unscored items: %w", err)
	}
	defer rows.Close()

	var out []domain.ContentItem
	for rows.Next() {
		var item domain.ContentItem
		if err := rows.Scan(
			&item.ID, &item.Source, &item.TitleSlug, &item.Text,
			&item.Author, &item.CreatedAt, &item.Engagement); err != nil {
			return nil, fmt.Errorf("failed to scan content item: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read unscored items: %w", err)
	}
	return out, nil
}

// PutResponses inserts responses in one batch. Responses are immutable, so a
// duplicate key is ignored rather than updated.
func (s *Store) PutResponses(ctx context.Context, responses []domain.SurveyResponse) error {
	if len(responses) == 0 {
		return nil
	}

	const query = `
		INSERT INTO survey_responses (respondent_id, title_slug, satisfaction, would_recommend, completion_rate, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING`

	batch := &pgx.Batch{}
	for _, resp := range responses {
		batch.Queue(query,
			resp.RespondentID, resp.TitleSlug, resp.Satisfaction,
			resp.WouldRecommend, resp.CompletionRate, resp.SubmittedAt)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to put survey responses: %w", err)
	}
	return nil
}

func (s *Store) ListResponses(ctx context.Context, titleSlug string, from, to time.Time) ([]domain.SurveyResponse, error) {
	const query = `
		SELECT respondent_id, title_slug, satisfaction, would_recommend, completion_rate, submitted_at
		FROM survey_responses
		WHERE title_slug = $1 AND submitted_at >= $2 AND submitted_at < $3
		ORDER BY submitted_at, respondent_id`

	rows, err := s.pool.Query(ctx, query, titleSlug, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list survey responses: %w", err)
	}
	defer rows.Close()

	var out []domain.SurveyResponse
	for rows.Next() {
		var resp domain.SurveyResponse
		if err := rows.Scan(
			&resp.RespondentID, &resp.TitleSlug, &resp.Satisfaction,
			&resp.WouldRecommend, &resp.CompletionRate, &resp.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan survey response: %w", err)
		}
		out = append(out, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read survey responses: %w", err)
	}
	return out, nil
}

// PutAggregate replaces the bucket in one statement, so concurrent readers
// see the old or the new aggregate, never a partial one.
func (s *Store) PutAggregate(ctx context.Context, aggregate domain.DailyAggregate) error {
	const query = `
		INSERT INTO daily_aggregates (
			title_slug, source, day, count, mean_polarity, stddev_polarity,
			positive_count, neutral_count, negative_count,
			avg_satisfaction, recommendation_rate, avg_completion_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (title_slug, source, day) DO UPDATE SET
			count = EXCLUDED.count,
			mean_polarity = EXCLUDED.mean_polarity,
			stddev_polarity = EXCLUDED.stddev_polarity,
			positive_count = EXCLUDED.positive_count,
			neutral_count = EXCLUDED.neutral_count,
			negative_count = EXCLUDED.negative_count,
			avg_satisfaction = EXCLUDED.avg_satisfaction,
			recommendation_rate = EXCLUDED.recommendation_rate,
			avg_completion_rate = EXCLUDED.avg_completion_rate`

	_, err := s.pool.Exec(ctx, query,
		aggregate.TitleSlug, aggregate.Source, aggregate.Day, aggregate.Count,
		aggregate.MeanPolarity, aggregate.StddevPolarity,
		aggregate.PositiveCount, aggregate.NeutralCount, aggregate.NegativeCount,
		aggregate.AvgSatisfaction, aggregate.RecommendationRate, aggregate.AvgCompletionRate)
	if err != nil {
		return fmt.Errorf("failed to put daily aggregate: %w", err)
	}
	return nil
}

func (s *Store) GetAggregate(ctx context.Context, titleSlug, source string, day time.Time) (*domain.DailyAggregate, error) {
	const query = `
		SELECT title_slug, source, day, count, mean_polarity, stddev_polarity,
		       positive_count, neutral_count, negative_count,
		       avg_satisfaction, recommendation_rate, avg_completion_rate
		FROM daily_aggregates
		WHERE title_slug = $1 AND source = $2 AND day = $3`

	var agg domain.DailyAggregate
	err := s.pool.QueryRow(ctx, query, titleSlug, source, domain.Day(day)).Scan(
		&agg.TitleSlug, &agg.Source, &agg.Day, &agg.Count,
		&agg.MeanPolarity, &agg.StddevPolarity,
		&agg.PositiveCount, &agg.NeutralCount, &agg.NegativeCount,
		&agg.AvgSatisfaction, &agg.RecommendationRate, &agg.AvgCompletionRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAggregateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily aggregate: %w", err)
	}
	agg.Day = agg.Day.UTC()
	return &agg, nil
}

func (s *Store) ListAggregates(ctx context.Context, titleSlug, source string, from, to time.Time) ([]domain.DailyAggregate, error) {
	const query = `
		SELECT title_slug, source, day, count, mean_polarity, stddev_polarity,
		       positive_count, neutral_count, negative_count,
		       avg_satisfaction, recommendation_rate, avg_completion_rate
		FROM daily_aggregates
		WHERE title_slug = $1 AND source = $2 AND day >= $3 AND day < $4
		ORDER BY day`

	rows, err := s.pool.Query(ctx, query, titleSlug, source, domain.Day(from), domain.Day(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list daily aggregates: %w", err)
	}
	defer rows.Close()

	var out []domain.DailyAggregate
	for rows.Next() {
		var agg domain.DailyAggregate
		if err := rows.Scan(
			&agg.TitleSlug, &agg.Source, &agg.Day, &agg.Count,
			&agg.MeanPolarity, &agg.StddevPolarity,
			&agg.PositiveCount, &agg.NeutralCount, &agg.NegativeCount,
			&agg.AvgSatisfaction, &agg.RecommendationRate, &agg.AvgCompletionRate); err != nil {
			return nil, fmt.Errorf("failed to scan daily aggregate: %w", err)
		}
		agg.Day = agg.Day.UTC()
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read daily aggregates: %w", err)
	}
	return out, nil
}
