// Package redisq is the ingest queue between collectors and the pipeline:
// collectors LPUSH JSON-encoded raw records, the ingest stage BRPOPs until
// the queue drains or the batch limit is hit.
package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shockwave22/StreamPulse/internal/domain"
)

const (
	ingestQueueKey = "streampulse:queue:ingest"
	surveyQueueKey = "streampulse:queue:surveys"
	deadLetterKey  = "streampulse:queue:failed"

	popTimeout = 2 * time.Second
)

// Queue wraps a go-redis client with the list operations the pipeline needs.
type Queue struct {
	rdb *redis.Client
}

// New creates a queue client from a URL (e.g., "redis://localhost:6379").
func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	rdb.AddHook(NewBreakerHook())
	return &Queue{rdb: rdb}, nil
}

// NewWithClient wraps an existing client; used by tests.
func NewWithClient(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Ping verifies the Redis connection.
func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (q *Queue) Close() error {
	return q.rdb.Close()
}

// PushRecords enqueues raw records for the next ingest run.
func (q *Queue) PushRecords(ctx context.Context, records []domain.RawRecord) error {
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode raw record: %w", err)
		}
		if err := q.rdb.LPush(ctx, ingestQueueKey, data).Err(); err != nil {
			return fmt.Errorf("failed to push raw record: %w", err)
		}
	}
	return nil
}

// PopRecords drains up to limit raw records. It returns early when the queue
// stays empty for the pop timeout, so an ingest run on an idle queue
// terminates instead of blocking. Undecodable payloads go to the dead letter
// list and are counted in malformed.
func (q *Queue) PopRecords(ctx context.Context, limit int) (records []domain.RawRecord, malformed int, err error) {
	for len(records) < limit {
		result, err := q.rdb.BRPop(ctx, popTimeout, ingestQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return records, malformed, fmt.Errorf("failed to pop raw record: %w", err)
		}

		payload := result[1]
		var record domain.RawRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			malformed++
			if pushErr := q.rdb.LPush(ctx, deadLetterKey, payload).Err(); pushErr != nil {
				return records, malformed, fmt.Errorf("failed to dead-letter raw record: %w", pushErr)
			}
			continue
		}
		records = append(records, record)
	}
	return records, malformed, nil
}

// PushResponses enqueues survey responses delivered out of band.
func (q *Queue) PushResponses(ctx context.Context, responses []domain.SurveyResponse) error {
	for _, resp := range responses {
		data, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("failed to encode survey response: %w", err)
		}
		if err := q.rdb.LPush(ctx, surveyQueueKey, data).Err(); err != nil {
			return fmt.Errorf("failed to push survey response: %w", err)
		}
	}
	return nil
}

// PopResponses drains up to limit survey responses.
func (q *Queue) PopResponses(ctx context.Context, limit int) (responses []domain.SurveyResponse, malformed int, err error) {
	for len(responses) < limit {
		result, err := q.rdb.BRPop(ctx, popTimeout, surveyQueueKey).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return responses, malformed, fmt.Errorf("failed to pop survey response: %w", err)
		}

		payload := result[1]
		var resp domain.SurveyResponse
		if err := json.Unmarshal([]byte(payload), &resp); err != nil {
			malformed++
			if pushErr := q.rdb.LPush(ctx, deadLetterKey, payload).Err(); pushErr != nil {
				return responses, malformed, fmt.Errorf("failed to dead-letter survey response: %w", pushErr)
			}
			continue
		}
		responses = append(responses, resp)
	}
	return responses, malformed, nil
}

// Depth reports the ingest queue length for health reporting.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, ingestQueueKey).Result()
}
