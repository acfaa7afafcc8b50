package redisq

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/shockwave22/StreamPulse/internal/domain"
)

var testRedisURL string

func TestMain(m *testing.M) {
	flag.Parse()

	// Skip container setup if running in short mode
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}
	testRedisURL = "redis://" + endpoint

	defer func() {
		if err := container.Terminate(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to terminate redis container: %v\n", err)
		}
	}()
	os.Exit(m.Run())
}

func setupTestQueue(t *testing.T) *Queue {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	queue, err := New(testRedisURL)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, queue.rdb.FlushAll(ctx).Err())

	t.Cleanup(func() {
		_ = queue.Close()
	})
	return queue
}

func rawRecord(externalID string) domain.RawRecord {
	return domain.RawRecord{
		Source:     "twitter",
		ExternalID: externalID,
		Text:       "wednesday is great",
		Author:     "viewer1",
		CreatedAt:  time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC),
	}
}

func TestQueue_PushPopRoundTrip(t *testing.T) {
	queue := setupTestQueue(t)
	ctx := context.Background()

	pushed := []domain.RawRecord{rawRecord("t1"), rawRecord("t2"), rawRecord("t3")}
	require.NoError(t, queue.PushRecords(ctx, pushed))

	records, malformed, err := queue.PopRecords(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, malformed)
	require.Len(t, records, 3)
	assert.Equal(t, "t1", records[0].ExternalID, "queue is FIFO")
	assert.True(t, records[0].CreatedAt.Equal(pushed[0].CreatedAt))
}

func TestQueue_PopStopsAtBatchLimit(t *testing.T) {
	queue := setupTestQueue(t)
	ctx := context.Background()

	var pushed []domain.RawRecord
	for i := 0; i < 5; i++ {
		pushed = append(pushed, rawRecord(fmt.Sprintf("t%d", i)))
	}
	require.NoError(t, queue.PushRecords(ctx, pushed))

	records, _, err := queue.PopRecords(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	depth, err := queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), depth, "remainder stays queued for the next run")
}

func TestQueue_MalformedPayloadDeadLetters(t *testing.T) {
	queue := setupTestQueue(t)
	ctx := context.Background()

	require.NoError(t, queue.rdb.LPush(ctx, ingestQueueKey, "{not json").Err())
	require.NoError(t, queue.PushRecords(ctx, []domain.RawRecord{rawRecord("t1")}))

	records, malformed, err := queue.PopRecords(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, malformed)
	require.Len(t, records, 1)

	dead, err := queue.rdb.LLen(ctx, deadLetterKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), dead)
}

func TestQueue_SurveyRoundTrip(t *testing.T) {
	queue := setupTestQueue(t)
	ctx := context.Background()

	resp := domain.SurveyResponse{
		RespondentID: "r1", TitleSlug: "wednesday", Satisfaction: 4,
		WouldRecommend: true, CompletionRate: 0.8,
		SubmittedAt: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, queue.PushResponses(ctx, []domain.SurveyResponse{resp}))

	responses, malformed, err := queue.PopResponses(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, malformed)
	require.Len(t, responses, 1)
	assert.Equal(t, resp.RespondentID, responses[0].RespondentID)
	assert.Equal(t, resp.Satisfaction, responses[0].Satisfaction)
}

func TestQueue_EmptyQueueReturnsAfterTimeout(t *testing.T) {
	queue := setupTestQueue(t)

	start := time.Now()
	records, malformed, err := queue.PopRecords(context.Background(), 5)

	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, malformed)
	assert.Less(t, time.Since(start), 2*popTimeout, "idle drain must terminate")
}
