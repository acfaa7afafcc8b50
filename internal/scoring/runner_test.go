package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shockwave22/StreamPulse/internal/domain"
)

type fakeScoreWriter struct {
	mu       sync.Mutex
	scores   map[string]domain.SentimentScore
	failPuts bool
}

func newFakeScoreWriter() *fakeScoreWriter {
	return &fakeScoreWriter{scores: make(map[string]domain.SentimentScore)}
}

func scoreKey(itemID string, model domain.Model) string {
	return itemID + "/" + string(model)
}

func (f *fakeScoreWriter) GetScore(_ context.Context, itemID string, model domain.Model) (*domain.SentimentScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	score, ok := f.scores[scoreKey(itemID, model)]
	if !ok {
		return nil, domain.ErrScoreNotFound
	}
	return &score, nil
}

func (f *fakeScoreWriter) PutScore(_ context.Context, score domain.SentimentScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPuts {
		return errors.New("store unavailable")
	}
	f.scores[scoreKey(score.ItemID, score.Model)] = score
	return nil
}

func (f *fakeScoreWriter) get(t *testing.T, itemID string, model domain.Model) domain.SentimentScore {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	score, ok := f.scores[scoreKey(itemID, model)]
	require.True(t, ok, "expected score for %s/%s", itemID, model)
	return score
}

func testItems(texts ...string) []domain.ContentItem {
	items := make([]domain.ContentItem, len(texts))
	for i, text := range texts {
		items[i] = domain.ContentItem{ID: fmt.Sprintf("item-%d", i), Text: text}
	}
	return items
}

func TestRunner_LexiconBatch(t *testing.T) {
	store := newFakeScoreWriter()
	clock := clockwork.NewFakeClock()
	runner := NewRunner(store, NewLexiconScorer(), nil, 4, 10, clock)

	items := testItems("this is great", "this is terrible", "the sky is blue")
	result, err := runner.ScoreBatch(context.Background(), items, domain.ModelLexicon)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Scored[domain.ModelLexicon])
	assert.Zero(t, result.Skipped)
	assert.Zero(t, result.Failures)

	positive := store.get(t, "item-0", domain.ModelLexicon)
	assert.Positive(t, positive.Polarity)
	assert.Equal(t, clock.Now().UTC(), positive.ComputedAt)
	assert.Negative(t, store.get(t, "item-1", domain.ModelLexicon).Polarity)
}

func TestRunner_SkipsAlreadyScored(t *testing.T) {
	store := newFakeScoreWriter()
	runner := NewRunner(store, NewLexiconScorer(), nil, 4, 10, clockwork.NewFakeClock())

	items := testItems("this is great", "this is terrible")
	_, err := runner.ScoreBatch(context.Background(), items, domain.ModelLexicon)
	require.NoError(t, err)

	result, err := runner.ScoreBatch(context.Background(), items, domain.ModelLexicon)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Skipped)
	assert.Zero(t, result.Scored[domain.ModelLexicon])
}

func TestRunner_RescoreOverwritesIdentically(t *testing.T) {
	store := newFakeScoreWriter()
	runner := NewRunner(store, NewLexiconScorer(), nil, 4, 10, clockwork.NewFakeClock())

	items := testItems("an absolutely wonderful show")
	_, err := runner.ScoreBatch(context.Background(), items, domain.ModelLexicon)
	require.NoError(t, err)
	first := store.get(t, "item-0", domain.ModelLexicon)

	result, err := runner.RescoreBatch(context.Background(), items, domain.ModelLexicon)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scored[domain.ModelLexicon])
	assert.Zero(t, result.Skipped)

	second := store.get(t, "item-0", domain.ModelLexicon)
	assert.Equal(t, first.Polarity, second.Polarity, "identical text must re-score identically")
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestRunner_TransformerBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req inferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := make([][]inferenceLabel, len(req.Inputs))
		for i := range req.Inputs {
			out[i] = []inferenceLabel{{Label: "POSITIVE", Score: 0.9}}
		}
		require.NoError(t, json.NewEncoder(w).Encode(out))
	}))
	defer srv.Close()

	store := newFakeScoreWriter()
	transformer := NewTransformerScorer(srv.URL, 2*time.Second, 1000, 512)
	runner := NewRunner(store, NewLexiconScorer(), transformer, 4, 2, clockwork.NewFakeClock())

	items := testItems("a", "b", "c", "d", "e")
	result, err := runner.ScoreBatch(context.Background(), items, domain.ModelTransformer)

	require.NoError(t, err)
	assert.Equal(t, 5, result.Scored[domain.ModelTransformer])
	assert.Zero(t, result.Fallbacks)
	assert.Equal(t, domain.ModelTransformer, store.get(t, "item-4", domain.ModelTransformer).Model)
}

func TestRunner_TransformerFailureFallsBackToLexicon(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusBadRequest)
	}))
	defer srv.Close()

	store := newFakeScoreWriter()
	transformer := NewTransformerScorer(srv.URL, 2*time.Second, 1000, 512)
	runner := NewRunner(store, NewLexiconScorer(), transformer, 4, 10, clockwork.NewFakeClock())

	items := testItems("this was great", "this was awful", "nothing here")
	result, err := runner.ScoreBatch(context.Background(), items, domain.ModelTransformer)

	require.NoError(t, err)
	assert.Equal(t, len(items), result.Failures)
	assert.Equal(t, len(items), result.Fallbacks)
	assert.Equal(t, len(items), result.Scored[domain.ModelLexicon])
	assert.Zero(t, result.Scored[domain.ModelTransformer])

	// Fallback scores record the model that actually produced them.
	rescued := store.get(t, "item-0", domain.ModelLexicon)
	assert.Equal(t, domain.ModelLexicon, rescued.Model)
	assert.Positive(t, rescued.Polarity)
}

func TestRunner_WriteFailureDefersItems(t *testing.T) {
	store := newFakeScoreWriter()
	store.failPuts = true
	runner := NewRunner(store, NewLexiconScorer(), nil, 4, 10, clockwork.NewFakeClock())

	items := testItems("this is great", "this is terrible")
	result, err := runner.ScoreBatch(context.Background(), items, domain.ModelLexicon)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Deferred)
	assert.Zero(t, result.Scored[domain.ModelLexicon])
}

func TestRunner_CancelledContextDefersRemainder(t *testing.T) {
	store := newFakeScoreWriter()
	transformer := NewTransformerScorer("http://unused", 2*time.Second, 1000, 512)
	runner := NewRunner(store, NewLexiconScorer(), transformer, 4, 2, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := testItems("a", "b", "c", "d")
	result, err := runner.RescoreBatch(ctx, items, domain.ModelTransformer)

	require.NoError(t, err)
	assert.Equal(t, len(items), result.Deferred)
	assert.Empty(t, result.Scored)
}

func TestRunner_EmptyBatch(t *testing.T) {
	store := newFakeScoreWriter()
	runner := NewRunner(store, NewLexiconScorer(), nil, 4, 10, clockwork.NewFakeClock())

	result, err := runner.ScoreBatch(context.Background(), nil, domain.ModelLexicon)
	require.NoError(t, err)
	assert.Empty(t, result.Scored)
	assert.Zero(t, result.Skipped)
}
