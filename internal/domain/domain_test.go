package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRescaleSatisfaction(t *testing.T) {
	assert.Equal(t, -1.0, RescaleSatisfaction(1))
	assert.Equal(t, -0.5, RescaleSatisfaction(2))
	assert.Equal(t, 0.0, RescaleSatisfaction(3))
	assert.Equal(t, 0.5, RescaleSatisfaction(4))
	assert.Equal(t, 1.0, RescaleSatisfaction(5))
}

func TestDayTruncatesToUTC(t *testing.T) {
	cet := time.FixedZone("CET", 3600)

	// 00:30 CET on Jan 5 is still Jan 4 in UTC
	ts := time.Date(2024, 1, 5, 0, 30, 0, 0, cet)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), Day(ts))

	ts = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Day(ts))
}

func TestBucketKeyString(t *testing.T) {
	key := BucketKey{TitleSlug: "wednesday", Source: "twitter", Day: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "wednesday/twitter/2024-01-05", key.String())
}

func TestEmptyAggregate(t *testing.T) {
	key := BucketKey{TitleSlug: "dark", Source: SourceSurvey, Day: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)}
	agg := EmptyAggregate(key)

	assert.Equal(t, key, agg.Key())
	assert.Zero(t, agg.Count)
	assert.Zero(t, agg.MeanPolarity)
	assert.Zero(t, agg.StddevPolarity)
}

func TestRunSummaryMerge(t *testing.T) {
	a := NewRunSummary("run-a")
	a.Ingested = 10
	a.AddRejected(RejectEmptyText)
	a.AddScored(ModelLexicon)
	a.AddScored(ModelLexicon)
	a.BucketsFailed = 1

	b := NewRunSummary("run-b")
	b.Ingested = 5
	b.AddRejected(RejectEmptyText)
	b.AddRejected(RejectNoTitleMatch)
	b.AddScored(ModelTransformer)
	b.Fallbacks = 2
	b.AggregatesRecomputed = 3

	a.Merge(b)

	assert.Equal(t, "run-a", a.RunID)
	assert.Equal(t, 15, a.Ingested)
	assert.Equal(t, 2, a.Rejected[RejectEmptyText])
	assert.Equal(t, 1, a.Rejected[RejectNoTitleMatch])
	assert.Equal(t, 3, a.TotalRejected())
	assert.Equal(t, 2, a.ScoredByModel[ModelLexicon])
	assert.Equal(t, 1, a.ScoredByModel[ModelTransformer])
	assert.Equal(t, 2, a.Fallbacks)
	assert.Equal(t, 3, a.AggregatesRecomputed)
	assert.Equal(t, 1, a.BucketsFailed)

	// Merging nil is a no-op
	a.Merge(nil)
	assert.Equal(t, 15, a.Ingested)
}

func TestParseModel(t *testing.T) {
	model, err := ParseModel("lexicon")
	assert.NoError(t, err)
	assert.Equal(t, ModelLexicon, model)

	model, err = ParseModel("transformer")
	assert.NoError(t, err)
	assert.Equal(t, ModelTransformer, model)

	_, err = ParseModel("bert")
	assert.Error(t, err)
}
