package domain

import (
	"fmt"
	"time"
)

// SourceSurvey is the reserved source tag for survey-derived aggregates.
// Every other source tag names a social platform (e.g. "twitter", "reddit").
const SourceSurvey = "survey"

// Day truncates a timestamp to its UTC calendar day. All bucket math uses
// this so an item lands in exactly one bucket regardless of collector zone.
func Day(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// BucketKey identifies one DailyAggregate.
type BucketKey struct {
	TitleSlug string
	Source    string
	Day       time.Time
}

func (k BucketKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.TitleSlug, k.Source, k.Day.Format("2006-01-02"))
}

// DailyAggregate is a cached view over one (title, source, day) bucket. It is
// fully derivable from the underlying scores/responses and is only ever
// replaced wholesale, never patched field by field. An empty bucket is a valid
// aggregate with Count = 0, not an absent record.
type DailyAggregate struct {
	TitleSlug      string    `json:"title_slug"`
	Source         string    `json:"source"`
	Day            time.Time `json:"day"`
	Count          int       `json:"count"`
	MeanPolarity   float64   `json:"mean_polarity"`
	StddevPolarity float64   `json:"stddev_polarity"`
	PositiveCount  int       `json:"positive_count"`
	NeutralCount   int       `json:"neutral_count"`
	NegativeCount  int       `json:"negative_count"`

	// Survey-only metrics; zero for social sources.
	AvgSatisfaction    float64 `json:"avg_satisfaction,omitempty"`
	RecommendationRate float64 `json:"recommendation_rate,omitempty"`
	AvgCompletionRate  float64 `json:"avg_completion_rate,omitempty"`
}

// Key returns the aggregate's bucket key.
func (a DailyAggregate) Key() BucketKey {
	return BucketKey{TitleSlug: a.TitleSlug, Source: a.Source, Day: a.Day}
}

// EmptyAggregate returns the well-formed zero bucket for a key. Downstream
// consumers never special-case "missing" vs "empty".
func EmptyAggregate(key BucketKey) DailyAggregate {
	return DailyAggregate{TitleSlug: key.TitleSlug, Source: key.Source, Day: key.Day}
}
