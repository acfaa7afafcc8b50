// Package compare merges social and survey daily aggregates per title into an
// alignment report: per-day deltas plus windowed and overall correlation of
// the two signals.
package compare

import (
	"context"
	"math"
	"time"

	"github.com/shockwave22/StreamPulse/internal/domain"
	apperrors "github.com/shockwave22/StreamPulse/internal/errors"
	"github.com/shockwave22/StreamPulse/internal/normalize"
)

// Store is the subset of store operations the Comparator needs.
type Store interface {
	ListAggregates(ctx context.Context, titleSlug, source string, from, to time.Time) ([]domain.DailyAggregate, error)
}

// Comparator builds alignment reports from already-computed aggregates. It
// never recomputes buckets; missing buckets show up as absent days.
type Comparator struct {
	store      Store
	registry   *normalize.Registry
	sources    []string
	windowDays int
}

// New creates a comparator. sources lists the social platforms whose
// aggregates are merged into the social side; windowDays sizes the rolling
// correlation window.
func New(store Store, registry *normalize.Registry, sources []string, windowDays int) *Comparator {
	return &Comparator{
		store:      store,
		registry:   registry,
		sources:    sources,
		windowDays: windowDays,
	}
}

// Compare reports survey-vs-social alignment for a title over [from, to).
// Days where one side has no data are flagged absent, not zero-filled, and
// are excluded from all correlation math.
func (c *Comparator) Compare(ctx context.Context, titleSlug string, from, to time.Time) (domain.AlignmentReport, error) {
	if _, ok := c.registry.Lookup(titleSlug); !ok {
		return domain.AlignmentReport{}, apperrors.NotFoundError("unknown title", domain.ErrUnknownTitle).
			WithField("title_slug", titleSlug)
	}

	from = domain.Day(from)
	to = domain.Day(to)

	report := domain.AlignmentReport{
		TitleSlug:  titleSlug,
		From:       from,
		To:         to,
		WindowDays: c.windowDays,
	}
	if !from.Before(to) {
		return report, nil
	}

	social, err := c.mergedSocial(ctx, titleSlug, from, to)
	if err != nil {
		return domain.AlignmentReport{}, err
	}

	survey, err := c.surveyMeans(ctx, titleSlug, from, to)
	if err != nil {
		return domain.AlignmentReport{}, err
	}

	for day := from; day.Before(to); day = day.Add(24 * time.Hour) {
		entry := domain.AlignmentDay{Day: day}

		if mean, ok := social[day]; ok {
			entry.SocialMean = mean
			entry.SocialPresent = true
		}
		if mean, ok := survey[day]; ok {
			entry.SurveyMean = mean
			entry.SurveyPresent = true
		}
		if entry.SocialPresent && entry.SurveyPresent {
			entry.Delta = entry.SurveyMean - entry.SocialMean
		}

		report.Days = append(report.Days, entry)
	}

	for i := range report.Days {
		start := max(0, i-c.windowDays+1)
		report.Days[i].RollingCorrelation = correlation(report.Days[start : i+1])
	}
	report.Correlation = correlation(report.Days)

	return report, nil
}

// mergedSocial folds the per-source aggregates into one count-weighted mean
// per day. A day is present only when at least one source contributed a
// non-empty bucket.
func (c *Comparator) mergedSocial(ctx context.Context, titleSlug string, from, to time.Time) (map[time.Time]float64, error) {
	type accumulator struct {
		weighted float64
		count    int
	}
	byDay := make(map[time.Time]accumulator)

	for _, source := range c.sources {
		aggregates, err := c.store.ListAggregates(ctx, titleSlug, source, from, to)
		if err != nil {
			return nil, apperrors.ExternalError("failed to list aggregates", err).
				WithField("title_slug", titleSlug).WithField("source", source)
		}
		for _, agg := range aggregates {
			if agg.Count == 0 {
				continue
			}
			acc := byDay[agg.Day]
			acc.weighted += agg.MeanPolarity * float64(agg.Count)
			acc.count += agg.Count
			byDay[agg.Day] = acc
		}
	}

	means := make(map[time.Time]float64, len(byDay))
	for day, acc := range byDay {
		means[day] = acc.weighted / float64(acc.count)
	}
	return means, nil
}

func (c *Comparator) surveyMeans(ctx context.Context, titleSlug string, from, to time.Time) (map[time.Time]float64, error) {
	aggregates, err := c.store.ListAggregates(ctx, titleSlug, domain.SourceSurvey, from, to)
	if err != nil {
		return nil, apperrors.ExternalError("failed to list survey aggregates", err).
			WithField("title_slug", titleSlug)
	}

	means := make(map[time.Time]float64, len(aggregates))
	for _, agg := range aggregates {
		if agg.Count == 0 {
			continue
		}
		means[agg.Day] = agg.MeanPolarity
	}
	return means, nil
}

// correlation returns the Pearson correlation of survey vs social means over
// the days where both sides are present, or nil when fewer than two such days
// exist or either signal is constant. Never returns NaN.
func correlation(days []domain.AlignmentDay) *float64 {
	var xs, ys []float64
	for _, day := range days {
		if day.SocialPresent && day.SurveyPresent {
			xs = append(xs, day.SocialMean)
			ys = append(ys, day.SurveyMean)
		}
	}
	if len(xs) < 2 {
		return nil
	}

	n := float64(len(xs))
	var meanX, meanY float64
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return nil
	}

	r := cov / math.Sqrt(varX*varY)
	return &r
}
