package domain

import "time"

// AlignmentDay is one day of survey-vs-social comparison. A side present on
// only one day is flagged absent rather than defaulted to zero, so missing
// data never manufactures false disagreement.
type AlignmentDay struct {
	Day           time.Time `json:"day"`
	SocialMean    float64   `json:"social_mean"`
	SurveyMean    float64   `json:"survey_mean"`
	Delta         float64   `json:"delta"`
	SocialPresent bool      `json:"social_present"`
	SurveyPresent bool      `json:"survey_present"`

	// RollingCorrelation is the Pearson correlation of survey vs social means
	// over the trailing window ending on this day; nil when fewer than two
	// overlapping days exist in the window.
	RollingCorrelation *float64 `json:"rolling_correlation,omitempty"`
}

// AlignmentReport is the Comparator output for one title over a date range.
type AlignmentReport struct {
	TitleSlug  string         `json:"title_slug"`
	From       time.Time      `json:"from"`
	To         time.Time      `json:"to"`
	WindowDays int            `json:"window_days"`
	Days       []AlignmentDay `json:"days"`

	// Correlation covers all overlapping days in the range; nil when fewer
	// than two days have both sides present.
	Correlation *float64 `json:"correlation,omitempty"`
}
