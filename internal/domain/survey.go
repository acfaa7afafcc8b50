package domain

import "time"

// Satisfaction scale bounds (Likert 1-5).
const (
	SatisfactionMin = 1
	SatisfactionMax = 5
)

// SurveyResponse is one survey answer for a title. Immutable once stored.
type SurveyResponse struct {
	RespondentID   string    `json:"respondent_id"`
	TitleSlug      string    `json:"title_slug"`
	Satisfaction   int       `json:"satisfaction"`
	WouldRecommend bool      `json:"would_recommend"`
	CompletionRate float64   `json:"completion_rate"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// RescaleSatisfaction maps the 1-5 satisfaction scale onto the [-1, 1]
// polarity scale so survey and social aggregates are comparable:
// 1 -> -1.0, 3 -> 0.0, 5 -> +1.0.
func RescaleSatisfaction(satisfaction int) float64 {
	return (float64(satisfaction) - 3) / 2
}
