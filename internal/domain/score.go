package domain

import (
	"fmt"
	"time"
)

// Model identifies a sentiment model family. The model tag is part of the
// score key: at most one SentimentScore exists per (item, model).
type Model string

const (
	ModelLexicon     Model = "lexicon"
	ModelTransformer Model = "transformer"
)

// ParseModel validates a configured model name.
func ParseModel(s string) (Model, error) {
	switch Model(s) {
	case ModelLexicon, ModelTransformer:
		return Model(s), nil
	default:
		return "", fmt.Errorf("unknown sentiment model %q", s)
	}
}

// Polarity is the result of scoring one text: a signed sentiment score in
// [-1, 1] and the model's confidence in [0, 1].
type Polarity struct {
	Score      float64
	Confidence float64
}

// SentimentScore is one scored item. Model records which model actually
// produced the score, so a lexicon fallback is never mistaken for a
// transformer result.
type SentimentScore struct {
	ItemID     string    `json:"item_id"`
	Model      Model     `json:"model"`
	Polarity   float64   `json:"polarity"`
	Confidence float64   `json:"confidence"`
	ComputedAt time.Time `json:"computed_at"`
}

// ScoredItem joins a content item with one of its scores, as returned by
// range listings for aggregation.
type ScoredItem struct {
	Item  ContentItem
	Score SentimentScore
}
