package scoring

import (
	"context"

	"github.com/shockwave22/StreamPulse/internal/domain"
)

// Scorer is one sentiment model. Implementations must be idempotent: scoring
// the same text twice with the same configuration yields the same polarity.
type Scorer interface {
	Model() domain.Model
	Score(ctx context.Context, text string) (domain.Polarity, error)
}
