package scoring

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/shockwave22/StreamPulse/internal/domain"
)

const (
	// negationFactor dampens and flips the valence of a negated token.
	negationFactor = -0.74
	// boosterWindow is how many preceding tokens are checked for negators
	// and intensity boosters.
	boosterWindow = 3
	// normalizationAlpha flattens the summed valence into [-1, 1].
	normalizationAlpha = 15.0
)

// LexiconScorer is the rule-based model: a fixed valence table, negation
// handling, and intensity boosters. Stateless beyond the immutable table,
// O(tokens), and it never fails - text without scorable tokens is neutral.
type LexiconScorer struct {
	valences map[string]float64
	negators map[string]bool
	boosters map[string]float64
}

// NewLexiconScorer builds a scorer over the built-in valence table. The
// table is read-only after construction and safe to share across workers.
func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{
		valences: defaultValences,
		negators: defaultNegators,
		boosters: defaultBoosters,
	}
}

func (s *LexiconScorer) Model() domain.Model {
	return domain.ModelLexicon
}

// Score computes the polarity of one text. Confidence is always 1.0: the
// same text and table produce the same score, deterministically.
func (s *LexiconScorer) Score(_ context.Context, text string) (domain.Polarity, error) {
	tokens := tokenize(text)

	var sum float64
	for i, token := range tokens {
		valence, ok := s.valences[token]
		if !ok {
			continue
		}

		boost := 0.0
		negated := false
		for j := i - 1; j >= 0 && j >= i-boosterWindow; j-- {
			if s.negators[tokens[j]] {
				negated = true
			}
			if b, ok := s.boosters[tokens[j]]; ok {
				boost += b
			}
		}

		if valence > 0 {
			valence += boost
		} else {
			valence -= boost
		}
		if negated {
			valence *= negationFactor
		}
		sum += valence
	}

	if sum == 0 {
		return domain.Polarity{Score: 0, Confidence: 1}, nil
	}

	score := sum / math.Sqrt(sum*sum+normalizationAlpha)
	return domain.Polarity{Score: score, Confidence: 1}, nil
}

// tokenize lowercases and splits on non-letter, non-digit, non-apostrophe
// runes. Deterministic by construction.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
