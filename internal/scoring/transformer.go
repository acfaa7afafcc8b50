package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/shockwave22/StreamPulse/internal/domain"
	apperrors "github.com/shockwave22/StreamPulse/internal/errors"
	"github.com/shockwave22/StreamPulse/internal/platform/retry"
)

const (
	transformerMaxAttempts       = 3
	transformerInitialBackoff    = 250 * time.Millisecond
	transformerRateLimitBackoff  = 2 * time.Second
	transformerBreakerOpenAfter  = 5
	transformerBreakerResetAfter = 30 * time.Second
)

// TransformerScorer scores text via a remote inference service. It holds
// loaded client state (HTTP client, circuit breaker, rate limiter) and can
// fail; the Runner handles fallback. Decoding is pinned deterministic
// server-side and inputs are truncated deterministically client-side, so
// scoring the same text twice yields the same result.
type TransformerScorer struct {
	url      string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	maxChars int
}

// NewTransformerScorer creates the inference client. ratePerSec caps request
// throughput; maxChars is the deterministic truncation limit.
func NewTransformerScorer(url string, timeout time.Duration, ratePerSec float64, maxChars int) *TransformerScorer {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "transformer-inference",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= transformerBreakerOpenAfter
		},
		Timeout: transformerBreakerResetAfter,
	})

	return &TransformerScorer{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), 1),
		breaker:  breaker,
		maxChars: maxChars,
	}
}

func (s *TransformerScorer) Model() domain.Model {
	return domain.ModelTransformer
}

// Score scores a single text. Batch callers should prefer ScoreBatch.
func (s *TransformerScorer) Score(ctx context.Context, text string) (domain.Polarity, error) {
	results, err := s.ScoreBatch(ctx, []string{text})
	if err != nil {
		return domain.Polarity{}, err
	}
	return results[0], nil
}

// Truncate cuts text to the configured rune limit. Truncation must be
// deterministic so re-scoring an over-long text yields the same score.
func (s *TransformerScorer) Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= s.maxChars {
		return text
	}
	return string(runes[:s.maxChars])
}

type inferenceRequest struct {
	Inputs     []string            `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
}

type inferenceParameters struct {
	Truncation  bool    `json:"truncation"`
	Temperature float64 `json:"temperature"`
}

type inferenceLabel struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ScoreBatch scores texts in one inference request. Either every text gets a
// polarity or the whole batch fails; per-item fallback is the Runner's job.
func (s *TransformerScorer) ScoreBatch(ctx context.Context, texts []string) ([]domain.Polarity, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	inputs := make([]string, len(texts))
	for i, text := range texts {
		inputs[i] = s.Truncate(text)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, apperrors.ScoringError("rate limiter wait interrupted", err)
	}

	policy := retry.Policy{
		MaxAttempts:      transformerMaxAttempts,
		InitialBackoff:   transformerInitialBackoff,
		RateLimitBackoff: transformerRateLimitBackoff,
	}

	labels, err := retry.Do(ctx, policy, classifyInferenceError, func() ([][]inferenceLabel, error) {
		result, err := s.breaker.Execute(func() (any, error) {
			return s.infer(ctx, inputs)
		})
		if err != nil {
			return nil, err
		}
		return result.([][]inferenceLabel), nil
	})
	if err != nil {
		return nil, apperrors.ScoringError("transformer inference failed", err).
			WithField("batch_size", len(texts))
	}

	if len(labels) != len(texts) {
		return nil, apperrors.ScoringError("inference returned wrong result count", nil).
			WithField("want", len(texts)).WithField("got", len(labels))
	}

	polarities := make([]domain.Polarity, len(labels))
	for i, candidates := range labels {
		polarities[i] = toPolarity(candidates)
	}
	return polarities, nil
}

func (s *TransformerScorer) infer(ctx context.Context, inputs []string) ([][]inferenceLabel, error) {
	body, err := json.Marshal(inferenceRequest{
		Inputs:     inputs,
		Parameters: inferenceParameters{Truncation: true, Temperature: 0},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &inferenceHTTPError{Status: resp.StatusCode, Body: string(payload)}
	}

	var labels [][]inferenceLabel
	if err := json.NewDecoder(resp.Body).Decode(&labels); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}
	return labels, nil
}

// toPolarity maps classifier labels onto the signed [-1, 1] scale: the best
// label's score signed by its direction, neutral pinned to zero.
func toPolarity(candidates []inferenceLabel) domain.Polarity {
	if len(candidates) == 0 {
		return domain.Polarity{Score: 0, Confidence: 0}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}

	switch strings.ToUpper(best.Label) {
	case "POSITIVE":
		return domain.Polarity{Score: best.Score, Confidence: best.Score}
	case "NEGATIVE":
		return domain.Polarity{Score: -best.Score, Confidence: best.Score}
	default:
		return domain.Polarity{Score: 0, Confidence: best.Score}
	}
}

type inferenceHTTPError struct {
	Status int
	Body   string
}

func (e *inferenceHTTPError) Error() string {
	return fmt.Sprintf("inference service returned %d: %s", e.Status, e.Body)
}

func classifyInferenceError(err error) retry.Action {
	var httpErr *inferenceHTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.Status == http.StatusTooManyRequests:
			return retry.After
		case httpErr.Status >= 500:
			return retry.Retry
		default:
			return retry.Stop
		}
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return retry.Stop
	}
	// Network-level errors are transient.
	return retry.Retry
}
