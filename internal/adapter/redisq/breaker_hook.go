package redisq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// BreakerHook implements redis.Hook to add circuit breaker protection to all
// queue operations. When Redis is down the breaker fails fast instead of
// letting every pipeline run block on connection timeouts.
type BreakerHook struct {
	cb *gobreaker.CircuitBreaker
}

var _ redis.Hook = (*BreakerHook)(nil)

// NewBreakerHook creates a breaker that opens after 60% failures over at
// least 5 requests and probes again after 30 seconds.
func NewBreakerHook() *BreakerHook {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRate := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRate >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"component", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &BreakerHook{cb: cb}
}

// State exposes the breaker state for tests and health reporting.
func (h *BreakerHook) State() gobreaker.State {
	return h.cb.State()
}

// Counts exposes the rolling request counts.
func (h *BreakerHook) Counts() gobreaker.Counts {
	return h.cb.Counts()
}

func (h *BreakerHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := h.cb.Execute(func() (any, error) {
			return next(ctx, network, addr)
		})
		if err != nil {
			return nil, fmt.Errorf("redis dial failed: %w", err)
		}
		return conn.(net.Conn), nil
	}
}

func (h *BreakerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		var cmdErr error
		_, err := h.cb.Execute(func() (any, error) {
			cmdErr = next(ctx, cmd)
			if errors.Is(cmdErr, redis.Nil) {
				// Empty reply is a valid result, not a failure.
				return nil, nil
			}
			return nil, cmdErr
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return fmt.Errorf("redis circuit breaker open: %w", err)
			}
			return err
		}
		return cmdErr
	}
}

func (h *BreakerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		_, err := h.cb.Execute(func() (any, error) {
			return nil, next(ctx, cmds)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return fmt.Errorf("redis circuit breaker open: %w", err)
			}
			return err
		}
		return nil
	}
}
