package errors

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// Middleware returns an Echo middleware that handles structured errors.
// It catches errors returned by handlers, converts them to JSON responses,
// and counts them on the given counter (labeled by error type). A nil counter
// disables metrics.
func Middleware(errorsTotal *prometheus.CounterVec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			// Echo HTTPErrors (e.g. 404 for unknown routes) pass through
			// unchanged to preserve their status code.
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			structuredErr := AsStructuredError(err)

			if errorsTotal != nil {
				errorsTotal.WithLabelValues(string(structuredErr.Type)).Inc()
			}

			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func logError(c echo.Context, err *Error) {
	attrs := []any{
		"type", string(err.Type),
		"message", err.Message,
		"method", c.Request().Method,
		"uri", c.Request().RequestURI,
	}
	if err.Cause != nil {
		attrs = append(attrs, "cause", err.Cause.Error())
	}
	for key, value := range err.Context {
		attrs = append(attrs, key, value)
	}

	switch err.Type {
	case TypeInternal, TypeExternal:
		slog.ErrorContext(c.Request().Context(), "Request failed", attrs...)
	default:
		slog.WarnContext(c.Request().Context(), "Request rejected", attrs...)
	}
}
