package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shockwave22/StreamPulse/internal/domain"
	apperrors "github.com/shockwave22/StreamPulse/internal/errors"
)

const (
	dateLayout       = "2006-01-02"
	defaultRangeDays = 30
)

func (s *Server) handleListTitles(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.app.Titles()); err != nil {
		return fmt.Errorf("failed to write titles response: %w", err)
	}
	return nil
}

func (s *Server) handleListAggregates(c echo.Context) error {
	slug := c.Param("slug")

	source := c.QueryParam("source")
	if source == "" {
		return apperrors.ValidationError("source query parameter is required")
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		return err
	}

	aggregates, err := s.app.Aggregates(c.Request().Context(), slug, source, from, to)
	if err != nil {
		return err
	}
	if aggregates == nil {
		aggregates = []domain.DailyAggregate{}
	}

	if err := c.JSON(http.StatusOK, aggregates); err != nil {
		return fmt.Errorf("failed to write aggregates response: %w", err)
	}
	return nil
}

func (s *Server) handleAlignment(c echo.Context) error {
	slug := c.Param("slug")

	from, to, err := parseDateRange(c)
	if err != nil {
		return err
	}

	report, err := s.app.Compare(c.Request().Context(), slug, from, to)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, report); err != nil {
		return fmt.Errorf("failed to write alignment response: %w", err)
	}
	return nil
}

// parseDateRange reads from/to query params as calendar days. The range is
// half-open [from, to); defaults cover the trailing month up to today.
func parseDateRange(c echo.Context) (from, to time.Time, err error) {
	to = domain.Day(time.Now()).AddDate(0, 0, 1)
	if raw := c.QueryParam("to"); raw != "" {
		to, err = time.Parse(dateLayout, raw)
		if err != nil {
			return from, to, apperrors.ValidationError("invalid to date, want YYYY-MM-DD").
				WithField("to", raw)
		}
	}

	from = to.AddDate(0, 0, -defaultRangeDays)
	if raw := c.QueryParam("from"); raw != "" {
		from, err = time.Parse(dateLayout, raw)
		if err != nil {
			return from, to, apperrors.ValidationError("invalid from date, want YYYY-MM-DD").
				WithField("from", raw)
		}
	}

	if !from.Before(to) {
		return from, to, apperrors.ValidationError("from must be before to").
			WithField("from", from.Format(dateLayout)).
			WithField("to", to.Format(dateLayout))
	}
	return from, to, nil
}
