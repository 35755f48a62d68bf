package internalapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lexigraph/reviewd/internal/domain"
)

// writeError maps domain errors onto HTTP responses for the internal API.
func writeError(c echo.Context, err error) error {
	var unknownRun *domain.UnknownRunError
	if errors.As(err, &unknownRun) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}

	var immutable *domain.ImmutableTraceError
	if errors.As(err, &immutable) {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	var invalidState *domain.InvalidRunStateError
	if errors.As(err, &invalidState) {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
