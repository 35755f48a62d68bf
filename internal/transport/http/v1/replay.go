package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lexigraph/reviewd/internal/domain"
)

// ReplayRun re-executes a run's full analysis with optional overrides and
// returns the result with a comparison against the original. The original
// run is never modified.
// POST /v1/runs/:run_id/replay
func (h *Handler) ReplayRun(c echo.Context) error {
	var req domain.ReplayRunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
	}

	result, err := h.service.ReplayRun(c.Request().Context(), c.Param("run_id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ReplayClause re-assesses a single clause, optionally with a modified prompt.
// POST /v1/runs/:run_id/clauses/:clause_id/replay
func (h *Handler) ReplayClause(c echo.Context) error {
	var req domain.ReplayClauseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
	}

	result, err := h.service.ReplayClause(c.Request().Context(), c.Param("run_id"), c.Param("clause_id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
