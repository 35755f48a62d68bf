package internalapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lexigraph/reviewd/internal/domain"
)

// AppendStep appends one step to a run's trace.
// POST /internal/runs/:run_id/steps
func (h *Handler) AppendStep(c echo.Context) error {
	runID := c.Param("run_id")
	var req domain.AppendStepRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.StepName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "step_name is required"})
	}

	step, err := h.service.AppendStep(c.Request().Context(), runID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, step)
}

// GetSteps returns a run's trace in sequence order.
// GET /internal/runs/:run_id/steps
func (h *Handler) GetSteps(c echo.Context) error {
	steps, err := h.service.GetSteps(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"steps": steps})
}
