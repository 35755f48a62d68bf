package internalapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lexigraph/reviewd/internal/domain"
)

// StartReview creates a run and kicks off the analysis pipeline.
// POST /internal/runs
func (h *Handler) StartReview(c echo.Context) error {
	var req domain.StartReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.DocID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "doc_id is required"})
	}
	if req.AgentPath != "" && !req.AgentPath.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown agent_path"})
	}

	run, err := h.service.StartReview(c.Request().Context(), req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, run)
}

// FailRun marks a non-terminal run as failed.
// POST /internal/runs/:run_id/fail
func (h *Handler) FailRun(c echo.Context) error {
	runID := c.Param("run_id")
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Reason == "" {
		req.Reason = "failed by operator"
	}

	if err := h.service.FailRun(c.Request().Context(), runID, req.Reason); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"status": domain.RunStatusFailed,
	})
}
