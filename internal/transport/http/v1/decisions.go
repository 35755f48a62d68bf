package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lexigraph/reviewd/internal/domain"
)

// SubmitDecisions records the full decision set for a run awaiting risk
// approval. The set must cover every flagged clause exactly once.
// POST /v1/runs/:run_id/decisions
func (h *Handler) SubmitDecisions(c echo.Context) error {
	var req domain.SubmitDecisionsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
	}
	if len(req.Decisions) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "decisions are required"})
	}

	runID := c.Param("run_id")
	if err := h.service.SubmitDecisions(c.Request().Context(), runID, req); err != nil {
		return writeError(c, err)
	}
	return h.respondRun(c, runID)
}

// ApproveAll approves every flagged clause with a single comment.
// POST /v1/runs/:run_id/decisions/approve-all
func (h *Handler) ApproveAll(c echo.Context) error {
	var req domain.BulkDecisionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
	}

	runID := c.Param("run_id")
	if err := h.service.ApproveAll(c.Request().Context(), runID, req); err != nil {
		return writeError(c, err)
	}
	return h.respondRun(c, runID)
}

// RejectAll rejects every flagged clause with a single comment.
// POST /v1/runs/:run_id/decisions/reject-all
func (h *Handler) RejectAll(c echo.Context) error {
	var req domain.BulkDecisionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "invalid request body"})
	}

	runID := c.Param("run_id")
	if err := h.service.RejectAll(c.Request().Context(), runID, req); err != nil {
		return writeError(c, err)
	}
	return h.respondRun(c, runID)
}

// GetDefaultDecisions returns policy-suggested decisions for each flagged
// clause. Suggestions are advisory; nothing is persisted.
// GET /v1/runs/:run_id/decisions/defaults
func (h *Handler) GetDefaultDecisions(c echo.Context) error {
	suggestions, err := h.service.DefaultDecisions(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

// FinalizeRun moves an approved run to its terminal state.
// POST /v1/runs/:run_id/finalize
func (h *Handler) FinalizeRun(c echo.Context) error {
	runID := c.Param("run_id")
	if err := h.service.FinalizeRun(c.Request().Context(), runID); err != nil {
		return writeError(c, err)
	}
	return h.respondRun(c, runID)
}

func (h *Handler) respondRun(c echo.Context, runID string) error {
	run, err := h.service.GetRun(c.Request().Context(), runID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}
