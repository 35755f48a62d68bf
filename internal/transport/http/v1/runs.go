package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lexigraph/reviewd/internal/domain"
)

// ListRuns lists run summaries.
// GET /v1/runs?status=&doc_id=&limit=
func (h *Handler) ListRuns(c echo.Context) error {
	filter := domain.RunListFilter{
		Status: domain.RunStatus(c.QueryParam("status")),
		DocID:  c.QueryParam("doc_id"),
		Limit:  100,
	}
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			filter.Limit = val
		}
	}

	runs, err := h.service.ListRuns(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"runs": runs})
}

// ListPendingRiskRuns lists runs awaiting risk approval.
// GET /v1/runs/pending-risk
func (h *Handler) ListPendingRiskRuns(c echo.Context) error {
	runs, err := h.service.ListPendingRiskRuns(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"runs": runs})
}

// GetRun retrieves a run by id.
// GET /v1/runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	run, err := h.service.GetRun(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

// GetRunSteps retrieves a run's trace.
// GET /v1/runs/:run_id/steps
func (h *Handler) GetRunSteps(c echo.Context) error {
	steps, err := h.service.GetSteps(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"steps": steps})
}

// GetRunAssessments retrieves a run's clause assessments.
// GET /v1/runs/:run_id/assessments
func (h *Handler) GetRunAssessments(c echo.Context) error {
	assessments, err := h.service.GetAssessments(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"assessments": assessments})
}

// GetRunDecisions retrieves a run's risk decisions.
// GET /v1/runs/:run_id/decisions
func (h *Handler) GetRunDecisions(c echo.Context) error {
	decisions, err := h.service.GetDecisions(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"decisions": decisions})
}

// GetRunProposals retrieves a run's redline proposals.
// GET /v1/runs/:run_id/proposals
func (h *Handler) GetRunProposals(c echo.Context) error {
	proposals, err := h.service.GetProposals(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"proposals": proposals})
}

// GetRunReplays lists a run's persisted replay results.
// GET /v1/runs/:run_id/replays
func (h *Handler) GetRunReplays(c echo.Context) error {
	replays, err := h.service.GetReplayResults(c.Request().Context(), c.Param("run_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"replays": replays})
}
