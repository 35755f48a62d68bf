package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lexigraph/reviewd/internal/domain"
)

// writeError maps the engine's error taxonomy onto HTTP responses with
// enough structure for the caller to retry, refresh, or alert a human.
func writeError(c echo.Context, err error) error {
	var (
		unknownRun    *domain.UnknownRunError
		unknownClause *domain.UnknownClauseError
		immutable     *domain.ImmutableTraceError
		incomplete    *domain.IncompleteDecisionSetError
		approved      *domain.AlreadyApprovedError
		conflict      *domain.ConcurrentApprovalConflictError
		invalidState  *domain.InvalidRunStateError
		badDecision   *domain.InvalidDecisionInputError
		badAgentPath  *domain.InvalidAgentPathError
		backend       *domain.ReplayBackendError
		timeout       *domain.ReplayTimeoutError
	)

	switch {
	case errors.As(err, &unknownRun):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "unknown_run", "run_id": unknownRun.RunID,
		})
	case errors.As(err, &unknownClause):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "unknown_clause", "run_id": unknownClause.RunID, "clause_id": unknownClause.ClauseID,
		})
	case errors.As(err, &immutable):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "immutable_trace", "run_id": immutable.RunID, "status": immutable.Status,
		})
	case errors.As(err, &incomplete):
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "incomplete_decision_set",
			"run_id":  incomplete.RunID,
			"missing": incomplete.Missing,
			"extra":   incomplete.Extra,
		})
	case errors.As(err, &approved):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "already_approved", "run_id": approved.RunID, "status": approved.Status,
		})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "concurrent_approval_conflict", "run_id": conflict.RunID, "status": conflict.Status,
		})
	case errors.As(err, &invalidState):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "invalid_run_state", "run_id": invalidState.RunID, "status": invalidState.Status, "want": invalidState.Want,
		})
	case errors.As(err, &badDecision):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid_decision_input", "run_id": badDecision.RunID, "clause_id": badDecision.ClauseID, "detail": badDecision.Reason,
		})
	case errors.As(err, &badAgentPath):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid_agent_path", "agent_path": badAgentPath.AgentPath,
		})
	case errors.As(err, &backend):
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"error": "replay_backend_error", "run_id": backend.RunID, "detail": backend.Error(),
		})
	case errors.As(err, &timeout):
		return c.JSON(http.StatusGatewayTimeout, map[string]interface{}{
			"error": "replay_timeout", "run_id": timeout.RunID,
		})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
