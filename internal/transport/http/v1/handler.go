// Package v1 provides the external HTTP handlers for the review engine.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lexigraph/reviewd/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers external routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Run queries
	e.GET("/v1/runs", h.ListRuns)
	e.GET("/v1/runs/pending-risk", h.ListPendingRiskRuns)
	e.GET("/v1/runs/:run_id", h.GetRun)
	e.GET("/v1/runs/:run_id/steps", h.GetRunSteps)
	e.GET("/v1/runs/:run_id/assessments", h.GetRunAssessments)
	e.GET("/v1/runs/:run_id/decisions", h.GetRunDecisions)
	e.GET("/v1/runs/:run_id/proposals", h.GetRunProposals)
	e.GET("/v1/runs/:run_id/replays", h.GetRunReplays)

	// Risk gate
	e.GET("/v1/runs/:run_id/decisions/defaults", h.GetDefaultDecisions)
	e.POST("/v1/runs/:run_id/decisions", h.SubmitDecisions)
	e.POST("/v1/runs/:run_id/decisions/approve-all", h.ApproveAll)
	e.POST("/v1/runs/:run_id/decisions/reject-all", h.RejectAll)
	e.POST("/v1/runs/:run_id/finalize", h.FinalizeRun)

	// Replay
	e.POST("/v1/runs/:run_id/replay", h.ReplayRun)
	e.POST("/v1/runs/:run_id/clauses/:clause_id/replay", h.ReplayClause)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
