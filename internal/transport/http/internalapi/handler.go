// Package internalapi provides HTTP handlers for internal APIs.
// These APIs are only accessible to trusted pipeline components.
package internalapi

import (
	"github.com/labstack/echo/v4"
	"github.com/lexigraph/reviewd/internal/service"
)

// Handler handles internal HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new internal API handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers internal routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Run management
	e.POST("/internal/runs", h.StartReview)
	e.POST("/internal/runs/:run_id/fail", h.FailRun)

	// Trace recording
	e.POST("/internal/runs/:run_id/steps", h.AppendStep)
	e.GET("/internal/runs/:run_id/steps", h.GetSteps)
}
