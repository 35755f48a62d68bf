package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lexigraph/reviewd/internal/domain"
)

// AppendStep appends one trace step to a run. The trace is the audit trail:
// entries are never reordered or edited, and a terminal run rejects appends
// with ImmutableTrace. Corrections must be recorded as new steps.
func (s *Service) AppendStep(ctx context.Context, runID string, req domain.AppendStepRequest) (*domain.Step, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, &domain.UnknownRunError{RunID: runID}
	}
	if run.Status.IsTerminal() {
		return nil, &domain.ImmutableTraceError{RunID: runID, Status: run.Status}
	}

	step := &domain.Step{
		StepID:     "stp_" + uuid.New().String()[:8],
		RunID:      runID,
		StepName:   req.StepName,
		Agent:      req.Agent,
		Status:     req.Status,
		Input:      req.Input,
		Output:     req.Output,
		ClauseID:   req.ClauseID,
		DurationMs: req.DurationMs,
		Ts:         time.Now(),
		Metadata:   req.Metadata,
	}
	if err := s.store.AppendStep(ctx, step); err != nil {
		return nil, fmt.Errorf("failed to append step: %w", err)
	}

	if req.Metadata.TokensIn != 0 || req.Metadata.TokensOut != 0 || req.Metadata.CostUSD != 0 {
		if err := s.store.AddRunCost(ctx, runID, req.Metadata.TokensIn, req.Metadata.TokensOut, req.Metadata.CostUSD); err != nil {
			return nil, fmt.Errorf("failed to update cost ledger: %w", err)
		}
	}
	return step, nil
}

// GetSteps retrieves a run's trace in append order.
func (s *Service) GetSteps(ctx context.Context, runID string) ([]domain.Step, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, &domain.UnknownRunError{RunID: runID}
	}
	steps, err := s.store.GetSteps(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}
	return steps, nil
}
