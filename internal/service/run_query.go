package service

import (
	"context"
	"fmt"

	"github.com/lexigraph/reviewd/internal/domain"
)

// GetRun retrieves a run by id.
func (s *Service) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, &domain.UnknownRunError{RunID: runID}
	}
	return run, nil
}

// ListRuns lists run summaries matching the filter.
func (s *Service) ListRuns(ctx context.Context, filter domain.RunListFilter) ([]domain.RunSummary, error) {
	runs, err := s.store.ListRuns(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// ListPendingRiskRuns lists runs awaiting human risk approval.
func (s *Service) ListPendingRiskRuns(ctx context.Context) ([]domain.RunSummary, error) {
	return s.ListRuns(ctx, domain.RunListFilter{Status: domain.RunStatusAwaitingApproval})
}

// GetAssessments retrieves a run's clause assessments.
func (s *Service) GetAssessments(ctx context.Context, runID string) ([]domain.ClauseAssessment, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	assessments, err := s.store.GetAssessments(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessments: %w", err)
	}
	return assessments, nil
}

// GetDecisions retrieves a run's risk decisions.
func (s *Service) GetDecisions(ctx context.Context, runID string) ([]domain.RiskDecision, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	decisions, err := s.store.GetDecisions(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decisions: %w", err)
	}
	return decisions, nil
}

// GetProposals retrieves a run's redline proposals.
func (s *Service) GetProposals(ctx context.Context, runID string) ([]domain.Proposal, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	proposals, err := s.store.GetProposals(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get proposals: %w", err)
	}
	return proposals, nil
}

// GetReplayResults retrieves a run's persisted replay results.
func (s *Service) GetReplayResults(ctx context.Context, runID string) ([]domain.ReplayResult, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	results, err := s.store.ListReplayResults(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list replay results: %w", err)
	}
	return results, nil
}
