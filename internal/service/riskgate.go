package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/lexigraph/reviewd/internal/domain"
)

// SubmitDecisions submits a human verdict for every clause assessment on a
// run and transitions awaiting_risk_approval -> approved. The decision key
// set must equal the assessment key set exactly; partial or superfluous
// submissions are rejected without mutating anything. Approval is a one-time
// gate: re-submission after approval fails with AlreadyApproved rather than
// succeeding idempotently.
func (s *Service) SubmitDecisions(ctx context.Context, runID string, req domain.SubmitDecisionsRequest) error {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return &domain.UnknownRunError{RunID: runID}
	}

	switch run.Status {
	case domain.RunStatusAwaitingApproval:
		// proceed
	case domain.RunStatusApproved, domain.RunStatusFinalized:
		// A rival submission that committed before this read surfaces here as
		// AlreadyApproved; only a swap lost after this check is reported as
		// ConcurrentApprovalConflict. Once the calls have serialized the two
		// cases are indistinguishable server-side.
		return &domain.AlreadyApprovedError{RunID: runID, Status: run.Status}
	default:
		return &domain.InvalidRunStateError{RunID: runID, Status: run.Status, Want: domain.RunStatusAwaitingApproval}
	}

	assessments, err := s.store.GetAssessments(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get assessments: %w", err)
	}
	if err := checkCoverage(runID, assessments, req.Decisions); err != nil {
		return err
	}

	now := time.Now()
	decisions := make([]domain.RiskDecision, 0, len(req.Decisions))
	for _, d := range req.Decisions {
		if d.Decision != domain.DecisionApprove && d.Decision != domain.DecisionReject {
			return &domain.InvalidDecisionInputError{
				RunID: runID, ClauseID: d.ClauseID,
				Reason: fmt.Sprintf("unknown decision %q", d.Decision),
			}
		}
		decisions = append(decisions, domain.RiskDecision{
			RunID:     runID,
			ClauseID:  d.ClauseID,
			Decision:  d.Decision,
			Comments:  d.Comments,
			DecidedBy: req.DecidedBy,
			DecidedAt: now,
		})
	}

	swapped, err := s.store.ApproveWithDecisions(ctx, runID, decisions)
	if err != nil {
		return fmt.Errorf("failed to approve run: %w", err)
	}
	if !swapped {
		// Lost the status swap. Report what the run looks like now so the
		// caller can re-fetch and decide.
		current, err := s.store.GetRun(ctx, runID)
		if err != nil || current == nil {
			return &domain.ConcurrentApprovalConflictError{RunID: runID}
		}
		switch current.Status {
		case domain.RunStatusApproved, domain.RunStatusFinalized:
			return &domain.ConcurrentApprovalConflictError{RunID: runID, Status: current.Status}
		default:
			return &domain.InvalidRunStateError{RunID: runID, Status: current.Status, Want: domain.RunStatusAwaitingApproval}
		}
	}

	log.Printf("INFO: run %s approved with %d decisions", runID, len(decisions))
	return nil
}

// ApproveAll approves every clause on the run through the normal submission
// path, coverage check included.
func (s *Service) ApproveAll(ctx context.Context, runID string, req domain.BulkDecisionRequest) error {
	return s.bulkDecide(ctx, runID, domain.DecisionApprove, req)
}

// RejectAll rejects every clause on the run through the normal submission
// path, coverage check included.
func (s *Service) RejectAll(ctx context.Context, runID string, req domain.BulkDecisionRequest) error {
	return s.bulkDecide(ctx, runID, domain.DecisionReject, req)
}

func (s *Service) bulkDecide(ctx context.Context, runID string, decision domain.Decision, req domain.BulkDecisionRequest) error {
	assessments, err := s.store.GetAssessments(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get assessments: %w", err)
	}

	submit := domain.SubmitDecisionsRequest{DecidedBy: req.DecidedBy}
	for _, a := range assessments {
		submit.Decisions = append(submit.Decisions, domain.DecisionInput{
			ClauseID: a.ClauseID,
			Decision: decision,
			Comments: req.Comments,
		})
	}
	return s.SubmitDecisions(ctx, runID, submit)
}

// DefaultDecisions suggests a decision direction per clause from the policy
// engine. Advisory only: nothing is written and callers may override freely.
func (s *Service) DefaultDecisions(ctx context.Context, runID string) ([]domain.DecisionSuggestion, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, &domain.UnknownRunError{RunID: runID}
	}

	assessments, err := s.store.GetAssessments(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessments: %w", err)
	}

	var out []domain.DecisionSuggestion
	for _, a := range assessments {
		suggestion := domain.DecisionSuggestion{
			ClauseID:  a.ClauseID,
			RiskLevel: a.RiskLevel,
			Suggested: domain.DecisionApprove,
		}
		if s.policyEngine != nil {
			decision, reason, err := s.policyEngine.Evaluate(ctx, map[string]interface{}{
				"clause_id":  a.ClauseID,
				"risk_level": string(a.RiskLevel),
			})
			if err != nil {
				return nil, fmt.Errorf("policy evaluation failed: %w", err)
			}
			suggestion.Suggested = domain.Decision(decision)
			suggestion.Reason = reason
		} else if a.RiskLevel == domain.RiskHigh {
			suggestion.Suggested = domain.DecisionReject
		}
		out = append(out, suggestion)
	}
	return out, nil
}

// FinalizeRun moves an approved run to finalized.
func (s *Service) FinalizeRun(ctx context.Context, runID string) error {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return &domain.UnknownRunError{RunID: runID}
	}

	swapped, err := s.store.UpdateRunStatusCAS(ctx, runID, domain.RunStatusApproved, domain.RunStatusFinalized)
	if err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}
	if !swapped {
		current, err := s.store.GetRun(ctx, runID)
		if err != nil || current == nil {
			return &domain.UnknownRunError{RunID: runID}
		}
		return &domain.InvalidRunStateError{RunID: runID, Status: current.Status, Want: domain.RunStatusApproved}
	}
	return nil
}

// FailRun moves any non-terminal run to failed.
func (s *Service) FailRun(ctx context.Context, runID, reason string) error {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return &domain.UnknownRunError{RunID: runID}
	}

	moved, err := s.store.SetRunFailed(ctx, runID, reason)
	if err != nil {
		return fmt.Errorf("failed to fail run: %w", err)
	}
	if !moved {
		return &domain.InvalidRunStateError{RunID: runID, Status: run.Status, Want: domain.RunStatusProcessing}
	}
	return nil
}

// checkCoverage enforces the exact key-set invariant between decisions and
// assessments.
func checkCoverage(runID string, assessments []domain.ClauseAssessment, decisions []domain.DecisionInput) error {
	assessed := make(map[string]bool, len(assessments))
	for _, a := range assessments {
		assessed[a.ClauseID] = true
	}

	decided := make(map[string]bool, len(decisions))
	var extra []string
	for _, d := range decisions {
		if decided[d.ClauseID] {
			return &domain.InvalidDecisionInputError{
				RunID: runID, ClauseID: d.ClauseID, Reason: "duplicate decision",
			}
		}
		decided[d.ClauseID] = true
		if !assessed[d.ClauseID] {
			extra = append(extra, d.ClauseID)
		}
	}

	var missing []string
	for _, a := range assessments {
		if !decided[a.ClauseID] {
			missing = append(missing, a.ClauseID)
		}
	}

	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(missing)
		sort.Strings(extra)
		return &domain.IncompleteDecisionSetError{RunID: runID, Missing: missing, Extra: extra}
	}
	return nil
}
