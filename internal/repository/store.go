// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/lexigraph/reviewd/internal/domain"
)

// Store defines the interface for data persistence. Runs are never deleted,
// steps are append-only, and status transitions go through compare-and-swap.
type Store interface {
	// Run operations
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	ListRuns(ctx context.Context, filter domain.RunListFilter) ([]domain.RunSummary, error)
	// UpdateRunStatusCAS transitions status from -> to and reports whether the
	// swap won. A false return with nil error means the run was not in `from`.
	UpdateRunStatusCAS(ctx context.Context, runID string, from, to domain.RunStatus) (bool, error)
	SetRunScore(ctx context.Context, runID string, score float64) error
	SetRunFailed(ctx context.Context, runID string, reason string) (bool, error)
	AddRunCost(ctx context.Context, runID string, tokensIn, tokensOut int64, costUSD float64) error

	// Trace operations. AppendStep assigns the next per-run sequence number.
	AppendStep(ctx context.Context, step *domain.Step) error
	GetSteps(ctx context.Context, runID string) ([]domain.Step, error)

	// Assessment operations
	UpsertAssessment(ctx context.Context, a *domain.ClauseAssessment) error
	GetAssessments(ctx context.Context, runID string) ([]domain.ClauseAssessment, error)
	GetAssessment(ctx context.Context, runID, clauseID string) (*domain.ClauseAssessment, error)

	// Decision operations. ApproveWithDecisions atomically replaces the run's
	// decision set and swaps awaiting_risk_approval -> approved; it reports
	// whether the swap won.
	ApproveWithDecisions(ctx context.Context, runID string, decisions []domain.RiskDecision) (bool, error)
	GetDecisions(ctx context.Context, runID string) ([]domain.RiskDecision, error)

	// Proposal operations
	UpsertProposal(ctx context.Context, p *domain.Proposal) error
	GetProposals(ctx context.Context, runID string) ([]domain.Proposal, error)

	// Replay results (audit trail; never merged back into the run)
	SaveReplayResult(ctx context.Context, r *domain.ReplayResult) error
	GetReplayResult(ctx context.Context, replayID string) (*domain.ReplayResult, error)
	ListReplayResults(ctx context.Context, runID string) ([]domain.ReplayResult, error)

	// Lifecycle
	Close() error
}
