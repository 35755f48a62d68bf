package domain

import "fmt"

// UnknownRunError reports an operation against a run id that does not exist.
type UnknownRunError struct {
	RunID string
}

func (e *UnknownRunError) Error() string {
	return fmt.Sprintf("unknown run %q", e.RunID)
}

// UnknownClauseError reports a clause id not present in the run's assessments.
type UnknownClauseError struct {
	RunID    string
	ClauseID string
}

func (e *UnknownClauseError) Error() string {
	return fmt.Sprintf("unknown clause %q in run %q", e.ClauseID, e.RunID)
}

// ImmutableTraceError reports an append attempted against a terminal run.
type ImmutableTraceError struct {
	RunID  string
	Status RunStatus
}

func (e *ImmutableTraceError) Error() string {
	return fmt.Sprintf("trace of run %q is immutable: run is %s", e.RunID, e.Status)
}

// IncompleteDecisionSetError reports a decision submission whose key set does
// not exactly equal the run's clause-assessment key set.
type IncompleteDecisionSetError struct {
	RunID   string
	Missing []string // assessed clauses with no decision
	Extra   []string // decisions for clauses the run never assessed
}

func (e *IncompleteDecisionSetError) Error() string {
	return fmt.Sprintf("incomplete decision set for run %q: %d missing, %d extra",
		e.RunID, len(e.Missing), len(e.Extra))
}

// AlreadyApprovedError reports a repeated submission after the one-time
// approval gate has passed. Deliberately not an idempotent success.
type AlreadyApprovedError struct {
	RunID  string
	Status RunStatus
}

func (e *AlreadyApprovedError) Error() string {
	return fmt.Sprintf("run %q already approved (status %s)", e.RunID, e.Status)
}

// ConcurrentApprovalConflictError reports losing the status compare-and-swap
// to a concurrent submission. Callers should re-fetch state.
type ConcurrentApprovalConflictError struct {
	RunID  string
	Status RunStatus // status observed after losing the swap
}

func (e *ConcurrentApprovalConflictError) Error() string {
	return fmt.Sprintf("concurrent approval conflict on run %q (now %s)", e.RunID, e.Status)
}

// InvalidRunStateError reports a gate operation against a run whose status
// does not permit it, e.g. submitting decisions while still processing.
type InvalidRunStateError struct {
	RunID  string
	Status RunStatus
	Want   RunStatus
}

func (e *InvalidRunStateError) Error() string {
	return fmt.Sprintf("run %q is %s, want %s", e.RunID, e.Status, e.Want)
}

// InvalidDecisionInputError reports a malformed decision submission, rejected
// before any state is written.
type InvalidDecisionInputError struct {
	RunID    string
	ClauseID string
	Reason   string
}

func (e *InvalidDecisionInputError) Error() string {
	return fmt.Sprintf("invalid decision input for run %q, clause %q: %s", e.RunID, e.ClauseID, e.Reason)
}

// InvalidAgentPathError reports an agent path outside the closed set.
type InvalidAgentPathError struct {
	AgentPath AgentPath
}

func (e *InvalidAgentPathError) Error() string {
	return fmt.Sprintf("unknown agent path %q", e.AgentPath)
}

// ReplayBackendError reports a failed analysis-backend call during replay.
// The original run is left untouched; no partial result is persisted.
type ReplayBackendError struct {
	RunID string
	Cause error
}

func (e *ReplayBackendError) Error() string {
	return fmt.Sprintf("replay backend call failed for run %q: %v", e.RunID, e.Cause)
}

func (e *ReplayBackendError) Unwrap() error { return e.Cause }

// ReplayTimeoutError reports an in-flight replay cancelled by deadline.
type ReplayTimeoutError struct {
	RunID string
}

func (e *ReplayTimeoutError) Error() string {
	return fmt.Sprintf("replay of run %q timed out", e.RunID)
}
