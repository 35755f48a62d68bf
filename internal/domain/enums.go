// Package domain defines the core domain models for the review engine.
package domain

// RunStatus represents the status of a review run.
type RunStatus string

const (
	RunStatusProcessing       RunStatus = "processing"
	RunStatusAwaitingApproval RunStatus = "awaiting_risk_approval"
	RunStatusApproved         RunStatus = "approved"
	RunStatusFinalized        RunStatus = "finalized"
	RunStatusFailed           RunStatus = "failed"
)

// IsTerminal reports whether no further mutation of the run is permitted.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusFinalized || s == RunStatusFailed
}

// AgentPath is the closed set of pipeline variants a run can execute under.
type AgentPath string

const (
	AgentPathManagerWorker   AgentPath = "manager_worker"
	AgentPathPlannerExecutor AgentPath = "planner_executor"
	AgentPathReviewerReferee AgentPath = "reviewer_referee"
)

// Valid reports whether p is one of the known pipeline variants.
func (p AgentPath) Valid() bool {
	switch p {
	case AgentPathManagerWorker, AgentPathPlannerExecutor, AgentPathReviewerReferee:
		return true
	}
	return false
}

// RiskLevel classifies a clause assessment.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
)

// Ordinal maps risk levels onto a fixed scale (LOW=0, MEDIUM=1, HIGH=2) so
// that a larger value always means more risk. Unknown levels return -1.
func (r RiskLevel) Ordinal() int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	}
	return -1
}

// StepStatus represents the status of a trace step.
type StepStatus string

const (
	StepStatusRunning   StepStatus = "running"
	StepStatusSucceeded StepStatus = "succeeded"
	StepStatusFailed    StepStatus = "failed"
)

// Decision is a human verdict over a single clause assessment.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ReplayScope distinguishes whole-run replays from single-clause replays.
type ReplayScope string

const (
	ReplayScopeRun    ReplayScope = "run"
	ReplayScopeClause ReplayScope = "clause"
)

// RiskDirection describes how a replayed clause's risk moved relative to the
// original assessment.
type RiskDirection string

const (
	RiskDirectionUp      RiskDirection = "up"
	RiskDirectionDown    RiskDirection = "down"
	RiskDirectionNone    RiskDirection = "none"
	RiskDirectionUnknown RiskDirection = "unknown"
)
