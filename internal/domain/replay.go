package domain

import "time"

// RunMetrics is a metric snapshot of a run or a replay. Pointer fields are
// nil when the value is unknown; a nil never means zero.
type RunMetrics struct {
	Score      *float64          `json:"score,omitempty"`
	DurationMs *int64            `json:"duration_ms,omitempty"`
	RiskCounts map[RiskLevel]int `json:"risk_counts,omitempty"`
	CostUSD    *float64          `json:"cost_usd,omitempty"`
}

// ClauseMetrics is the per-clause slice of the cost ledger used by clause
// comparisons.
type ClauseMetrics struct {
	CostUSD    *float64 `json:"cost_usd,omitempty"`
	DurationMs *int64   `json:"duration_ms,omitempty"`
}

// MetricsDelta is replay minus original. Nil deltas mean one side was
// unknown, deliberately distinct from "no change".
type MetricsDelta struct {
	ScoreDelta     *float64          `json:"score_delta,omitempty"`
	DurationDelta  *int64            `json:"duration_delta,omitempty"`
	RiskCountDelta map[RiskLevel]int `json:"risk_count_delta,omitempty"`
	CostDelta      *float64          `json:"cost_delta,omitempty"`
}

// ClauseDelta compares one clause's replay assessment against the original.
type ClauseDelta struct {
	ClauseID          string        `json:"clause_id"`
	RiskLevelChanged  bool          `json:"risk_level_changed"`
	RiskLevelDir      RiskDirection `json:"risk_level_direction"`
	TextChanged       bool          `json:"text_changed"`
	CostDelta         *float64      `json:"cost_delta,omitempty"`
	DurationDelta     *int64        `json:"duration_delta,omitempty"`
	OriginalRiskLevel RiskLevel     `json:"original_risk_level,omitempty"`
	ReplayRiskLevel   RiskLevel     `json:"replay_risk_level,omitempty"`
}

// Comparison is the full run-vs-replay difference report. Clauses present on
// only one side are listed rather than compared numerically.
type Comparison struct {
	Metrics           MetricsDelta  `json:"metrics"`
	Clauses           []ClauseDelta `json:"clauses,omitempty"`
	PresentInOriginal []string      `json:"present_in_original,omitempty"`
	PresentInReplay   []string      `json:"present_in_replay,omitempty"`
}

// ReplayOverrides carries the configuration substituted during a replay.
// Unset fields fall back to the original run's values.
type ReplayOverrides struct {
	AgentPath  AgentPath `json:"agent_path,omitempty"`
	PlaybookID string    `json:"playbook_id,omitempty"`
	Prompt     string    `json:"prompt,omitempty"` // clause-scope only
}

// ReplayResult is the outcome of re-executing a run or a single clause. It
// references the original run but never belongs to it; the original is
// untouched by construction.
type ReplayResult struct {
	ReplayID    string             `json:"replay_id"`
	RunID       string             `json:"run_id"`
	Scope       ReplayScope        `json:"scope"`
	ClauseID    string             `json:"clause_id,omitempty"`
	Overrides   ReplayOverrides    `json:"overrides"`
	BackendMode string             `json:"backend_mode"`
	Metrics     RunMetrics         `json:"metrics"`
	Assessments []ClauseAssessment `json:"assessments,omitempty"`
	Comparison  Comparison         `json:"comparison"`
	// CostRegressionWarning is set when replay cost exceeded the original by
	// more than the configured threshold. A warning, never an error.
	CostRegressionWarning string    `json:"cost_regression_warning,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}
