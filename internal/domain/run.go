package domain

import "time"

// Run represents one end-to-end execution of the document-analysis pipeline.
type Run struct {
	RunID      string    `json:"run_id"`
	DocID      string    `json:"doc_id"`
	AgentPath  AgentPath `json:"agent_path"`
	PlaybookID string    `json:"playbook_id,omitempty"`
	Status     RunStatus `json:"status"`
	Score      *float64  `json:"score,omitempty"` // 0-100, nil until scoring completes
	TokensIn   int64     `json:"tokens_in"`
	TokensOut  int64     `json:"tokens_out"`
	CostUSD    float64   `json:"cost_usd"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Step is one immutable trace entry. Steps are strictly ordered by Seq and
// never edited after being appended; corrections are recorded as new steps.
type Step struct {
	StepID     string       `json:"step_id"`
	RunID      string       `json:"run_id"`
	Seq        int64        `json:"seq"`
	StepName   string       `json:"step_name"`
	Agent      string       `json:"agent"`
	Status     StepStatus   `json:"status"`
	Input      string       `json:"input,omitempty"`
	Output     string       `json:"output,omitempty"`
	ClauseID   string       `json:"clause_id,omitempty"`
	DurationMs int64        `json:"duration_ms"`
	Ts         time.Time    `json:"ts"`
	Metadata   StepMetadata `json:"metadata"`
}

// StepMetadata captures per-step usage accounting.
type StepMetadata struct {
	TokensIn  int64   `json:"tokens_in,omitempty"`
	TokensOut int64   `json:"tokens_out,omitempty"`
	CostUSD   float64 `json:"cost_usd,omitempty"`
	Model     string  `json:"model,omitempty"`
	CacheHit  bool    `json:"cache_hit,omitempty"`
}

// ClauseAssessment is the risk classification for a single document clause,
// snapshotted at assessment time. Exactly one per clause_id per run.
type ClauseAssessment struct {
	RunID             string    `json:"run_id"`
	ClauseID          string    `json:"clause_id"`
	Heading           string    `json:"heading,omitempty"`
	Text              string    `json:"text"`
	RiskLevel         RiskLevel `json:"risk_level"`
	Rationale         string    `json:"rationale,omitempty"`
	PolicyRefs        []string  `json:"policy_refs,omitempty"`
	RecommendedAction string    `json:"recommended_action,omitempty"`
	ImpactAssessment  string    `json:"impact_assessment,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// RiskDecision is a human verdict over one clause assessment.
type RiskDecision struct {
	RunID     string    `json:"run_id"`
	ClauseID  string    `json:"clause_id"`
	Decision  Decision  `json:"decision"`
	Comments  string    `json:"comments,omitempty"`
	DecidedBy string    `json:"decided_by,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// Proposal is a redline proposal drafted for a clause.
type Proposal struct {
	RunID        string    `json:"run_id"`
	ClauseID     string    `json:"clause_id"`
	OriginalText string    `json:"original_text"`
	ProposedText string    `json:"proposed_text"`
	Rationale    string    `json:"rationale,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunSummary is the projection returned by listing endpoints.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	DocID      string    `json:"doc_id"`
	AgentPath  AgentPath `json:"agent_path"`
	PlaybookID string    `json:"playbook_id,omitempty"`
	Status     RunStatus `json:"status"`
	Score      *float64  `json:"score,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary projects a run into its listing form.
func (r *Run) Summary() RunSummary {
	return RunSummary{
		RunID:      r.RunID,
		DocID:      r.DocID,
		AgentPath:  r.AgentPath,
		PlaybookID: r.PlaybookID,
		Status:     r.Status,
		Score:      r.Score,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
