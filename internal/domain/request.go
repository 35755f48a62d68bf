package domain

// StartReviewRequest begins a new analysis run over a document.
type StartReviewRequest struct {
	DocID      string    `json:"doc_id"`
	AgentPath  AgentPath `json:"agent_path"`
	PlaybookID string    `json:"playbook_id,omitempty"`
}

// AppendStepRequest records one trace step from the pipeline driver.
type AppendStepRequest struct {
	StepName   string       `json:"step_name"`
	Agent      string       `json:"agent"`
	Status     StepStatus   `json:"status"`
	Input      string       `json:"input,omitempty"`
	Output     string       `json:"output,omitempty"`
	ClauseID   string       `json:"clause_id,omitempty"`
	DurationMs int64        `json:"duration_ms,omitempty"`
	Metadata   StepMetadata `json:"metadata"`
}

// DecisionInput is one clause verdict inside a submission.
type DecisionInput struct {
	ClauseID string   `json:"clause_id"`
	Decision Decision `json:"decision"`
	Comments string   `json:"comments,omitempty"`
}

// SubmitDecisionsRequest carries a full decision set for a run.
type SubmitDecisionsRequest struct {
	Decisions []DecisionInput `json:"decisions"`
	DecidedBy string          `json:"decided_by,omitempty"`
}

// BulkDecisionRequest backs the approve-all / reject-all helpers.
type BulkDecisionRequest struct {
	Comments  string `json:"comments,omitempty"`
	DecidedBy string `json:"decided_by,omitempty"`
}

// ReplayRunRequest re-executes a whole run with overridden configuration.
type ReplayRunRequest struct {
	AgentPath  AgentPath `json:"agent_path,omitempty"`
	PlaybookID string    `json:"playbook_id,omitempty"`
}

// ReplayClauseRequest re-executes a single clause assessment.
type ReplayClauseRequest struct {
	Prompt string `json:"prompt,omitempty"`
}

// RunListFilter narrows run listings.
type RunListFilter struct {
	Status RunStatus `json:"status,omitempty"`
	DocID  string    `json:"doc_id,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// DecisionSuggestion is the advisory default direction for one clause.
type DecisionSuggestion struct {
	ClauseID  string    `json:"clause_id"`
	RiskLevel RiskLevel `json:"risk_level"`
	Suggested Decision  `json:"suggested"`
	Reason    string    `json:"reason,omitempty"`
}
