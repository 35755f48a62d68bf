// Package analysis provides an abstraction over the external analysis
// backend that produces clause assessments and redline drafts.
package analysis

import (
	"context"

	"github.com/lexigraph/reviewd/internal/domain"
)

// Backend defines the interface for analysis backend operations. Calls may be
// slow or fail; the engine does not retry internally, callers own that.
type Backend interface {
	// Mode identifies which backend produced a result ("remote", "simulated").
	Mode() string

	// Classify runs clause extraction + risk classification over a document.
	Classify(ctx context.Context, doc Document, policy PolicyContext) (*ClassifyResult, error)

	// AssessClause re-assesses a single clause, optionally under a custom prompt.
	AssessClause(ctx context.Context, clauseText, prompt string, policy PolicyContext) (*AssessResult, error)

	// DraftProposal drafts a redline proposal for an assessed clause.
	DraftProposal(ctx context.Context, assessment domain.ClauseAssessment) (*ProposalResult, error)
}

// Document is the raw text handed to the backend.
type Document struct {
	DocID string `json:"doc_id"`
	Text  string `json:"text"`
}

// PolicyContext carries the playbook rules consulted during analysis.
type PolicyContext struct {
	PlaybookID string       `json:"playbook_id,omitempty"`
	Rules      []PolicyRule `json:"rules,omitempty"`
}

// PolicyRule is one playbook rule in backend-facing form.
type PolicyRule struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Guidance    string `json:"guidance,omitempty"`
	DefaultRisk string `json:"default_risk,omitempty"`
}

// Usage is the per-call cost accounting reported by the backend.
type Usage struct {
	TokensIn  int64   `json:"tokens_in"`
	TokensOut int64   `json:"tokens_out"`
	CostUSD   float64 `json:"cost_usd"`
	Model     string  `json:"model,omitempty"`
	CacheHit  bool    `json:"cache_hit,omitempty"`
}

// ClassifyResult is the full-document classification output.
type ClassifyResult struct {
	Assessments []domain.ClauseAssessment `json:"assessments"`
	Usage       Usage                     `json:"usage"`
}

// AssessResult is a single-clause assessment output.
type AssessResult struct {
	Assessment domain.ClauseAssessment `json:"assessment"`
	Usage      Usage                   `json:"usage"`
}

// ProposalResult is a drafted redline proposal.
type ProposalResult struct {
	Proposal domain.Proposal `json:"proposal"`
	Usage    Usage           `json:"usage"`
}
