package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lexigraph/reviewd/internal/domain"
)

// Simulated is a deterministic in-process backend. It exists as an explicit,
// configured mode for development and tests; it is never used as a silent
// fallback when the real backend fails, and every result it produces is
// labeled with its mode.
type Simulated struct{}

// NewSimulated creates a new simulated analysis backend.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// Ensure Simulated implements Backend.
var _ Backend = (*Simulated)(nil)

// Mode identifies results produced by this backend.
func (s *Simulated) Mode() string { return ModeSimulated }

// Classify splits the document into clauses on blank lines and assigns risk
// by keyword heuristics. Deterministic for a given document.
func (s *Simulated) Classify(ctx context.Context, doc Document, policy PolicyContext) (*ClassifyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chunks := splitClauses(doc.Text)
	result := &ClassifyResult{}
	var totalIn, totalOut int64
	for i, chunk := range chunks {
		clauseID := fmt.Sprintf("clause_%d", i+1)
		heading, body := splitHeading(chunk)
		level := classifyText(body)
		result.Assessments = append(result.Assessments, domain.ClauseAssessment{
			ClauseID:   clauseID,
			Heading:    heading,
			Text:       body,
			RiskLevel:  level,
			Rationale:  fmt.Sprintf("keyword heuristic classified this clause as %s", level),
			PolicyRefs: matchPolicyRefs(body, policy),
			CreatedAt:  time.Now(),
		})
		totalIn += int64(len(chunk)) / 4
		totalOut += 40
	}
	result.Usage = simulatedUsage(totalIn, totalOut)
	return result, nil
}

// AssessClause classifies one clause. A prompt containing an explicit target
// level ("treat as MEDIUM") wins over the heuristic, which keeps replay
// experiments reproducible.
func (s *Simulated) AssessClause(ctx context.Context, clauseText, prompt string, policy PolicyContext) (*AssessResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	level := classifyText(clauseText)
	if forced, ok := promptedLevel(prompt); ok {
		level = forced
	}
	usage := simulatedUsage(int64(len(clauseText)+len(prompt))/4, 40)
	return &AssessResult{
		Assessment: domain.ClauseAssessment{
			Text:      clauseText,
			RiskLevel: level,
			Rationale: fmt.Sprintf("keyword heuristic classified this clause as %s", level),
			CreatedAt: time.Now(),
		},
		Usage: usage,
	}, nil
}

// DraftProposal produces a deterministic softened rewrite.
func (s *Simulated) DraftProposal(ctx context.Context, assessment domain.ClauseAssessment) (*ProposalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proposed := "Each party's liability under this clause is mutual and capped at fees paid in the preceding 12 months. " + assessment.Text
	return &ProposalResult{
		Proposal: domain.Proposal{
			ClauseID:     assessment.ClauseID,
			OriginalText: assessment.Text,
			ProposedText: proposed,
			Rationale:    "softened unilateral obligations and added a liability cap",
			CreatedAt:    time.Now(),
		},
		Usage: simulatedUsage(int64(len(assessment.Text))/4, int64(len(proposed))/4),
	}, nil
}

func splitClauses(text string) []string {
	var out []string
	for _, chunk := range strings.Split(text, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	if len(out) == 0 && strings.TrimSpace(text) != "" {
		out = append(out, strings.TrimSpace(text))
	}
	return out
}

func splitHeading(chunk string) (heading, body string) {
	lines := strings.SplitN(chunk, "\n", 2)
	if len(lines) == 2 && len(lines[0]) < 80 {
		return strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1])
	}
	return "", chunk
}

var highRiskTerms = []string{"indemnif", "unlimited liability", "liquidated damages", "terminate for convenience", "exclusive remedy"}
var mediumRiskTerms = []string{"liability", "warranty", "termination", "auto-renew", "assignment", "governing law"}

func classifyText(text string) domain.RiskLevel {
	lower := strings.ToLower(text)
	for _, term := range highRiskTerms {
		if strings.Contains(lower, term) {
			return domain.RiskHigh
		}
	}
	for _, term := range mediumRiskTerms {
		if strings.Contains(lower, term) {
			return domain.RiskMedium
		}
	}
	return domain.RiskLow
}

func promptedLevel(prompt string) (domain.RiskLevel, bool) {
	upper := strings.ToUpper(prompt)
	for _, level := range []domain.RiskLevel{domain.RiskHigh, domain.RiskMedium, domain.RiskLow} {
		if strings.Contains(upper, "TREAT AS "+string(level)) {
			return level, true
		}
	}
	return "", false
}

func matchPolicyRefs(text string, policy PolicyContext) []string {
	var refs []string
	lower := strings.ToLower(text)
	for _, rule := range policy.Rules {
		if rule.Title != "" && strings.Contains(lower, strings.ToLower(rule.Title)) {
			refs = append(refs, rule.ID)
		}
	}
	return refs
}

func simulatedUsage(tokensIn, tokensOut int64) Usage {
	return Usage{
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		CostUSD:   float64(tokensIn+tokensOut) * 0.000002,
		Model:     "simulated-classifier",
	}
}
