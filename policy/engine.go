package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine that suggests default decision directions
// for the risk gate. Suggestions are advisory only; the gate never acts on
// them without an explicit human submission.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.risk_gate.decision"),
		rego.Module("risk_gate.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate suggests a default decision for one clause.
// Input should be a map with keys: clause_id, risk_level.
// Returns: decision (approve, reject), reason (optional), error.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "approve", "default", nil
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, "", nil
	}

	return "approve", "unexpected return type", nil
}

// DefaultPolicy is the default decision-direction policy: HIGH-risk clauses
// default toward reject, everything else toward approve.
const DefaultPolicy = `
package risk_gate

default decision = "approve"

decision = "reject" {
	input.risk_level == "HIGH"
}
`
