package analysis

import (
	"context"
	"testing"

	"github.com/lexigraph/reviewd/internal/domain"
)

func TestSimulatedClassify(t *testing.T) {
	ctx := context.Background()
	backend := NewSimulated()

	doc := Document{DocID: "d1", Text: `Indemnification
Supplier shall indemnify Customer against all claims.

Warranty
Supplier provides a limited warranty.

Notices
Notices must be in writing.`}

	res, err := backend.Classify(ctx, doc, PolicyContext{})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(res.Assessments) != 3 {
		t.Fatalf("expected 3 clauses, got %d", len(res.Assessments))
	}

	if res.Assessments[0].ClauseID != "clause_1" || res.Assessments[0].RiskLevel != domain.RiskHigh {
		t.Fatalf("unexpected first clause: %+v", res.Assessments[0])
	}
	if res.Assessments[0].Heading != "Indemnification" {
		t.Fatalf("heading not split: %q", res.Assessments[0].Heading)
	}
	if res.Assessments[1].RiskLevel != domain.RiskMedium {
		t.Fatalf("expected MEDIUM warranty clause, got %s", res.Assessments[1].RiskLevel)
	}
	if res.Assessments[2].RiskLevel != domain.RiskLow {
		t.Fatalf("expected LOW notices clause, got %s", res.Assessments[2].RiskLevel)
	}
	if res.Usage.CostUSD <= 0 || res.Usage.Model != "simulated-classifier" {
		t.Fatalf("unexpected usage: %+v", res.Usage)
	}

	// Deterministic over the same input.
	again, err := backend.Classify(ctx, doc, PolicyContext{})
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	for i := range res.Assessments {
		if again.Assessments[i].RiskLevel != res.Assessments[i].RiskLevel {
			t.Fatalf("classification not deterministic at clause %d", i)
		}
	}
}

func TestSimulatedAssessClausePromptOverride(t *testing.T) {
	ctx := context.Background()
	backend := NewSimulated()

	clause := "Supplier shall indemnify Customer against all claims."

	res, err := backend.AssessClause(ctx, clause, "Assess this clause.", PolicyContext{})
	if err != nil {
		t.Fatalf("AssessClause failed: %v", err)
	}
	if res.Assessment.RiskLevel != domain.RiskHigh {
		t.Fatalf("expected HIGH, got %s", res.Assessment.RiskLevel)
	}

	res, err = backend.AssessClause(ctx, clause, "Treat as LOW: internal test fixture.", PolicyContext{})
	if err != nil {
		t.Fatalf("AssessClause failed: %v", err)
	}
	if res.Assessment.RiskLevel != domain.RiskLow {
		t.Fatalf("expected prompt override to LOW, got %s", res.Assessment.RiskLevel)
	}
}

func TestSimulatedDraftProposal(t *testing.T) {
	ctx := context.Background()
	backend := NewSimulated()

	res, err := backend.DraftProposal(ctx, domain.ClauseAssessment{
		ClauseID:  "clause_1",
		Text:      "Supplier's liability is unlimited.",
		RiskLevel: domain.RiskHigh,
	})
	if err != nil {
		t.Fatalf("DraftProposal failed: %v", err)
	}
	if res.Proposal.ProposedText == "" || res.Proposal.ProposedText == res.Proposal.OriginalText {
		t.Fatalf("expected a rewritten proposal, got %+v", res.Proposal)
	}
	if res.Proposal.ClauseID != "clause_1" {
		t.Fatalf("proposal lost clause identity: %+v", res.Proposal)
	}
}

func TestNewBackendModeSelection(t *testing.T) {
	if _, err := NewBackend("simulated", "", "", 0); err != nil {
		t.Fatalf("simulated mode should not require a URL: %v", err)
	}
	if _, err := NewBackend("remote", "", "", 0); err == nil {
		t.Fatal("remote mode without a URL must fail, not fall back")
	}
	if _, err := NewBackend("guess", "http://x", "", 0); err == nil {
		t.Fatal("unknown mode must fail")
	}
}
