package store

import (
	"context"
	"testing"
	"time"

	"github.com/lexigraph/reviewd/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func seedRun(t *testing.T, ctx context.Context, s *SQLiteStore, runID string, status domain.RunStatus) {
	t.Helper()
	now := time.Now()
	err := s.CreateRun(ctx, &domain.Run{
		RunID:     runID,
		DocID:     "doc_" + runID,
		AgentPath: domain.AgentPathManagerWorker,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
}

func TestSQLiteStoreRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedRun(t, ctx, store, "r1", domain.RunStatusProcessing)

	got, err := store.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.DocID != "doc_r1" || got.Status != domain.RunStatusProcessing {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.Score != nil {
		t.Fatalf("expected nil score before scoring, got %v", *got.Score)
	}

	missing, err := store.GetRun(ctx, "nope")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown run, got %+v", missing)
	}

	if err := store.SetRunScore(ctx, "r1", 73); err != nil {
		t.Fatalf("SetRunScore failed: %v", err)
	}
	if err := store.AddRunCost(ctx, "r1", 100, 50, 0.02); err != nil {
		t.Fatalf("AddRunCost failed: %v", err)
	}
	if err := store.AddRunCost(ctx, "r1", 100, 50, 0.03); err != nil {
		t.Fatalf("AddRunCost failed: %v", err)
	}

	got, err = store.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Score == nil || *got.Score != 73 {
		t.Fatalf("expected score 73, got %v", got.Score)
	}
	if got.TokensIn != 200 || got.TokensOut != 100 {
		t.Fatalf("expected accumulated tokens 200/100, got %d/%d", got.TokensIn, got.TokensOut)
	}
	if got.CostUSD < 0.049 || got.CostUSD > 0.051 {
		t.Fatalf("expected accumulated cost ~0.05, got %f", got.CostUSD)
	}
}

func TestSQLiteStoreListRunsFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedRun(t, ctx, store, "r1", domain.RunStatusProcessing)
	seedRun(t, ctx, store, "r2", domain.RunStatusAwaitingApproval)
	seedRun(t, ctx, store, "r3", domain.RunStatusAwaitingApproval)

	all, err := store.ListRuns(ctx, domain.RunListFilter{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}

	pending, err := store.ListRuns(ctx, domain.RunListFilter{Status: domain.RunStatusAwaitingApproval})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending runs, got %d", len(pending))
	}

	byDoc, err := store.ListRuns(ctx, domain.RunListFilter{DocID: "doc_r1"})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(byDoc) != 1 || byDoc[0].RunID != "r1" {
		t.Fatalf("unexpected doc filter result: %+v", byDoc)
	}

	limited, err := store.ListRuns(ctx, domain.RunListFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 run with limit, got %d", len(limited))
	}
}

func TestSQLiteStoreStatusCAS(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedRun(t, ctx, store, "r1", domain.RunStatusProcessing)

	won, err := store.UpdateRunStatusCAS(ctx, "r1", domain.RunStatusProcessing, domain.RunStatusAwaitingApproval)
	if err != nil {
		t.Fatalf("UpdateRunStatusCAS failed: %v", err)
	}
	if !won {
		t.Fatal("expected first CAS to win")
	}

	// Status moved on; the same swap must now lose.
	won, err = store.UpdateRunStatusCAS(ctx, "r1", domain.RunStatusProcessing, domain.RunStatusAwaitingApproval)
	if err != nil {
		t.Fatalf("UpdateRunStatusCAS failed: %v", err)
	}
	if won {
		t.Fatal("expected stale CAS to lose")
	}

	got, _ := store.GetRun(ctx, "r1")
	if got.Status != domain.RunStatusAwaitingApproval {
		t.Fatalf("expected awaiting_risk_approval, got %s", got.Status)
	}
}

func TestSQLiteStoreSetRunFailed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedRun(t, ctx, store, "r1", domain.RunStatusProcessing)

	failed, err := store.SetRunFailed(ctx, "r1", "backend unreachable")
	if err != nil {
		t.Fatalf("SetRunFailed failed: %v", err)
	}
	if !failed {
		t.Fatal("expected non-terminal run to be failable")
	}

	got, _ := store.GetRun(ctx, "r1")
	if got.Status != domain.RunStatusFailed || got.Error != "backend unreachable" {
		t.Fatalf("unexpected run after fail: %+v", got)
	}

	// Terminal runs cannot be failed again.
	failed, err = store.SetRunFailed(ctx, "r1", "second reason")
	if err != nil {
		t.Fatalf("SetRunFailed failed: %v", err)
	}
	if failed {
		t.Fatal("expected failing a terminal run to be a no-op")
	}

	seedRun(t, ctx, store, "r2", domain.RunStatusFinalized)
	failed, err = store.SetRunFailed(ctx, "r2", "too late")
	if err != nil {
		t.Fatalf("SetRunFailed failed: %v", err)
	}
	if failed {
		t.Fatal("expected failing a finalized run to be a no-op")
	}
}

func TestSQLiteStoreAppendStepOrdering(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedRun(t, ctx, store, "r1", domain.RunStatusProcessing)

	for i, name := range []string{"classify", "assess_clause", "score"} {
		step := &domain.Step{
			StepID:   "stp_" + name,
			RunID:    "r1",
			StepName: name,
			Agent:    "manager",
			Status:   domain.StepStatusSucceeded,
			Ts:       time.Now().Add(time.Duration(i) * time.Millisecond),
			Metadata: domain.StepMetadata{TokensIn: 10, TokensOut: 5, CostUSD: 0.001, Model: "simulated-classifier"},
		}
		if err := store.AppendStep(ctx, step); err != nil {
			t.Fatalf("AppendStep failed: %v", err)
		}
		if step.Seq != int64(i+1) {
			t.Fatalf("expected seq %d, got %d", i+1, step.Seq)
		}
	}

	steps, err := store.GetSteps(ctx, "r1")
	if err != nil {
		t.Fatalf("GetSteps failed: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	for i, st := range steps {
		if st.Seq != int64(i+1) {
			t.Fatalf("steps out of order at index %d: seq %d", i, st.Seq)
		}
	}
	if steps[0].StepName != "classify" || steps[2].StepName != "score" {
		t.Fatalf("unexpected step order: %+v", steps)
	}
	if steps[1].Metadata.TokensIn != 10 || steps[1].Metadata.Model != "simulated-classifier" {
		t.Fatalf("metadata not round-tripped: %+v", steps[1].Metadata)
	}
}

func TestSQLiteStoreAssessments(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedRun(t, ctx, store, "r1", domain.RunStatusProcessing)

	a := &domain.ClauseAssessment{
		RunID:      "r1",
		ClauseID:   "clause_2",
		Heading:    "Indemnification",
		Text:       "Supplier shall indemnify...",
		RiskLevel:  domain.RiskHigh,
		Rationale:  "uncapped indemnity",
		PolicyRefs: []string{"pb-7"},
		CreatedAt:  time.Now(),
	}
	if err := store.UpsertAssessment(ctx, a); err != nil {
		t.Fatalf("UpsertAssessment failed: %v", err)
	}

	// Re-assessing the same clause replaces the row.
	a.RiskLevel = domain.RiskMedium
	if err := store.UpsertAssessment(ctx, a); err != nil {
		t.Fatalf("UpsertAssessment failed: %v", err)
	}

	got, err := store.GetAssessment(ctx, "r1", "clause_2")
	if err != nil {
		t.Fatalf("GetAssessment failed: %v", err)
	}
	if got == nil || got.RiskLevel != domain.RiskMedium {
		t.Fatalf("unexpected assessment: %+v", got)
	}
	if len(got.PolicyRefs) != 1 || got.PolicyRefs[0] != "pb-7" {
		t.Fatalf("policy refs not round-tripped: %+v", got.PolicyRefs)
	}

	missing, err := store.GetAssessment(ctx, "r1", "clause_99")
	if err != nil {
		t.Fatalf("GetAssessment failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown clause, got %+v", missing)
	}

	all, err := store.GetAssessments(ctx, "r1")
	if err != nil {
		t.Fatalf("GetAssessments failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 assessment, got %d", len(all))
	}
}

func TestSQLiteStoreApproveWithDecisions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedRun(t, ctx, store, "r1", domain.RunStatusAwaitingApproval)

	decisions := []domain.RiskDecision{
		{RunID: "r1", ClauseID: "clause_1", Decision: domain.DecisionApprove, DecidedBy: "ana", DecidedAt: time.Now()},
		{RunID: "r1", ClauseID: "clause_2", Decision: domain.DecisionReject, Comments: "renegotiate", DecidedBy: "ana", DecidedAt: time.Now()},
	}

	won, err := store.ApproveWithDecisions(ctx, "r1", decisions)
	if err != nil {
		t.Fatalf("ApproveWithDecisions failed: %v", err)
	}
	if !won {
		t.Fatal("expected first approval to win")
	}

	got, _ := store.GetRun(ctx, "r1")
	if got.Status != domain.RunStatusApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}

	stored, err := store.GetDecisions(ctx, "r1")
	if err != nil {
		t.Fatalf("GetDecisions failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(stored))
	}
	if stored[1].Decision != domain.DecisionReject || stored[1].Comments != "renegotiate" {
		t.Fatalf("unexpected decision: %+v", stored[1])
	}

	// A second submission loses the swap and must not touch the stored set.
	won, err = store.ApproveWithDecisions(ctx, "r1", []domain.RiskDecision{
		{RunID: "r1", ClauseID: "clause_1", Decision: domain.DecisionReject, DecidedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("ApproveWithDecisions failed: %v", err)
	}
	if won {
		t.Fatal("expected second approval to lose")
	}

	stored, _ = store.GetDecisions(ctx, "r1")
	if len(stored) != 2 || stored[0].Decision != domain.DecisionApprove {
		t.Fatalf("lost swap mutated decisions: %+v", stored)
	}
}

func TestSQLiteStoreProposals(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedRun(t, ctx, store, "r1", domain.RunStatusProcessing)

	p := &domain.Proposal{
		RunID:        "r1",
		ClauseID:     "clause_4",
		OriginalText: "Supplier liability is unlimited.",
		ProposedText: "Supplier liability is capped at fees paid.",
		Rationale:    "cap exposure",
		CreatedAt:    time.Now(),
	}
	if err := store.UpsertProposal(ctx, p); err != nil {
		t.Fatalf("UpsertProposal failed: %v", err)
	}

	got, err := store.GetProposals(ctx, "r1")
	if err != nil {
		t.Fatalf("GetProposals failed: %v", err)
	}
	if len(got) != 1 || got[0].ProposedText != p.ProposedText {
		t.Fatalf("unexpected proposals: %+v", got)
	}
}

func TestSQLiteStoreReplayResults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seedRun(t, ctx, store, "r1", domain.RunStatusFinalized)

	score := 80.0
	cost := 0.04
	r := &domain.ReplayResult{
		ReplayID:    "rpl_1",
		RunID:       "r1",
		Scope:       domain.ReplayScopeRun,
		Overrides:   domain.ReplayOverrides{AgentPath: domain.AgentPathPlannerExecutor},
		BackendMode: "simulated",
		Metrics:     domain.RunMetrics{Score: &score, CostUSD: &cost},
		CreatedAt:   time.Now(),
	}
	if err := store.SaveReplayResult(ctx, r); err != nil {
		t.Fatalf("SaveReplayResult failed: %v", err)
	}

	got, err := store.GetReplayResult(ctx, "rpl_1")
	if err != nil {
		t.Fatalf("GetReplayResult failed: %v", err)
	}
	if got == nil || got.RunID != "r1" || got.Scope != domain.ReplayScopeRun {
		t.Fatalf("unexpected replay result: %+v", got)
	}
	if got.Overrides.AgentPath != domain.AgentPathPlannerExecutor {
		t.Fatalf("overrides not round-tripped: %+v", got.Overrides)
	}
	if got.Metrics.Score == nil || *got.Metrics.Score != 80 {
		t.Fatalf("metrics not round-tripped: %+v", got.Metrics)
	}

	list, err := store.ListReplayResults(ctx, "r1")
	if err != nil {
		t.Fatalf("ListReplayResults failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 replay result, got %d", len(list))
	}
}
