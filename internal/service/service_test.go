package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lexigraph/reviewd/internal/adapter/analysis"
	"github.com/lexigraph/reviewd/internal/config"
	"github.com/lexigraph/reviewd/internal/domain"
	store "github.com/lexigraph/reviewd/internal/repository"
	"github.com/lexigraph/reviewd/tests/helpers"
)

type stubDocs struct {
	docs map[string]string
}

func (s *stubDocs) GetDocument(ctx context.Context, docID string) (string, error) {
	if text, ok := s.docs[docID]; ok {
		return text, nil
	}
	return "", fmt.Errorf("document %s not found", docID)
}

// Three clauses the keyword heuristic reads as HIGH, MEDIUM, LOW.
const testDocument = `Indemnification
Supplier shall indemnify Customer against all third-party claims.

Warranty
Supplier provides a limited warranty for twelve months.

Notices
All notices must be sent in writing to the addresses below.`

func newTestService(t *testing.T, docs map[string]string) (*Service, *store.SQLiteStore) {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)
	cfg := &config.Config{
		AnalysisTimeout:   5 * time.Second,
		ReplayTimeout:     5 * time.Second,
		CostRegressionPct: 0.05,
	}
	svc := New(db, analysis.NewSimulated(), &stubDocs{docs: docs}, nil, cfg, nil)
	return svc, db
}

func seedRunWithAssessments(t *testing.T, ctx context.Context, db *store.SQLiteStore, runID string, status domain.RunStatus, levels map[string]domain.RiskLevel) {
	t.Helper()
	now := time.Now()
	err := db.CreateRun(ctx, &domain.Run{
		RunID:     runID,
		DocID:     "doc_" + runID,
		AgentPath: domain.AgentPathManagerWorker,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	for clauseID, level := range levels {
		err := db.UpsertAssessment(ctx, &domain.ClauseAssessment{
			RunID:     runID,
			ClauseID:  clauseID,
			Text:      "clause text for " + clauseID,
			RiskLevel: level,
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("UpsertAssessment: %v", err)
		}
	}
}

// waitForRunSettled polls until the pipeline goroutine leaves processing.
func waitForRunSettled(t *testing.T, ctx context.Context, db *store.SQLiteStore, runID string) *domain.Run {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := db.GetRun(ctx, runID)
		if err != nil {
			t.Fatalf("GetRun: %v", err)
		}
		if run != nil && run.Status != domain.RunStatusProcessing {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s never left processing", runID)
	return nil
}
