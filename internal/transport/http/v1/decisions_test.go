package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/lexigraph/reviewd/internal/adapter/analysis"
	"github.com/lexigraph/reviewd/internal/config"
	"github.com/lexigraph/reviewd/internal/domain"
	store "github.com/lexigraph/reviewd/internal/repository"
	"github.com/lexigraph/reviewd/internal/service"
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

func newTestHandler(t *testing.T) (*Handler, *store.SQLiteStore) {
	t.Helper()
	db := helpers.NewTestSQLiteStore(t)
	cfg := &config.Config{
		AnalysisTimeout:   5 * time.Second,
		ReplayTimeout:     5 * time.Second,
		CostRegressionPct: 0.05,
	}
	svc := service.New(db, analysis.NewSimulated(), &stubDocs{}, nil, cfg, nil)
	return NewHandler(svc), db
}

func seedAwaitingRun(t *testing.T, ctx context.Context, db *store.SQLiteStore, runID string, clauses map[string]domain.RiskLevel) {
	t.Helper()
	now := time.Now()
	err := db.CreateRun(ctx, &domain.Run{
		RunID:     runID,
		DocID:     "doc_" + runID,
		AgentPath: domain.AgentPathManagerWorker,
		Status:    domain.RunStatusAwaitingApproval,
		CreatedAt: now,
		UpdatedAt: now,
	})
	assert.NoError(t, err)
	for clauseID, level := range clauses {
		err := db.UpsertAssessment(ctx, &domain.ClauseAssessment{
			RunID:     runID,
			ClauseID:  clauseID,
			Text:      "clause text for " + clauseID,
			RiskLevel: level,
			CreatedAt: now,
		})
		assert.NoError(t, err)
	}
}

func postDecisions(t *testing.T, handler *Handler, e *echo.Echo, runID string, req domain.SubmitDecisionsRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest(http.MethodPost, "/v1/runs/"+runID+"/decisions", bytes.NewReader(body))
	httpReq.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(httpReq, rec)
	c.SetPath("/v1/runs/:run_id/decisions")
	c.SetParamNames("run_id")
	c.SetParamValues(runID)

	assert.NoError(t, handler.SubmitDecisions(c))
	return rec
}

func TestSubmitDecisionsEndpointApproves(t *testing.T) {
	ctx := context.Background()
	e := echo.New()
	handler, db := newTestHandler(t)

	seedAwaitingRun(t, ctx, db, "r1", map[string]domain.RiskLevel{
		"clause_1": domain.RiskHigh,
		"clause_2": domain.RiskLow,
	})

	rec := postDecisions(t, handler, e, "r1", domain.SubmitDecisionsRequest{
		Decisions: []domain.DecisionInput{
			{ClauseID: "clause_1", Decision: domain.DecisionReject, Comments: "renegotiate"},
			{ClauseID: "clause_2", Decision: domain.DecisionApprove},
		},
		DecidedBy: "ana",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp domain.Run
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.RunStatusApproved, resp.Status)

	stored, err := db.GetDecisions(ctx, "r1")
	assert.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestSubmitDecisionsEndpointIncompleteSet(t *testing.T) {
	ctx := context.Background()
	e := echo.New()
	handler, db := newTestHandler(t)

	seedAwaitingRun(t, ctx, db, "r1", map[string]domain.RiskLevel{
		"clause_1": domain.RiskHigh,
		"clause_2": domain.RiskLow,
	})

	rec := postDecisions(t, handler, e, "r1", domain.SubmitDecisionsRequest{
		Decisions: []domain.DecisionInput{
			{ClauseID: "clause_1", Decision: domain.DecisionReject},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "incomplete_decision_set", resp["error"])
	assert.Equal(t, []interface{}{"clause_2"}, resp["missing"])

	// Run unchanged after the rejected submission.
	run, err := db.GetRun(ctx, "r1")
	assert.NoError(t, err)
	assert.Equal(t, domain.RunStatusAwaitingApproval, run.Status)
}

func TestSubmitDecisionsEndpointInvalidDecision(t *testing.T) {
	ctx := context.Background()
	e := echo.New()
	handler, db := newTestHandler(t)

	seedAwaitingRun(t, ctx, db, "r1", map[string]domain.RiskLevel{"clause_1": domain.RiskLow})

	rec := postDecisions(t, handler, e, "r1", domain.SubmitDecisionsRequest{
		Decisions: []domain.DecisionInput{{ClauseID: "clause_1", Decision: "maybe"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_decision_input", resp["error"])
	assert.Equal(t, "clause_1", resp["clause_id"])

	run, err := db.GetRun(ctx, "r1")
	assert.NoError(t, err)
	assert.Equal(t, domain.RunStatusAwaitingApproval, run.Status)
}

func TestSubmitDecisionsEndpointAlreadyApproved(t *testing.T) {
	ctx := context.Background()
	e := echo.New()
	handler, db := newTestHandler(t)

	seedAwaitingRun(t, ctx, db, "r1", map[string]domain.RiskLevel{"clause_1": domain.RiskLow})

	req := domain.SubmitDecisionsRequest{
		Decisions: []domain.DecisionInput{{ClauseID: "clause_1", Decision: domain.DecisionApprove}},
	}
	rec := postDecisions(t, handler, e, "r1", req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postDecisions(t, handler, e, "r1", req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "already_approved", resp["error"])
}

func TestSubmitDecisionsEndpointUnknownRun(t *testing.T) {
	e := echo.New()
	handler, _ := newTestHandler(t)

	rec := postDecisions(t, handler, e, "missing", domain.SubmitDecisionsRequest{
		Decisions: []domain.DecisionInput{{ClauseID: "clause_1", Decision: domain.DecisionApprove}},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFinalizeEndpoint(t *testing.T) {
	ctx := context.Background()
	e := echo.New()
	handler, db := newTestHandler(t)

	seedAwaitingRun(t, ctx, db, "r1", map[string]domain.RiskLevel{"clause_1": domain.RiskLow})
	postDecisions(t, handler, e, "r1", domain.SubmitDecisionsRequest{
		Decisions: []domain.DecisionInput{{ClauseID: "clause_1", Decision: domain.DecisionApprove}},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/runs/r1/finalize", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/runs/:run_id/finalize")
	c.SetParamNames("run_id")
	c.SetParamValues("r1")

	assert.NoError(t, handler.FinalizeRun(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	run, err := db.GetRun(ctx, "r1")
	assert.NoError(t, err)
	assert.Equal(t, domain.RunStatusFinalized, run.Status)

	// Finalizing twice is a state error, not a silent success.
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/runs/r1/finalize", nil), rec)
	c.SetPath("/v1/runs/:run_id/finalize")
	c.SetParamNames("run_id")
	c.SetParamValues("r1")
	assert.NoError(t, handler.FinalizeRun(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestApproveAllEndpoint(t *testing.T) {
	ctx := context.Background()
	e := echo.New()
	handler, db := newTestHandler(t)

	seedAwaitingRun(t, ctx, db, "r1", map[string]domain.RiskLevel{
		"clause_1": domain.RiskMedium,
		"clause_2": domain.RiskLow,
	})

	body, _ := json.Marshal(domain.BulkDecisionRequest{DecidedBy: "ana"})
	req := httptest.NewRequest(http.MethodPost, "/v1/runs/r1/decisions/approve-all", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/runs/:run_id/decisions/approve-all")
	c.SetParamNames("run_id")
	c.SetParamValues("r1")

	assert.NoError(t, handler.ApproveAll(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := db.GetDecisions(ctx, "r1")
	assert.NoError(t, err)
	assert.Len(t, stored, 2)
	for _, d := range stored {
		assert.Equal(t, domain.DecisionApprove, d.Decision)
	}
}
