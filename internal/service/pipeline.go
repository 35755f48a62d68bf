package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lexigraph/reviewd/internal/adapter/analysis"
	"github.com/lexigraph/reviewd/internal/domain"
)

// StartReview creates a run and launches the analysis pipeline for it.
// Multiple runs proceed fully in parallel; each run's pipeline is the single
// writer of its own trace.
func (s *Service) StartReview(ctx context.Context, req domain.StartReviewRequest) (*domain.Run, error) {
	if req.DocID == "" {
		return nil, fmt.Errorf("doc_id is required")
	}
	if req.AgentPath == "" {
		req.AgentPath = domain.AgentPathManagerWorker
	}
	if !req.AgentPath.Valid() {
		return nil, &domain.InvalidAgentPathError{AgentPath: req.AgentPath}
	}

	now := time.Now()
	run := &domain.Run{
		RunID:      "run_" + uuid.New().String()[:8],
		DocID:      req.DocID,
		AgentPath:  req.AgentPath,
		PlaybookID: req.PlaybookID,
		Status:     domain.RunStatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	go s.executePipeline(run.RunID, req)

	return run, nil
}

func (s *Service) executePipeline(runID string, req domain.StartReviewRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.AnalysisTimeout)
	defer cancel()

	if err := s.runAgentPath(ctx, runID, req); err != nil {
		log.Printf("ERROR: pipeline for run %s failed: %v", runID, err)
		s.recordStep(ctx, runID, stepRecord{
			name: "pipeline", agent: string(req.AgentPath),
			status: domain.StepStatusFailed, output: err.Error(),
		})
		if _, err := s.store.SetRunFailed(ctx, runID, err.Error()); err != nil {
			log.Printf("ERROR: failed to mark run %s failed: %v", runID, err)
		}
		return
	}

	swapped, err := s.store.UpdateRunStatusCAS(ctx, runID, domain.RunStatusProcessing, domain.RunStatusAwaitingApproval)
	if err != nil {
		log.Printf("ERROR: failed to transition run %s: %v", runID, err)
		return
	}
	if !swapped {
		log.Printf("WARN: run %s left processing before pipeline completion", runID)
	}
}

// runAgentPath loads the run's inputs and dispatches the pipeline variant.
// Agent paths form a closed set; dispatch is a plain switch, no registry.
func (s *Service) runAgentPath(ctx context.Context, runID string, req domain.StartReviewRequest) error {
	text, err := s.docs.GetDocument(ctx, req.DocID)
	if err != nil {
		return fmt.Errorf("failed to fetch document: %w", err)
	}
	doc := analysis.Document{DocID: req.DocID, Text: text}

	pc, err := s.policyContext(ctx, req.PlaybookID)
	if err != nil {
		return err
	}

	switch req.AgentPath {
	case domain.AgentPathManagerWorker:
		err = s.runManagerWorker(ctx, runID, doc, pc)
	case domain.AgentPathPlannerExecutor:
		err = s.runPlannerExecutor(ctx, runID, doc, pc)
	case domain.AgentPathReviewerReferee:
		err = s.runReviewerReferee(ctx, runID, doc, pc)
	default:
		err = &domain.InvalidAgentPathError{AgentPath: req.AgentPath}
	}
	if err != nil {
		return err
	}

	return s.scoreRun(ctx, runID)
}

// policyContext resolves a playbook id into backend-facing policy rules.
func (s *Service) policyContext(ctx context.Context, playbookID string) (analysis.PolicyContext, error) {
	pc := analysis.PolicyContext{PlaybookID: playbookID}
	if playbookID == "" || s.playbooks == nil {
		return pc, nil
	}
	pb, err := s.playbooks.GetPlaybook(ctx, playbookID)
	if err != nil {
		return pc, fmt.Errorf("failed to fetch playbook: %w", err)
	}
	for _, r := range pb.Rules {
		pc.Rules = append(pc.Rules, analysis.PolicyRule{
			ID:          r.ID,
			Title:       r.Title,
			Guidance:    r.Guidance,
			DefaultRisk: r.DefaultRisk,
		})
	}
	return pc, nil
}

// runManagerWorker: one classification pass by the manager, then workers
// draft redlines for every HIGH and MEDIUM clause.
func (s *Service) runManagerWorker(ctx context.Context, runID string, doc analysis.Document, pc analysis.PolicyContext) error {
	assessments, err := s.classifyStep(ctx, runID, "manager", doc, pc)
	if err != nil {
		return err
	}

	for _, a := range assessments {
		if a.RiskLevel == domain.RiskLow {
			continue
		}
		if err := s.draftStep(ctx, runID, "worker", a); err != nil {
			return err
		}
	}
	return nil
}

// runPlannerExecutor: the planner enumerates clauses, then the executor
// assesses each one individually.
func (s *Service) runPlannerExecutor(ctx context.Context, runID string, doc analysis.Document, pc analysis.PolicyContext) error {
	planned, err := s.classifyStep(ctx, runID, "planner", doc, pc)
	if err != nil {
		return err
	}

	for _, clause := range planned {
		prompt := clausePrompt(clause.Text, pc)
		started := time.Now()
		res, err := s.backend.AssessClause(ctx, clause.Text, prompt, pc)
		if err != nil {
			return fmt.Errorf("executor assessment of %s failed: %w", clause.ClauseID, err)
		}
		final := mergeAssessment(clause, res.Assessment)
		final.RunID = runID
		if err := s.store.UpsertAssessment(ctx, &final); err != nil {
			return fmt.Errorf("failed to store assessment: %w", err)
		}
		s.recordStep(ctx, runID, stepRecord{
			name: stepAssessClause, agent: "executor", status: domain.StepStatusSucceeded,
			input: prompt, output: string(final.RiskLevel) + ": " + final.Rationale,
			clauseID: clause.ClauseID, started: started, usage: res.Usage,
		})

		if final.RiskLevel == domain.RiskHigh {
			if err := s.draftStep(ctx, runID, "executor", final); err != nil {
				return err
			}
		}
	}
	return nil
}

// runReviewerReferee: classify, then have the referee re-assess every MEDIUM
// and HIGH clause and keep the riskier of the two verdicts. MEDIUM clauses
// can be escalated by the referee; a verdict is never softened.
func (s *Service) runReviewerReferee(ctx context.Context, runID string, doc analysis.Document, pc analysis.PolicyContext) error {
	assessments, err := s.classifyStep(ctx, runID, "reviewer", doc, pc)
	if err != nil {
		return err
	}

	for _, a := range assessments {
		if a.RiskLevel == domain.RiskLow {
			continue
		}
		prompt := clausePrompt(a.Text, pc)
		started := time.Now()
		res, err := s.backend.AssessClause(ctx, a.Text, prompt, pc)
		if err != nil {
			return fmt.Errorf("referee assessment of %s failed: %w", a.ClauseID, err)
		}
		verdict := a
		if res.Assessment.RiskLevel.Ordinal() > a.RiskLevel.Ordinal() {
			verdict = mergeAssessment(a, res.Assessment)
		}
		verdict.RunID = runID
		if err := s.store.UpsertAssessment(ctx, &verdict); err != nil {
			return fmt.Errorf("failed to store assessment: %w", err)
		}
		s.recordStep(ctx, runID, stepRecord{
			name: stepAssessClause, agent: "referee", status: domain.StepStatusSucceeded,
			input: prompt, output: string(verdict.RiskLevel) + ": " + verdict.Rationale,
			clauseID: a.ClauseID, started: started, usage: res.Usage,
		})

		if err := s.draftStep(ctx, runID, "referee", verdict); err != nil {
			return err
		}
	}
	return nil
}

// classifyStep runs full-document classification, stores all assessments,
// and records the trace step.
func (s *Service) classifyStep(ctx context.Context, runID, agent string, doc analysis.Document, pc analysis.PolicyContext) ([]domain.ClauseAssessment, error) {
	started := time.Now()
	res, err := s.backend.Classify(ctx, doc, pc)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	for i := range res.Assessments {
		res.Assessments[i].RunID = runID
		if res.Assessments[i].CreatedAt.IsZero() {
			res.Assessments[i].CreatedAt = time.Now()
		}
		if err := s.store.UpsertAssessment(ctx, &res.Assessments[i]); err != nil {
			return nil, fmt.Errorf("failed to store assessment: %w", err)
		}
	}

	s.recordStep(ctx, runID, stepRecord{
		name: stepClassify, agent: agent, status: domain.StepStatusSucceeded,
		input:  doc.Text,
		output: fmt.Sprintf("%d clauses classified", len(res.Assessments)),
		started: started, usage: res.Usage,
	})
	return res.Assessments, nil
}

// draftStep drafts a redline proposal for a clause and records the step.
func (s *Service) draftStep(ctx context.Context, runID, agent string, a domain.ClauseAssessment) error {
	started := time.Now()
	res, err := s.backend.DraftProposal(ctx, a)
	if err != nil {
		return fmt.Errorf("draft for %s failed: %w", a.ClauseID, err)
	}
	p := res.Proposal
	p.RunID = runID
	p.ClauseID = a.ClauseID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if err := s.store.UpsertProposal(ctx, &p); err != nil {
		return fmt.Errorf("failed to store proposal: %w", err)
	}
	s.recordStep(ctx, runID, stepRecord{
		name: stepDraftProposal, agent: agent, status: domain.StepStatusSucceeded,
		input: a.Text, output: p.ProposedText, clauseID: a.ClauseID,
		started: started, usage: res.Usage,
	})
	return nil
}

// scoreRun computes and stores the run score from the final assessment set.
func (s *Service) scoreRun(ctx context.Context, runID string) error {
	assessments, err := s.store.GetAssessments(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load assessments: %w", err)
	}

	score := scoreAssessments(assessments)
	if err := s.store.SetRunScore(ctx, runID, score); err != nil {
		return fmt.Errorf("failed to store score: %w", err)
	}
	s.recordStep(ctx, runID, stepRecord{
		name: stepScore, agent: "scorer", status: domain.StepStatusSucceeded,
		output: fmt.Sprintf("score=%.1f over %d clauses", score, len(assessments)),
	})
	return nil
}

// scoreAssessments maps a risk histogram onto a 0-100 score.
func scoreAssessments(assessments []domain.ClauseAssessment) float64 {
	score := 100.0
	for _, a := range assessments {
		switch a.RiskLevel {
		case domain.RiskHigh:
			score -= 25
		case domain.RiskMedium:
			score -= 10
		case domain.RiskLow:
			score -= 2
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Step names used by the pipeline and relied on for prompt reconstruction
// during clause replay.
const (
	stepClassify      = "classify"
	stepAssessClause  = "assess_clause"
	stepDraftProposal = "draft_proposal"
	stepScore         = "score"
)

type stepRecord struct {
	name     string
	agent    string
	status   domain.StepStatus
	input    string
	output   string
	clauseID string
	started  time.Time
	usage    analysis.Usage
}

// recordStep appends a pipeline step; failures are logged, not fatal, so a
// trace hiccup cannot take a run down mid-flight.
func (s *Service) recordStep(ctx context.Context, runID string, rec stepRecord) {
	var durationMs int64
	if !rec.started.IsZero() {
		durationMs = time.Since(rec.started).Milliseconds()
	}
	_, err := s.AppendStep(ctx, runID, domain.AppendStepRequest{
		StepName:   rec.name,
		Agent:      rec.agent,
		Status:     rec.status,
		Input:      rec.input,
		Output:     rec.output,
		ClauseID:   rec.clauseID,
		DurationMs: durationMs,
		Metadata: domain.StepMetadata{
			TokensIn:  rec.usage.TokensIn,
			TokensOut: rec.usage.TokensOut,
			CostUSD:   rec.usage.CostUSD,
			Model:     rec.usage.Model,
			CacheHit:  rec.usage.CacheHit,
		},
	})
	if err != nil {
		log.Printf("ERROR: failed to record %s step for run %s: %v", rec.name, runID, err)
	}
}

// clausePrompt builds the default single-clause assessment prompt.
func clausePrompt(clauseText string, pc analysis.PolicyContext) string {
	if pc.PlaybookID != "" {
		return fmt.Sprintf("Assess the contractual risk of the following clause under playbook %s:\n\n%s", pc.PlaybookID, clauseText)
	}
	return "Assess the contractual risk of the following clause:\n\n" + clauseText
}

// mergeAssessment overlays a re-assessment onto the planned clause, keeping
// the clause identity and text snapshot from the plan.
func mergeAssessment(planned, reassessed domain.ClauseAssessment) domain.ClauseAssessment {
	out := planned
	out.RiskLevel = reassessed.RiskLevel
	if reassessed.Rationale != "" {
		out.Rationale = reassessed.Rationale
	}
	if len(reassessed.PolicyRefs) > 0 {
		out.PolicyRefs = reassessed.PolicyRefs
	}
	if reassessed.RecommendedAction != "" {
		out.RecommendedAction = reassessed.RecommendedAction
	}
	if reassessed.ImpactAssessment != "" {
		out.ImpactAssessment = reassessed.ImpactAssessment
	}
	out.CreatedAt = time.Now()
	return out
}
