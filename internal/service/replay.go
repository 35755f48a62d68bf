package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lexigraph/reviewd/internal/adapter/analysis"
	"github.com/lexigraph/reviewd/internal/compare"
	"github.com/lexigraph/reviewd/internal/domain"
)

// ReplayRun re-executes a whole run against the analysis backend with the
// override configuration substituted for any field left unset. It reads an
// immutable snapshot of the original run and writes only a new ReplayResult;
// the original's status, score, trace, and assessments are never touched, on
// success or failure.
func (s *Service) ReplayRun(ctx context.Context, runID string, req domain.ReplayRunRequest) (*domain.ReplayResult, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, &domain.UnknownRunError{RunID: runID}
	}

	overrides := domain.ReplayOverrides{AgentPath: req.AgentPath, PlaybookID: req.PlaybookID}
	agentPath := run.AgentPath
	if req.AgentPath != "" {
		if !req.AgentPath.Valid() {
			return nil, &domain.InvalidAgentPathError{AgentPath: req.AgentPath}
		}
		agentPath = req.AgentPath
	}
	playbookID := run.PlaybookID
	if req.PlaybookID != "" {
		playbookID = req.PlaybookID
	}

	originalAssessments, err := s.store.GetAssessments(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessments: %w", err)
	}
	originalSteps, err := s.store.GetSteps(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ReplayTimeout)
	defer cancel()

	// Replay loads the run's original source inputs, not the stored trace.
	text, err := s.docs.GetDocument(ctx, run.DocID)
	if err != nil {
		return nil, s.replayErr(runID, err)
	}
	doc := analysis.Document{DocID: run.DocID, Text: text}

	pc, err := s.policyContext(ctx, playbookID)
	if err != nil {
		return nil, s.replayErr(runID, err)
	}

	started := time.Now()
	replayAssessments, usage, err := s.replayAgentPath(ctx, agentPath, doc, pc)
	if err != nil {
		return nil, s.replayErr(runID, err)
	}
	durationMs := time.Since(started).Milliseconds()

	replayMetrics := metricsFromAssessments(replayAssessments, durationMs, usage.CostUSD)
	originalMetrics := originalRunMetrics(run, originalAssessments, originalSteps)

	result := &domain.ReplayResult{
		ReplayID:    "rpl_" + uuid.New().String()[:8],
		RunID:       runID,
		Scope:       domain.ReplayScopeRun,
		Overrides:   overrides,
		BackendMode: s.backend.Mode(),
		Metrics:     replayMetrics,
		Assessments: replayAssessments,
		Comparison:  s.compareSides(originalAssessments, replayAssessments, originalMetrics, replayMetrics, originalSteps),
		CreatedAt:   time.Now(),
	}
	result.CostRegressionWarning = s.costRegressionWarning(originalMetrics.CostUSD, replayMetrics.CostUSD)

	if err := s.store.SaveReplayResult(ctx, result); err != nil {
		log.Printf("ERROR: failed to persist replay result for run %s: %v", runID, err)
	}
	return result, nil
}

// ReplayClause re-invokes the single assessment step for one clause, with the
// override prompt if given, else the original prompt reconstructed from the
// run's trace.
func (s *Service) ReplayClause(ctx context.Context, runID, clauseID string, req domain.ReplayClauseRequest) (*domain.ReplayResult, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, &domain.UnknownRunError{RunID: runID}
	}

	original, err := s.store.GetAssessment(ctx, runID, clauseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if original == nil {
		return nil, &domain.UnknownClauseError{RunID: runID, ClauseID: clauseID}
	}

	steps, err := s.store.GetSteps(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ReplayTimeout)
	defer cancel()

	pc, err := s.policyContext(ctx, run.PlaybookID)
	if err != nil {
		return nil, s.replayErr(runID, err)
	}

	prompt := req.Prompt
	if prompt == "" {
		prompt = reconstructPrompt(steps, clauseID)
	}
	if prompt == "" {
		prompt = clausePrompt(original.Text, pc)
	}

	started := time.Now()
	res, err := s.backend.AssessClause(ctx, original.Text, prompt, pc)
	if err != nil {
		return nil, s.replayErr(runID, err)
	}
	durationMs := time.Since(started).Milliseconds()

	replayed := mergeAssessment(*original, res.Assessment)

	originalClauseMetrics := clauseMetricsFromSteps(steps, clauseID)
	replayClauseMetrics := &domain.ClauseMetrics{
		CostUSD:    &res.Usage.CostUSD,
		DurationMs: &durationMs,
	}

	delta := compare.Clause(original, &replayed, originalClauseMetrics, replayClauseMetrics)

	result := &domain.ReplayResult{
		ReplayID:    "rpl_" + uuid.New().String()[:8],
		RunID:       runID,
		Scope:       domain.ReplayScopeClause,
		ClauseID:    clauseID,
		Overrides:   domain.ReplayOverrides{Prompt: req.Prompt},
		BackendMode: s.backend.Mode(),
		Metrics: domain.RunMetrics{
			DurationMs: &durationMs,
			CostUSD:    &res.Usage.CostUSD,
			RiskCounts: map[domain.RiskLevel]int{replayed.RiskLevel: 1},
		},
		Assessments: []domain.ClauseAssessment{replayed},
		Comparison:  domain.Comparison{Clauses: []domain.ClauseDelta{delta}},
		CreatedAt:   time.Now(),
	}
	if originalClauseMetrics != nil {
		result.CostRegressionWarning = s.costRegressionWarning(originalClauseMetrics.CostUSD, replayClauseMetrics.CostUSD)
	}

	if err := s.store.SaveReplayResult(ctx, result); err != nil {
		log.Printf("ERROR: failed to persist replay result for run %s: %v", runID, err)
	}
	return result, nil
}

// replayAgentPath mirrors the pipeline variants without any persistence.
func (s *Service) replayAgentPath(ctx context.Context, agentPath domain.AgentPath, doc analysis.Document, pc analysis.PolicyContext) ([]domain.ClauseAssessment, analysis.Usage, error) {
	var total analysis.Usage

	res, err := s.backend.Classify(ctx, doc, pc)
	if err != nil {
		return nil, total, err
	}
	addUsage(&total, res.Usage)
	assessments := res.Assessments

	switch agentPath {
	case domain.AgentPathPlannerExecutor:
		for i, a := range assessments {
			single, err := s.backend.AssessClause(ctx, a.Text, clausePrompt(a.Text, pc), pc)
			if err != nil {
				return nil, total, err
			}
			addUsage(&total, single.Usage)
			assessments[i] = mergeAssessment(a, single.Assessment)
		}
	case domain.AgentPathReviewerReferee:
		for i, a := range assessments {
			if a.RiskLevel == domain.RiskLow {
				continue
			}
			single, err := s.backend.AssessClause(ctx, a.Text, clausePrompt(a.Text, pc), pc)
			if err != nil {
				return nil, total, err
			}
			addUsage(&total, single.Usage)
			if single.Assessment.RiskLevel.Ordinal() > a.RiskLevel.Ordinal() {
				assessments[i] = mergeAssessment(a, single.Assessment)
			}
		}
	}
	return assessments, total, nil
}

// compareSides builds the full run-vs-replay comparison. Clauses present on
// only one side are listed, not compared.
func (s *Service) compareSides(original, replay []domain.ClauseAssessment, om, rm domain.RunMetrics, originalSteps []domain.Step) domain.Comparison {
	cmp := domain.Comparison{Metrics: compare.Metrics(&om, &rm)}

	replayByID := make(map[string]*domain.ClauseAssessment, len(replay))
	for i := range replay {
		replayByID[replay[i].ClauseID] = &replay[i]
	}
	seen := make(map[string]bool, len(original))

	for i := range original {
		o := &original[i]
		seen[o.ClauseID] = true
		r, ok := replayByID[o.ClauseID]
		if !ok {
			cmp.PresentInOriginal = append(cmp.PresentInOriginal, o.ClauseID)
			continue
		}
		cmp.Clauses = append(cmp.Clauses, compare.Clause(o, r, clauseMetricsFromSteps(originalSteps, o.ClauseID), nil))
	}
	for i := range replay {
		if !seen[replay[i].ClauseID] {
			cmp.PresentInReplay = append(cmp.PresentInReplay, replay[i].ClauseID)
		}
	}
	return cmp
}

// costRegressionWarning flags a replay whose cost exceeds the original by
// more than the configured threshold. Advisory only; the engine never
// mutates a deployment.
func (s *Service) costRegressionWarning(original, replay *float64) string {
	if original == nil || replay == nil || *original <= 0 {
		return ""
	}
	threshold := s.config.CostRegressionPct
	if *replay > *original*(1+threshold) {
		return fmt.Sprintf(
			"replay cost $%.4f exceeds original $%.4f by more than %.0f%%; roll back any active A/B deployment of this configuration to a single fixed version",
			*replay, *original, threshold*100)
	}
	return ""
}

func (s *Service) replayErr(runID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ReplayTimeoutError{RunID: runID}
	}
	return &domain.ReplayBackendError{RunID: runID, Cause: err}
}

// reconstructPrompt recovers the original single-clause prompt from the trace.
func reconstructPrompt(steps []domain.Step, clauseID string) string {
	for _, st := range steps {
		if st.ClauseID == clauseID && st.StepName == stepAssessClause && st.Input != "" {
			return st.Input
		}
	}
	return ""
}

// clauseMetricsFromSteps extracts the original per-clause cost/duration from
// the assess step, when the trace has one.
func clauseMetricsFromSteps(steps []domain.Step, clauseID string) *domain.ClauseMetrics {
	for _, st := range steps {
		if st.ClauseID == clauseID && st.StepName == stepAssessClause {
			cost := st.Metadata.CostUSD
			duration := st.DurationMs
			return &domain.ClauseMetrics{CostUSD: &cost, DurationMs: &duration}
		}
	}
	return nil
}

// metricsFromAssessments builds a replay-side metric snapshot.
func metricsFromAssessments(assessments []domain.ClauseAssessment, durationMs int64, costUSD float64) domain.RunMetrics {
	score := scoreAssessments(assessments)
	counts := make(map[domain.RiskLevel]int, 3)
	for _, a := range assessments {
		counts[a.RiskLevel]++
	}
	return domain.RunMetrics{
		Score:      &score,
		DurationMs: &durationMs,
		RiskCounts: counts,
		CostUSD:    &costUSD,
	}
}

// originalRunMetrics snapshots the stored run's final metrics. Fields the run
// never measured stay nil.
func originalRunMetrics(run *domain.Run, assessments []domain.ClauseAssessment, steps []domain.Step) domain.RunMetrics {
	m := domain.RunMetrics{Score: run.Score}

	if len(steps) > 0 {
		var total int64
		for _, st := range steps {
			total += st.DurationMs
		}
		m.DurationMs = &total
	}

	cost := run.CostUSD
	m.CostUSD = &cost

	counts := make(map[domain.RiskLevel]int, 3)
	for _, a := range assessments {
		counts[a.RiskLevel]++
	}
	m.RiskCounts = counts
	return m
}

func addUsage(total *analysis.Usage, u analysis.Usage) {
	total.TokensIn += u.TokensIn
	total.TokensOut += u.TokensOut
	total.CostUSD += u.CostUSD
	if total.Model == "" {
		total.Model = u.Model
	}
}
