package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lexigraph/reviewd/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			agent_path TEXT NOT NULL,
			playbook_id TEXT,
			status TEXT NOT NULL,
			score REAL,
			tokens_in INTEGER NOT NULL DEFAULT 0,
			tokens_out INTEGER NOT NULL DEFAULT 0,
			cost_usd REAL NOT NULL DEFAULT 0,
			error TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_doc ON runs(doc_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS steps (
			step_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			step_name TEXT NOT NULL,
			agent TEXT NOT NULL,
			status TEXT NOT NULL,
			input TEXT,
			output TEXT,
			clause_id TEXT,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			ts DATETIME NOT NULL,
			metadata TEXT,
			FOREIGN KEY (run_id) REFERENCES runs(run_id),
			UNIQUE (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_steps_clause ON steps(run_id, clause_id)`,
		`CREATE TABLE IF NOT EXISTS clause_assessments (
			run_id TEXT NOT NULL,
			clause_id TEXT NOT NULL,
			heading TEXT,
			text TEXT NOT NULL,
			risk_level TEXT NOT NULL,
			rationale TEXT,
			policy_refs TEXT,
			recommended_action TEXT,
			impact_assessment TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, clause_id),
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE TABLE IF NOT EXISTS risk_decisions (
			run_id TEXT NOT NULL,
			clause_id TEXT NOT NULL,
			decision TEXT NOT NULL,
			comments TEXT,
			decided_by TEXT,
			decided_at DATETIME NOT NULL,
			PRIMARY KEY (run_id, clause_id),
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE TABLE IF NOT EXISTS proposals (
			run_id TEXT NOT NULL,
			clause_id TEXT NOT NULL,
			original_text TEXT NOT NULL,
			proposed_text TEXT NOT NULL,
			rationale TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (run_id, clause_id),
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE TABLE IF NOT EXISTS replay_results (
			replay_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			scope TEXT NOT NULL,
			clause_id TEXT,
			overrides TEXT,
			backend_mode TEXT NOT NULL,
			metrics TEXT,
			assessments TEXT,
			comparison TEXT,
			warning TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_replays_run ON replay_results(run_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun creates a new run.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, doc_id, agent_path, playbook_id, status, score, tokens_in, tokens_out, cost_usd, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.DocID, run.AgentPath, nullString(run.PlaybookID), run.Status,
		nullFloat(run.Score), run.TokensIn, run.TokensOut, run.CostUSD, run.CreatedAt, run.UpdatedAt)
	return err
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	var run domain.Run
	var playbookID, errText sql.NullString
	var score sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, doc_id, agent_path, playbook_id, status, score, tokens_in, tokens_out, cost_usd, error, created_at, updated_at
		 FROM runs WHERE run_id = ?`,
		runID).Scan(&run.RunID, &run.DocID, &run.AgentPath, &playbookID, &run.Status,
		&score, &run.TokensIn, &run.TokensOut, &run.CostUSD, &errText, &run.CreatedAt, &run.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if playbookID.Valid {
		run.PlaybookID = playbookID.String
	}
	if score.Valid {
		run.Score = &score.Float64
	}
	if errText.Valid {
		run.Error = errText.String
	}
	return &run, nil
}

// ListRuns lists run summaries, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter domain.RunListFilter) ([]domain.RunSummary, error) {
	query := `SELECT run_id, doc_id, agent_path, playbook_id, status, score, created_at, updated_at FROM runs WHERE 1=1`
	args := []interface{}{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.DocID != "" {
		query += ` AND doc_id = ?`
		args = append(args, filter.DocID)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		var playbookID sql.NullString
		var score sql.NullFloat64
		if err := rows.Scan(&r.RunID, &r.DocID, &r.AgentPath, &playbookID, &r.Status, &score, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if playbookID.Valid {
			r.PlaybookID = playbookID.String
		}
		if score.Valid {
			r.Score = &score.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRunStatusCAS swaps the run's status only if it still equals `from`.
func (s *SQLiteStore) UpdateRunStatusCAS(ctx context.Context, runID string, from, to domain.RunStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE run_id = ? AND status = ?`,
		to, time.Now(), runID, from)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SetRunScore stores the final score of a run.
func (s *SQLiteStore) SetRunScore(ctx context.Context, runID string, score float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET score = ?, updated_at = ? WHERE run_id = ?`,
		score, time.Now(), runID)
	return err
}

// SetRunFailed moves a non-terminal run to failed and records the reason.
func (s *SQLiteStore) SetRunFailed(ctx context.Context, runID string, reason string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE run_id = ? AND status NOT IN (?, ?)`,
		domain.RunStatusFailed, reason, time.Now(), runID, domain.RunStatusFinalized, domain.RunStatusFailed)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AddRunCost accumulates the run's cost ledger.
func (s *SQLiteStore) AddRunCost(ctx context.Context, runID string, tokensIn, tokensOut int64, costUSD float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET tokens_in = tokens_in + ?, tokens_out = tokens_out + ?, cost_usd = cost_usd + ?, updated_at = ? WHERE run_id = ?`,
		tokensIn, tokensOut, costUSD, time.Now(), runID)
	return err
}

// AppendStep appends a step to the run's trace, assigning the next sequence
// number inside a transaction. SQLite's write lock serializes appends per run.
func (s *SQLiteStore) AppendStep(ctx context.Context, step *domain.Step) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM steps WHERE run_id = ?`, step.RunID).Scan(&next); err != nil {
		return err
	}
	step.Seq = next

	metadata, _ := json.Marshal(step.Metadata)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO steps (step_id, run_id, seq, step_name, agent, status, input, output, clause_id, duration_ms, ts, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.StepID, step.RunID, step.Seq, step.StepName, step.Agent, step.Status,
		nullString(step.Input), nullString(step.Output), nullString(step.ClauseID),
		step.DurationMs, step.Ts, string(metadata)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET updated_at = ? WHERE run_id = ?`, time.Now(), step.RunID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetSteps retrieves a run's trace in append order.
func (s *SQLiteStore) GetSteps(ctx context.Context, runID string) ([]domain.Step, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step_id, run_id, seq, step_name, agent, status, input, output, clause_id, duration_ms, ts, metadata
		 FROM steps WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []domain.Step
	for rows.Next() {
		var st domain.Step
		var input, output, clauseID, metadata sql.NullString
		if err := rows.Scan(&st.StepID, &st.RunID, &st.Seq, &st.StepName, &st.Agent, &st.Status,
			&input, &output, &clauseID, &st.DurationMs, &st.Ts, &metadata); err != nil {
			return nil, err
		}
		if input.Valid {
			st.Input = input.String
		}
		if output.Valid {
			st.Output = output.String
		}
		if clauseID.Valid {
			st.ClauseID = clauseID.String
		}
		if metadata.Valid {
			_ = json.Unmarshal([]byte(metadata.String), &st.Metadata)
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// UpsertAssessment creates or replaces the run's assessment for a clause.
func (s *SQLiteStore) UpsertAssessment(ctx context.Context, a *domain.ClauseAssessment) error {
	policyRefs, _ := json.Marshal(a.PolicyRefs)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO clause_assessments (run_id, clause_id, heading, text, risk_level, rationale, policy_refs, recommended_action, impact_assessment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.ClauseID, nullString(a.Heading), a.Text, a.RiskLevel,
		nullString(a.Rationale), string(policyRefs), nullString(a.RecommendedAction),
		nullString(a.ImpactAssessment), a.CreatedAt)
	return err
}

// GetAssessments retrieves a run's clause assessments ordered by clause id.
func (s *SQLiteStore) GetAssessments(ctx context.Context, runID string) ([]domain.ClauseAssessment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, clause_id, heading, text, risk_level, rationale, policy_refs, recommended_action, impact_assessment, created_at
		 FROM clause_assessments WHERE run_id = ? ORDER BY clause_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ClauseAssessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// GetAssessment retrieves a single clause assessment.
func (s *SQLiteStore) GetAssessment(ctx context.Context, runID, clauseID string) (*domain.ClauseAssessment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, clause_id, heading, text, risk_level, rationale, policy_refs, recommended_action, impact_assessment, created_at
		 FROM clause_assessments WHERE run_id = ? AND clause_id = ?`, runID, clauseID)
	a, err := scanAssessment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(r rowScanner) (*domain.ClauseAssessment, error) {
	var a domain.ClauseAssessment
	var heading, rationale, policyRefs, action, impact sql.NullString
	if err := r.Scan(&a.RunID, &a.ClauseID, &heading, &a.Text, &a.RiskLevel,
		&rationale, &policyRefs, &action, &impact, &a.CreatedAt); err != nil {
		return nil, err
	}
	if heading.Valid {
		a.Heading = heading.String
	}
	if rationale.Valid {
		a.Rationale = rationale.String
	}
	if policyRefs.Valid {
		_ = json.Unmarshal([]byte(policyRefs.String), &a.PolicyRefs)
	}
	if action.Valid {
		a.RecommendedAction = action.String
	}
	if impact.Valid {
		a.ImpactAssessment = impact.String
	}
	return &a, nil
}

// ApproveWithDecisions replaces the run's decision set and swaps the status
// awaiting_risk_approval -> approved in one transaction. It reports whether
// the swap won; on a lost swap nothing is written.
func (s *SQLiteStore) ApproveWithDecisions(ctx context.Context, runID string, decisions []domain.RiskDecision) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE run_id = ? AND status = ?`,
		domain.RunStatusApproved, time.Now(), runID, domain.RunStatusAwaitingApproval)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM risk_decisions WHERE run_id = ?`, runID); err != nil {
		return false, err
	}
	for _, d := range decisions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO risk_decisions (run_id, clause_id, decision, comments, decided_by, decided_at) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, d.ClauseID, d.Decision, nullString(d.Comments), nullString(d.DecidedBy), d.DecidedAt); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// GetDecisions retrieves a run's risk decisions.
func (s *SQLiteStore) GetDecisions(ctx context.Context, runID string) ([]domain.RiskDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, clause_id, decision, comments, decided_by, decided_at
		 FROM risk_decisions WHERE run_id = ? ORDER BY clause_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RiskDecision
	for rows.Next() {
		var d domain.RiskDecision
		var comments, decidedBy sql.NullString
		if err := rows.Scan(&d.RunID, &d.ClauseID, &d.Decision, &comments, &decidedBy, &d.DecidedAt); err != nil {
			return nil, err
		}
		if comments.Valid {
			d.Comments = comments.String
		}
		if decidedBy.Valid {
			d.DecidedBy = decidedBy.String
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpsertProposal creates or replaces a redline proposal for a clause.
func (s *SQLiteStore) UpsertProposal(ctx context.Context, p *domain.Proposal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO proposals (run_id, clause_id, original_text, proposed_text, rationale, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.RunID, p.ClauseID, p.OriginalText, p.ProposedText, nullString(p.Rationale), p.CreatedAt)
	return err
}

// GetProposals retrieves a run's redline proposals.
func (s *SQLiteStore) GetProposals(ctx context.Context, runID string) ([]domain.Proposal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, clause_id, original_text, proposed_text, rationale, created_at
		 FROM proposals WHERE run_id = ? ORDER BY clause_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Proposal
	for rows.Next() {
		var p domain.Proposal
		var rationale sql.NullString
		if err := rows.Scan(&p.RunID, &p.ClauseID, &p.OriginalText, &p.ProposedText, &rationale, &p.CreatedAt); err != nil {
			return nil, err
		}
		if rationale.Valid {
			p.Rationale = rationale.String
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveReplayResult persists a replay result for audit.
func (s *SQLiteStore) SaveReplayResult(ctx context.Context, r *domain.ReplayResult) error {
	overrides, _ := json.Marshal(r.Overrides)
	metrics, _ := json.Marshal(r.Metrics)
	assessments, _ := json.Marshal(r.Assessments)
	comparison, _ := json.Marshal(r.Comparison)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO replay_results (replay_id, run_id, scope, clause_id, overrides, backend_mode, metrics, assessments, comparison, warning, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ReplayID, r.RunID, r.Scope, nullString(r.ClauseID), string(overrides), r.BackendMode,
		string(metrics), string(assessments), string(comparison), nullString(r.CostRegressionWarning), r.CreatedAt)
	return err
}

// GetReplayResult retrieves a replay result by ID.
func (s *SQLiteStore) GetReplayResult(ctx context.Context, replayID string) (*domain.ReplayResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT replay_id, run_id, scope, clause_id, overrides, backend_mode, metrics, assessments, comparison, warning, created_at
		 FROM replay_results WHERE replay_id = ?`, replayID)
	r, err := scanReplay(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListReplayResults retrieves a run's replay results, newest first.
func (s *SQLiteStore) ListReplayResults(ctx context.Context, runID string) ([]domain.ReplayResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT replay_id, run_id, scope, clause_id, overrides, backend_mode, metrics, assessments, comparison, warning, created_at
		 FROM replay_results WHERE run_id = ? ORDER BY created_at DESC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReplayResult
	for rows.Next() {
		r, err := scanReplay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanReplay(r rowScanner) (*domain.ReplayResult, error) {
	var rr domain.ReplayResult
	var clauseID, overrides, metrics, assessments, comparison, warning sql.NullString
	if err := r.Scan(&rr.ReplayID, &rr.RunID, &rr.Scope, &clauseID, &overrides, &rr.BackendMode,
		&metrics, &assessments, &comparison, &warning, &rr.CreatedAt); err != nil {
		return nil, err
	}
	if clauseID.Valid {
		rr.ClauseID = clauseID.String
	}
	if overrides.Valid {
		_ = json.Unmarshal([]byte(overrides.String), &rr.Overrides)
	}
	if metrics.Valid {
		_ = json.Unmarshal([]byte(metrics.String), &rr.Metrics)
	}
	if assessments.Valid {
		_ = json.Unmarshal([]byte(assessments.String), &rr.Assessments)
	}
	if comparison.Valid {
		_ = json.Unmarshal([]byte(comparison.String), &rr.Comparison)
	}
	if warning.Valid {
		rr.CostRegressionWarning = warning.String
	}
	return &rr, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
