// Package history records finished pipeline runs in Postgres.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"company-intel/internal/common/database"
	apperrors "company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/internal/pipeline"
)

var ErrRunNotFound = errors.New("RUN_NOT_FOUND")

const schema = `CREATE TABLE IF NOT EXISTS query_runs (
	run_id              UUID PRIMARY KEY,
	query               TEXT NOT NULL,
	query_type          TEXT,
	company             TEXT,
	needs_clarification BOOLEAN NOT NULL,
	retrieval_a         TEXT NOT NULL,
	retrieval_b         TEXT NOT NULL,
	verdict_confidence  DOUBLE PRECISION,
	response_text       TEXT NOT NULL,
	confidence_score    DOUBLE PRECISION NOT NULL,
	stages              JSONB NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL
)`

const insertRun = `INSERT INTO query_runs
	(run_id, query, query_type, company, needs_clarification, retrieval_a, retrieval_b,
	 verdict_confidence, response_text, confidence_score, stages, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const selectRun = `SELECT run_id, query, query_type, company, needs_clarification, retrieval_a, retrieval_b,
	verdict_confidence, response_text, confidence_score, stages, created_at
	FROM query_runs WHERE run_id = $1`

// StageRecord is the persisted form of one stage result.
type StageRecord struct {
	Stage     string `json:"stage"`
	Outcome   string `json:"outcome"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// Run is one row of query_runs.
type Run struct {
	RunID              uuid.UUID     `json:"runId"`
	Query              string        `json:"query"`
	QueryType          string        `json:"queryType,omitempty"`
	Company            string        `json:"company,omitempty"`
	NeedsClarification bool          `json:"needsClarification"`
	RetrievalA         string        `json:"retrievalA"`
	RetrievalB         string        `json:"retrievalB"`
	VerdictConfidence  *float64      `json:"verdictConfidence,omitempty"`
	ResponseText       string        `json:"responseText"`
	ConfidenceScore    float64       `json:"confidenceScore"`
	Stages             []StageRecord `json:"stages"`
	CreatedAt          time.Time     `json:"createdAt"`
}

type Store struct {
	db     *database.PostgresClient
	now    func() time.Time
	logger logger.Logger
}

func NewStore(db *database.PostgresClient, log logger.Logger) *Store {
	return &Store{
		db:     db,
		now:    time.Now,
		logger: log.With(map[string]interface{}{"component": "history"}),
	}
}

// EnsureSchema creates the query_runs table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return apperrors.NewHistoryWriteError(fmt.Errorf("create query_runs: %w", err))
	}
	return nil
}

// Record inserts a finished run. It satisfies pipeline.Recorder.
func (s *Store) Record(ctx context.Context, st *pipeline.PipelineState) error {
	run := FromState(st, s.now())

	stages, err := json.Marshal(run.Stages)
	if err != nil {
		return apperrors.NewHistoryWriteError(err)
	}

	_, err = s.db.Exec(ctx, insertRun,
		run.RunID,
		run.Query,
		nullString(run.QueryType),
		nullString(run.Company),
		run.NeedsClarification,
		run.RetrievalA,
		run.RetrievalB,
		nullFloat(run.VerdictConfidence),
		run.ResponseText,
		run.ConfidenceScore,
		stages,
		run.CreatedAt,
	)
	if err != nil {
		return apperrors.NewHistoryWriteError(err)
	}

	s.logger.Debug("Recorded pipeline run", map[string]interface{}{
		"runId":    run.RunID.String(),
		"degraded": run.Degraded(),
	})
	return nil
}

// Get loads one run by id.
func (s *Store) Get(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var (
		run        Run
		queryType  sql.NullString
		company    sql.NullString
		verdict    sql.NullFloat64
		stagesJSON []byte
	)
	err := s.db.QueryRow(ctx, selectRun, runID).Scan(
		&run.RunID,
		&run.Query,
		&queryType,
		&company,
		&run.NeedsClarification,
		&run.RetrievalA,
		&run.RetrievalB,
		&verdict,
		&run.ResponseText,
		&run.ConfidenceScore,
		&stagesJSON,
		&run.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	run.QueryType = queryType.String
	run.Company = company.String
	if verdict.Valid {
		v := verdict.Float64
		run.VerdictConfidence = &v
	}
	if err := json.Unmarshal(stagesJSON, &run.Stages); err != nil {
		return nil, fmt.Errorf("decode stages for run %s: %w", runID, err)
	}
	return &run, nil
}

// FromState flattens a pipeline state into a history row.
func FromState(st *pipeline.PipelineState, at time.Time) Run {
	run := Run{
		RunID:              st.RunID,
		Query:              st.Query,
		NeedsClarification: st.NeedsClarification,
		RetrievalA:         string(st.RetrievalA),
		RetrievalB:         string(st.RetrievalB),
		Stages:             make([]StageRecord, 0, len(st.Stages)),
		CreatedAt:          at.UTC(),
	}
	if st.Intent != nil {
		run.QueryType = st.Intent.QueryType.String()
		run.Company, _ = st.Intent.PrimaryCompany()
	}
	if st.Verdict != nil {
		c := st.Verdict.Confidence
		run.VerdictConfidence = &c
	}
	if st.FinalResponse != nil {
		run.ResponseText = st.FinalResponse.ResponseText
		run.ConfidenceScore = st.FinalResponse.ConfidenceScore
	}
	for _, r := range st.Stages {
		rec := StageRecord{Stage: r.Stage, Outcome: string(r.Outcome)}
		if r.Reason != nil {
			rec.ErrorCode = string(r.Reason.Code)
		}
		run.Stages = append(run.Stages, rec)
	}
	return run
}

// Degraded lists the stages that fell back.
func (r Run) Degraded() string {
	var names []string
	for _, s := range r.Stages {
		if s.Outcome == string(pipeline.OutcomeDegraded) {
			names = append(names, s.Stage)
		}
	}
	return strings.Join(names, ",")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
