// Package pipeline runs a company question through classification,
// ambiguity checking, parallel retrieval, evaluation and synthesis.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"company-intel/internal/common/config"
	apperrors "company-intel/internal/common/errors"
	"company-intel/internal/common/logger"
	"company-intel/internal/common/metrics"
	"company-intel/internal/models"
	"company-intel/internal/retrieval"
)

// Fallback messages substituted when a stage cannot produce its own result.
const (
	MsgClassifyFailed     = "Failed to analyze query intent"
	MsgNoIntent           = "Could not determine query intent"
	MsgAmbiguityFailed    = "Error checking query ambiguity"
	MsgNeedsClarification = "Query requires clarification"
	MsgNoData             = "No data retrieved"
	MsgNoDataSummary      = "No data available for evaluation"
	MsgEvaluationFailed   = "Error evaluating data"
)

// Partial-evidence tags handed to the ambiguity checker.
const (
	tagEncyclopedia = "wiki"
	tagWeb          = "tavily"
)

var errNoResult = errors.New("collaborator returned no result")

type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, query string) (*models.Intent, error)
}

type AmbiguityChecker interface {
	CheckAmbiguity(ctx context.Context, query string, partial map[string][]models.EvidenceItem) (*models.AmbiguityVerdict, error)
}

// EvidenceFetcher reports failures inside the Result; it never returns an error.
type EvidenceFetcher interface {
	Source() string
	FetchEvidence(ctx context.Context, intent *models.Intent) retrieval.Result
}

type Evaluator interface {
	Evaluate(ctx context.Context, intent *models.Intent, query string, evidence []models.EvidenceItem) (*models.Verdict, error)
}

// Recorder persists a finished run.
type Recorder interface {
	Record(ctx context.Context, st *PipelineState) error
}

// Timeouts bound each collaborator call. Zero means unbounded.
type Timeouts struct {
	Classify  time.Duration
	Ambiguity time.Duration
	Retrieval time.Duration
	Evaluate  time.Duration
}

func TimeoutsFromConfig(cfg config.PipelineConfig) Timeouts {
	return Timeouts{
		Classify:  config.GetDuration(cfg.ClassifyTimeout),
		Ambiguity: config.GetDuration(cfg.AmbiguityTimeout),
		Retrieval: config.GetDuration(cfg.RetrievalTimeout),
		Evaluate:  config.GetDuration(cfg.EvaluateTimeout),
	}
}

type Orchestrator struct {
	classifier   IntentClassifier
	checker      AmbiguityChecker
	encyclopedia EvidenceFetcher
	web          EvidenceFetcher
	evaluator    Evaluator
	recorder     Recorder
	timeouts     Timeouts
	tracer       trace.Tracer
	logger       logger.Logger
}

type Option func(*Orchestrator)

func WithTimeouts(t Timeouts) Option {
	return func(o *Orchestrator) {
		o.timeouts = t
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// New builds an orchestrator. encyclopedia fills the first evidence slot and
// web the second.
func New(classifier IntentClassifier, checker AmbiguityChecker, encyclopedia, web EvidenceFetcher, evaluator Evaluator, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier:   classifier,
		checker:      checker,
		encyclopedia: encyclopedia,
		web:          web,
		evaluator:    evaluator,
		tracer:       noop.NewTracerProvider().Tracer("pipeline"),
		logger:       log.With(map[string]interface{}{"component": "pipeline"}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run answers query. It never fails: every stage failure is folded into a
// fallback answer.
func (o *Orchestrator) Run(ctx context.Context, query string) models.Answer {
	return *o.Execute(ctx, query).FinalResponse
}

// Execute runs the pipeline and returns the full run state. FinalResponse is
// always set.
func (o *Orchestrator) Execute(ctx context.Context, query string) *PipelineState {
	st := &PipelineState{RunID: uuid.New(), Query: query}
	log := o.logger.With(map[string]interface{}{"runId": st.RunID.String()})

	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(attribute.String("run.id", st.RunID.String())))
	defer span.End()

	start := time.Now()
	log.Info("Pipeline run started", map[string]interface{}{"query": query})

	st.apply(o.classify(ctx, st))
	st.apply(o.checkAmbiguity(ctx, st))
	for _, r := range o.retrieve(ctx, st) {
		st.apply(r)
	}
	st.apply(o.evaluate(ctx, st))
	st.apply(o.synthesize(ctx, st))

	disposition := runDisposition(st)
	metrics.PipelineRuns.WithLabelValues(disposition).Inc()
	span.SetAttributes(attribute.String("run.disposition", disposition))

	log.Info("Pipeline run completed", map[string]interface{}{
		"disposition": disposition,
		"confidence":  st.FinalResponse.ConfidenceScore,
		"retrievalA":  string(st.RetrievalA),
		"retrievalB":  string(st.RetrievalB),
		"duration":    time.Since(start).Milliseconds(),
	})

	if o.recorder != nil {
		if err := o.recorder.Record(ctx, st); err != nil {
			log.Warn("Failed to record pipeline run", map[string]interface{}{"error": err.Error()})
		}
	}
	return st
}

func (o *Orchestrator) classify(ctx context.Context, st *PipelineState) StageResult {
	fallback := func(reason *apperrors.StandardError) StageResult {
		return degraded(StageClassify, reason, intentPatch{ambiguity: models.AmbiguousVerdict(MsgClassifyFailed)})
	}
	return o.runStage(ctx, StageClassify, o.timeouts.Classify, fallback, func(ctx context.Context) StageResult {
		intent, err := o.classifier.ClassifyIntent(ctx, st.Query)
		if err == nil && intent == nil {
			err = errNoResult
		}
		if err != nil {
			return fallback(apperrors.FromStage(StageClassify, err, apperrors.NewIntentClassificationError))
		}
		return ok(StageClassify, intentPatch{intent: intent})
	})
}

func (o *Orchestrator) checkAmbiguity(ctx context.Context, st *PipelineState) StageResult {
	if st.Intent == nil {
		return o.skip(StageAmbiguity, ambiguityPatch{verdict: models.AmbiguousVerdict(MsgNoIntent)})
	}

	fallback := func(reason *apperrors.StandardError) StageResult {
		return degraded(StageAmbiguity, reason, ambiguityPatch{verdict: models.AmbiguousVerdict(MsgAmbiguityFailed)})
	}
	return o.runStage(ctx, StageAmbiguity, o.timeouts.Ambiguity, fallback, func(ctx context.Context) StageResult {
		partial := map[string][]models.EvidenceItem{
			tagEncyclopedia: nonNil(st.EvidenceA),
			tagWeb:          nonNil(st.EvidenceB),
		}
		verdict, err := o.checker.CheckAmbiguity(ctx, st.Query, partial)
		if err == nil && verdict == nil {
			err = errNoResult
		}
		if err != nil {
			return fallback(apperrors.FromStage(StageAmbiguity, err, apperrors.NewAmbiguityCheckError))
		}
		return ok(StageAmbiguity, ambiguityPatch{verdict: verdict})
	})
}

// retrieve runs both sources concurrently and joins on both before
// returning. Results are ordered encyclopedia then web.
func (o *Orchestrator) retrieve(ctx context.Context, st *PipelineState) [2]StageResult {
	skip := st.Intent == nil || st.NeedsClarification
	intent := st.Intent

	var results [2]StageResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results[0] = o.retrieveFrom(gctx, StageRetrieveA, o.encyclopedia, true, intent, skip)
		return nil
	})
	g.Go(func() error {
		results[1] = o.retrieveFrom(gctx, StageRetrieveB, o.web, false, intent, skip)
		return nil
	})
	_ = g.Wait()
	return results
}

func (o *Orchestrator) retrieveFrom(ctx context.Context, stage string, f EvidenceFetcher, slotA bool, intent *models.Intent, skip bool) StageResult {
	source := f.Source()
	if skip {
		return o.skip(stage, retrievalPatch{slotA: slotA, result: retrieval.Skipped(source)})
	}

	buildErr := func(err error) *apperrors.StandardError {
		return apperrors.NewRetrievalError(source, err)
	}
	fallback := func(reason *apperrors.StandardError) StageResult {
		failed := retrieval.Result{Source: source, Items: []models.EvidenceItem{}, Outcome: retrieval.OutcomeFailed, Err: reason}
		return degraded(stage, reason, retrievalPatch{slotA: slotA, result: failed})
	}
	return o.runStage(ctx, stage, o.timeouts.Retrieval, fallback, func(ctx context.Context) StageResult {
		res := f.FetchEvidence(ctx, intent)
		if res.Items == nil {
			res.Items = []models.EvidenceItem{}
		}
		if res.Outcome == retrieval.OutcomeFailed {
			reason := apperrors.FromStage(stage, res.Err, buildErr)
			if reason == nil {
				reason = buildErr(errNoResult)
			}
			return degraded(stage, reason, retrievalPatch{slotA: slotA, result: res})
		}
		return ok(stage, retrievalPatch{slotA: slotA, result: res})
	})
}

func (o *Orchestrator) evaluate(ctx context.Context, st *PipelineState) StageResult {
	if st.NeedsClarification {
		return o.skip(StageEvaluate, verdictPatch{verdict: models.InvalidVerdict(MsgNeedsClarification)})
	}

	evidence := st.Evidence()
	if len(evidence) == 0 {
		v := models.InvalidVerdict(MsgNoData)
		v.Summary = MsgNoDataSummary
		return o.skip(StageEvaluate, verdictPatch{verdict: v})
	}

	fallback := func(reason *apperrors.StandardError) StageResult {
		return degraded(StageEvaluate, reason, verdictPatch{verdict: models.InvalidVerdict(MsgEvaluationFailed)})
	}
	return o.runStage(ctx, StageEvaluate, o.timeouts.Evaluate, fallback, func(ctx context.Context) StageResult {
		v, err := o.evaluator.Evaluate(ctx, st.Intent, st.Query, evidence)
		if err == nil && v == nil {
			err = errNoResult
		}
		if err != nil {
			return fallback(apperrors.FromStage(StageEvaluate, err, apperrors.NewEvaluationError))
		}
		// Validity is always derived from confidence.
		v = models.NewVerdict(v.Confidence, v.MissingInformation, v.KeyFindings, v.Summary)
		return ok(StageEvaluate, verdictPatch{verdict: v})
	})
}

func (o *Orchestrator) synthesize(ctx context.Context, st *PipelineState) StageResult {
	fallback := func(reason *apperrors.StandardError) StageResult {
		return degraded(StageSynthesize, reason, responsePatch{answer: models.Answer{ResponseText: MsgSynthesisFailed}})
	}
	return o.runStage(ctx, StageSynthesize, 0, fallback, func(context.Context) StageResult {
		return ok(StageSynthesize, responsePatch{answer: Synthesize(st)})
	})
}

// runStage bounds body with timeout, converts a panic into the stage's
// fallback and records the outcome.
func (o *Orchestrator) runStage(ctx context.Context, stage string, timeout time.Duration, fallback func(*apperrors.StandardError) StageResult, body func(context.Context) StageResult) (res StageResult) {
	ctx, span := o.tracer.Start(ctx, "pipeline."+stage)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = fallback(apperrors.Normalize(fmt.Errorf("panic in %s: %v", stage, r)))
		}
		o.observe(res, time.Since(start))
		if res.Reason != nil {
			span.RecordError(res.Reason)
			span.SetStatus(codes.Error, string(res.Reason.Code))
		}
		span.SetAttributes(attribute.String("stage.outcome", string(res.Outcome)))
		span.End()
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return body(ctx)
}

func (o *Orchestrator) observe(res StageResult, elapsed time.Duration) {
	metrics.PipelineStageOutcomes.WithLabelValues(res.Stage, string(res.Outcome)).Inc()
	metrics.PipelineStageDuration.WithLabelValues(res.Stage).Observe(elapsed.Seconds())

	if res.Outcome != OutcomeDegraded {
		o.logger.Debug("Stage completed", map[string]interface{}{
			"stage":    res.Stage,
			"outcome":  string(res.Outcome),
			"duration": elapsed.Milliseconds(),
		})
		return
	}
	fields := map[string]interface{}{
		"stage":    res.Stage,
		"duration": elapsed.Milliseconds(),
	}
	if res.Reason != nil {
		fields["errorCode"] = string(res.Reason.Code)
		fields["error"] = res.Reason.Error()
	}
	o.logger.Warn("Stage degraded", fields)
}

func runDisposition(st *PipelineState) string {
	switch {
	case st.NeedsClarification:
		return "clarification"
	case st.Verdict != nil && st.Verdict.IsValid:
		return "answered"
	default:
		return "insufficient"
	}
}

func ok(stage string, p patch) StageResult {
	return StageResult{Stage: stage, Outcome: OutcomeOK, patch: p}
}

func degraded(stage string, reason *apperrors.StandardError, p patch) StageResult {
	return StageResult{Stage: stage, Outcome: OutcomeDegraded, Reason: reason, patch: p}
}

func (o *Orchestrator) skip(stage string, p patch) StageResult {
	res := StageResult{Stage: stage, Outcome: OutcomeSkipped, patch: p}
	o.observe(res, 0)
	return res
}

func nonNil(items []models.EvidenceItem) []models.EvidenceItem {
	if items == nil {
		return []models.EvidenceItem{}
	}
	return items
}
