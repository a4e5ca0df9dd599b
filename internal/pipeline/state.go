package pipeline

import (
	"github.com/google/uuid"

	apperrors "company-intel/internal/common/errors"
	"company-intel/internal/models"
	"company-intel/internal/retrieval"
)

// Stage names, also used as metric and span labels.
const (
	StageClassify   = "classify_intent"
	StageAmbiguity  = "check_ambiguity"
	StageRetrieveA  = "retrieve_encyclopedia"
	StageRetrieveB  = "retrieve_web"
	StageEvaluate   = "evaluate"
	StageSynthesize = "synthesize"
)

// PipelineState is owned by a single run. Stages never write to it
// directly; they return a StageResult whose patch sets only the fields
// that stage owns.
type PipelineState struct {
	RunID              uuid.UUID
	Query              string
	Intent             *models.Intent
	Ambiguity          *models.AmbiguityVerdict
	EvidenceA          []models.EvidenceItem
	EvidenceB          []models.EvidenceItem
	RetrievalA         retrieval.Outcome
	RetrievalB         retrieval.Outcome
	Verdict            *models.Verdict
	NeedsClarification bool
	FinalResponse      *models.Answer
	Stages             []StageResult
}

// Evidence returns encyclopedia items followed by web items.
func (s *PipelineState) Evidence() []models.EvidenceItem {
	return models.Combine(s.EvidenceA, s.EvidenceB)
}

type StageOutcome string

const (
	OutcomeOK       StageOutcome = "ok"
	OutcomeDegraded StageOutcome = "degraded"
	OutcomeSkipped  StageOutcome = "skipped"
)

// StageResult is the tagged result of one stage: ok with a patch, degraded
// with a reason and a fallback patch, or skipped.
type StageResult struct {
	Stage   string
	Outcome StageOutcome
	Reason  *apperrors.StandardError
	patch   patch
}

type patch interface {
	apply(*PipelineState)
}

// intentPatch owns Intent, and on failure Ambiguity and NeedsClarification.
type intentPatch struct {
	intent    *models.Intent
	ambiguity *models.AmbiguityVerdict
}

func (p intentPatch) apply(s *PipelineState) {
	s.Intent = p.intent
	if p.intent == nil {
		s.Ambiguity = p.ambiguity
		s.NeedsClarification = true
	}
}

// ambiguityPatch owns Ambiguity and NeedsClarification.
type ambiguityPatch struct {
	verdict *models.AmbiguityVerdict
}

func (p ambiguityPatch) apply(s *PipelineState) {
	s.Ambiguity = p.verdict
	s.NeedsClarification = p.verdict != nil && p.verdict.IsAmbiguous
}

// retrievalPatch owns one source's evidence slot.
type retrievalPatch struct {
	slotA  bool
	result retrieval.Result
}

func (p retrievalPatch) apply(s *PipelineState) {
	if p.slotA {
		s.EvidenceA = p.result.Items
		s.RetrievalA = p.result.Outcome
		return
	}
	s.EvidenceB = p.result.Items
	s.RetrievalB = p.result.Outcome
}

// verdictPatch owns Verdict.
type verdictPatch struct {
	verdict *models.Verdict
}

func (p verdictPatch) apply(s *PipelineState) {
	s.Verdict = p.verdict
}

// responsePatch owns FinalResponse.
type responsePatch struct {
	answer models.Answer
}

func (p responsePatch) apply(s *PipelineState) {
	a := p.answer
	s.FinalResponse = &a
}

func (s *PipelineState) apply(r StageResult) {
	if r.patch != nil {
		r.patch.apply(s)
	}
	s.Stages = append(s.Stages, r)
}
