// internal/models/verdict.go
package models

// ValidityThreshold is the confidence at or above which evidence is
// considered sufficient to answer.
const ValidityThreshold = 0.7

type Verdict struct {
	IsValid            bool     `json:"isValid"`
	Confidence         float64  `json:"confidence"`
	MissingInformation []string `json:"missingInformation"`
	KeyFindings        []string `json:"keyFindings"`
	Summary            string   `json:"summary"`
}

// NewVerdict derives IsValid from confidence; callers never set it directly.
func NewVerdict(confidence float64, missing, findings []string, summary string) *Verdict {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	if missing == nil {
		missing = []string{}
	}
	if findings == nil {
		findings = []string{}
	}
	return &Verdict{
		IsValid:            confidence >= ValidityThreshold,
		Confidence:         confidence,
		MissingInformation: missing,
		KeyFindings:        findings,
		Summary:            summary,
	}
}

// InvalidVerdict is the zero-confidence verdict substituted when evaluation
// is skipped or fails.
func InvalidVerdict(missing ...string) *Verdict {
	return NewVerdict(0, missing, nil, "")
}

// Answer is the pipeline's final output.
type Answer struct {
	ResponseText    string  `json:"responseText"`
	ConfidenceScore float64 `json:"confidenceScore"`
}
