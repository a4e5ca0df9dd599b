// internal/models/query.go
package models

// Entities are the named things extracted from a question, in the order the
// classifier reported them.
type Entities struct {
	Companies  []string `json:"companies"`
	Products   []string `json:"products"`
	People     []string `json:"people"`
	Attributes []string `json:"attributes"`
}

// Intent is the structured classification of a question. It is produced once
// per run and never mutated afterwards.
type Intent struct {
	QueryType      QueryType `json:"queryType"`
	Entities       Entities  `json:"entities"`
	TimeConstraint *string   `json:"timeConstraint,omitempty"`
}

// PrimaryCompany returns the first extracted company, if any.
func (i *Intent) PrimaryCompany() (string, bool) {
	if i == nil || len(i.Entities.Companies) == 0 {
		return "", false
	}
	return i.Entities.Companies[0], true
}

type AmbiguityVerdict struct {
	IsAmbiguous          bool     `json:"isAmbiguous"`
	ClarificationMessage *string  `json:"clarificationMessage,omitempty"`
	Interpretations      []string `json:"interpretations,omitempty"`
	Confidence           float64  `json:"confidence"`
}

// AmbiguousVerdict builds a maximally uncertain verdict carrying message.
func AmbiguousVerdict(message string) *AmbiguityVerdict {
	return &AmbiguityVerdict{
		IsAmbiguous:          true,
		ClarificationMessage: &message,
		Confidence:           0,
	}
}
