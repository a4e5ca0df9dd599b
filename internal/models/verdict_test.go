package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVerdict_ValidityThreshold(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		valid      bool
	}{
		{"just below threshold", 0.699, false},
		{"at threshold", 0.7, true},
		{"high confidence", 0.95, true},
		{"zero", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVerdict(tt.confidence, nil, nil, "")
			assert.Equal(t, tt.valid, v.IsValid)
			assert.Equal(t, tt.confidence, v.Confidence)
		})
	}
}

func TestNewVerdict_ClampsConfidence(t *testing.T) {
	assert.Equal(t, 1.0, NewVerdict(1.7, nil, nil, "").Confidence)
	assert.Equal(t, 0.0, NewVerdict(-0.2, nil, nil, "").Confidence)
}

func TestInvalidVerdict(t *testing.T) {
	v := InvalidVerdict("Query requires clarification")
	assert.False(t, v.IsValid)
	assert.Equal(t, 0.0, v.Confidence)
	assert.Equal(t, []string{"Query requires clarification"}, v.MissingInformation)
	assert.Empty(t, v.KeyFindings)
}

func TestParseQueryType(t *testing.T) {
	assert.Equal(t, QueryTypeNews, ParseQueryType("NEWS"))
	assert.Equal(t, QueryTypeBusinessModel, ParseQueryType(" business_model "))
	assert.Equal(t, QueryTypeGeneral, ParseQueryType("weather"))
	assert.Equal(t, QueryTypeGeneral, ParseQueryType(""))
}

func TestCombine_PreservesOrder(t *testing.T) {
	a := []EvidenceItem{{Content: "a1"}, {Content: "a2"}}
	b := []EvidenceItem{{Content: "b1"}}

	combined := Combine(a, b)

	assert.Len(t, combined, 3)
	assert.Equal(t, "a1", combined[0].Content)
	assert.Equal(t, "a2", combined[1].Content)
	assert.Equal(t, "b1", combined[2].Content)
}
