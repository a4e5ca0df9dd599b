package answercompanyquery

import "company-intel/internal/common/validation"

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	ResponseText    string  `json:"responseText"`
	ConfidenceScore float64 `json:"confidenceScore"`
	RunID           string  `json:"runId"`
}

var inputSchema = validation.MustCompile("answer-company-query-input", `{
	"type": "object",
	"required": ["query"],
	"properties": {
		"query": {"type": "string", "minLength": 1}
	}
}`)
