package genai

import "company-intel/internal/common/validation"

var intentSchema = validation.MustCompile("classify-intent", `{
  "type": "object",
  "required": ["query_type"],
  "properties": {
    "query_type": {"type": "string"},
    "extracted_entities": {
      "type": "object",
      "properties": {
        "companies":  {"type": "array", "items": {"type": "string"}},
        "products":   {"type": "array", "items": {"type": "string"}},
        "people":     {"type": "array", "items": {"type": "string"}},
        "attributes": {"type": "array", "items": {"type": "string"}}
      }
    },
    "time_constraints": {"type": ["string", "null"]}
  }
}`)

var ambiguitySchema = validation.MustCompile("check-ambiguity", `{
  "type": "object",
  "required": ["is_ambiguous"],
  "properties": {
    "is_ambiguous": {"type": "boolean"},
    "clarification_message": {"type": ["string", "null"]},
    "possible_interpretations": {"type": ["array", "null"], "items": {"type": "string"}},
    "confidence_score": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`)

var evaluationSchema = validation.MustCompile("evaluate", `{
  "type": "object",
  "required": ["confidence_score"],
  "properties": {
    "main_points": {"type": ["array", "null"], "items": {"type": "string"}},
    "missing_information": {"type": ["array", "null"], "items": {"type": "string"}},
    "confidence_score": {"type": "number", "minimum": 0, "maximum": 1},
    "summary": {"type": ["string", "null"]},
    "source_quality": {"type": ["object", "null"], "additionalProperties": {"type": "number"}}
  }
}`)
