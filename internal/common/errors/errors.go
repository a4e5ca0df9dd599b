// Package errors provides the standardized error model shared by the
// pipeline, the cache tooling and the job worker.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeQueryInvalid ErrorCode = "QUERY_INVALID"

	ErrCodeIntentClassificationFailed ErrorCode = "INTENT_CLASSIFICATION_FAILED"
	ErrCodeAmbiguityCheckFailed       ErrorCode = "AMBIGUITY_CHECK_FAILED"
	ErrCodeRetrievalFailed            ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeEvaluationFailed           ErrorCode = "EVALUATION_FAILED"
	ErrCodeStageTimeout               ErrorCode = "STAGE_TIMEOUT"

	ErrCodeCacheUnavailable   ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeHistoryWriteFailed ErrorCode = "HISTORY_WRITE_FAILED"
	ErrCodeEngineUnavailable  ErrorCode = "ENGINE_UNAVAILABLE"
	ErrCodeEngineRejected     ErrorCode = "ENGINE_REJECTED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

// NewQueryInvalidError rejects input before a pipeline run starts.
func NewQueryInvalidError(details string) *StandardError {
	e := newError(ErrCodeQueryInvalid, "Query must be a non-empty string", nil, false)
	e.Details = details
	return e
}

func NewIntentClassificationError(err error) *StandardError {
	return newError(ErrCodeIntentClassificationFailed, "Intent classification failed", err, true)
}

func NewAmbiguityCheckError(err error) *StandardError {
	return newError(ErrCodeAmbiguityCheckFailed, "Ambiguity check failed", err, true)
}

func NewRetrievalError(source string, err error) *StandardError {
	e := newError(ErrCodeRetrievalFailed, fmt.Sprintf("Evidence retrieval from %s failed", source), err, true)
	e.Metadata = map[string]interface{}{"source": source}
	return e
}

func NewEvaluationError(err error) *StandardError {
	return newError(ErrCodeEvaluationFailed, "Evidence evaluation failed", err, true)
}

func NewStageTimeoutError(stage string, err error) *StandardError {
	e := newError(ErrCodeStageTimeout, fmt.Sprintf("Stage '%s' timed out", stage), err, true)
	e.Metadata = map[string]interface{}{"stage": stage}
	return e
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Result cache unavailable", err, true)
}

func NewHistoryWriteError(err error) *StandardError {
	return newError(ErrCodeHistoryWriteFailed, "Query history write failed", err, true)
}

// NewEngineError wraps a workflow engine failure. Only unavailability is
// worth retrying.
func NewEngineError(operation string, err error, retryable bool) *StandardError {
	code := ErrCodeEngineRejected
	if retryable {
		code = ErrCodeEngineUnavailable
	}
	e := newError(code, fmt.Sprintf("Zeebe operation '%s' failed", operation), err, retryable)
	e.Metadata = map[string]interface{}{"operation": operation}
	return e
}

// FromStage classifies a collaborator failure. Deadline and cancellation
// errors become STAGE_TIMEOUT so a timeout reads the same as any other
// degraded stage.
func FromStage(stage string, err error, build func(error) *StandardError) *StandardError {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return NewStageTimeoutError(stage, err)
	}
	var std *StandardError
	if stderrors.As(err, &std) {
		return std
	}
	return build(err)
}

// Normalize converts any error to a StandardError.
func Normalize(err error) *StandardError {
	var std *StandardError
	if stderrors.As(err, &std) {
		return std
	}
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeQueryInvalid:               "QUERY_INVALID",
	ErrCodeIntentClassificationFailed: "INTENT_CLASSIFICATION_FAILED",
	ErrCodeAmbiguityCheckFailed:       "AMBIGUITY_CHECK_FAILED",
	ErrCodeRetrievalFailed:            "RETRIEVAL_FAILED",
	ErrCodeEvaluationFailed:           "EVALUATION_FAILED",
	ErrCodeStageTimeout:               "STAGE_TIMEOUT",
	ErrCodeCacheUnavailable:           "CACHE_UNAVAILABLE",
	ErrCodeHistoryWriteFailed:         "HISTORY_WRITE_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeIntentClassificationFailed,
		ErrCodeAmbiguityCheckFailed,
		ErrCodeRetrievalFailed,
		ErrCodeEvaluationFailed,
		ErrCodeHistoryWriteFailed,
		ErrCodeCacheUnavailable,
		ErrCodeEngineUnavailable:
		return 3

	case ErrCodeStageTimeout:
		return 2

	default:
		return 0 // Business errors: no retry
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "INTENT") || strings.Contains(codeStr, "AMBIGUITY") || strings.Contains(codeStr, "EVALUATION"):
		return "AI"
	case strings.Contains(codeStr, "RETRIEVAL"):
		return "RETRIEVAL"
	case strings.Contains(codeStr, "TIMEOUT"):
		return "TIMEOUT"
	case strings.Contains(codeStr, "HISTORY"):
		return "DATABASE"
	case strings.HasPrefix(codeStr, "ENGINE"):
		return "ENGINE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
