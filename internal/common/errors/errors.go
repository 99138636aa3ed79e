// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Feed ranking errors
const (
	ErrCodeParseError            ErrorCode = "PARSE_ERROR"
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeInvalidCandidate      ErrorCode = "INVALID_CANDIDATE"
	ErrCodeInvalidRankingConfig  ErrorCode = "INVALID_RANKING_CONFIG"

	ErrCodeProfileNotFound        ErrorCode = "PROFILE_NOT_FOUND"
	ErrCodeProfileLoadFailed      ErrorCode = "PROFILE_LOAD_FAILED"
	ErrCodeInteractionsLoadFailed ErrorCode = "INTERACTIONS_LOAD_FAILED"
	ErrCodeSocialGraphLoadFailed  ErrorCode = "SOCIAL_GRAPH_LOAD_FAILED"
	ErrCodeCandidateLoadFailed    ErrorCode = "CANDIDATE_LOAD_FAILED"
	ErrCodeScoreCacheFailed       ErrorCode = "SCORE_CACHE_FAILED"

	ErrCodeRankingFailed         ErrorCode = "RANKING_FAILED"
	ErrCodeDiversificationFailed ErrorCode = "DIVERSIFICATION_FAILED"
)

// Generic codes shared with the Zeebe client wrapper
const (
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
	ErrCodeBusinessRuleViolation  ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeExternalServiceError   ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                ErrorCode = "TIMEOUT_ERROR"
	ErrCodeResourceNotFound       ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeAuthenticationRejected ErrorCode = "AUTHENTICATION_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key to the error metadata and returns the error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError unwraps err looking for a StandardError.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

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

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewParseError is returned when job variables are not valid JSON for the task.
func NewParseError(err error) *StandardError {
	return newError(ErrCodeParseError, "Failed to parse job variables", err.Error(), false)
}

// NewInputValidationError wraps schema or field validation failures.
func NewInputValidationError(details string) *StandardError {
	return newError(ErrCodeInputValidationFailed, "Job input failed validation", details, false)
}

// NewInvalidCandidateError is used when a single-item task receives a malformed candidate.
// Batch tasks report bad candidates in their rejected list instead.
func NewInvalidCandidateError(itemID string, err error) *StandardError {
	return newError(ErrCodeInvalidCandidate, "Invalid candidate item", err.Error(), false).
		WithMetadata("itemId", itemID)
}

func NewInvalidRankingConfigError(err error) *StandardError {
	return newError(ErrCodeInvalidRankingConfig, "Ranking configuration is invalid", err.Error(), false)
}

func NewProfileNotFoundError(userID string) *StandardError {
	return newError(ErrCodeProfileNotFound, "Profile not found", fmt.Sprintf("userId: %s", userID), false).
		WithMetadata("userId", userID)
}

func NewProfileLoadFailedError(userID string, err error) *StandardError {
	return newError(ErrCodeProfileLoadFailed, "Failed to load profile", err.Error(), true).
		WithMetadata("userId", userID)
}

func NewInteractionsLoadFailedError(userID string, err error) *StandardError {
	return newError(ErrCodeInteractionsLoadFailed, "Failed to load interaction history", err.Error(), true).
		WithMetadata("userId", userID)
}

func NewSocialGraphLoadFailedError(userID string, err error) *StandardError {
	return newError(ErrCodeSocialGraphLoadFailed, "Failed to load social graph", err.Error(), true).
		WithMetadata("userId", userID)
}

// NewCandidateLoadFailedError covers both the job index and the post store.
func NewCandidateLoadFailedError(source string, err error) *StandardError {
	return newError(ErrCodeCandidateLoadFailed, fmt.Sprintf("Failed to load %s candidates", source), err.Error(), true).
		WithMetadata("source", source)
}

// NewScoreCacheFailedError is logged by workers and never fails a job.
func NewScoreCacheFailedError(err error) *StandardError {
	return newError(ErrCodeScoreCacheFailed, "Score cache unavailable", err.Error(), false)
}

func NewRankingFailedError(err error) *StandardError {
	return newError(ErrCodeRankingFailed, "Ranking pass failed", err.Error(), true)
}

func NewDiversificationFailedError(details string) *StandardError {
	return newError(ErrCodeDiversificationFailed, "Diversification failed", details, false)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRuleViolation, message, details, false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalServiceError, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthenticationRejected, "Authentication failed", details, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the error codes caught by
// boundary events in the feed process models.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeParseError:             "PARSE_ERROR",
	ErrCodeInputValidationFailed:  "INPUT_VALIDATION_FAILED",
	ErrCodeInvalidCandidate:       "INVALID_CANDIDATE",
	ErrCodeInvalidRankingConfig:   "INVALID_RANKING_CONFIG",
	ErrCodeProfileNotFound:        "PROFILE_NOT_FOUND",
	ErrCodeProfileLoadFailed:      "PROFILE_LOAD_FAILED",
	ErrCodeInteractionsLoadFailed: "INTERACTIONS_LOAD_FAILED",
	ErrCodeSocialGraphLoadFailed:  "SOCIAL_GRAPH_LOAD_FAILED",
	ErrCodeCandidateLoadFailed:    "CANDIDATE_LOAD_FAILED",
	ErrCodeRankingFailed:          "RANKING_FAILED",
	ErrCodeDiversificationFailed:  "DIVERSIFICATION_FAILED",
	ErrCodeExternalServiceError:   "EXTERNAL_SERVICE_ERROR",
	ErrCodeTimeout:                "TIMEOUT_ERROR",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProfileLoadFailed,
		ErrCodeInteractionsLoadFailed,
		ErrCodeSocialGraphLoadFailed,
		ErrCodeCandidateLoadFailed,
		ErrCodeExternalServiceError:
		return 3 // Store and transport failures

	case ErrCodeTimeout:
		return 2

	case ErrCodeRankingFailed:
		return 1 // Only a cancelled or timed-out pass ends up here

	default:
		return 0 // Input and business errors, cache failures
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "PARSE") ||
		strings.Contains(codeStr, "INVALID") ||
		strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "LOAD") || strings.Contains(codeStr, "NOT_FOUND"):
		return "STORE"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "RANKING") || strings.Contains(codeStr, "DIVERSIFICATION"):
		return "RANKING"
	case strings.Contains(codeStr, "SERVICE") || strings.Contains(codeStr, "TIMEOUT"):
		return "TRANSPORT"
	default:
		return "OTHER"
	}
}
