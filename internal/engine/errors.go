package engine

import (
	"errors"
	"fmt"
)

// PlanError represents a failure to produce a plan preview.
//
// Plan errors include:
//   - Missing record URI: the caller supplied an empty record_uri
//   - Record not found: the source has no record with that URI
//   - Crypto unavailable: the SHA-256 primitive is missing
//   - Source failure: reading registries, items, templates or rules failed
//   - Internal: the plan input could not be canonicalized
//
// Data anomalies (bad config JSON, unknown registry keys, malformed rule
// criteria) are never PlanErrors; they surface as plan warnings.
type PlanError struct {
	// Code identifies the error category.
	Code PlanErrorCode

	// Message is the caller-facing description.
	Message string

	// RecordURI identifies the affected record, when known.
	RecordURI string

	// Err is the underlying cause.
	Err error
}

// PlanErrorCode categorizes plan errors.
type PlanErrorCode string

const (
	// ErrCodeMissingRecordURI indicates an empty record_uri.
	ErrCodeMissingRecordURI PlanErrorCode = "MISSING_RECORD_URI"

	// ErrCodeRecordNotFound indicates the record does not exist.
	ErrCodeRecordNotFound PlanErrorCode = "RECORD_NOT_FOUND"

	// ErrCodeCryptoUnavailable indicates hashing could not run.
	ErrCodeCryptoUnavailable PlanErrorCode = "CRYPTO_UNAVAILABLE"

	// ErrCodeSourceFailure indicates the plan source failed to load data.
	ErrCodeSourceFailure PlanErrorCode = "SOURCE_FAILURE"

	// ErrCodeInternal indicates the plan could not be serialized or hashed.
	ErrCodeInternal PlanErrorCode = "INTERNAL"
)

// Caller-facing messages.
const (
	MsgMissingRecordURI = "Missing record_uri query parameter"
	MsgBuildFailed      = "Failed to build plan preview"
)

// Error implements the error interface.
func (e *PlanError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RecordURI != "" && e.Code != ErrCodeRecordNotFound {
		msg += fmt.Sprintf(" (record=%s)", e.RecordURI)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *PlanError) Unwrap() error {
	return e.Err
}

// IsMissingRecordURI returns true if err is a missing record_uri error.
// Uses errors.As to handle wrapped errors.
func IsMissingRecordURI(err error) bool {
	return hasCode(err, ErrCodeMissingRecordURI)
}

// IsNotFound returns true if err is a record-not-found error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeRecordNotFound)
}

// IsCryptoUnavailable returns true if err is a crypto-unavailable error.
func IsCryptoUnavailable(err error) bool {
	return hasCode(err, ErrCodeCryptoUnavailable)
}

func hasCode(err error, code PlanErrorCode) bool {
	var pe *PlanError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// NewMissingRecordURIError creates a PlanError for an empty record_uri.
func NewMissingRecordURIError() *PlanError {
	return &PlanError{
		Code:    ErrCodeMissingRecordURI,
		Message: MsgMissingRecordURI,
	}
}

// NewNotFoundError creates a PlanError for an unknown record.
func NewNotFoundError(recordURI string, cause error) *PlanError {
	return &PlanError{
		Code:      ErrCodeRecordNotFound,
		Message:   "Record not found: " + recordURI,
		RecordURI: recordURI,
		Err:       cause,
	}
}

// NewCryptoUnavailableError creates a PlanError for a missing hash primitive.
func NewCryptoUnavailableError(recordURI string, cause error) *PlanError {
	return &PlanError{
		Code:      ErrCodeCryptoUnavailable,
		Message:   MsgBuildFailed,
		RecordURI: recordURI,
		Err:       cause,
	}
}

// NewSourceError creates a PlanError for a failed source read.
func NewSourceError(recordURI, what string, cause error) *PlanError {
	return &PlanError{
		Code:      ErrCodeSourceFailure,
		Message:   MsgBuildFailed,
		RecordURI: recordURI,
		Err:       fmt.Errorf("load %s: %w", what, cause),
	}
}
