package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code and message so that wrapped sentinels
// still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeTransport     = "TRANSPORT_ERROR"
	ErrCodeBusy          = "BUSY"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrWrongFileType      = NewDomainError(ErrCodeValidation, "Please upload a PDF file.")
	ErrNoSelection        = NewDomainError(ErrCodeValidation, "Please select at least one match.")
	ErrRowOutOfRange      = NewDomainError(ErrCodeValidation, "row index out of range")
	ErrChoiceOutOfRange   = NewDomainError(ErrCodeValidation, "match choice out of range")
	ErrInvalidExtraction  = NewDomainError(ErrCodeValidation, "invalid extraction payload")
	ErrMissingItemList    = NewDomainError(ErrCodeValidation, "JSON must contain an 'item_des' list of products")
	ErrNoJSONData         = NewDomainError(ErrCodeValidation, "No JSON data provided")
	ErrNoFileUploaded     = NewDomainError(ErrCodeValidation, "No file uploaded")
	ErrFileMustBePDF      = NewDomainError(ErrCodeValidation, "File must be a PDF")
	ErrFileMustBeJSON     = NewDomainError(ErrCodeValidation, "File must be a JSON file")
	ErrNoMappings         = NewDomainError(ErrCodeValidation, "No mappings provided")
	ErrInvalidProduct     = NewDomainError(ErrCodeValidation, "product requires id and name")
	ErrUploadTooLarge     = NewDomainError(ErrCodeValidation, "upload too large")
	ErrUploadUnreadable   = NewDomainError(ErrCodeValidation, "could not read upload")
)

// Busy errors are returned when a flow of the same class is already in flight.
var (
	ErrUploadInProgress = NewDomainError(ErrCodeBusy, "an upload is already in progress")
	ErrSaveInProgress   = NewDomainError(ErrCodeBusy, "a save is already in progress")
)

// Not found errors
var (
	ErrProductNotFound = NewDomainError(ErrCodeNotFound, "product not found")
)

// Upstream errors
var (
	ErrUpstream = NewDomainError(ErrCodeUpstream, "collaborator request failed")
)

// Internal errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

// CodeOf returns the code of the first DomainError in err's chain, or "" if none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsValidation reports whether err is a client-side validation error.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}
