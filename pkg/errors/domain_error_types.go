package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates input validation failure
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainBusinessRuleError indicates a business rule violation
	DomainBusinessRuleError DomainErrorType = "BUSINESS_RULE_ERROR"

	DomainNotFoundError DomainErrorType = "NOT_FOUND"
	DomainConflictError DomainErrorType = "CONFLICT"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// Is matches on type and code so callers can compare against a fresh constructor result.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return http.StatusBadRequest
	case DomainBusinessRuleError:
		return http.StatusUnprocessableEntity
	case DomainNotFoundError:
		return http.StatusNotFound
	case DomainConflictError:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Person errors. Each call returns a fresh value so details never leak between requests.

// ErrPersonNotFound reports a missing person record
func ErrPersonNotFound(id string) *DomainError {
	return NewDomainError(DomainNotFoundError, "PERSON_NOT_FOUND", "The requested person does not exist").
		WithDetail("personID", id)
}

// ErrDuplicatePerson reports a key collision on insert
func ErrDuplicatePerson(id string) *DomainError {
	return NewDomainError(DomainConflictError, "DUPLICATE_PERSON", "A person with this ID already exists").
		WithDetail("personID", id)
}

// ErrSelfReference reports a relation pointing at the record itself
func ErrSelfReference(field string) *DomainError {
	return NewDomainError(DomainBusinessRuleError, "SELF_REFERENCE",
		fmt.Sprintf("%s cannot reference the person itself", field)).
		WithDetail("field", field)
}

// ErrReferenceMissing reports a relation pointing at an unknown person
func ErrReferenceMissing(field, id string) *DomainError {
	return NewDomainError(DomainValidationError, "REFERENCE_NOT_FOUND",
		fmt.Sprintf("%s refers to an unknown person", field)).
		WithDetail("field", field).
		WithDetail("personID", id)
}

// ErrParentGender reports a father who is not male or a mother who is not female
func ErrParentGender(field, expected string) *DomainError {
	return NewDomainError(DomainBusinessRuleError, "PARENT_GENDER_MISMATCH",
		fmt.Sprintf("%s must refer to a %s person", field, expected)).
		WithDetail("field", field)
}

// ErrSpouseGender reports a spouse link between two persons of the same gender
func ErrSpouseGender() *DomainError {
	return NewDomainError(DomainBusinessRuleError, "SPOUSE_GENDER_MISMATCH",
		"Spouse must be of the opposite gender").
		WithDetail("field", "spouseId")
}

// ErrConcurrentModification reports an optimistic locking failure
func ErrConcurrentModification(id string) *DomainError {
	return NewDomainError(DomainConflictError, "CONCURRENT_MODIFICATION",
		"The person was modified by another process").
		WithDetail("personID", id)
}

// ValidationErrors aggregates multiple validation errors
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]*DomainError, 0)}
}

// Add adds a field validation error
func (v *ValidationErrors) Add(field string, message string) {
	err := NewDomainError(DomainValidationError, "FIELD_VALIDATION_ERROR", message).
		WithDetail("field", field)
	v.Errors = append(v.Errors, err)
}

// AddError adds a pre-existing domain error
func (v *ValidationErrors) AddError(err *DomainError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// ErrOrNil returns v as an error when it holds entries, nil otherwise.
func (v *ValidationErrors) ErrOrNil() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (v *ValidationErrors) Unwrap() []error {
	out := make([]error, len(v.Errors))
	for i, err := range v.Errors {
		out[i] = err
	}
	return out
}

// HasCode reports whether err is, or aggregates, a domain error with code
func HasCode(err error, code string) bool {
	var verrs *ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs.Errors {
			if e.Code == code {
				return true
			}
		}
	}
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}

// ToMap groups messages by field
func (v *ValidationErrors) ToMap() map[string][]string {
	result := make(map[string][]string)
	for _, err := range v.Errors {
		field, ok := err.Details["field"].(string)
		if !ok {
			field = "general"
		}
		result[field] = append(result[field], err.Message)
	}
	return result
}
