package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewInvalidTransition reports a status change rejected by the transition
// table, naming the attempted pair and the allowed targets.
func NewInvalidTransition(from, to string, allowed []string) error {
	return NewDomainError(
		"INVALID_TRANSITION",
		fmt.Sprintf("invalid status transition from %s to %s", from, to),
		http.StatusUnprocessableEntity,
		map[string]any{"from": from, "to": to, "allowed": allowed},
	)
}

// NewSourceRecordNotFound reports that the authoritative CBS record for a
// client could not be fetched during reconciliation.
func NewSourceRecordNotFound(clientID string) error {
	return NewDomainError(
		"SOURCE_RECORD_NOT_FOUND",
		fmt.Sprintf("client %s not found in core banking system", clientID),
		http.StatusUnprocessableEntity,
		map[string]any{"client_id": clientID},
	)
}

// NewExternalTimeout reports that an outward call exceeded its bound.
func NewExternalTimeout(target string, err error) error {
	return &DomainError{
		Code:       "EXTERNAL_TIMEOUT",
		Message:    fmt.Sprintf("%s call timed out", target),
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

// NewConcurrencyConflict reports a lost race on a status transition. Callers
// should re-read the ticket and retry from its fresh state.
func NewConcurrencyConflict(resource string, details map[string]any) error {
	return NewDomainError(
		"CONCURRENCY_CONFLICT",
		fmt.Sprintf("%s was modified concurrently", resource),
		http.StatusConflict,
		details,
	)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err is a DomainError carrying the given code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
