// ABOUTME: This file defines the structured error taxonomy for upstream API failures
// ABOUTME: Every error crossing a service boundary carries exactly one of these kinds

package models

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrorKind classifies a failed operation. The kinds are mutually exclusive.
type ErrorKind string

const (
	ErrKindNotAuthenticated          ErrorKind = "not_authenticated"
	ErrKindAuthRejected              ErrorKind = "auth_rejected"
	ErrKindRefreshTokenExpired       ErrorKind = "refresh_token_expired"
	ErrKindClientCredentialsRejected ErrorKind = "client_credentials_rejected"
	ErrKindRateLimited               ErrorKind = "rate_limited"
	ErrKindUpstream4xx               ErrorKind = "upstream_4xx"
	ErrKindUpstream5xx               ErrorKind = "upstream_5xx"
	ErrKindTransport                 ErrorKind = "transport"
	ErrKindDecode                    ErrorKind = "decode_error"
	ErrKindValidation                ErrorKind = "validation_error"
)

// maxErrorBodyBytes bounds how much of an upstream response body an error may
// carry.
const maxErrorBodyBytes = 500

// APIError is the structured error returned by the transport and service
// layers. Message and Body never contain token material.
type APIError struct {
	Kind    ErrorKind
	Op      string // logical operation name, e.g. "list_products"
	Status  int    // upstream HTTP status when applicable
	Message string
	Body    string // truncated upstream response body
	Err     error  // wrapped cause
}

func (e *APIError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError builds an error with the upstream body truncated to the cap.
func NewAPIError(kind ErrorKind, op string, status int, message, body string) *APIError {
	return &APIError{
		Kind:    kind,
		Op:      op,
		Status:  status,
		Message: message,
		Body:    TruncateBody(body),
	}
}

// NewValidationError reports caller-supplied input that failed a constraint.
func NewValidationError(format string, args ...any) *APIError {
	return &APIError{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the taxonomy kind from an error chain. Unclassified errors
// report as transport failures.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ErrKindTransport
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// TruncateBody caps a response body excerpt for diagnostics. The cut never
// splits a multibyte rune, so the excerpt stays valid UTF-8.
func TruncateBody(body string) string {
	if len(body) <= maxErrorBodyBytes {
		return body
	}
	cut := maxErrorBodyBytes
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
