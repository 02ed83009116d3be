package oauth

import (
	"errors"
	"fmt"
)

// Package-level errors
var (
	// ErrCompositionMismatch indicates a capability factory was missing or
	// produced no collaborator while composing a client
	ErrCompositionMismatch = errors.New("capability composition mismatch")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPKCENotSupported indicates the runtime environment cannot perform PKCE
	ErrPKCENotSupported = errors.New("PKCE not supported in this environment")

	// ErrInvalidCodeChallengeMethod indicates the authorization server does not
	// advertise the requested code challenge method
	ErrInvalidCodeChallengeMethod = errors.New("invalid code_challenge_method")

	// ErrNetworkError indicates a network error occurred
	ErrNetworkError = errors.New("network error")

	// ErrInvalidResponse indicates an unparseable response from the server
	ErrInvalidResponse = errors.New("invalid response from authorization server")

	// ErrTransactionNotFound indicates no transaction meta is saved
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidState indicates state parameter mismatch (CSRF protection)
	ErrInvalidState = errors.New("invalid state parameter")

	// ErrAccessDenied indicates user denied access
	ErrAccessDenied = errors.New("access denied by user")

	// ErrInteractionRequired indicates the server requires user interaction
	ErrInteractionRequired = errors.New("interaction required")

	// ErrServerError indicates authorization server error
	ErrServerError = errors.New("authorization server error")

	// ErrTemporarilyUnavailable indicates service temporarily unavailable
	ErrTemporarilyUnavailable = errors.New("service temporarily unavailable")
)

// Error represents a detailed OAuth error
type Error struct {
	Code        string // OAuth error code (e.g., "invalid_request")
	Description string // Human-readable error description
	URI         string // Optional URI with error details
	Err         error  // Underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth error: %s (%s)", e.Description, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("oauth error: %v", e.Err)
	}
	return fmt.Sprintf("oauth error: %s", e.Code)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new OAuth error
func NewError(code, description string) *Error {
	return &Error{
		Code:        code,
		Description: description,
	}
}

// WrapError wraps an error with OAuth context
func WrapError(code string, err error) *Error {
	return &Error{
		Code: code,
		Err:  err,
	}
}

// ParseError parses an OAuth error from a response or redirect
func ParseError(code, description, uri string) *Error {
	oauthErr := &Error{
		Code:        code,
		Description: description,
		URI:         uri,
	}

	// Map OAuth error codes to standard errors
	switch code {
	case "access_denied":
		oauthErr.Err = ErrAccessDenied
	case "interaction_required":
		oauthErr.Err = ErrInteractionRequired
	case "server_error":
		oauthErr.Err = ErrServerError
	case "temporarily_unavailable":
		oauthErr.Err = ErrTemporarilyUnavailable
	}

	return oauthErr
}

// IsRetryable checks if an error is retryable. Capability and method
// failures never are; transport failures are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNetworkError) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, ErrTemporarilyUnavailable) {
		return true
	}

	var oauthErr *Error
	if errors.As(err, &oauthErr) {
		return oauthErr.Code == "temporarily_unavailable" ||
			oauthErr.Code == "server_error"
	}

	return false
}
