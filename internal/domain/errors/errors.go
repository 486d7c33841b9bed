// Package errors provides domain-specific errors for rangesync.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common domain error conditions.
var (
	ErrPlayerNotFound  = errors.New("player not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrLinkNotFound    = errors.New("link not found")
	ErrShareNotFound   = errors.New("share not found")
	ErrRemoteNotFound  = errors.New("remote record not found")
	ErrNotSignedIn     = errors.New("no signed-in user")
	ErrNotFriends      = errors.New("users are not friends")
	ErrLinkExists      = errors.New("link already exists for this player pair")
	ErrLinkLimit       = errors.New("link limit reached")
	ErrLinkNotPending  = errors.New("link is not pending")
	ErrLinkNotActive   = errors.New("link is not active")
	ErrNotRecipient    = errors.New("only the recipient may perform this action")
	ErrNotInitiator    = errors.New("only the initiator may perform this action")
	ErrNotLinkParty    = errors.New("user is not a party to this link")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrNoRemote        = errors.New("remote store is not configured")
)

// ErrorCode categorizes errors for handling and reporting.
type ErrorCode string

const (
	CodeValidation    ErrorCode = "VALIDATION"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeRemote        ErrorCode = "REMOTE"
	CodeConflict      ErrorCode = "CONFLICT"
	CodeRateLimit     ErrorCode = "RATE_LIMIT"
	CodeConfiguration ErrorCode = "CONFIG"
)

// RangeSyncError wraps errors with a code and context for handling.
type RangeSyncError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error returns a formatted error string including the code, message,
// and cause if present.
func (e *RangeSyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As.
func (e *RangeSyncError) Unwrap() error {
	return e.Cause
}

// NewError creates a new RangeSyncError with the given code, message,
// and optional cause.
func NewError(code ErrorCode, message string, cause error) *RangeSyncError {
	return &RangeSyncError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error's context and returns
// the error, allowing chaining.
func WithContext(err *RangeSyncError, key string, value interface{}) *RangeSyncError {
	if err.Context == nil {
		err.Context = make(map[string]interface{})
	}
	err.Context[key] = value
	return err
}

// CodeOf extracts the ErrorCode from an error chain, or "" when none
// is present.
func CodeOf(err error) ErrorCode {
	var rse *RangeSyncError
	if errors.As(err, &rse) {
		return rse.Code
	}
	return ""
}

// IsNotFound reports whether the error chain represents a missing
// record, locally or remotely. The synchronizer uses this to classify
// permanent push failures.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if CodeOf(err) == CodeNotFound {
		return true
	}
	return errors.Is(err, ErrRemoteNotFound) ||
		errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrLinkNotFound) ||
		errors.Is(err, ErrShareNotFound)
}

// Is reports whether err matches target using errors.Is semantics.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
