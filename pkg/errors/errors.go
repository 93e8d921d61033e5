// Package errors defines the error taxonomy used across the regis engine.
//
// Every error carries enough context (server id, target id where applicable,
// underlying cause) to render actionable diagnostics. Token values must
// never be placed in an error message.
package errors

import (
	"errors"
	"fmt"
)

// Error types
const (
	// ErrConfig is returned when a server entry or config file is invalid.
	// Fatal to that server only, not to the whole registry.
	ErrConfig = "config"

	// ErrDiscovery is returned when auth method or issuer discovery fails
	// (network, DNS, or no methods available). Recoverable by retry.
	ErrDiscovery = "discovery"

	// ErrAuth is returned when the provider rejected credentials or a scope
	// ambiguity was left unresolved. Requires a new attempt or explicit
	// scope input.
	ErrAuth = "auth"

	// ErrTimeout is returned when the authentication polling budget is
	// exhausted. Recoverable by restarting the flow.
	ErrTimeout = "timeout"

	// ErrTargetDiscovery is returned when target listing fails after
	// successful authentication. Recoverable.
	ErrTargetDiscovery = "target_discovery"

	// ErrAuthorization is returned when access to a specific target is
	// denied. Not globally fatal.
	ErrAuthorization = "authorization"

	// ErrConnection is returned when establishment fails after a successful
	// authorization. Retryable per-target.
	ErrConnection = "connection"
)

// Error represents an error in the engine.
type Error struct {
	// Type is the error type
	Type string

	// Message is the error message
	Message string

	// ServerID identifies the server the operation was acting on, if any.
	ServerID string

	// TargetID identifies the target the operation was acting on, if any.
	TargetID string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.ServerID != "" {
		msg = fmt.Sprintf("%s (server %s)", msg, e.ServerID)
	}
	if e.TargetID != "" {
		msg = fmt.Sprintf("%s (target %s)", msg, e.TargetID)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error.
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// WithServer attaches a server id to the error and returns it.
func (e *Error) WithServer(serverID string) *Error {
	e.ServerID = serverID
	return e
}

// WithTarget attaches a target id to the error and returns it.
func (e *Error) WithTarget(targetID string) *Error {
	e.TargetID = targetID
	return e
}

// NewConfigError creates a new config error.
func NewConfigError(message string, cause error) *Error {
	return NewError(ErrConfig, message, cause)
}

// NewDiscoveryError creates a new discovery error.
func NewDiscoveryError(message string, cause error) *Error {
	return NewError(ErrDiscovery, message, cause)
}

// NewAuthError creates a new auth error.
func NewAuthError(message string, cause error) *Error {
	return NewError(ErrAuth, message, cause)
}

// NewTimeoutError creates a new timeout error.
func NewTimeoutError(message string, cause error) *Error {
	return NewError(ErrTimeout, message, cause)
}

// NewTargetDiscoveryError creates a new target discovery error.
func NewTargetDiscoveryError(message string, cause error) *Error {
	return NewError(ErrTargetDiscovery, message, cause)
}

// NewAuthorizationError creates a new authorization error.
func NewAuthorizationError(message string, cause error) *Error {
	return NewError(ErrAuthorization, message, cause)
}

// NewConnectionError creates a new connection error.
func NewConnectionError(message string, cause error) *Error {
	return NewError(ErrConnection, message, cause)
}

func isType(err error, errorType string) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == errorType
}

// IsConfig checks if the error is a config error.
func IsConfig(err error) bool {
	return isType(err, ErrConfig)
}

// IsDiscovery checks if the error is a discovery error.
func IsDiscovery(err error) bool {
	return isType(err, ErrDiscovery)
}

// IsAuth checks if the error is an auth error.
func IsAuth(err error) bool {
	return isType(err, ErrAuth)
}

// IsTimeout checks if the error is a timeout error.
func IsTimeout(err error) bool {
	return isType(err, ErrTimeout)
}

// IsTargetDiscovery checks if the error is a target discovery error.
func IsTargetDiscovery(err error) bool {
	return isType(err, ErrTargetDiscovery)
}

// IsAuthorization checks if the error is an authorization error.
func IsAuthorization(err error) bool {
	return isType(err, ErrAuthorization)
}

// IsConnection checks if the error is a connection error.
func IsConnection(err error) bool {
	return isType(err, ErrConnection)
}
