package core

import (
	"fmt"
)

// ErrorCategory classifies the type of error for recovery routing and audit.
type ErrorCategory int

const (
	ErrCategoryNone      ErrorCategory = iota // No error
	ErrCategoryDevice                         // Device driver call failed
	ErrCategoryDecision                       // Model returned malformed or rejected output
	ErrCategoryLocator                        // Locator validation exhausted
	ErrCategoryTimeout                        // Transition or operation timed out
	ErrCategoryBootstrap                      // Session establishment failed
	ErrCategoryRecovery                       // A recovery strategy itself failed
	ErrCategoryConfig                         // Invalid configuration
)

// String returns the string representation of ErrorCategory.
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryDecision:
		return "decision"
	case ErrCategoryLocator:
		return "locator"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryBootstrap:
		return "bootstrap"
	case ErrCategoryRecovery:
		return "recovery"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

// TraversalError represents a structured error with category and details.
type TraversalError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: bootstrap_failed, locator_exhausted, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface.
func (e *TraversalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TraversalError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy of the error with the given cause.
func (e *TraversalError) WithCause(cause error) *TraversalError {
	return &TraversalError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message.
func (e *TraversalError) WithMessage(msg string) *TraversalError {
	return &TraversalError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *TraversalError) WithDetails(details map[string]interface{}) *TraversalError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &TraversalError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors.
var (
	ErrBootstrapFailed = &TraversalError{
		Category: ErrCategoryBootstrap,
		Code:     "bootstrap_failed",
		Message:  "device session bootstrap failed after retries",
	}
	ErrTransitionTimeout = &TraversalError{
		Category: ErrCategoryTimeout,
		Code:     "transition_timeout",
		Message:  "state transition exceeded its time budget",
	}
	ErrQueueExhausted = &TraversalError{
		Category: ErrCategoryNone,
		Code:     "queue_exhausted",
		Message:  "no pending actions remain",
	}
	ErrMalformedDecision = &TraversalError{
		Category: ErrCategoryDecision,
		Code:     "malformed_decision",
		Message:  "decision model returned malformed output",
	}
	ErrActionFailed = &TraversalError{
		Category: ErrCategoryDevice,
		Code:     "action_failed",
		Message:  "device interaction failed",
	}
	ErrLocatorExhausted = &TraversalError{
		Category: ErrCategoryLocator,
		Code:     "locator_exhausted",
		Message:  "all locator candidates failed validation",
	}
	ErrRebootUnsupported = &TraversalError{
		Category: ErrCategoryRecovery,
		Code:     "reboot_unsupported",
		Message:  "device reboot is not implemented",
	}
	ErrUnrecoverable = &TraversalError{
		Category: ErrCategoryRecovery,
		Code:     "unrecoverable",
		Message:  "recovery strategy failed",
	}
	ErrInvalidConfig = &TraversalError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
)

// NewTraversalError creates a new TraversalError with the given parameters.
func NewTraversalError(category ErrorCategory, code, message string) *TraversalError {
	return &TraversalError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
