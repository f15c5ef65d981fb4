// Package errors provides error types for the doorbell monitor
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// NotifyError represents a doorbell error with structured information
type NotifyError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Channel  string                 `json:"channel,omitempty"`
	Target   string                 `json:"target,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	Cause error `json:"-"`

	Retryable    bool `json:"retryable"`
	AttemptCount int  `json:"attempt_count,omitempty"`
}

// Error implements the error interface
func (e *NotifyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	switch {
	case e.Channel != "" && e.Target != "":
		fmt.Fprintf(&b, " (channel: %s, target: %s)", e.Channel, e.Target)
	case e.Channel != "":
		fmt.Fprintf(&b, " (channel: %s)", e.Channel)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause error
func (e *NotifyError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error by code
func (e *NotifyError) Is(target error) bool {
	if targetErr, ok := target.(*NotifyError); ok {
		return e.Code == targetErr.Code
	}
	return false
}

// WithCause adds a cause error
func (e *NotifyError) WithCause(cause error) *NotifyError {
	e.Cause = cause
	return e
}

// WithChannel sets the channel name
func (e *NotifyError) WithChannel(channel string) *NotifyError {
	e.Channel = channel
	return e
}

// WithTarget sets the recipient
func (e *NotifyError) WithTarget(target string) *NotifyError {
	e.Target = target
	return e
}

// WithMetadata adds metadata
func (e *NotifyError) WithMetadata(key string, value interface{}) *NotifyError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithAttemptCount sets the attempt count
func (e *NotifyError) WithAttemptCount(count int) *NotifyError {
	e.AttemptCount = count
	return e
}

// IsRetryable returns whether the error is retryable
func (e *NotifyError) IsRetryable() bool {
	if e.Retryable {
		return true
	}
	return IsRetryable(e.Code)
}

// StatusCode returns the HTTP status recorded for DELIVERY_BAD_STATUS errors, or 0.
func (e *NotifyError) StatusCode() int {
	if v, ok := e.Metadata["status"].(int); ok {
		return v
	}
	return 0
}

// New creates a new NotifyError
func New(code ErrorCode, message string) *NotifyError {
	return &NotifyError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Retryable: IsRetryable(code),
	}
}

// Newf creates a new NotifyError with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *NotifyError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a NotifyError
func Wrap(err error, code ErrorCode, message string) *NotifyError {
	return New(code, message).WithCause(err)
}

// Wrapf wraps an existing error with a NotifyError and formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *NotifyError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Convenience constructors for delivery errors

// NewTransportError reports a request that produced no response.
func NewTransportError(channel string, cause error) *NotifyError {
	return Wrap(cause, ErrDeliveryTransport, "request failed").WithChannel(channel)
}

// NewBadStatusError reports an unexpected HTTP status.
func NewBadStatusError(channel string, status int, body string) *NotifyError {
	e := Newf(ErrDeliveryBadStatus, "unexpected status %d", status).
		WithChannel(channel).
		WithMetadata("status", status)
	if body != "" {
		e.WithMetadata("body", body)
	}
	return e
}

// NewEncodingError reports a request that could not be built.
func NewEncodingError(channel string, cause error) *NotifyError {
	return Wrap(cause, ErrDeliveryEncoding, "encode request").WithChannel(channel)
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *NotifyError {
	return New(ErrConfigInvalid, message)
}

// NewMissingCredentialError reports a channel that lacks a required setting.
func NewMissingCredentialError(channel, field string) *NotifyError {
	return Newf(ErrConfigMissingCredentials, "%s is required", field).WithChannel(channel)
}

// Error classification functions

// As extracts a *NotifyError from err's chain.
func As(err error) (*NotifyError, bool) {
	var ne *NotifyError
	if stderrors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// CodeOf extracts the error code from an error
func CodeOf(err error) ErrorCode {
	if ne, ok := As(err); ok {
		return ne.Code
	}
	return ErrInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	if ne, ok := As(err); ok {
		return ne.Code == code
	}
	return false
}

// IsRetryableError checks if error is retryable
func IsRetryableError(err error) bool {
	if ne, ok := As(err); ok {
		return ne.IsRetryable()
	}
	return false
}

// IsTerminalError checks if error ends a connection attempt immediately
func IsTerminalError(err error) bool {
	if ne, ok := As(err); ok {
		return IsTerminal(ne.Code)
	}
	return false
}

// IsConfigError checks if error is a configuration error
func IsConfigError(err error) bool {
	if ne, ok := As(err); ok {
		return GetCategory(ne.Code) == "configuration"
	}
	return false
}
