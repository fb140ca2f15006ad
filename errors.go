package reqflow

import (
	"errors"
	"fmt"
	"time"
)

// Error type identifiers carried by ControllerError.
const (
	ErrorTypeValidation = "Validation"
	ErrorTypeResolve    = "Resolve"
)

// ControllerError represents an error raised by the controller itself,
// as opposed to transport errors, which are stored in the state verbatim.
type ControllerError struct {
	Type      string
	Message   string
	Cause     error
	RequestID string
	URL       string
	Timestamp time.Time
}

// Error implements error interface.
func (e *ControllerError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ControllerError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ControllerError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ControllerError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

var (
	// ErrClosed is returned by SendRequest after Close.
	ErrClosed = errors.New("controller is closed")
	// ErrTriggerPending is returned by SendRequest while an earlier
	// trigger apply is still pending.
	ErrTriggerPending = errors.New("trigger apply already pending")

	errBaseNotAbsolute = errors.New("base URL is not absolute")
)

func (c *Controller) newResolveError(cause error, requestID, rawURL string) *ControllerError {
	return &ControllerError{
		Type:      ErrorTypeResolve,
		Message:   "URL resolution failed",
		Cause:     cause,
		RequestID: requestID,
		URL:       rawURL,
		Timestamp: time.Now(),
	}
}
