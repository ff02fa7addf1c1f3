package langgraph

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Reason classifies a ServiceError.
type Reason string

const (
	ReasonUnreachable Reason = "unreachable"
	ReasonRejected    Reason = "rejected"
	ReasonMalformed   Reason = "malformed"
	ReasonTimeout     Reason = "timeout"
)

// ServiceError reports a connectivity or protocol failure talking to the
// graph service.
type ServiceError struct {
	Op     string
	Reason Reason
	Status int
	Err    error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("langgraph %s: %s", e.Op, e.Reason)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsServiceError reports whether err is, or wraps, a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// ReasonOf returns the reason of a wrapped ServiceError, or "".
func ReasonOf(err error) Reason {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Reason
	}
	return ""
}

// transportError classifies an error returned by the HTTP round trip or body
// read.
func transportError(op string, err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	reason := ReasonUnreachable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		reason = ReasonTimeout
	}
	return &ServiceError{Op: op, Reason: reason, Err: err}
}
