package engine

import (
	"errors"
	"fmt"
	"strings"
)

// FaultKind identifies one of the closed set of failure classes a dispatch
// can settle with.
type FaultKind string

const (
	FaultValidation       FaultKind = "validation_error"
	FaultUnknownOperation FaultKind = "unknown_operation"
	FaultBackend          FaultKind = "backend_error"
	FaultExecution        FaultKind = "execution_error"
)

// unknownFailureMessage stands in for recovered panic values that carry no
// usable error message.
const unknownFailureMessage = "Unknown error occurred"

// Fault is the classified form of a dispatch failure. Details is internal
// context for logs; it is never rendered to the caller.
type Fault struct {
	Kind       FaultKind `json:"kind"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Details    string    `json:"details,omitempty"`
}

// Error returns the fault message without the caller-facing prefix.
func (f *Fault) Error() string {
	return f.Message
}

// Interface guard for Fault
var _ error = &Fault{}

// Render returns the caller-visible text for the fault, prefixed so that a
// plain-text transport can still signal failure.
func (f *Fault) Render() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(f.Message)

	switch {
	case f.Code != "" && f.HTTPStatus != 0:
		fmt.Fprintf(&b, " (%s, http %d)", f.Code, f.HTTPStatus)
	case f.Code != "":
		fmt.Fprintf(&b, " (%s)", f.Code)
	case f.HTTPStatus != 0:
		fmt.Fprintf(&b, " (http %d)", f.HTTPStatus)
	}

	return b.String()
}

// BackendFault is implemented by errors coming out of a generation backend
// that carry a service error code. Classification depends only on this
// interface, not on any backend implementation.
type BackendFault interface {
	error
	BackendCode() string
	HTTPStatus() int
	FaultDetails() string
}

// Classify maps an arbitrary failure cause to a Fault. It never fails, and
// it is idempotent: an already classified fault comes back unchanged.
func Classify(cause error) *Fault {
	if cause == nil {
		return nil
	}

	var fault *Fault
	if errors.As(cause, &fault) {
		return fault
	}

	var notFound *OperationNotFoundError
	if errors.As(cause, &notFound) {
		return &Fault{Kind: FaultUnknownOperation, Message: notFound.Error()}
	}

	var invalidArgs *ArgumentError
	if errors.As(cause, &invalidArgs) {
		return &Fault{Kind: FaultValidation, Message: invalidArgs.Error()}
	}

	var backend BackendFault
	if errors.As(cause, &backend) {
		return &Fault{
			Kind:       FaultBackend,
			Message:    backend.Error(),
			Code:       backend.BackendCode(),
			HTTPStatus: backend.HTTPStatus(),
			Details:    backend.FaultDetails(),
		}
	}

	return &Fault{Kind: FaultExecution, Message: cause.Error()}
}

// ClassifyRecovered converts a recovered panic value into a Fault. Values
// that are not errors produce the generic execution failure message.
func ClassifyRecovered(recovered any) *Fault {
	if err, ok := recovered.(error); ok {
		return Classify(err)
	}
	return &Fault{Kind: FaultExecution, Message: unknownFailureMessage}
}
