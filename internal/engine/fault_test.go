package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackendError satisfies BackendFault the way a backend client error
// does, without importing one.
type stubBackendError struct {
	message string
	code    string
	status  int
	details string
}

func (e *stubBackendError) Error() string        { return e.message }
func (e *stubBackendError) BackendCode() string  { return e.code }
func (e *stubBackendError) HTTPStatus() int      { return e.status }
func (e *stubBackendError) FaultDetails() string { return e.details }

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestClassify_UnknownOperation(t *testing.T) {
	fault := Classify(NewOperationNotFoundError("missing_tool", ""))

	require.NotNil(t, fault)
	assert.Equal(t, FaultUnknownOperation, fault.Kind)
	assert.Contains(t, fault.Message, "missing_tool")
}

func TestClassify_Validation(t *testing.T) {
	cause := NewArgumentError("generate_image", Violation{
		Field:      "prompt",
		Constraint: "must satisfy max=4000",
		Value:      "string",
	})
	fault := Classify(cause)

	require.NotNil(t, fault)
	assert.Equal(t, FaultValidation, fault.Kind)
	assert.Contains(t, fault.Message, "prompt")
}

func TestClassify_Backend(t *testing.T) {
	cause := &stubBackendError{
		message: "quota exhausted",
		code:    "RESOURCE_EXHAUSTED",
		status:  429,
		details: "retry after 30s",
	}
	fault := Classify(cause)

	require.NotNil(t, fault)
	assert.Equal(t, FaultBackend, fault.Kind)
	assert.Equal(t, "quota exhausted", fault.Message)
	assert.Equal(t, "RESOURCE_EXHAUSTED", fault.Code)
	assert.Equal(t, 429, fault.HTTPStatus)
	assert.Equal(t, "retry after 30s", fault.Details)
}

func TestClassify_WrappedBackend(t *testing.T) {
	cause := fmt.Errorf("generating image: %w", &stubBackendError{message: "bad prompt", code: "INVALID_ARGUMENT", status: 400})
	fault := Classify(cause)

	require.NotNil(t, fault)
	assert.Equal(t, FaultBackend, fault.Kind)
	assert.Equal(t, "INVALID_ARGUMENT", fault.Code)
}

func TestClassify_GenericExecution(t *testing.T) {
	fault := Classify(errors.New("boom"))

	require.NotNil(t, fault)
	assert.Equal(t, FaultExecution, fault.Kind)
	assert.Equal(t, "boom", fault.Message)
	assert.Empty(t, fault.Code)
}

func TestClassify_Idempotent(t *testing.T) {
	first := Classify(errors.New("boom"))
	second := Classify(first)

	assert.Same(t, first, second, "classifying a fault must return it unchanged")
	assert.Equal(t, first, Classify(second))
}

func TestClassifyRecovered(t *testing.T) {
	fault := ClassifyRecovered("not an error")
	require.NotNil(t, fault)
	assert.Equal(t, FaultExecution, fault.Kind)
	assert.Equal(t, "Unknown error occurred", fault.Message)

	fault = ClassifyRecovered(42)
	assert.Equal(t, "Unknown error occurred", fault.Message)

	fault = ClassifyRecovered(errors.New("panicked"))
	assert.Equal(t, "panicked", fault.Message)
}

func TestFault_Render(t *testing.T) {
	assert.Equal(t, "Error: boom", (&Fault{Kind: FaultExecution, Message: "boom"}).Render())

	withCode := &Fault{Kind: FaultBackend, Message: "quota exhausted", Code: "RESOURCE_EXHAUSTED"}
	assert.Equal(t, "Error: quota exhausted (RESOURCE_EXHAUSTED)", withCode.Render())

	withStatus := &Fault{Kind: FaultBackend, Message: "upstream down", HTTPStatus: 502}
	assert.Equal(t, "Error: upstream down (http 502)", withStatus.Render())

	withBoth := &Fault{Kind: FaultBackend, Message: "bad prompt", Code: "INVALID_ARGUMENT", HTTPStatus: 400}
	assert.Equal(t, "Error: bad prompt (INVALID_ARGUMENT, http 400)", withBoth.Render())
}
