package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Category tags an operation with the media class it produces or inspects.
// It is informational only; dispatch treats all categories alike.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryText     Category = "text"
	CategoryAnalysis Category = "analysis"
	CategoryMedia    Category = "media"
)

// ReportFunc receives freeform status lines pushed by a running operation.
// The latest line feeds the next progress tick's status excerpt.
type ReportFunc func(status string)

// ExecFunc runs the operation. Backend clients and other dependencies are
// bound into the closure when the definition is built; args is the value
// produced by DecodeArgs.
type ExecFunc func(ctx context.Context, args any, report ReportFunc) (string, error)

// PromptArgument describes one named argument of a prompt-style operation.
type PromptArgument struct {
	Name        string
	Description string
	Required    bool
}

// PromptSpec is optional prompt-style metadata for an operation. It is
// display-only: rendering a prompt never dispatches the operation.
type PromptSpec struct {
	Description string
	Arguments   []PromptArgument
	Render      func(args map[string]string) string
}

// OperationDefinition describes one callable operation. Definitions are
// built once at startup and never mutated afterwards.
type OperationDefinition struct {
	Name        string
	Category    Category
	Description string

	// InputSchema is the JSON-schema shape advertised to callers during
	// capability discovery. It mirrors the validate tags on the argument
	// struct but is maintained declaratively alongside them.
	InputSchema map[string]any

	// NewArgs returns a fresh argument struct pointer for DecodeArgs to
	// fill. A nil NewArgs means the operation takes the raw argument map
	// as-is.
	NewArgs func() any

	// Prompt, when set, additionally exposes the operation in the
	// prompt-style catalog.
	Prompt *PromptSpec

	Execute ExecFunc
}

// Violation records one failed argument constraint.
type Violation struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Value      string `json:"value"` // class of the offending value, e.g. "string" or "number"
}

// ArgumentError is returned when raw arguments do not satisfy an
// operation's argument contract.
type ArgumentError struct {
	Operation  string      `json:"operation"`
	Violations []Violation `json:"violations"`
}

// Error returns a message enumerating every violated constraint.
func (e *ArgumentError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("invalid arguments for %s", e.Operation)
	}

	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s %s (got %s)", v.Field, v.Constraint, v.Value)
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Operation, strings.Join(parts, "; "))
}

// NewArgumentError creates a new ArgumentError with a single violation
func NewArgumentError(operation string, v Violation) *ArgumentError {
	return &ArgumentError{Operation: operation, Violations: []Violation{v}}
}

// Interface guard for ArgumentError
var _ error = &ArgumentError{}

// validate is shared across all operations. Field names in violations use
// the json tag so they match what the caller actually sent.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// DecodeArgs checks raw against the operation's argument contract and
// returns the typed value Execute receives. Decoding is a JSON round trip
// of the raw map into a fresh NewArgs value followed by constraint
// validation. Operations without a contract get the raw map back unchanged.
func (d *OperationDefinition) DecodeArgs(raw map[string]any) (any, error) {
	if d.NewArgs == nil {
		if raw == nil {
			raw = map[string]any{}
		}
		return raw, nil
	}

	args := d.NewArgs()

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, NewArgumentError(d.Name, Violation{
			Field:      "arguments",
			Constraint: "must be a JSON object",
			Value:      fmt.Sprintf("%T", raw),
		})
	}

	if err := json.Unmarshal(data, args); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			field := typeErr.Field
			if field == "" {
				field = "arguments"
			}
			return nil, NewArgumentError(d.Name, Violation{
				Field:      field,
				Constraint: fmt.Sprintf("must be %s", typeErr.Type),
				Value:      typeErr.Value,
			})
		}
		return nil, NewArgumentError(d.Name, Violation{
			Field:      "arguments",
			Constraint: "must decode as the argument object",
			Value:      "malformed",
		})
	}

	if err := validate.Struct(args); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			violations := make([]Violation, len(fieldErrs))
			for i, fe := range fieldErrs {
				violations[i] = Violation{
					Field:      fe.Field(),
					Constraint: constraintText(fe),
					Value:      fe.Kind().String(),
				}
			}
			return nil, &ArgumentError{Operation: d.Name, Violations: violations}
		}
		return nil, fmt.Errorf("validating arguments for %s: %w", d.Name, err)
	}

	return args, nil
}

// constraintText renders a validator field error as the constraint that was
// violated, e.g. "must satisfy max=4000".
func constraintText(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("must satisfy %s", fe.Tag())
}
