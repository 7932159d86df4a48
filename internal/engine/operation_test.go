package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	Prompt      string  `json:"prompt" validate:"required,min=1,max=40"`
	AspectRatio string  `json:"aspect_ratio,omitempty" validate:"omitempty,oneof=1:1 16:9 9:16"`
	Count       int     `json:"count,omitempty" validate:"omitempty,min=1,max=4"`
	Temperature float64 `json:"temperature,omitempty" validate:"omitempty,min=0,max=2"`
}

func sampleDefinition() *OperationDefinition {
	return &OperationDefinition{
		Name:        "sample",
		Category:    CategoryImage,
		Description: "Sample operation for contract tests",
		NewArgs:     func() any { return &sampleArgs{} },
		Execute: func(context.Context, any, ReportFunc) (string, error) {
			return "ok", nil
		},
	}
}

func TestDecodeArgs_Valid(t *testing.T) {
	def := sampleDefinition()

	decoded, err := def.DecodeArgs(map[string]any{
		"prompt":       "a red fox",
		"aspect_ratio": "16:9",
		"count":        float64(2),
	})
	require.NoError(t, err)

	args := decoded.(*sampleArgs)
	assert.Equal(t, "a red fox", args.Prompt)
	assert.Equal(t, "16:9", args.AspectRatio)
	assert.Equal(t, 2, args.Count)
}

func TestDecodeArgs_OptionalFieldsStayZero(t *testing.T) {
	def := sampleDefinition()

	decoded, err := def.DecodeArgs(map[string]any{"prompt": "p"})
	require.NoError(t, err)

	args := decoded.(*sampleArgs)
	assert.Empty(t, args.AspectRatio)
	assert.Zero(t, args.Count)
}

func TestDecodeArgs_MissingRequired(t *testing.T) {
	def := sampleDefinition()

	_, err := def.DecodeArgs(map[string]any{})
	require.Error(t, err)

	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "sample", argErr.Operation)
	require.Len(t, argErr.Violations, 1)
	assert.Equal(t, "prompt", argErr.Violations[0].Field)
	assert.Contains(t, argErr.Violations[0].Constraint, "required")
}

func TestDecodeArgs_MaxLengthViolation(t *testing.T) {
	def := sampleDefinition()

	_, err := def.DecodeArgs(map[string]any{"prompt": strings.Repeat("p", 41)})
	require.Error(t, err)

	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	require.Len(t, argErr.Violations, 1)
	assert.Equal(t, "prompt", argErr.Violations[0].Field)
	assert.Equal(t, "must satisfy max=40", argErr.Violations[0].Constraint)
	assert.Equal(t, "string", argErr.Violations[0].Value)
}

func TestDecodeArgs_EnumViolation(t *testing.T) {
	def := sampleDefinition()

	_, err := def.DecodeArgs(map[string]any{"prompt": "p", "aspect_ratio": "21:9"})
	require.Error(t, err)

	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	require.Len(t, argErr.Violations, 1)
	assert.Equal(t, "aspect_ratio", argErr.Violations[0].Field)
	assert.Contains(t, argErr.Violations[0].Constraint, "oneof")
}

func TestDecodeArgs_WrongTypeReportsValueClass(t *testing.T) {
	def := sampleDefinition()

	_, err := def.DecodeArgs(map[string]any{"prompt": float64(42)})
	require.Error(t, err)

	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	require.Len(t, argErr.Violations, 1)
	assert.Equal(t, "prompt", argErr.Violations[0].Field)
	assert.Equal(t, "number", argErr.Violations[0].Value)
	assert.Contains(t, err.Error(), "prompt")
}

func TestDecodeArgs_MultipleViolations(t *testing.T) {
	def := sampleDefinition()

	_, err := def.DecodeArgs(map[string]any{
		"prompt":       strings.Repeat("p", 41),
		"aspect_ratio": "21:9",
		"count":        float64(9),
	})
	require.Error(t, err)

	var argErr *ArgumentError
	require.True(t, errors.As(err, &argErr))
	assert.Len(t, argErr.Violations, 3)

	fields := make([]string, 0, len(argErr.Violations))
	for _, v := range argErr.Violations {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"prompt", "aspect_ratio", "count"}, fields)

	// The rendered message enumerates every violated constraint.
	for _, field := range fields {
		assert.Contains(t, err.Error(), field)
	}
}

func TestDecodeArgs_NilSchemaPassesRawMap(t *testing.T) {
	def := &OperationDefinition{
		Name:        "raw",
		Category:    CategoryMedia,
		Description: "No argument contract",
		Execute: func(context.Context, any, ReportFunc) (string, error) {
			return "ok", nil
		},
	}

	decoded, err := def.DecodeArgs(map[string]any{"anything": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"anything": true}, decoded)

	decoded, err = def.DecodeArgs(nil)
	require.NoError(t, err)
	assert.NotNil(t, decoded)
	assert.Empty(t, decoded.(map[string]any))
}
