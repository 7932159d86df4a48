package core

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// MustFprintf writes like fmt.Fprintf and exits through the logger when the
// write fails.
func MustFprintf(w io.Writer, format string, a ...any) {
	_, err := fmt.Fprintf(w, format, a...)
	if err != nil {
		zap.L().Fatal("Failed to fprintf", zap.Error(err), zap.String("format", format), zap.Any("a", a))
	}
}

// JoinMapKeys renders the keys of a map as a comma-separated list, for
// error messages that enumerate the valid values.
func JoinMapKeys[T comparable](m map[T]struct{}) string {
	parts := make([]string, 0, len(m))
	for key := range m {
		parts = append(parts, fmt.Sprintf("%v", key))
	}
	return strings.Join(parts, ", ")
}

// Truncate shortens s to at most max runes, appending "..." when anything
// was cut off. max applies to the kept portion, not the ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
