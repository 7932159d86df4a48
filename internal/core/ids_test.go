package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID_Format(t *testing.T) {
	id := NewID("img")

	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "img", parts[0])
	assert.Len(t, parts[1], 15, "timestamp part should be yyyymmddThhmmss")
	assert.Len(t, parts[2], 8, "random suffix should be 8 hex chars")
}

func TestNewID_DistinctAcrossCalls(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewID("vid")
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
