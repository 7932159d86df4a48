package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("anything", 0))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "hél...", Truncate("héllo wörld", 3))
}

func TestJoinMapKeys(t *testing.T) {
	assert.Equal(t, "", JoinMapKeys(map[string]struct{}{}))
	assert.Equal(t, "a", JoinMapKeys(map[string]struct{}{"a": {}}))

	joined := JoinMapKeys(map[string]struct{}{"a": {}, "b": {}})
	assert.Contains(t, []string{"a, b", "b, a"}, joined)
}
