package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns a sortable identifier for a generated artifact, e.g.
// "img_20250114T093042_1a2b3c4d": kind prefix, UTC timestamp for lexical
// ordering, and a short random suffix. Uniqueness is probabilistic, not
// guaranteed; the collision odds within one second are accepted.
func NewID(prefix string) string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s", prefix, timestamp, suffix)
}
