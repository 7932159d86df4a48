// Package catalog keeps an in-memory record of generated media artifacts so
// callers can list and re-fetch what a session produced. Nothing is
// persisted; the catalog lives and dies with the process.
package catalog

import (
	"fmt"
	"sync"
	"time"

	"github.com/samihalawa/gemini-image-video-mcp/internal/backend"
)

// EntryNotFoundError is returned when no media entry carries the given ID.
type EntryNotFoundError struct {
	ID string `json:"id"`
}

// Error returns the error message for the EntryNotFoundError
func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("media entry not found: %s", e.ID)
}

// NewEntryNotFoundError creates a new EntryNotFoundError
func NewEntryNotFoundError(id string) *EntryNotFoundError {
	return &EntryNotFoundError{ID: id}
}

// Interface guard for EntryNotFoundError
var _ error = &EntryNotFoundError{}

// DuplicateEntryError is returned when an entry ID is recorded twice.
type DuplicateEntryError struct {
	ID string `json:"id"`
}

// Error returns the error message for the DuplicateEntryError
func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("media entry already recorded: %s", e.ID)
}

// NewDuplicateEntryError creates a new DuplicateEntryError
func NewDuplicateEntryError(id string) *DuplicateEntryError {
	return &DuplicateEntryError{ID: id}
}

// Interface guard for DuplicateEntryError
var _ error = &DuplicateEntryError{}

// Entry is one recorded media artifact.
type Entry struct {
	ID        string       `json:"id"`
	Kind      backend.Kind `json:"kind"`
	Prompt    string       `json:"prompt"`
	Model     string       `json:"model"`
	URL       string       `json:"url"`
	MIMEType  string       `json:"mime_type,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Catalog maintains the recorded entries in insertion order. All methods
// are safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		entries: make(map[string]*Entry),
	}
}

// Add records a media entry. The entry's CreatedAt is stamped when the
// caller left it zero.
func (c *Catalog) Add(entry Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("media entry must have an id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[entry.ID]; ok {
		return NewDuplicateEntryError(entry.ID)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	c.entries[entry.ID] = &entry
	c.order = append(c.order, entry.ID)
	return nil
}

// Get returns the entry with the given ID.
func (c *Catalog) Get(id string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok {
		return nil, NewEntryNotFoundError(id)
	}
	return entry, nil
}

// List returns entries newest-first. A zero kind matches every entry; a
// limit of zero or less returns all matches.
func (c *Catalog) List(kind backend.Kind, limit int) []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Entry, 0, len(c.order))
	for i := len(c.order) - 1; i >= 0; i-- {
		entry := c.entries[c.order[i]]
		if kind != "" && entry.Kind != kind {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Len returns the number of recorded entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
