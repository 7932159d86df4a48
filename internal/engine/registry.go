package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// OperationNotFoundError is returned when a dispatch names an operation
// that is not present in the registry.
type OperationNotFoundError struct {
	Name       string `json:"name"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error returns the error message for the OperationNotFoundError
func (e *OperationNotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown operation: %s (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown operation: %s", e.Name)
}

// NewOperationNotFoundError creates a new OperationNotFoundError
func NewOperationNotFoundError(name, suggestion string) *OperationNotFoundError {
	return &OperationNotFoundError{Name: name, Suggestion: suggestion}
}

// Interface guard for OperationNotFoundError
var _ error = &OperationNotFoundError{}

// DuplicateOperationError is returned when two definitions claim the same
// operation name. Registration is first-writer-wins with a hard failure,
// never a silent overwrite.
type DuplicateOperationError struct {
	Name string `json:"name"`
}

// Error returns the error message for the DuplicateOperationError
func (e *DuplicateOperationError) Error() string {
	return fmt.Sprintf("operation already registered: %s", e.Name)
}

// NewDuplicateOperationError creates a new DuplicateOperationError
func NewDuplicateOperationError(name string) *DuplicateOperationError {
	return &DuplicateOperationError{Name: name}
}

// Interface guard for DuplicateOperationError
var _ error = &DuplicateOperationError{}

// Source supplies operation definitions at startup. Sources are
// independent; a name collision across sources fails Populate.
type Source interface {
	Definitions() []*OperationDefinition
}

// Registry maps operation names to definitions. It is filled during startup
// and read-only afterwards; listings preserve registration order.
type Registry struct {
	mu    sync.RWMutex
	index map[string]*OperationDefinition
	order []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*OperationDefinition)}
}

// Register adds a definition to the registry. Registering a name twice is
// refused with a DuplicateOperationError.
func (r *Registry) Register(def *OperationDefinition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("operation definition must carry a name")
	}
	if def.Execute == nil {
		return fmt.Errorf("operation %s has no execute function", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[def.Name]; ok {
		return NewDuplicateOperationError(def.Name)
	}
	r.index[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Resolve returns the definition registered under name. Unknown names get
// an OperationNotFoundError carrying a nearest-name suggestion when one is
// close enough.
func (r *Registry) Resolve(name string) (*OperationDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.index[name]
	if !ok {
		return nil, NewOperationNotFoundError(name, r.nearestLocked(name))
	}
	return def, nil
}

// Exists reports whether name is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[name]
	return ok
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Names returns all registered operation names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Operations returns all definitions in registration order.
func (r *Registry) Operations() []*OperationDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*OperationDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.index[name])
	}
	return defs
}

// PromptStyle returns the definitions that carry prompt metadata, in
// registration order.
func (r *Registry) PromptStyle() []*OperationDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*OperationDefinition, 0, len(r.order))
	for _, name := range r.order {
		if def := r.index[name]; def.Prompt != nil {
			defs = append(defs, def)
		}
	}
	return defs
}

// nearestLocked finds the most similar registered name for typo detection
// using Levenshtein distance. Callers must hold at least a read lock.
func (r *Registry) nearestLocked(name string) string {
	if len(r.order) == 0 {
		return ""
	}

	var best string
	bestDistance := 3 // Only consider distances <= 2

	nameLower := strings.ToLower(name)
	for _, candidate := range r.order {
		distance := levenshtein.ComputeDistance(nameLower, strings.ToLower(candidate))
		if distance < bestDistance {
			bestDistance = distance
			best = candidate
		}
	}
	return best
}

// Populate registers every definition supplied by the sources. The first
// registration error stops startup.
func Populate(registry *Registry, sources ...Source) error {
	for _, source := range sources {
		for _, def := range source.Definitions() {
			if err := registry.Register(def); err != nil {
				return fmt.Errorf("populating registry: %w", err)
			}
		}
	}
	return nil
}
