package ir

import (
	"sync"

	tslink "github.com/broady/tslink"
)

// Entry is one registered entity.
type Entry struct {
	Name   string
	Nature Nature
	Module string
}

// Registry maps entity names to natures and their origin module.
// It is the single place enforcing global name uniqueness. A Registry is
// created once per generation run and passed to every extraction and
// rendering call. Iteration follows insertion order.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Insert adds a new entity. Inserting a name twice fails with
// CodeDuplicateEntity.
func (r *Registry) Insert(name string, n Nature, module string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[name]; ok {
		return tslink.Errorf(tslink.CodeDuplicateEntity, "entity %q already exists", name)
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, Entry{Name: name, Nature: n, Module: module})
	return nil
}

// Update runs fn on a registered entity under the write lock. It is how
// fields, methods and variants are appended after the initial insert.
// An unknown name fails with CodeMissingParent.
func (r *Registry) Update(name string, fn func(Nature) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[name]
	if !ok {
		return tslink.Errorf(tslink.CodeMissingParent, "fail to find parent entity %q", name)
	}
	return fn(r.entries[i].Nature)
}

// Get returns the nature registered under name.
func (r *Registry) Get(name string) (Nature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.entries[i].Nature, true
}

// Contains reports whether name is registered.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.index[name]
	return ok
}

// ModuleOf returns the origin module of name.
func (r *Registry) ModuleOf(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return "", false
	}
	return r.entries[i].Module, true
}

// ExistsInModule reports whether name is registered with the given module.
func (r *Registry) ExistsInModule(name, module string) bool {
	m, ok := r.ModuleOf(name)
	return ok && m == module
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Entries returns a snapshot of all entities in insertion order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Filter returns the entities for which keep reports true, in insertion order.
func (r *Registry) Filter(keep func(Nature) bool) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if keep(e.Nature) {
			out = append(out, e)
		}
	}
	return out
}

// ValidationError represents a structural issue found by Validate.
type ValidationError struct {
	Code    string
	Message string
	Entity  string
}

func (e *ValidationError) Error() string {
	return e.Code + ": " + e.Message
}

// Validate checks that every reference resolves to a registered entity or a
// generic parameter in scope, and that every composite is complete.
// Returns all validation errors found (not just the first).
func (r *Registry) Validate() []error {
	var errs []error
	for _, e := range r.Entries() {
		Walk(e.Nature, func(n Nature, scope *Context) bool {
			switch v := n.(type) {
			case *Ref:
				if r.Contains(v.Name) {
					return true
				}
				if scope != nil {
					if _, ok := scope.Generic(v.Name); ok {
						return true
					}
				}
				errs = append(errs, &ValidationError{
					Code:    "unresolved_reference",
					Message: e.Name + " references unknown entity " + v.Name,
					Entity:  e.Name,
				})
			case Composite:
				if err := v.Complete(); err != nil {
					errs = append(errs, &ValidationError{
						Code:    "incomplete",
						Message: e.Name + ": " + err.Error(),
						Entity:  e.Name,
					})
				}
			}
			return true
		})
	}
	return errs
}
