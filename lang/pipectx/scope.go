package pipectx

import (
	"fmt"
	"sync"

	"github.com/titpetric/kts/lang/value"
)

// Scope is a lexically nested set of name bindings. Lookup walks the
// parent chain; Let creates a new binding in the current scope,
// shadowing any outer one; Assign mutates an existing binding's
// Mutable in place without rebinding it.
type Scope struct {
	mu       sync.Mutex
	parent   *Scope
	bindings map[string]*value.Value
}

// NewScope creates a fresh top-level scope with no parent.
func NewScope() *Scope {
	return &Scope{bindings: map[string]*value.Value{}}
}

// Child creates a new Scope whose parent is s, the shape used when
// entering a function body.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, bindings: map[string]*value.Value{}}
}

// Let binds name to v in this scope, shadowing any outer binding of
// the same name.
func (s *Scope) Let(name string, v *value.Value) {
	s.mu.Lock()
	s.bindings[name] = v
	s.mu.Unlock()
}

// Lookup walks the parent chain for name.
func (s *Scope) Lookup(name string) (*value.Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		v, ok := cur.bindings[name]
		cur.mu.Unlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// Assign replaces the Dynamic held by an already-bound name's Mutable.
// It does not rebind the name; a missing binding is an error.
func (s *Scope) Assign(name string, d value.Dynamic) error {
	v, ok := s.Lookup(name)
	if !ok {
		return fmt.Errorf("variable %q is not bound", name)
	}
	return v.Set(d)
}
