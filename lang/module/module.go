// Package module implements the function/class registry: named
// collections of callable functions (native or script) and classes,
// plus a "main module" merge rule where user definitions shadow
// standard ones.
package module

import (
	"github.com/titpetric/kts/lang/ast"
	"github.com/titpetric/kts/lang/pipectx"
	"github.com/titpetric/kts/lang/value"
)

// NativeFunc is a host-implemented function. The evaluator supplies
// the ambient Context and the already-evaluated (or deferred) argument
// Dynamics.
type NativeFunc func(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error)

// Function is either a native host callback or a parsed script
// definition.
type Function struct {
	Native NativeFunc
	Script *ast.FnDef
}

// IsNative reports whether this Function is backed by a native callback.
func (f Function) IsNative() bool { return f.Native != nil }

// Class is a declared `class Name(field: T, ...)` plus any methods
// registered against it by later `fun Name.method` definitions.
type Class struct {
	Name    string
	Fields  []ast.Param
	Methods map[string]Function
}

// Module is a named collection of functions and classes. A Registry's
// "main module" is what bare (unqualified) calls resolve against.
type Module struct {
	Name      string
	Functions map[string]Function
	Classes   map[string]*Class
}

// New creates an empty Module named name.
func New(name string) *Module {
	return &Module{
		Name:      name,
		Functions: map[string]Function{},
		Classes:   map[string]*Class{},
	}
}

// RegisterNative adds a host-native function.
func (m *Module) RegisterNative(name string, fn NativeFunc) {
	m.Functions[name] = Function{Native: fn}
}

// RegisterScript adds a parsed script function definition.
func (m *Module) RegisterScript(def *ast.FnDef) {
	m.Functions[def.Name] = Function{Script: def}
}

// RegisterClass adds or replaces a class declaration.
func (m *Module) RegisterClass(c *Class) {
	m.Classes[c.Name] = c
}

// Lookup finds a function by bare name.
func (m *Module) Lookup(name string) (Function, bool) {
	f, ok := m.Functions[name]
	return f, ok
}

// LookupMethod finds a method by class name and method name.
func (m *Module) LookupMethod(className, methodName string) (Function, bool) {
	c, ok := m.Classes[className]
	if !ok {
		return Function{}, false
	}
	f, ok := c.Methods[methodName]
	return f, ok
}

// Merge copies other's entries into m without overwriting any
// pre-existing key, so user definitions always shadow standard ones
// regardless of merge order.
func (m *Module) Merge(other *Module) {
	for name, fn := range other.Functions {
		if _, exists := m.Functions[name]; !exists {
			m.Functions[name] = fn
		}
	}
	for name, cls := range other.Classes {
		existing, exists := m.Classes[name]
		if !exists {
			m.Classes[name] = cls
			continue
		}
		for mname, mfn := range cls.Methods {
			if _, ok := existing.Methods[mname]; !ok {
				existing.Methods[mname] = mfn
			}
		}
	}
}

// Registry holds the main module plus any imported/named modules
// reachable via `Module::function` qualified calls.
type Registry struct {
	Main    *Module
	Modules map[string]*Module
}

// NewRegistry creates a Registry with an empty main module.
func NewRegistry() *Registry {
	return &Registry{Main: New("main"), Modules: map[string]*Module{}}
}

// Register adds m under its own name, reachable via `m.Name::fn`.
func (r *Registry) Register(m *Module) {
	r.Modules[m.Name] = m
}
