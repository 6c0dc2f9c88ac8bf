// Package value implements the runtime Dynamic tagged union and the
// Value ownership envelope (Immutable / Mutable / Refer) around it.
package value

import (
	"fmt"
	"sort"
	"strings"
)

// Kind tags the active alternative of a Dynamic.
type Kind int8

const (
	KindUnit Kind = iota
	KindInteger
	KindFloat
	KindString
	KindBoolean
	KindVariable
	KindFnPtr
	KindArray
	KindMap
	KindStruct
	KindNative
)

// FnPtr is a callable reference: either a bare function name awaiting
// dispatch (FnCall) or a parsed closure body (FnClosure). Deferred
// closures are passed to natives unevaluated, the mechanism trailing
// closures like `pipeline(name){...}` rely on.
type FnPtr struct {
	Name     string
	Def      interface{} // *ast.FnDef, kept as interface{} to avoid an import cycle
	Args     interface{} // opaque payload; the interpreter neither sets nor reads it
	Deferred bool
}

// Struct is a runtime struct instance.
type Struct struct {
	ClassName string
	Fields    map[string]*Value
}

// Dynamic is the tagged union of runtime values. Variable exists only
// as an unresolved reference produced by the parser; the interpreter
// resolves it before any arithmetic ever sees one.
type Dynamic struct {
	Kind     Kind
	Int      int64
	Float    float64
	Str      string
	Bool     bool
	VarName  string
	FnPtr    *FnPtr
	Array    []*Value
	Map      *OrderedMap
	Struct   *Struct
	Native   interface{}
}

func Unit() Dynamic                { return Dynamic{Kind: KindUnit} }
func Integer(i int64) Dynamic      { return Dynamic{Kind: KindInteger, Int: i} }
func Float(f float64) Dynamic      { return Dynamic{Kind: KindFloat, Float: f} }
func String(s string) Dynamic      { return Dynamic{Kind: KindString, Str: s} }
func Boolean(b bool) Dynamic       { return Dynamic{Kind: KindBoolean, Bool: b} }
func VarRef(name string) Dynamic   { return Dynamic{Kind: KindVariable, VarName: name} }
func Fn(ptr *FnPtr) Dynamic        { return Dynamic{Kind: KindFnPtr, FnPtr: ptr} }
func NativeHandle(v interface{}) Dynamic { return Dynamic{Kind: KindNative, Native: v} }

func NewArray(elems []*Value) Dynamic { return Dynamic{Kind: KindArray, Array: elems} }
func NewMap(m *OrderedMap) Dynamic    { return Dynamic{Kind: KindMap, Map: m} }
func NewStruct(s *Struct) Dynamic     { return Dynamic{Kind: KindStruct, Struct: s} }

// IsTruthy implements the language's strict truthiness rule: only
// Boolean is accepted in if/while conditions.
func (d Dynamic) IsTruthy() (bool, error) {
	if d.Kind != KindBoolean {
		return false, fmt.Errorf("expected bool, got %s", d.Kind)
	}
	return d.Bool, nil
}

func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindVariable:
		return "variable"
	case KindFnPtr:
		return "fn"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindStruct:
		return "struct"
	case KindNative:
		return "native"
	}
	return "unknown"
}

// Display renders a Dynamic the way print/println and string
// concatenation do.
func (d Dynamic) Display() string {
	switch d.Kind {
	case KindUnit:
		return "()"
	case KindInteger:
		return fmt.Sprintf("%d", d.Int)
	case KindFloat:
		return fmt.Sprintf("%g", d.Float)
	case KindString:
		return d.Str
	case KindBoolean:
		return fmt.Sprintf("%t", d.Bool)
	case KindVariable:
		return d.VarName
	case KindFnPtr:
		return fmt.Sprintf("fn(%s)", d.FnPtr.Name)
	case KindArray:
		parts := make([]string, len(d.Array))
		for i, v := range d.Array {
			parts[i] = v.AsDynamic().Display()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		var parts []string
		for _, k := range d.Map.Keys() {
			v, _ := d.Map.Get(k)
			parts = append(parts, fmt.Sprintf("%s: %s", k.Display(), v.AsDynamic().Display()))
		}
		sort.Strings(parts)
		return "(" + strings.Join(parts, ", ") + ")"
	case KindStruct:
		var parts []string
		for name, v := range d.Struct.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", name, v.AsDynamic().Display()))
		}
		sort.Strings(parts)
		return d.Struct.ClassName + "(" + strings.Join(parts, ", ") + ")"
	case KindNative:
		return fmt.Sprintf("%v", d.Native)
	}
	return ""
}

// OrderedMap is a Dynamic-keyed map whose Keys come back in insertion
// order. Display sorts the rendered entries, and for-in does not iterate
// maps.
type OrderedMap struct {
	keys   []Dynamic
	index  map[string]int
	values []*Value
}

// NewOrderedMap creates an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{index: map[string]int{}}
}

func mapKey(d Dynamic) string {
	return fmt.Sprintf("%d:%s", d.Kind, d.Display())
}

// Set inserts or replaces the value bound to key.
func (m *OrderedMap) Set(key Dynamic, v *Value) {
	k := mapKey(key)
	if i, ok := m.index[k]; ok {
		m.values[i] = v
		return
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, v)
}

// Get looks up the value bound to key.
func (m *OrderedMap) Get(key Dynamic) (*Value, bool) {
	i, ok := m.index[mapKey(key)]
	if !ok {
		return nil, false
	}
	return m.values[i], true
}

// Keys returns keys in insertion order.
func (m *OrderedMap) Keys() []Dynamic { return m.keys }

// Len returns the number of entries.
func (m *OrderedMap) Len() int { return len(m.keys) }
