package pipectx

import (
	"fmt"

	"github.com/titpetric/kts/lang/value"
)

// Well-known Context frame keys.
const (
	KeyScope        = "$scope"
	KeyModules      = "$modules"
	KeySharedModule = "$shared_module"
	KeyPos          = "$pos"
	KeyEnv          = "$env"
	KeyGlobalState  = "$global_state"
	KeyLogger       = "logger"
	KeyTaskName     = "$task_name"
	KeyJoinSet      = "join_set"    // pipeline-level
	KeyOpJoinSet    = "op_join_set" // task-level
)

// Context is an immutable, read-through linked list of (key, value)
// frames. Pushing a frame returns a new Context that delegates misses
// to its parent; frames are dropped implicitly once the pushing call
// or block returns, by simply discarding the returned Context.
type Context struct {
	parent *Context
	key    string
	val    interface{}
}

// Background returns the empty root Context.
func Background() *Context {
	return nil
}

// Push returns a new Context with key bound to val, shadowing any
// outer frame under the same key.
func (c *Context) Push(key string, val interface{}) *Context {
	return &Context{parent: c, key: key, val: val}
}

// Value returns the nearest frame's value for key, or (nil, false).
func (c *Context) Value(key string) (interface{}, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.key == key {
			return cur.val, true
		}
	}
	return nil, false
}

// Scope returns the current $scope frame, or nil if none is set.
func (c *Context) Scope() *Scope {
	v, ok := c.Value(KeyScope)
	if !ok {
		return nil
	}
	return v.(*Scope)
}

// WithScope pushes a new $scope frame.
func (c *Context) WithScope(s *Scope) *Context {
	return c.Push(KeyScope, s)
}

// TaskName returns the current $task_name frame, or "" if none is set.
func (c *Context) TaskName() string {
	v, ok := c.Value(KeyTaskName)
	if !ok {
		return ""
	}
	return v.(string)
}

// KeyInvoke holds the InvokeFunc hook that lets natives living outside
// lang/interp (lang/sched's pipeline/step/parallel, the std `call`
// builtin) run a script FnPtr without lang/sched or lang/stdlib
// importing lang/interp directly.
const KeyInvoke = "$invoke"

// InvokeFunc calls fn, either by running its parsed closure body
// (when fn.Def is set) or by re-dispatching fn.Name through the
// normal three-stage function lookup.
type InvokeFunc func(ctx *Context, fn *value.FnPtr, args []*value.Value) (*value.Value, error)

// WithInvoke pushes the InvokeFunc hook a root Context is constructed
// with.
func (c *Context) WithInvoke(fn InvokeFunc) *Context {
	return c.Push(KeyInvoke, fn)
}

// Invoke calls the registered InvokeFunc hook, failing if the Context
// was built without one.
func (c *Context) Invoke(fn *value.FnPtr, args []*value.Value) (*value.Value, error) {
	v, ok := c.Value(KeyInvoke)
	if !ok {
		return nil, fmt.Errorf("pipectx: no invoke hook registered in context")
	}
	return v.(InvokeFunc)(c, fn, args)
}
