package pipectx

import "sync"

// GlobalState is the run-scoped, shared mutable bag spec.md §3/§5
// calls `$global_state`: it carries the CLI's path_pipeline/path_task
// filter selection and the `workspace` built-in's current directory.
// Writes take an exclusive lock; reads take a shared lock, matching
// spec.md §5's stated sharing policy.
type GlobalState struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewGlobalState creates an empty GlobalState.
func NewGlobalState() *GlobalState {
	return &GlobalState{data: map[string]string{}}
}

// Get returns the string stored under key, or ("", false).
func (g *GlobalState) Get(key string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.data[key]
	return v, ok
}

// GetOr returns the string stored under key, or def if absent/empty.
func (g *GlobalState) GetOr(key, def string) string {
	v, ok := g.Get(key)
	if !ok || v == "" {
		return def
	}
	return v
}

// Set stores value under key.
func (g *GlobalState) Set(key, value string) {
	g.mu.Lock()
	g.data[key] = value
	g.mu.Unlock()
}

// GlobalState returns the current $global_state frame, or nil if none
// is set.
func (c *Context) GlobalState() *GlobalState {
	v, ok := c.Value(KeyGlobalState)
	if !ok {
		return nil
	}
	return v.(*GlobalState)
}

// WithGlobalState pushes a $global_state frame.
func (c *Context) WithGlobalState(g *GlobalState) *Context {
	return c.Push(KeyGlobalState, g)
}

// Env is the per-subtree environment overlay `parallel`/`step` push a
// fresh copy of (spec.md §5: "local to that subtree; edits via
// env(k, v) affect only that subtree's subsequent cmd calls").
type Env struct {
	mu   sync.Mutex
	vars map[string]string
}

// NewEnv creates an Env, optionally seeded from parent's current vars.
func NewEnv(parent *Env) *Env {
	e := &Env{vars: map[string]string{}}
	if parent != nil {
		parent.mu.Lock()
		for k, v := range parent.vars {
			e.vars[k] = v
		}
		parent.mu.Unlock()
	}
	return e
}

// Get returns the value bound to key, or ("", false).
func (e *Env) Get(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vars[key]
	return v, ok
}

// Set binds key to value in this Env only.
func (e *Env) Set(key, value string) {
	e.mu.Lock()
	e.vars[key] = value
	e.mu.Unlock()
}

// Environ returns the Env as a slice of KEY=VALUE strings, suitable
// for host.Host.SpawnCommand.
func (e *Env) Environ() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.vars))
	for k, v := range e.vars {
		out = append(out, k+"="+v)
	}
	return out
}

// Env returns the current $env frame, or nil if none is set.
func (c *Context) Env() *Env {
	v, ok := c.Value(KeyEnv)
	if !ok {
		return nil
	}
	return v.(*Env)
}

// WithEnv pushes a fresh $env frame.
func (c *Context) WithEnv(e *Env) *Context {
	return c.Push(KeyEnv, e)
}
