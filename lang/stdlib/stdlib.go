// Package stdlib implements spec.md §4.E's standard modules: std, math,
// pipe and layout. std is merged into the main module at engine
// construction; the others are registered into the Registry and reached
// only via `import` or an engine-level pre-registration, per §4.E.
package stdlib

import (
	"github.com/titpetric/kts/lang/host"
	"github.com/titpetric/kts/lang/logger"
	"github.com/titpetric/kts/lang/module"
	"github.com/titpetric/kts/lang/pipectx"
	"github.com/titpetric/kts/lang/sched"
)

// keyHost is the Context frame key a running engine pushes its host.Host
// under; natives read it back with hostFrom. Kept private to this
// package, the same pattern lang/sched uses for its join-set keys.
const keyHost = "$host"

// WithHost pushes h as the active Host a running program's natives read
// through.
func WithHost(ctx *pipectx.Context, h host.Host) *pipectx.Context {
	return ctx.Push(keyHost, h)
}

func hostFrom(ctx *pipectx.Context) host.Host {
	v, ok := ctx.Value(keyHost)
	if !ok {
		return nil
	}
	return v.(host.Host)
}

func loggerFrom(ctx *pipectx.Context) *logger.Logger {
	v, ok := ctx.Value(pipectx.KeyLogger)
	if !ok {
		return nil
	}
	return v.(*logger.Logger)
}

func taskNameOr(ctx *pipectx.Context, def string) string {
	if name := ctx.TaskName(); name != "" {
		return name
	}
	return def
}

// Registry bundles std/math/pipe/layout construction against one
// Scheduler so all four modules share the same Logger/EventLog.
type Registry struct {
	Scheduler *sched.Scheduler
}

// New builds the standard modules against sc (see lang/sched.New).
func New(sc *sched.Scheduler) *Registry {
	return &Registry{Scheduler: sc}
}

// Std returns the std module, the one merged into main at engine
// construction per spec.md §4.E.
func (r *Registry) Std() *module.Module {
	mod := module.New("std")
	registerIO(mod)
	registerValues(mod)
	registerHostOps(mod, r.Scheduler)
	registerCall(mod)
	return mod
}

// Math returns the math module (`max`, `randomInt`).
func (r *Registry) Math() *module.Module {
	mod := module.New("math")
	registerMath(mod)
	return mod
}

// Pipe returns the pipe module (`pipeline`, `parallel`, `step`), backed
// by r.Scheduler.
func (r *Registry) Pipe() *module.Module {
	mod := module.New("pipe")
	r.Scheduler.Register(mod)
	return mod
}

// Layout returns the layout module (`layout`, `template`, `folder`,
// `set`).
func (r *Registry) Layout() *module.Module {
	mod := module.New("layout")
	registerLayout(mod, r.Scheduler)
	return mod
}
