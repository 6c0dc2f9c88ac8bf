package sched

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/titpetric/kts/eventlog"
	"github.com/titpetric/kts/lang/langerr"
	"github.com/titpetric/kts/lang/logger"
	"github.com/titpetric/kts/lang/module"
	"github.com/titpetric/kts/lang/pipectx"
	"github.com/titpetric/kts/lang/value"
)

// Scheduler holds the ambient collaborators pipeline/step/parallel
// need beyond the Context: the execution Logger (spec.md §4.H) and
// the structured run-log (eventlog, an ambient diagnostics feature —
// see SPEC_FULL.md §2.2).
type Scheduler struct {
	Logger   *logger.Logger
	EventLog *eventlog.Logger
}

// New creates a Scheduler. evlog may be nil (eventlog.Logger's nil
// receiver methods are all safe no-ops).
func New(log *logger.Logger, evlog *eventlog.Logger) *Scheduler {
	return &Scheduler{Logger: log, EventLog: evlog}
}

// Register installs pipeline, parallel and step as native functions
// on mod — the `pipe` module of spec.md §4.E.
func (s *Scheduler) Register(mod *module.Module) {
	mod.RegisterNative("pipeline", s.pipeline)
	mod.RegisterNative("parallel", s.parallel)
	mod.RegisterNative("step", s.step)
}

func extractNameFn(args []value.Dynamic) (string, *value.FnPtr, error) {
	if len(args) < 2 {
		return "", nil, langerr.Type(langerr.NoPos(), "expected (name, body) arguments")
	}
	if args[0].Kind != value.KindString {
		return "", nil, langerr.Type(langerr.NoPos(), "first argument must be a string name")
	}
	if args[1].Kind != value.KindFnPtr || args[1].FnPtr == nil {
		return "", nil, langerr.Type(langerr.NoPos(), "second argument must be a trailing closure body")
	}
	return args[0].Str, args[1].FnPtr, nil
}

func newID() string { return ulid.Make().String() }

// pipeline implements spec.md §4.G's `pipeline(name, body)`: if the
// active path filter selects this pipeline, push a fresh pipeline-scope
// join-set, run body, then await every parallel child submitted to it
// before returning.
func (s *Scheduler) pipeline(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	name, fn, err := extractNameFn(args)
	if err != nil {
		return value.Unit(), err
	}
	if !pathMatches(ctx, "path_pipeline", name) {
		return value.Unit(), nil
	}

	start := time.Now()
	id := newID()

	js := NewJoinSet()
	runCtx := ctx.Push(pipectx.KeyJoinSet, js)

	_, runErr := runCtx.Invoke(fn, nil)
	waitErr := js.Wait()

	finalErr := runErr
	if finalErr == nil {
		finalErr = waitErr
	}

	s.EventLog.LogExec(eventlog.EventTypePipeline, resultFor(finalErr), id, name, 0, time.Since(start).Milliseconds(), finalErr)

	if finalErr != nil {
		return value.Unit(), langerr.Scheduler("pipeline %q: %v", name, finalErr)
	}
	return value.Unit(), nil
}

// parallel implements spec.md §4.G's `parallel(name, body)`: submits a
// worker onto the enclosing pipeline join-set instead of running body
// on the current goroutine.
func (s *Scheduler) parallel(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	name, fn, err := extractNameFn(args)
	if err != nil {
		return value.Unit(), err
	}
	if !pathMatches(ctx, "path_task", name) {
		return value.Unit(), nil
	}

	pjs := joinSet(ctx)
	if pjs == nil {
		return value.Unit(), langerr.Scheduler("parallel %q called outside a pipeline", name)
	}

	if s.Logger != nil {
		s.Logger.SetParallel()
	}

	taskCtx := s.prepareTaskContext(ctx, name)
	pjs.Go(func() error {
		return s.runTask(taskCtx, eventlog.EventTypeParallel, name, fn)
	})

	return value.Unit(), nil
}

// step implements spec.md §4.G's `step(name, body)`: identical to
// parallel except body runs synchronously on the current worker.
func (s *Scheduler) step(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	name, fn, err := extractNameFn(args)
	if err != nil {
		return value.Unit(), err
	}
	if !pathMatches(ctx, "path_task", name) {
		return value.Unit(), nil
	}

	taskCtx := s.prepareTaskContext(ctx, name)
	if err := s.runTask(taskCtx, eventlog.EventTypeStep, name, fn); err != nil {
		return value.Unit(), err
	}
	return value.Unit(), nil
}

// prepareTaskContext pushes the per-subtree $env copy and $task_name
// frame a step/parallel worker runs under, per spec.md §4.G/§5.
func (s *Scheduler) prepareTaskContext(ctx *pipectx.Context, name string) *pipectx.Context {
	env := pipectx.NewEnv(ctx.Env())
	c := ctx.WithEnv(env)
	c = c.Push(pipectx.KeyTaskName, name)
	return c
}

// runTask pushes a fresh op-level join-set, evaluates body, and awaits
// the op join-set before returning — spec.md §4.G: "a step/parallel
// call does not return until all its op-level workers ... have
// completed".
func (s *Scheduler) runTask(ctx *pipectx.Context, typ eventlog.EventType, name string, fn *value.FnPtr) error {
	start := time.Now()
	id := newID()

	ojs := NewJoinSet()
	taskCtx := ctx.Push(pipectx.KeyOpJoinSet, ojs)

	_, runErr := taskCtx.Invoke(fn, nil)
	waitErr := ojs.Wait()

	finalErr := runErr
	if finalErr == nil {
		finalErr = waitErr
	}

	s.EventLog.LogExec(typ, resultFor(finalErr), id, name, 0, time.Since(start).Milliseconds(), finalErr)
	return finalErr
}

func resultFor(err error) eventlog.Result {
	if err != nil {
		return eventlog.ResultFail
	}
	return eventlog.ResultPass
}
