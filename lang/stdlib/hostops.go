package stdlib

import (
	"context"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/titpetric/kts/eventlog"
	"github.com/titpetric/kts/lang/langerr"
	"github.com/titpetric/kts/lang/module"
	"github.com/titpetric/kts/lang/pipectx"
	"github.com/titpetric/kts/lang/sched"
	"github.com/titpetric/kts/lang/value"
)

// registerHostOps installs std's operating-system facing natives: cmd,
// env, workspace, copy, move, replace. sc supplies the run's structured
// eventlog so a `cmd` invocation is recorded the same way a step/
// parallel boundary is (spec.md §4.G/§4.I).
func registerHostOps(mod *module.Module, sc *sched.Scheduler) {
	mod.RegisterNative("cmd", cmdNative(sc))
	mod.RegisterNative("env", envNative)
	mod.RegisterNative("workspace", workspaceNative)
	mod.RegisterNative("copy", copyNative)
	mod.RegisterNative("move", moveNative)
	mod.RegisterNative("replace", replaceNative)
}

func workspaceOf(ctx *pipectx.Context) string {
	gs := ctx.GlobalState()
	if gs == nil {
		return "."
	}
	return gs.GetOr("workspace", ".")
}

func resolvePath(ctx *pipectx.Context, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(workspaceOf(ctx), p)
}

// cmdNative implements `cmd(argv...)`: spawns argv[0] with argv[1:] in
// the current workspace, streaming decoded output lines to the active
// task's Logger and recording a single eventlog.EventTypeSubstitution
// entry, then returns the process exit code.
func cmdNative(sc *sched.Scheduler) module.NativeFunc {
	return func(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
		if len(args) == 0 {
			return value.Unit(), langerr.Type(langerr.NoPos(), "cmd expects at least one argument")
		}
		argv := make([]string, len(args))
		for i, a := range args {
			if a.Kind != value.KindString {
				argv[i] = a.Display()
				continue
			}
			argv[i] = a.Str
		}

		h := hostFrom(ctx)
		if h == nil {
			return value.Unit(), langerr.Host("no host is registered in this context")
		}

		task := taskNameOr(ctx, "main")
		log := loggerFrom(ctx)
		var env []string
		if e := ctx.Env(); e != nil {
			env = e.Environ()
		}

		start := time.Now()
		exit, err := h.SpawnCommand(context.Background(), workspaceOf(ctx), env, argv,
			func(line string) {
				if log != nil {
					log.TaskOut(task, line)
				}
			},
			func(line string) {
				if log != nil {
					log.TaskErr(task, line)
				}
			},
		)
		if err != nil {
			return value.Unit(), langerr.Host("cmd %v: %v", argv, err)
		}

		if sc != nil {
			sc.EventLog.LogCommand(eventlog.LogEntry{
				Type:       eventlog.EventTypeSubstitution,
				ID:         ulid.Make().String(),
				Command:    argv[0],
				Dir:        workspaceOf(ctx),
				ExitCode:   exit,
				DurationMs: time.Since(start).Milliseconds(),
				Env:        env,
			})
		}
		return value.Integer(int64(exit)), nil
	}
}

// envNative implements `env(key)` (get) and `env(key, value)` (set)
// against the current subtree's $env overlay.
func envNative(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	e := ctx.Env()
	if e == nil {
		return value.Unit(), langerr.Host("no $env frame is active in this context")
	}
	switch len(args) {
	case 1:
		if args[0].Kind != value.KindString {
			return value.Unit(), langerr.Type(langerr.NoPos(), "env: key must be a string")
		}
		v, _ := e.Get(args[0].Str)
		return value.String(v), nil
	case 2:
		if args[0].Kind != value.KindString {
			return value.Unit(), langerr.Type(langerr.NoPos(), "env: key must be a string")
		}
		e.Set(args[0].Str, args[1].Display())
		return value.Unit(), nil
	default:
		return value.Unit(), langerr.Type(langerr.NoPos(), "env expects (key) or (key, value)")
	}
}

// workspaceNative implements `workspace()` (get) and `workspace(path)`
// (set) against $global_state's shared workspace path (spec.md §5).
func workspaceNative(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	gs := ctx.GlobalState()
	if gs == nil {
		return value.Unit(), langerr.Host("no $global_state frame is active in this context")
	}
	switch len(args) {
	case 0:
		return value.String(gs.GetOr("workspace", ".")), nil
	case 1:
		if args[0].Kind != value.KindString {
			return value.Unit(), langerr.Type(langerr.NoPos(), "workspace: path must be a string")
		}
		gs.Set("workspace", args[0].Str)
		return value.Unit(), nil
	default:
		return value.Unit(), langerr.Type(langerr.NoPos(), "workspace expects zero or one argument")
	}
}

func stringArgs(args []value.Dynamic, n int, who string) ([]string, error) {
	if len(args) != n {
		return nil, langerr.Type(langerr.NoPos(), "%s expects %d string arguments", who, n)
	}
	out := make([]string, n)
	for i, a := range args {
		if a.Kind != value.KindString {
			return nil, langerr.Type(langerr.NoPos(), "%s: argument %d must be a string", who, i+1)
		}
		out[i] = a.Str
	}
	return out, nil
}

func copyNative(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	paths, err := stringArgs(args, 2, "copy")
	if err != nil {
		return value.Unit(), err
	}
	h := hostFrom(ctx)
	if h == nil {
		return value.Unit(), langerr.Host("no host is registered in this context")
	}
	if err := h.FSCopyRecursive(resolvePath(ctx, paths[0]), resolvePath(ctx, paths[1])); err != nil {
		return value.Unit(), langerr.Host("copy %s to %s: %v", paths[0], paths[1], err)
	}
	return value.Unit(), nil
}

func moveNative(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	paths, err := stringArgs(args, 2, "move")
	if err != nil {
		return value.Unit(), err
	}
	h := hostFrom(ctx)
	if h == nil {
		return value.Unit(), langerr.Host("no host is registered in this context")
	}
	if err := h.FSMoveRecursive(resolvePath(ctx, paths[0]), resolvePath(ctx, paths[1])); err != nil {
		return value.Unit(), langerr.Host("move %s to %s: %v", paths[0], paths[1], err)
	}
	return value.Unit(), nil
}

func replaceNative(ctx *pipectx.Context, args []value.Dynamic) (value.Dynamic, error) {
	parts, err := stringArgs(args, 3, "replace")
	if err != nil {
		return value.Unit(), err
	}
	h := hostFrom(ctx)
	if h == nil {
		return value.Unit(), langerr.Host("no host is registered in this context")
	}
	out, err := h.RegexReplaceAll(parts[0], parts[1], parts[2])
	if err != nil {
		return value.Unit(), langerr.Host("replace: %v", err)
	}
	return value.String(out), nil
}
