// Package engine ties the language's pieces together: lexer, parser,
// module registry, interpreter, standard modules and Host into the
// single entry point the CLI front-end (cmd/pipeline) drives. Grounded
// on the teacher's main.go/pipeline.go, which plays the same role for
// the YAML+expr-lang runner: read a script, build a runner, execute it.
package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/titpetric/kts/eventlog"
	"github.com/titpetric/kts/lang/ast"
	"github.com/titpetric/kts/lang/host"
	"github.com/titpetric/kts/lang/hostconfig"
	"github.com/titpetric/kts/lang/interp"
	"github.com/titpetric/kts/lang/langerr"
	"github.com/titpetric/kts/lang/logger"
	"github.com/titpetric/kts/lang/module"
	"github.com/titpetric/kts/lang/parser"
	"github.com/titpetric/kts/lang/pipectx"
	"github.com/titpetric/kts/lang/sched"
	"github.com/titpetric/kts/lang/stdlib"
)

// Options configures a new Engine. All fields are optional; the zero
// value builds an Engine against the real OS (DefaultHost), the
// current working directory, and os.Stdout.
type Options struct {
	// Out is where task output is written. Defaults to os.Stdout.
	Out io.Writer
	// PipelineDir is the `~/.pipeline/` root used to resolve imports
	// and templates/layouts not found relative to the project. Defaults
	// to "$HOME/.pipeline".
	PipelineDir string
	// EventLogPath, if set, writes a structured YAML run log there
	// (SPEC_FULL.md §2.2). Empty disables it.
	EventLogPath string
	// Debug enables the eventlog's goroutine-ID/env capture.
	Debug bool
	// Host overrides the default OS-backed Host, mainly for tests.
	Host host.Host
	// HostConfig overrides the GBK-decode heuristic configuration.
	HostConfig *hostconfig.Config
}

// Engine bundles the Registry, Interp, Scheduler and ambient
// collaborators one script evaluation run needs.
type Engine struct {
	Registry  *module.Registry
	Interp    *interp.Interp
	Scheduler *sched.Scheduler
	Logger    *logger.Logger
	EventLog  *eventlog.Logger
	Host      host.Host
	Options   Options
}

// New builds an Engine: constructs the module Registry with std merged
// into main and math/pipe/layout registered as named modules, per
// spec.md §4.E.
func New(opts Options) (*Engine, error) {
	if opts.PipelineDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("engine: resolve home dir: %w", err)
		}
		opts.PipelineDir = filepath.Join(home, ".pipeline")
	}

	h := opts.Host
	if h == nil {
		cfg := opts.HostConfig
		if cfg == nil {
			var err error
			cfg, err = hostconfig.Load(filepath.Join(opts.PipelineDir, "hostconfig.yml"))
			if err != nil {
				return nil, fmt.Errorf("engine: load host config: %w", err)
			}
		}
		h = host.NewDefaultHost(cfg)
	}

	log := logger.New(opts.Out)
	evlog := eventlog.NewLogger(opts.EventLogPath, "", "", opts.Debug)
	sc := sched.New(log, evlog)

	reg := module.NewRegistry()
	std := stdlib.New(sc)
	reg.Main.Merge(std.Std())
	reg.Register(std.Math())
	reg.Register(std.Pipe())
	reg.Register(std.Layout())

	e := &Engine{
		Registry:  reg,
		Scheduler: sc,
		Logger:    log,
		EventLog:  evlog,
		Host:      h,
		Options:   opts,
	}
	e.Interp = interp.New(reg, e.resolveImport)
	return e, nil
}

// LoadString parses src into a Program without registering or running it.
func LoadString(src string) (*ast.Program, error) {
	prog, err := parser.New(src).Parse()
	if err != nil {
		return nil, langerr.Wrap(langerr.KindParse, err, "parse script")
	}
	return prog, nil
}

// Load reads and parses the .kts file at path.
func Load(path string) (*ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: read %s: %w", path, err)
	}
	return LoadString(string(data))
}

// Register merges prog's top-level function and class declarations
// into the Engine's main module, the step the CLI's `run`/`layout`
// subcommands take before evaluating a script's top-level statements.
func (e *Engine) Register(prog *ast.Program) {
	for _, fn := range prog.Fns {
		e.Registry.Main.RegisterScript(fn)
	}
	for _, c := range prog.Classes {
		methods := map[string]module.Function{}
		for name, m := range c.Methods {
			methods[name] = module.Function{Script: m}
		}
		e.Registry.Main.RegisterClass(&module.Class{Name: c.Name, Fields: c.Fields, Methods: methods})
	}
}

// RootContext builds the Context a program runs against: scope,
// Invoke hook, Host, a fresh $global_state and $env.
func (e *Engine) RootContext() *pipectx.Context {
	ctx := e.Interp.RootContext(pipectx.NewScope())
	ctx = ctx.Push(pipectx.KeyLogger, e.Logger)
	ctx = ctx.WithGlobalState(pipectx.NewGlobalState())
	ctx = ctx.WithEnv(pipectx.NewEnv(nil))
	ctx = stdlib.WithHost(ctx, e.Host)
	return ctx
}

// Run registers prog's declarations and evaluates its top-level
// statements against a fresh RootContext.
func (e *Engine) Run(prog *ast.Program) error {
	e.Register(prog)
	ctx := e.RootContext()
	_, err := e.Interp.Run(ctx, prog.Stmts)
	if werr := e.EventLog.Write(nil, nil); err == nil {
		err = werr
	}
	return err
}

// RunFiltered is Run, but first sets $global_state's path_pipeline/
// path_task filter (spec.md §6's `run [PATH]`: "PATH" split on "." into
// pipeline.task; missing components default to "all").
func (e *Engine) RunFiltered(prog *ast.Program, pipelineFilter, taskFilter string) error {
	e.Register(prog)
	ctx := e.RootContext()
	gs := ctx.GlobalState()
	gs.Set("path_pipeline", orAll(pipelineFilter))
	gs.Set("path_task", orAll(taskFilter))
	_, err := e.Interp.Run(ctx, prog.Stmts)
	if werr := e.EventLog.Write(nil, nil); err == nil {
		err = werr
	}
	return err
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}
