package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/titpetric/cli"

	"github.com/titpetric/kts/lang/engine"
	"github.com/titpetric/kts/lang/langerr"
)

// Pipeline provides the `run` command: load a .kts script and
// evaluate it, optionally filtered to one pipeline.task (spec.md §6).
func Pipeline() *cli.Command {
	opts := NewOptions()

	return &cli.Command{
		Name:    "run",
		Title:   "Run a pipeline script",
		Default: true,
		Bind: func(fs *pflag.FlagSet) {
			opts.Bind(fs)
		},
		Run: func(ctx context.Context, args []string) error {
			return runPipeline(ctx, opts, args)
		},
	}
}

// splitTarget implements spec.md §6's `run [PATH]`: split PATH on "."
// into pipeline.task, missing components default to "all".
func splitTarget(path string) (pipelineName, taskName string) {
	if path == "" {
		return "all", "all"
	}
	parts := strings.SplitN(path, ".", 2)
	pipelineName = parts[0]
	if pipelineName == "" {
		pipelineName = "all"
	}
	taskName = "all"
	if len(parts) == 2 && parts[1] != "" {
		taskName = parts[1]
	}
	return pipelineName, taskName
}

func runPipeline(ctx context.Context, opts *Options, args []string) error {
	var target string
	if len(args) > 0 {
		target = args[0]
	}
	pipelineName, taskName := splitTarget(target)

	e, err := engine.New(engine.Options{
		Out:          os.Stdout,
		PipelineDir:  opts.PipelineDir,
		EventLogPath: opts.LogFile,
		Debug:        opts.Debug,
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	src, err := os.ReadFile(opts.File)
	if err != nil {
		return fmt.Errorf("run: read %s: %w", opts.File, err)
	}

	prog, err := engine.LoadString(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, langerr.Render(err, []rune(string(src))))
		return err
	}

	if target != "" {
		names := engine.ListPipelines(prog)
		if !containsString(names, pipelineName) && pipelineName != "all" {
			matches := findFuzzyMatches(names, pipelineName)
			return &FuzzyMatchError{Target: pipelineName, Matches: matches}
		}
	}

	if err := e.RunFiltered(prog, pipelineName, taskName); err != nil {
		fmt.Fprintln(os.Stderr, langerr.Render(err, []rune(string(src))))
		return err
	}
	return nil
}

func containsString(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
