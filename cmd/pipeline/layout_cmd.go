package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/titpetric/cli"

	"github.com/titpetric/kts/lang/engine"
	"github.com/titpetric/kts/lang/langerr"
)

// Layout provides the `layout` command: evaluate
// ~/.pipeline/layout/NAME/layout.kts with the layout module available
// (spec.md §6), scaffolding a new project directory from a saved
// layout script.
func Layout() *cli.Command {
	return &cli.Command{
		Name:  "layout",
		Title: "Run a saved layout script to scaffold a new project",
		Run: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("layout: a layout name is required")
			}
			return runLayout(args[0])
		},
	}
}

func runLayout(name string) error {
	dir, err := pipelineDir()
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	layoutRoot := filepath.Join(dir, "layout", name)
	scriptPath := filepath.Join(layoutRoot, "layout.kts")

	src, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("layout %q: %w", name, err)
	}

	e, err := engine.New(engine.Options{Out: os.Stdout, PipelineDir: dir})
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	prog, err := engine.LoadString(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, langerr.Render(err, []rune(string(src))))
		return err
	}

	if err := e.Run(prog); err != nil {
		fmt.Fprintln(os.Stderr, langerr.Render(err, []rune(string(src))))
		return err
	}
	return nil
}
