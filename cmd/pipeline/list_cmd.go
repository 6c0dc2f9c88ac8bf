package main

import (
	"context"
	"fmt"
	"os"

	"github.com/titpetric/cli"

	"github.com/titpetric/kts/lang/engine"
)

// List provides the `list` command: print every pipeline name
// declared in the project's pipeline.kts, without running any of it.
func List() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Title: "List pipelines declared in pipeline.kts",
		Run: func(ctx context.Context, args []string) error {
			file := "pipeline.kts"
			if len(args) > 0 {
				file = args[0]
			}
			return runList(file)
		},
	}
}

func runList(file string) error {
	prog, err := engine.Load(file)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	names := engine.ListPipelines(prog)
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "no pipelines declared")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
