package main

import (
	"fmt"
	"os"

	"github.com/titpetric/cli"
)

func main() {
	if err := start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func start() error {
	app := cli.NewApp("kts")
	app.AddCommand("run", "Run a pipeline script", Pipeline)
	app.AddCommand("init", "Initialize a pipeline.kts from a template", Init)
	app.AddCommand("template", "Manage saved pipeline templates", Template)
	app.AddCommand("layout", "Scaffold a project from a saved layout", Layout)
	app.AddCommand("list", "List declared pipelines", List)

	app.DefaultCommand = "run"

	return app.Run()
}
