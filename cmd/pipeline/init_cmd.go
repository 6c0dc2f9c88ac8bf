package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/titpetric/cli"
)

// InitOptions holds `init`'s command-line arguments.
type InitOptions struct {
	Template string
	FlagSet  *cli.FlagSet
}

func (o *InitOptions) Bind(fs *cli.FlagSet) {
	fs.StringVar(&o.Template, "template", "default", "Template name under ~/.pipeline to copy")
	o.FlagSet = fs
}

// Init provides the `init` command: copy ~/.pipeline/NAME.kts to
// ./pipeline.kts (spec.md §6).
func Init() *cli.Command {
	opts := &InitOptions{}

	return &cli.Command{
		Name:  "init",
		Title: "Initialize a pipeline.kts from a saved template",
		Bind: func(fs *pflag.FlagSet) {
			opts.Bind(fs)
		},
		Run: func(ctx context.Context, args []string) error {
			return runInit(opts)
		},
	}
}

func runInit(opts *InitOptions) error {
	dir, err := pipelineDir()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	src := filepath.Join(dir, opts.Template+".kts")
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("init: template %q not found: %w", opts.Template, err)
	}
	if err := os.WriteFile("pipeline.kts", data, 0o644); err != nil {
		return fmt.Errorf("init: write pipeline.kts: %w", err)
	}
	fmt.Printf("Wrote pipeline.kts from template %q\n", opts.Template)
	return nil
}

func pipelineDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pipeline"), nil
}
