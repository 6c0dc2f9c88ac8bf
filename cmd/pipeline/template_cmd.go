package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/titpetric/cli"
)

// TemplateOptions holds `template`'s command-line arguments.
type TemplateOptions struct {
	Add     string
	Remove  string
	FlagSet *cli.FlagSet
}

func (o *TemplateOptions) Bind(fs *cli.FlagSet) {
	fs.StringVar(&o.Add, "add", "", "Save the named pipeline.kts as a template under ~/.pipeline")
	fs.StringVar(&o.Remove, "remove", "", "Delete a saved template")
	o.FlagSet = fs
}

// Template provides the `template` command: manage saved templates
// under ~/.pipeline/*.kts (spec.md §6). With neither flag, it lists
// the templates currently saved.
func Template() *cli.Command {
	opts := &TemplateOptions{}

	return &cli.Command{
		Name:  "template",
		Title: "Manage saved pipeline templates",
		Bind: func(fs *pflag.FlagSet) {
			opts.Bind(fs)
		},
		Run: func(ctx context.Context, args []string) error {
			return runTemplate(opts)
		},
	}
}

func runTemplate(opts *TemplateOptions) error {
	dir, err := pipelineDir()
	if err != nil {
		return fmt.Errorf("template: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("template: %w", err)
	}

	switch {
	case opts.Add != "":
		data, err := os.ReadFile("pipeline.kts")
		if err != nil {
			return fmt.Errorf("template --add: read pipeline.kts: %w", err)
		}
		dst := filepath.Join(dir, opts.Add+".kts")
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("template --add: %w", err)
		}
		fmt.Printf("Saved template %q\n", opts.Add)
		return nil

	case opts.Remove != "":
		dst := filepath.Join(dir, opts.Remove+".kts")
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("template --remove: %w", err)
		}
		fmt.Printf("Removed template %q\n", opts.Remove)
		return nil

	default:
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("template: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".kts" {
				continue
			}
			fmt.Println(e.Name()[:len(e.Name())-len(".kts")])
		}
		return nil
	}
}
