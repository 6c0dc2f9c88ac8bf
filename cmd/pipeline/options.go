package main

import "github.com/titpetric/cli"

// Options holds `run`'s command-line flags: which script to load, the
// pipeline directory override, and whether to emit a structured event
// log alongside execution (spec.md §6). The pipeline.task filter is the
// command's positional argument, not a flag.
type Options struct {
	File        string
	Debug       bool
	LogFile     string
	PipelineDir string

	FlagSet *cli.FlagSet
}

func NewOptions() *Options {
	return &Options{}
}

func (o *Options) Bind(fs *cli.FlagSet) {
	fs.StringVarP(&o.File, "file", "f", "pipeline.kts", "Path to the pipeline script")
	fs.BoolVar(&o.Debug, "debug", false, "Capture goroutine/env metadata in the event log")
	fs.StringVar(&o.LogFile, "log", "", "Event log YAML output path")
	fs.StringVar(&o.PipelineDir, "pipeline-dir", "", "Override ~/.pipeline for imports/templates/layouts")

	o.FlagSet = fs
}
