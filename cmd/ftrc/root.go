package main

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
)

var defaultStages = []string{"update", "physics", "render"}

type rootConfig struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	logLevel string
	stages   []string

	info, debug, trace *log.Logger

	points []string // trace point names, index is the CSV column
}

func (cfg *rootConfig) registerBaseFlags(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 'l', LongName: "log" /* */, Value: ffval.NewEnum(&cfg.logLevel, "info", "i", "debug", "d", "trace", "t", "none", "n"), Usage: "log level: i/info, d/debug, t/trace, n/none", Placeholder: "LEVEL"})
}

func (cfg *rootConfig) registerPointFlags(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 's', LongName: "stage", Value: ffval.NewUniqueList(&cfg.stages), NoDefault: true, Usage: "frame stage name, traced at begin and end (repeatable, default update, physics, render)", Placeholder: "NAME"})
}

// pointNames returns the trace point names for a frame made of the given
// stages, in trace order. Every frame is bracketed by frame_begin and
// frame_end, and every stage contributes a begin and an end point.
func pointNames(stages []string) ([]string, error) {
	if len(stages) <= 0 {
		stages = defaultStages
	}

	var (
		names = make([]string, 0, 2+2*len(stages))
		seen  = map[string]bool{}
	)
	names = append(names, "frame_begin")
	for _, stage := range stages {
		stage = strings.TrimSpace(stage)
		switch {
		case stage == "":
			return nil, fmt.Errorf("stage name: empty")
		case strings.ContainsAny(stage, ",\r\n"):
			return nil, fmt.Errorf("stage name %q: may not contain commas or newlines", stage)
		case stage == "frame":
			return nil, fmt.Errorf("stage name %q: reserved", stage)
		case seen[stage]:
			return nil, fmt.Errorf("stage name %q: duplicate", stage)
		}
		seen[stage] = true
		names = append(names, stage+"_begin", stage+"_end")
	}
	names = append(names, "frame_end")

	return names, nil
}
