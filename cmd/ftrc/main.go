// ftrc is a CLI tool that drives a synthetic frame loop through a frame trace
// buffer, and writes the captured timestamps as CSV.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/oklog/run"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

func main() {
	var (
		ctx    = context.Background()
		stdin  = os.Stdin
		stdout = os.Stdout
		stderr = os.Stderr
		args   = os.Args[1:]
	)
	err := exec(ctx, stdin, stdout, stderr, args)
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.As(err, &(run.SignalError{})):
		os.Exit(0)
	case err != nil:
		fmt.Fprintf(stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func exec(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) (err error) {
	rootConfig := &rootConfig{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	rootFlags := ff.NewFlagSet("ftrc")
	rootConfig.registerBaseFlags(rootFlags)

	pointFlags := ff.NewFlagSet("points").SetParent(rootFlags)
	rootConfig.registerPointFlags(pointFlags)

	rootCommand := &ff.Command{
		Name:      "ftrc",
		ShortHelp: "capture per-frame trace points from a synthetic frame loop",
		Flags:     rootFlags,
	}

	// Config for `ftrc capture`.
	captureConfig := &captureConfig{rootConfig: rootConfig}
	captureFlags := ff.NewFlagSet("capture").SetParent(pointFlags)
	captureConfig.register(captureFlags)
	captureCommand := &ff.Command{
		Name:      "capture",
		ShortHelp: "run the frame loop until the trace buffer is full",
		LongHelp:  "Trace every frame of a simulated frame loop, and write one CSV line per frame.",
		Flags:     captureFlags,
		Exec:      captureConfig.Exec,
	}
	rootCommand.Subcommands = append(rootCommand.Subcommands, captureCommand)

	// Config for `ftrc points`.
	pointsConfig := &pointsConfig{rootConfig: rootConfig}
	pointsCommand := &ff.Command{
		Name:      "points",
		ShortHelp: "print the CSV column index of each trace point",
		Flags:     ff.NewFlagSet("points-list").SetParent(pointFlags),
		Exec:      pointsConfig.Exec,
	}
	rootCommand.Subcommands = append(rootCommand.Subcommands, pointsCommand)

	// Print help when appropriate.
	showHelp := true
	defer func() {
		errHelp := errors.Is(err, ff.ErrHelp) || errors.Is(err, ff.ErrNoExec)
		if showHelp || errHelp {
			fmt.Fprintf(stderr, "\n%s\n", ffhelp.Command(rootCommand))
		}
		if errHelp {
			err = nil
		}
	}()

	// Initial parsing.
	if err := rootCommand.Parse(args, ff.WithEnvVarPrefix("FTRC")); err != nil {
		return err
	}

	// Validation and set-up.
	{
		var infodst, debugdst, tracedst io.Writer
		switch rootConfig.logLevel {
		case "n", "none":
			infodst, debugdst, tracedst = io.Discard, io.Discard, io.Discard
		case "i", "info":
			infodst, debugdst, tracedst = stderr, io.Discard, io.Discard
		case "d", "debug":
			infodst, debugdst, tracedst = stderr, stderr, io.Discard
		case "t", "trace":
			infodst, debugdst, tracedst = stderr, stderr, stderr
		default:
			return fmt.Errorf("invalid log level %q", rootConfig.logLevel)
		}
		rootConfig.info = log.New(infodst, "", 0)
		rootConfig.debug = log.New(debugdst, "[DEBUG] ", log.Lmsgprefix)
		rootConfig.trace = log.New(tracedst, "[TRACE] ", log.Lmsgprefix)
	}

	{
		names, err := pointNames(rootConfig.stages)
		if err != nil {
			return err
		}
		rootConfig.points = names
		rootConfig.debug.Printf("trace points: %d", len(names))
	}

	// Run errors shouldn't show help by default.
	showHelp = false

	// Run the selected command.
	return rootCommand.Run(ctx)
}
