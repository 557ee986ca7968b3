package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/oklog/ulid/v2"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffval"
	"github.com/peterbourgon/ftrc"
)

// point is the trace point type of the capture loop. Names are only known at
// runtime, so the values are the indexes of rootConfig.points.
type point int

type captureConfig struct {
	*rootConfig

	frames int
	fps    int
	work   time.Duration
	output string
	dir    string
	header bool
}

func (cfg *captureConfig) register(fs *ff.FlagSet) {
	fs.AddFlag(ff.FlagConfig{ShortName: 'n', LongName: "frames" /* */, Value: ffval.NewValueDefault(&cfg.frames, ftrc.DefaultFrames) /* */, Usage: "number of frames to capture"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "fps" /*    */, Value: ffval.NewValueDefault(&cfg.fps, 60) /*                   */, Usage: "target frame rate, 0 for unthrottled"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'w', LongName: "work" /*   */, Value: ffval.NewValueDefault(&cfg.work, time.Millisecond) /*    */, Usage: "mean simulated work per stage"})
	fs.AddFlag(ff.FlagConfig{ShortName: 'o', LongName: "output" /* */, Value: ffval.NewValueDefault(&cfg.output, "-") /*               */, Usage: "output file, - for stdout", Placeholder: "FILE"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "dir" /*    */, Value: ffval.NewValue(&cfg.dir) /*                              */, Usage: "if set, write capture-<id>.csv to this directory instead of --output", Placeholder: "DIR"})
	fs.AddFlag(ff.FlagConfig{ShortName: 0x0, LongName: "header" /* */, Value: ffval.NewValue(&cfg.header) /*                           */, Usage: "write a header line of trace point names", NoDefault: true})
}

func (cfg *captureConfig) Exec(ctx context.Context, args []string) error {
	switch {
	case cfg.fps < 0, cfg.fps > int(time.Second):
		return fmt.Errorf("invalid frame rate %d", cfg.fps)
	case cfg.work < 0:
		return fmt.Errorf("invalid work duration %s", cfg.work)
	}

	buf, err := ftrc.New(point(len(cfg.points)), ftrc.WithFrames(cfg.frames))
	if err != nil {
		return fmt.Errorf("create trace buffer: %w", err)
	}

	id := ulid.Make()

	cfg.info.Printf("capture %s: frames %d, trace points %d", id, buf.Len(), buf.Points())
	cfg.debug.Printf("fps: %d", cfg.fps)
	cfg.debug.Printf("work: %s", cfg.work)

	var (
		begin  = time.Now()
		frames int
	)

	var g run.Group

	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			n, err := cfg.capture(ctx, buf)
			frames = n
			return err
		}, func(error) {
			cancel()
		})
	}

	{
		g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))
	}

	runErr := g.Run()

	switch {
	case runErr == nil:
		cfg.info.Printf("capture %s: %d frame(s) in %s", id, frames, humanizeDuration(time.Since(begin)))
	case errors.As(runErr, &(run.SignalError{})), errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		cfg.info.Printf("capture %s: %v after %d frame(s), writing partial capture", id, runErr, frames)
	default:
		return runErr
	}

	if err := cfg.writeCapture(id, buf); err != nil {
		return err
	}

	return runErr
}

// capture runs the frame loop until the buffer disables itself, and returns
// the number of completed frames.
func (cfg *captureConfig) capture(ctx context.Context, buf *ftrc.Buffer[point]) (int, error) {
	var tick <-chan time.Time
	if cfg.fps > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(cfg.fps))
		defer ticker.Stop()
		tick = ticker.C
	}

	var frames int
	for buf.IsEnabled() {
		if tick != nil {
			select {
			case <-tick:
			case <-ctx.Done():
				return frames, ctx.Err()
			}
		}

		if err := ctx.Err(); err != nil {
			return frames, err
		}

		if err := cfg.frame(ctx, buf); err != nil {
			return frames, fmt.Errorf("frame %d: %w", buf.Cursor(), err)
		}

		cfg.trace.Printf("frame %d complete", buf.Cursor())
		buf.Advance()
		frames++
	}

	return frames, nil
}

// frame traces one iteration of the simulated frame loop.
func (cfg *captureConfig) frame(ctx context.Context, buf *ftrc.Buffer[point]) error {
	var (
		first = point(0)
		last  = point(len(cfg.points) - 1)
	)

	if err := buf.Trace(first); err != nil {
		return err
	}

	for p := first + 1; p < last; p += 2 {
		if err := buf.Trace(p); err != nil {
			return err
		}
		contextSleep(ctx, jitter(cfg.work))
		if err := buf.Trace(p + 1); err != nil {
			return err
		}
	}

	return buf.Trace(last)
}

func (cfg *captureConfig) writeCapture(id ulid.ULID, buf *ftrc.Buffer[point]) (err error) {
	var (
		w    io.Writer
		name string
	)
	switch {
	case cfg.dir != "":
		name = filepath.Join(cfg.dir, fmt.Sprintf("capture-%s.csv", id))
	case cfg.output != "" && cfg.output != "-":
		name = cfg.output
	default:
		w, name = cfg.stdout, "stdout"
	}

	if w == nil {
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output: %w", closeErr)
			}
		}()
		w = f
	}

	cw := &countingWriter{w: w}

	if cfg.header {
		if _, err := io.WriteString(cw, strings.Join(cfg.points, ",")+"\n"); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	if err := buf.WriteCSV(cw); err != nil {
		return fmt.Errorf("write capture: %w", err)
	}

	cfg.info.Printf("capture %s: wrote %s to %s", id, humanizeBytes(cw.n), name)

	return nil
}

// jitter returns a duration uniformly distributed in [d/2, 3d/2).
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d/2 + time.Duration(rand.Int63n(int64(d)))
}
