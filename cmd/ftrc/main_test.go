package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/peterbourgon/ftrc"
)

func assertEqual[T any](t *testing.T, have, want T) {
	t.Helper()
	if !cmp.Equal(have, want) {
		t.Fatal(cmp.Diff(have, want))
	}
}

func runExec(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var outbuf, errbuf bytes.Buffer
	err = exec(context.Background(), strings.NewReader(""), &outbuf, &errbuf, args)
	return outbuf.String(), errbuf.String(), err
}

func checkCaptureLines(t *testing.T, lines []string, points int) {
	t.Helper()
	for i, line := range lines {
		fields := strings.Split(line, ",")
		if want, have := points, len(fields); want != have {
			t.Fatalf("line %d: want %d fields, have %d (%q)", i, want, have, line)
		}
		var prev uint64
		for j, field := range fields {
			ts, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				t.Fatalf("line %d field %d: %v", i, j, err)
			}
			if ts < prev {
				t.Fatalf("line %d field %d: timestamp %d before previous %d", i, j, ts, prev)
			}
			prev = ts
		}
	}
}

func TestCaptureStdout(t *testing.T) {
	t.Parallel()

	stdout, _, err := runExec(t, "capture", "--log=none", "--frames=4", "--fps=0", "--work=0s", "--header", "-s", "input", "-s", "draw")
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	assertEqual(t, len(lines), 1+4)
	assertEqual(t, lines[0], "frame_begin,input_begin,input_end,draw_begin,draw_end,frame_end")
	checkCaptureLines(t, lines[1:], 6)
}

func TestCaptureDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stdout, stderr, err := runExec(t, "capture", "--frames=3", "--fps=0", "--work=0s", "--dir", dir)
	if err != nil {
		t.Fatal(err)
	}

	assertEqual(t, stdout, "")
	if !strings.Contains(stderr, "3 frame(s)") {
		t.Errorf("info log missing frame count: %q", stderr)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "capture-*.csv"))
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, len(matches), 1)

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assertEqual(t, len(lines), 3)
	checkCaptureLines(t, lines, 2+2*len(defaultStages))
}

func TestCaptureOutputFile(t *testing.T) {
	t.Parallel()

	filename := filepath.Join(t.TempDir(), "out.csv")
	if _, _, err := runExec(t, "capture", "-l", "n", "-n", "2", "--fps", "0", "--work", "0s", "-o", filename); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, strings.Count(string(data), "\n"), 2)
}

func TestCaptureThrottled(t *testing.T) {
	t.Parallel()

	begin := time.Now()
	if _, _, err := runExec(t, "capture", "--log=none", "--frames=3", "--fps=100", "--work=0s"); err != nil {
		t.Fatal(err)
	}
	if took, want := time.Since(begin), 20*time.Millisecond; took < want {
		t.Errorf("3 frames at 100fps took %s, want at least %s", took, want)
	}
}

func TestCaptureCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(200*time.Millisecond, cancel)

	var stdout, stderr bytes.Buffer
	err := exec(ctx, strings.NewReader(""), &stdout, &stderr, []string{"capture", "--frames=1000", "--fps=50", "--work=0s"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want %v, have %v", context.Canceled, err)
	}

	if !strings.Contains(stderr.String(), "writing partial capture") {
		t.Errorf("info log missing partial capture: %q", stderr.String())
	}

	lines := strings.Split(strings.TrimSuffix(stdout.String(), "\n"), "\n")
	assertEqual(t, len(lines), 1000)
	checkCaptureLines(t, lines, 2+2*len(defaultStages))

	var written int
	for _, line := range lines {
		if !strings.HasPrefix(line, "0,") {
			written++
		}
	}
	if written <= 0 || written >= len(lines) {
		t.Errorf("want a partial capture, have %d of %d frame(s) written", written, len(lines))
	}
}

func TestCaptureInvalid(t *testing.T) {
	t.Parallel()

	t.Run("zero frames", func(t *testing.T) {
		t.Parallel()
		_, _, err := runExec(t, "capture", "--log=none", "--frames=0")
		if !errors.Is(err, ftrc.ErrInvalidArgument) {
			t.Fatalf("want %v, have %v", ftrc.ErrInvalidArgument, err)
		}
	})

	t.Run("negative fps", func(t *testing.T) {
		t.Parallel()
		if _, _, err := runExec(t, "capture", "--log=none", "--fps=-1"); err == nil {
			t.Fatal("want error, have none")
		}
	})

	t.Run("fps too high", func(t *testing.T) {
		t.Parallel()
		if _, _, err := runExec(t, "capture", "--log=none", "--fps=2000000000"); err == nil {
			t.Fatal("want error, have none")
		}
	})

	t.Run("reserved stage", func(t *testing.T) {
		t.Parallel()
		if _, _, err := runExec(t, "capture", "--log=none", "-s", "frame"); err == nil {
			t.Fatal("want error, have none")
		}
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Parallel()
		if _, _, err := runExec(t, "capture", "--log=loud"); err == nil {
			t.Fatal("want error, have none")
		}
	})
}

func TestPoints(t *testing.T) {
	t.Parallel()

	stdout, _, err := runExec(t, "points", "-s", "a", "-s", "b")
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n")[1:] {
		fields := strings.Fields(line)
		assertEqual(t, len(fields), 2)
		names = append(names, fields[1])
	}
	assertEqual(t, names, []string{"frame_begin", "a_begin", "a_end", "b_begin", "b_end", "frame_end"})
}

func TestHelp(t *testing.T) {
	t.Parallel()

	_, stderr, err := runExec(t, "--help")
	if err != nil {
		t.Fatalf("want no error, have %v", err)
	}
	if !strings.Contains(stderr, "capture") {
		t.Errorf("help output doesn't mention capture: %q", stderr)
	}
}

func TestPointNames(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		stages  []string
		want    []string
		wantErr bool
	}{
		{stages: nil, want: []string{"frame_begin", "update_begin", "update_end", "physics_begin", "physics_end", "render_begin", "render_end", "frame_end"}},
		{stages: []string{" x "}, want: []string{"frame_begin", "x_begin", "x_end", "frame_end"}},
		{stages: []string{""}, wantErr: true},
		{stages: []string{"a,b"}, wantErr: true},
		{stages: []string{"x", " x"}, wantErr: true},
		{stages: []string{"frame"}, wantErr: true},
	} {
		have, err := pointNames(tc.stages)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: want error, have none", tc.stages)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.stages, err)
			continue
		}
		assertEqual(t, have, tc.want)
	}
}

func TestJitter(t *testing.T) {
	t.Parallel()

	assertEqual(t, jitter(0), time.Duration(0))
	assertEqual(t, jitter(-time.Second), time.Duration(0))

	d := 10 * time.Millisecond
	for i := 0; i < 100; i++ {
		if j := jitter(d); j < d/2 || j >= d+d/2 {
			t.Fatalf("jitter(%s) = %s, out of range", d, j)
		}
	}
}

func TestHumanize(t *testing.T) {
	t.Parallel()

	assertEqual(t, humanizeDuration(1234567*time.Microsecond), "1.2s")
	assertEqual(t, humanizeDuration(1234*time.Microsecond), "1.2ms")
	assertEqual(t, humanizeBytes(512), "512B")
	assertEqual(t, humanizeBytes(1536), "1.5KB")
	assertEqual(t, humanizeBytes(3*1024*1024), "3.0MB")
}
