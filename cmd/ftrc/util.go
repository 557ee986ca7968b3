package main

import (
	"context"
	"fmt"
	"io"
	"time"
)

func contextSleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

//
//
//

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

//
//
//

// humanizeDuration truncates d to a precision that suits its magnitude.
func humanizeDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		d = d.Truncate(time.Second)
	case d >= time.Second:
		d = d.Truncate(100 * time.Millisecond)
	case d >= 10*time.Millisecond:
		d = d.Truncate(time.Millisecond)
	case d >= time.Millisecond:
		d = d.Truncate(100 * time.Microsecond)
	}
	return d.String()
}

// humanizeBytes renders n as bytes, KB, or MB, with 1024 as the unit.
func humanizeBytes(n int64) string {
	const kib, mib = 1024, 1024 * 1024
	switch {
	case n < kib:
		return fmt.Sprintf("%dB", n)
	case n < mib:
		return fmt.Sprintf("%.1fKB", float64(n)/kib)
	default:
		return fmt.Sprintf("%.1fMB", float64(n)/mib)
	}
}
