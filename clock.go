package ftrc

import "time"

// Clock is a source of timestamps, expressed as microseconds since some
// arbitrary monotonic epoch. Only differences between timestamps from the same
// clock are meaningful.
type Clock interface {
	Micros() uint64
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() uint64

// Micros implements Clock.
func (f ClockFunc) Micros() uint64 { return f() }

// epoch is the reference point for the default clock. The monotonic reading
// carried by time.Time means wall clock adjustments don't affect Since.
var epoch = time.Now()

// MonotonicClock returns the default clock, which reports microseconds elapsed
// since the package was initialized.
func MonotonicClock() Clock {
	return ClockFunc(func() uint64 {
		return uint64(time.Since(epoch).Microseconds())
	})
}
