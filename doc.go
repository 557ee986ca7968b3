// Package ftrc provides per-frame performance tracing, for programs built
// around a frame loop, like games and simulations.
//
// The basic idea is to define a set of trace points, i.e. named instants in the
// timeline of a single frame like "before physics" or "after render", as
// sequential constants of an integer type. A [Buffer] holds one timestamp slot
// per trace point, for each of a fixed number of frames. Each frame, the loop
// calls [Buffer.Trace] at each trace point, followed by one call to
// [Buffer.Advance] to move to the next frame.
//
// Buffers are single-shot capture devices. Once every frame has been written,
// the buffer disables itself, and the loop is expected to stop tracing. The
// captured data is then available as CSV, one line per frame and one column
// per trace point, for offline analysis in a spreadsheet or script. The buffer
// has no knowledge of what each trace point means, so callers must keep track
// of the mapping from column index to trace point name themselves.
//
// There are a few caveats. Buffers aren't safe for concurrent use, and are
// meant to be driven by a single frame loop. Timestamps are taken from a
// monotonic microsecond clock, so only differences between values are
// meaningful. And a slot that holds zero was never written, so a trace point
// that's skipped in some frames shows up as a zero in that frame's line.
//
// See [github.com/peterbourgon/ftrc/cmd/ftrc] for a tool that drives a
// synthetic frame loop through a buffer and writes the result.
package ftrc
