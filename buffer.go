package ftrc

import (
	"fmt"
	"io"
	"math"
	"strconv"
)

// DefaultFrames is the frame capacity of a buffer constructed without
// WithFrames. At 60 frames per second it covers 10 seconds.
const DefaultFrames = 600

// maxSlots bounds frames*points so the byte size of the storage fits in an int.
const maxSlots = math.MaxInt / 8

// Point is the constraint satisfied by caller-defined trace point types.
// Typically that's an integer type with a sequence of iota constants, one for
// each instant of interest in a frame, ending with a "size" constant that
// gives the total number of trace points.
type Point interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Option configures a buffer at construction.
type Option func(*config)

type config struct {
	frames int
	clock  Clock
}

// WithFrames sets the frame capacity of the buffer, i.e. how many frames of
// history it retains before disabling itself. The default is DefaultFrames.
func WithFrames(frames int) Option {
	return func(c *config) { c.frames = frames }
}

// WithClock sets the timestamp source used by Trace. The default is
// MonotonicClock.
func WithClock(clock Clock) Option {
	return func(c *config) { c.clock = clock }
}

// Buffer records timestamps at a fixed set of trace points for each of a
// bounded number of frames. A freshly constructed or reset buffer is enabled,
// and disables itself once Advance has been called for every frame.
//
// Buffers are meant to be driven from a single frame loop, and are not safe
// for concurrent use. Callers who need to trace from multiple goroutines must
// serialize access to the buffer themselves.
type Buffer[P Point] struct {
	clock   Clock
	points  int      // N, slots per frame
	frames  int      // capacity
	data    []uint64 // frames*points, frame-major
	cursor  int
	enabled bool
}

// New returns a buffer with n trace points per frame, where n is typically the
// final "size" constant of the caller's trace point type. The buffer is
// enabled, and every slot holds the zero sentinel.
//
//	type Stage int
//
//	const (
//		BeforeUpdate Stage = iota
//		AfterUpdate
//		NumStages
//	)
//
//	buf, err := ftrc.New(NumStages, ftrc.WithFrames(100))
func New[P Point](n P, options ...Option) (*Buffer[P], error) {
	cfg := config{
		frames: DefaultFrames,
		clock:  MonotonicClock(),
	}
	for _, option := range options {
		option(&cfg)
	}

	points := int(n)
	if n <= 0 || points <= 0 {
		return nil, fmt.Errorf("trace point count %d: %w", n, ErrInvalidArgument)
	}

	if cfg.clock == nil {
		return nil, fmt.Errorf("clock: %w", ErrInvalidArgument)
	}

	b := &Buffer[P]{
		clock:  cfg.clock,
		points: points,
	}

	if err := b.Reset(cfg.frames); err != nil {
		return nil, err
	}

	return b, nil
}

// Reset discards all recorded data and resizes the buffer to the given number
// of frames, each of which is zeroed. The buffer is enabled and the cursor is
// moved to the first frame. A non-positive frame count, or one too large to
// allocate, returns an error wrapping ErrInvalidArgument, and leaves the buffer
// as it was.
func (b *Buffer[P]) Reset(frames int) error {
	switch {
	case frames <= 0:
		return fmt.Errorf("frame count %d: %w", frames, ErrInvalidArgument)
	case frames > maxSlots/b.points:
		return fmt.Errorf("frame count %d with %d trace points: too large: %w", frames, b.points, ErrInvalidArgument)
	}

	// A single allocation covers every frame.
	b.data = make([]uint64, frames*b.points)
	b.frames = frames
	b.cursor = 0
	b.enabled = true

	return nil
}

// SetEnabled sets the enabled state of the buffer. It doesn't affect the
// cursor or any recorded data.
func (b *Buffer[P]) SetEnabled(v bool) {
	b.enabled = v
}

// IsEnabled returns true if the buffer is still capturing frames.
func (b *Buffer[P]) IsEnabled() bool {
	return b.enabled
}

// Len returns the frame capacity of the buffer, regardless of how many frames
// have actually been written.
func (b *Buffer[P]) Len() int {
	return b.frames
}

// Points returns the number of trace points per frame.
func (b *Buffer[P]) Points() int {
	return b.points
}

// Cursor returns the index of the frame currently receiving writes.
func (b *Buffer[P]) Cursor() int {
	return b.cursor
}

// Advance moves the cursor to the next frame. After the final frame, the
// cursor wraps to the first frame and the buffer disables itself, so a buffer
// captures at most Len frames without intervention from the caller.
//
// Advance doesn't check the enabled state. Callers should stop advancing once
// IsEnabled returns false.
func (b *Buffer[P]) Advance() {
	b.cursor++
	if b.cursor >= b.frames {
		b.cursor = 0
		b.enabled = false
	}
}

// Trace records the current time in the given trace point slot of the current
// frame, overwriting any previous value for that point in this frame.
//
// Trace doesn't check the enabled state, so writes after the buffer has
// disabled itself land in the (wrapped) current frame. Callers should check
// IsEnabled before tracing.
func (b *Buffer[P]) Trace(p P) error {
	i, err := b.slot(b.cursor, p)
	if err != nil {
		return err
	}
	b.data[i] = b.clock.Micros()
	return nil
}

// Get returns the timestamp recorded at the given frame and trace point, or
// zero if nothing was recorded there.
func (b *Buffer[P]) Get(frame int, p P) (uint64, error) {
	i, err := b.slot(frame, p)
	if err != nil {
		return 0, err
	}
	return b.data[i], nil
}

// Frame returns a copy of the timestamps recorded for the given frame, in
// trace point order.
func (b *Buffer[P]) Frame(frame int) ([]uint64, error) {
	if frame < 0 || frame >= b.frames {
		return nil, fmt.Errorf("frame %d of %d: %w", frame, b.frames, ErrOutOfRange)
	}
	record := make([]uint64, b.points)
	copy(record, b.record(frame))
	return record, nil
}

// ToCSV renders every frame in the buffer as a line of comma-separated
// timestamps, in trace point order, terminated by a newline. Lines are
// returned in frame order, and include frames that were never written, as
// well as frames written before a previous wraparound. Only Reset clears data.
func (b *Buffer[P]) ToCSV() []string {
	var (
		lines = make([]string, 0, b.frames)
		line  = make([]byte, 0, b.points*8)
	)
	for frame := 0; frame < b.frames; frame++ {
		line = line[:0]
		for j, ts := range b.record(frame) {
			if j > 0 {
				line = append(line, ',')
			}
			line = strconv.AppendUint(line, ts, 10)
		}
		line = append(line, '\n')
		lines = append(lines, string(line))
	}
	return lines
}

// WriteCSV writes the lines produced by ToCSV to w.
func (b *Buffer[P]) WriteCSV(w io.Writer) error {
	for i, line := range b.ToCSV() {
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}
	return nil
}

//
//
//

func (b *Buffer[P]) record(frame int) []uint64 {
	lo := frame * b.points
	return b.data[lo : lo+b.points]
}

func (b *Buffer[P]) slot(frame int, p P) (int, error) {
	if frame < 0 || frame >= b.frames {
		return 0, fmt.Errorf("frame %d of %d: %w", frame, b.frames, ErrOutOfRange)
	}

	i := int(p)
	if p < 0 || i < 0 || i >= b.points {
		return 0, fmt.Errorf("trace point %d of %d: %w", p, b.points, ErrOutOfRange)
	}

	return frame*b.points + i, nil
}
