package ftrc

import "errors"

var (
	// ErrInvalidArgument is returned when a buffer is constructed or reset
	// with a non-positive frame capacity, or with zero trace points.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfRange is returned when a trace point or frame index falls
	// outside of the buffer's dimensions.
	ErrOutOfRange = errors.New("out of range")
)
