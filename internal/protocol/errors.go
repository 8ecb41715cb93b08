package protocol

import "errors"

var (
	// ErrShortRead is returned when input ends before a complete field.
	ErrShortRead = errors.New("protocol: short read")
	// ErrMalformed is returned when a field does not have the expected shape.
	ErrMalformed = errors.New("protocol: malformed field")
)
