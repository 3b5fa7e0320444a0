package cabac

import "github.com/pkg/errors"

var (
	// ErrOutOfData reports a read past the end of the slice payload, including
	// the two bytes of lookahead the engine keeps loaded.
	ErrOutOfData = errors.New("cabac: out of data")
	// ErrContextIndexOutOfRange reports a context index outside its context set.
	ErrContextIndexOutOfRange = errors.New("cabac: context index out of range")
	// ErrInvalidState reports a probability state that no adaptive context can hold.
	ErrInvalidState = errors.New("cabac: context state out of range")
	// ErrStreamCorrupt reports a code word longer than any valid stream produces.
	ErrStreamCorrupt = errors.New("cabac: stream corrupt")
	// ErrTerminated is returned by every engine call after a terminate bin of 1.
	ErrTerminated = errors.New("cabac: decoding terminated")
	// ErrNotStarted is returned when the engine is used before StartDecoding.
	ErrNotStarted = errors.New("cabac: decoding not started")
)
