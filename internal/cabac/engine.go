package cabac

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status is the slice-level state of an Engine.
type Status uint8

const (
	StatusNotStarted Status = iota
	StatusDecoding
	StatusTerminated
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "NotStarted"
	case StatusDecoding:
		return "Decoding"
	case StatusTerminated:
		return "Terminated"
	case StatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Engine is the arithmetic decoding register state of one slice. value holds
// the coded offset scaled by 2^bitsLeft, so comparisons against the range are
// done as range << bitsLeft and new input is fetched 16 bits at a time.
type Engine struct {
	stream   *BitStream
	value    uint32
	rng      uint32
	bitsLeft int32
	status   Status
	err      error
}

// Snapshot is a copy of the register state for tracing and tests.
type Snapshot struct {
	Range    uint32
	Value    uint32
	BitsLeft int32
	Offset   uint32
	Status   Status
}

// StartDecoding creates an engine over buf and primes it at offset.
func StartDecoding(buf []byte, offset int) (*Engine, error) {
	e := &Engine{}
	if err := e.Start(NewBitStream(buf), offset); err != nil {
		return nil, err
	}
	return e, nil
}

// Start (re)initialises the engine at byte offset of stream: one byte and one
// word are loaded, giving 24 bits of which 9 are active.
func (e *Engine) Start(stream *BitStream, offset int) error {
	if stream == nil {
		return errors.New("cabac: nil bitstream")
	}
	e.stream = stream
	e.err = nil
	if offset < 0 || offset > stream.Len() {
		return e.fail(errors.Wrapf(ErrOutOfData, "start offset %d outside %d byte buffer", offset, stream.Len()))
	}
	stream.SetOffset(uint32(offset))
	b, err := stream.ReadByte()
	if err != nil {
		return e.fail(err)
	}
	w, err := stream.ReadWord()
	if err != nil {
		return e.fail(err)
	}
	e.value = uint32(b)<<16 | uint32(w)
	e.bitsLeft = 15
	e.rng = Half
	e.status = StatusDecoding
	return nil
}

// Restart primes the engine again at offset in the same stream, as needed
// after raw PCM samples.
func (e *Engine) Restart(offset int) error {
	if e.stream == nil {
		return ErrNotStarted
	}
	return e.Start(e.stream, offset)
}

// DecodeDecision decodes one bin with the adaptive context ctx and updates ctx.
func (e *Engine) DecodeDecision(ctx *ContextState) (bool, error) {
	if e.status != StatusDecoding {
		return false, e.unavailable()
	}
	state := ctx.State
	if state > maxAdaptiveState {
		return false, errors.Wrapf(ErrInvalidState, "state %d", state)
	}

	rLPS := uint32(lpsRangeTable[state][(e.rng>>6)&0x03])
	e.rng -= rLPS
	scaled := e.rng << uint(e.bitsLeft)
	bit := ctx.MPS

	if e.value < scaled {
		ctx.State = nextStateMPS[state]
		if e.rng >= Quarter {
			return bit, nil
		}
		e.rng <<= 1
		e.bitsLeft--
	} else {
		shift := renormShift[(rLPS>>3)&0x1F]
		e.value -= scaled
		e.rng = rLPS << shift
		e.bitsLeft -= int32(shift)
		bit = !bit
		if state == 0 {
			ctx.MPS = !ctx.MPS
		}
		ctx.State = nextStateLPS[state]
	}

	if e.bitsLeft > 0 {
		return bit, nil
	}
	if err := e.refill(); err != nil {
		return false, err
	}
	return bit, nil
}

// DecodeBypass decodes one equiprobable bin.
func (e *Engine) DecodeBypass() (bool, error) {
	if e.status != StatusDecoding {
		return false, e.unavailable()
	}
	e.bitsLeft--
	if e.bitsLeft == 0 {
		if err := e.refill(); err != nil {
			return false, err
		}
	}
	scaled := e.rng << uint(e.bitsLeft)
	if e.value < scaled {
		return false, nil
	}
	e.value -= scaled
	return true, nil
}

// DecodeTerminate decodes end_of_slice_flag or the I_PCM bin of mb_type. A
// result of true leaves the registers untouched and moves the engine to
// StatusTerminated.
func (e *Engine) DecodeTerminate() (bool, error) {
	if e.status != StatusDecoding {
		return false, e.unavailable()
	}
	rng := e.rng - 2
	if e.value >= rng<<uint(e.bitsLeft) {
		e.status = StatusTerminated
		return true, nil
	}
	if rng >= Quarter {
		e.rng = rng
		return false, nil
	}
	e.rng = rng << 1
	e.bitsLeft--
	if e.bitsLeft > 0 {
		return false, nil
	}
	if err := e.refill(); err != nil {
		return false, err
	}
	return false, nil
}

// BitsConsumed returns the number of stream bits the arithmetic decoder has
// used so far, counted from the start of the buffer. After a terminate bin of
// 1 it points just past the final arithmetic-coded bit.
func (e *Engine) BitsConsumed() uint32 {
	if e.stream == nil {
		return 0
	}
	return uint32(int64(e.stream.Offset())*8 - int64(e.bitsLeft))
}

// AlignedOffset returns the first byte boundary at or after BitsConsumed.
func (e *Engine) AlignedOffset() int {
	return int((e.BitsConsumed() + 7) >> 3)
}

// Status reports the slice-level state.
func (e *Engine) Status() Status { return e.status }

// Err returns the error that moved the engine to StatusFailed.
func (e *Engine) Err() error { return e.err }

// Stream returns the underlying byte cursor.
func (e *Engine) Stream() *BitStream { return e.stream }

// Snapshot copies the register state.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{Range: e.rng, Value: e.value, BitsLeft: e.bitsLeft, Status: e.status}
	if e.stream != nil {
		s.Offset = e.stream.Offset()
	}
	return s
}

func (e *Engine) refill() error {
	w, err := e.stream.ReadWord()
	if err != nil {
		return e.fail(err)
	}
	e.value = e.value<<16 | uint32(w)
	e.bitsLeft += 16
	return nil
}

func (e *Engine) fail(err error) error {
	e.status = StatusFailed
	e.err = err
	return err
}

func (e *Engine) unavailable() error {
	switch e.status {
	case StatusTerminated:
		return ErrTerminated
	case StatusFailed:
		return e.err
	default:
		return ErrNotStarted
	}
}
