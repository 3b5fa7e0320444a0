// Package syntax reads H.264 slice data syntax elements from a CABAC coded
// slice. Context increments that depend on neighbouring macroblocks are
// derived by the caller and passed in.
package syntax

import (
	"github.com/pkg/errors"

	"github.com/jdeng/goavc/internal/cabac"
)

// Slice is the decoding session of one slice: it owns the arithmetic engine
// and the context table, and must not be used from more than one goroutine.
type Slice struct {
	opts       Options
	engine     *cabac.Engine
	table      *cabac.ContextTable
	reader     SymbolReader
	pcmPending bool
	ended      bool
}

// NewSlice initialises the contexts for opts and starts the engine at byte
// offset of data, the first byte after cabac_alignment_one_bit.
func NewSlice(data []byte, offset int, opts Options) (*Slice, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	params, err := opts.InitTables.For(opts.SliceType, opts.CabacInitIDC)
	if err != nil {
		return nil, err
	}
	engine, err := cabac.StartDecoding(data, offset)
	if err != nil {
		return nil, errors.Wrap(err, "syntax: starting slice")
	}
	s := &Slice{
		opts:   opts,
		engine: engine,
		table:  cabac.NewContextTable(opts.QP, params),
		reader: ReaderFor(opts.SliceType),
	}
	s.debugf("slice %s qp %d cabac_init_idc %d starts at byte %d", opts.SliceType, s.table.QP(), opts.CabacInitIDC, offset)
	return s, nil
}

// SliceType returns the type the session was created for.
func (s *Slice) SliceType() SliceType { return s.opts.SliceType }

// Engine exposes the arithmetic decoder.
func (s *Slice) Engine() *cabac.Engine { return s.engine }

// Contexts exposes the context table of the slice.
func (s *Slice) Contexts() *cabac.ContextTable { return s.table }

// BitsConsumed returns the engine's bit position in the slice data.
func (s *Slice) BitsConsumed() uint32 { return s.engine.BitsConsumed() }

// Ended reports whether end_of_slice_flag has been decoded as 1.
func (s *Slice) Ended() bool { return s.ended }

// PCMPending reports whether the last mb_type was I_PCM and its samples have
// not been read yet.
func (s *Slice) PCMPending() bool { return s.pcmPending }

// MbSkipFlag decodes mb_skip_flag; ctxInc is 0..2.
func (s *Slice) MbSkipFlag(ctxInc int) (bool, error) {
	v, err := s.reader.MbSkipFlag(s, ctxInc)
	return s.flag("mb_skip_flag", v, err)
}

// MbType decodes mb_type. ctxInc is the increment of the first bin for I, SI
// and B slices; intraCtxInc is the increment of the I prefix inside SI slices.
func (s *Slice) MbType(ctxInc, intraCtxInc int) (int, error) {
	v, err := s.reader.MbType(s, ctxInc, intraCtxInc)
	return s.value("mb_type", v, err)
}

// SubMbType decodes one sub_mb_type.
func (s *Slice) SubMbType() (int, error) {
	v, err := s.reader.SubMbType(s)
	return s.value("sub_mb_type", v, err)
}

func (s *Slice) decision(f cabac.Family, idx int) (bool, error) {
	ctx, err := s.table.At(f, idx)
	if err != nil {
		return false, err
	}
	return s.engine.DecodeDecision(ctx)
}

func (s *Slice) bypass() (bool, error) {
	return s.engine.DecodeBypass()
}

func (s *Slice) terminate() (bool, error) {
	return s.engine.DecodeTerminate()
}

func (s *Slice) check() error {
	if s.ended {
		return ErrSliceEnded
	}
	return nil
}

func (s *Slice) value(element string, v int, err error) (int, error) {
	if err != nil {
		return 0, errors.Wrapf(err, "syntax: %s", element)
	}
	s.emit(element, v)
	return v, nil
}

func (s *Slice) flag(element string, b bool, err error) (bool, error) {
	if err != nil {
		return false, errors.Wrapf(err, "syntax: %s", element)
	}
	v := 0
	if b {
		v = 1
	}
	s.emit(element, v)
	return b, nil
}

func (s *Slice) emit(element string, v int) {
	if s.opts.Trace == nil {
		return
	}
	s.opts.Trace(Event{
		Element:      element,
		Value:        v,
		BitsConsumed: s.engine.BitsConsumed(),
		Registers:    s.engine.Snapshot(),
	})
}

func (s *Slice) debugf(format string, args ...interface{}) {
	if s.opts.Logger != nil {
		s.opts.Logger.Printf("debug: "+format, args...)
	}
}
