// Package avc exposes the CABAC slice data decoder.
package avc

import (
	"fmt"
	"io"
	"log"

	"github.com/pkg/errors"

	"github.com/jdeng/goavc/internal/cabac"
	"github.com/jdeng/goavc/internal/syntax"
)

// Errors reported by the decoder. Use errors.Is to test for them.
var (
	ErrOutOfData              = cabac.ErrOutOfData
	ErrContextIndexOutOfRange = cabac.ErrContextIndexOutOfRange
	ErrInvalidState           = cabac.ErrInvalidState
	ErrStreamCorrupt          = cabac.ErrStreamCorrupt
	ErrTerminated             = cabac.ErrTerminated
	ErrNotApplicable          = syntax.ErrNotApplicable
	ErrUnsupported            = syntax.ErrUnsupported
	ErrSliceEnded             = syntax.ErrSliceEnded
)

// SliceType is the slice_type of the slice header modulo 5.
type SliceType int

const (
	SliceP SliceType = iota
	SliceB
	SliceI
	SliceSP
	SliceSI
)

// ParseSliceType accepts P, B, I, SP and SI or a numeric slice_type value.
func ParseSliceType(name string) (SliceType, error) {
	st, err := syntax.ParseSliceType(name)
	return SliceType(st), err
}

func (t SliceType) String() string { return syntax.SliceType(t).String() }

// InitTable holds the (m, n) context initialisation parameters of one slice
// type and cabac_init_idc combination.
type InitTable struct {
	table cabac.InitTable
}

// ParseInitTable reads an init table from "ctxIdx m n" lines.
func ParseInitTable(r io.Reader) (InitTable, error) {
	t, err := cabac.ParseInitTable(r)
	if err != nil {
		return InitTable{}, err
	}
	return InitTable{table: t}, nil
}

// Event describes one decoded syntax element.
type Event struct {
	Element      string
	Value        int
	BitsConsumed uint32
}

// Options configures slice decoding.
type Options struct {
	SliceType SliceType
	// QP is the slice QP used to initialise the contexts.
	QP           int
	CabacInitIDC int
	// IntraInit seeds I and SI slices, InterInit the others by cabac_init_idc.
	// Zero tables seed equiprobable contexts.
	IntraInit InitTable
	InterInit [3]InitTable
	// Field selects field coded significance maps.
	Field           bool
	ChromaArrayType int
	Monochrome      bool
	BitDepthLuma    int
	BitDepthChroma  int
	// Logger receives debug output when set.
	Logger *log.Logger
	// Trace is called after every decoded syntax element.
	Trace func(Event)
}

func (opts Options) internal() syntax.Options {
	o := syntax.Options{
		SliceType:       syntax.SliceType(opts.SliceType),
		QP:              opts.QP,
		CabacInitIDC:    opts.CabacInitIDC,
		Field:           opts.Field,
		ChromaArrayType: opts.ChromaArrayType,
		Monochrome:      opts.Monochrome,
		BitDepthLuma:    opts.BitDepthLuma,
		BitDepthChroma:  opts.BitDepthChroma,
		Logger:          opts.Logger,
	}
	o.InitTables.Intra = opts.IntraInit.table
	for i, t := range opts.InterInit {
		o.InitTables.Inter[i] = t.table
	}
	if opts.Trace != nil {
		trace := opts.Trace
		o.Trace = func(ev syntax.Event) {
			trace(Event{Element: ev.Element, Value: ev.Value, BitsConsumed: ev.BitsConsumed})
		}
	}
	return o
}

// SliceDecoder reads the syntax elements of one slice. It is not safe for
// concurrent use; decode independent slices with separate decoders.
type SliceDecoder struct {
	slice *syntax.Slice
}

// NewSliceDecoder starts decoding data at offset, the first byte of the
// arithmetic coded slice data. data must extend two bytes past the end of
// the slice data.
func NewSliceDecoder(data []byte, offset int, opts Options) (*SliceDecoder, error) {
	if len(data) == 0 {
		return nil, errors.New("avc: empty slice data")
	}
	s, err := syntax.NewSlice(data, offset, opts.internal())
	if err != nil {
		return nil, err
	}
	return &SliceDecoder{slice: s}, nil
}

// Status represents the state of the arithmetic decoder.
type Status int

const (
	// StatusNotStarted indicates no data has been read.
	StatusNotStarted Status = iota
	// StatusDecoding indicates bins can be decoded.
	StatusDecoding
	// StatusTerminated indicates a terminate bin of 1 ended arithmetic decoding.
	StatusTerminated
	// StatusFailed indicates a read past the end of the data.
	StatusFailed
)

func (status Status) String() string {
	switch status {
	case StatusNotStarted:
		return "NotStarted"
	case StatusDecoding:
		return "Decoding"
	case StatusTerminated:
		return "Terminated"
	case StatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Status(%d)", int(status))
	}
}

// Registers is a copy of the arithmetic decoder state.
type Registers struct {
	Range    uint32
	Value    uint32
	BitsLeft int32
	Offset   uint32
}

// Status returns the decoder state.
func (d *SliceDecoder) Status() Status { return Status(d.slice.Engine().Status()) }

// Registers returns the arithmetic decoder registers.
func (d *SliceDecoder) Registers() Registers {
	snap := d.slice.Engine().Snapshot()
	return Registers{Range: snap.Range, Value: snap.Value, BitsLeft: snap.BitsLeft, Offset: snap.Offset}
}

// BitsConsumed returns the number of bits of data used so far.
func (d *SliceDecoder) BitsConsumed() uint32 { return d.slice.BitsConsumed() }

// Ended reports whether end_of_slice_flag was 1.
func (d *SliceDecoder) Ended() bool { return d.slice.Ended() }

// Decision decodes one bin with context ctxIdx.
func (d *SliceDecoder) Decision(ctxIdx int) (bool, error) {
	ctx, err := d.slice.Contexts().Index(ctxIdx)
	if err != nil {
		return false, err
	}
	return d.slice.Engine().DecodeDecision(ctx)
}

// Bypass decodes one equiprobable bin.
func (d *SliceDecoder) Bypass() (bool, error) { return d.slice.Engine().DecodeBypass() }

// Terminate decodes one terminate bin.
func (d *SliceDecoder) Terminate() (bool, error) { return d.slice.Engine().DecodeTerminate() }

// Unary decodes a unary code on contexts ctxIdx..ctxIdx+maxCtxOffset.
func (d *SliceDecoder) Unary(ctxIdx, maxCtxOffset int) (uint32, error) {
	ctxs, err := d.slice.Contexts().Range(ctxIdx, maxCtxOffset+1)
	if err != nil {
		return 0, err
	}
	return cabac.DecodeUnary(d.slice.Engine(), ctxs, 0, maxCtxOffset)
}

// UnaryTruncated decodes a truncated unary code of at most maxSymbol bins.
func (d *SliceDecoder) UnaryTruncated(ctxIdx, maxCtxOffset int, maxSymbol uint32) (uint32, error) {
	ctxs, err := d.slice.Contexts().Range(ctxIdx, maxCtxOffset+1)
	if err != nil {
		return 0, err
	}
	return cabac.DecodeUnaryTruncated(d.slice.Engine(), ctxs, 0, maxCtxOffset, maxSymbol)
}

// ExpGolombEscape decodes a signed UEG3 value with prefix contexts starting
// at ctxIdx, laid out like mvd: bin 0 on ctxIdx+firstInc, later bins on
// ctxIdx+3..ctxIdx+6.
func (d *SliceDecoder) ExpGolombEscape(ctxIdx, firstInc int) (int32, error) {
	ctxs, err := d.slice.Contexts().Range(ctxIdx, 7)
	if err != nil {
		return 0, err
	}
	return cabac.DecodeSignedExpGolombEscape(d.slice.Engine(), ctxs, cabac.Mvd(firstInc))
}

// BypassBits decodes n bypass bins, most significant bit first.
func (d *SliceDecoder) BypassBits(n uint) (uint32, error) {
	return cabac.DecodeBypassBits(d.slice.Engine(), n)
}

// ExpGolombBypass decodes a k-th order Exp-Golomb value from bypass bins.
func (d *SliceDecoder) ExpGolombBypass(k uint) (uint32, error) {
	return cabac.DecodeExpGolombBypass(d.slice.Engine(), k, 0)
}

// MbSkipFlag decodes mb_skip_flag.
func (d *SliceDecoder) MbSkipFlag(ctxInc int) (bool, error) { return d.slice.MbSkipFlag(ctxInc) }

// MbType decodes mb_type.
func (d *SliceDecoder) MbType(ctxInc, intraCtxInc int) (int, error) {
	return d.slice.MbType(ctxInc, intraCtxInc)
}

// IsPCM reports whether mbType is I_PCM for the slice.
func (d *SliceDecoder) IsPCM(mbType int) bool {
	return mbType == syntax.PCMMbType(d.slice.SliceType())
}

// SubMbType decodes sub_mb_type.
func (d *SliceDecoder) SubMbType() (int, error) { return d.slice.SubMbType() }

// MbFieldDecodingFlag decodes mb_field_decoding_flag.
func (d *SliceDecoder) MbFieldDecodingFlag(ctxInc int) (bool, error) {
	return d.slice.MbFieldDecodingFlag(ctxInc)
}

// EndOfSlice decodes end_of_slice_flag.
func (d *SliceDecoder) EndOfSlice() (bool, error) { return d.slice.EndOfSlice() }

// TransformSize8x8Flag decodes transform_size_8x8_flag.
func (d *SliceDecoder) TransformSize8x8Flag(ctxInc int) (bool, error) {
	return d.slice.TransformSize8x8Flag(ctxInc)
}

// PrevIntraPredModeFlag decodes prev_intra4x4_pred_mode_flag.
func (d *SliceDecoder) PrevIntraPredModeFlag() (bool, error) { return d.slice.PrevIntraPredModeFlag() }

// RemIntraPredMode decodes rem_intra4x4_pred_mode.
func (d *SliceDecoder) RemIntraPredMode() (int, error) { return d.slice.RemIntraPredMode() }

// IntraChromaPredMode decodes intra_chroma_pred_mode.
func (d *SliceDecoder) IntraChromaPredMode(ctxInc int) (int, error) {
	return d.slice.IntraChromaPredMode(ctxInc)
}

// MbQpDelta decodes mb_qp_delta.
func (d *SliceDecoder) MbQpDelta(ctxInc int) (int, error) { return d.slice.MbQpDelta(ctxInc) }

// RefIdx decodes ref_idx_lX.
func (d *SliceDecoder) RefIdx(ctxInc int) (int, error) { return d.slice.RefIdx(ctxInc) }

// Mvd decodes component comp of mvd_lX.
func (d *SliceDecoder) Mvd(comp, ctxInc int) (int, error) { return d.slice.Mvd(comp, ctxInc) }

// CodedBlockPattern decodes coded_block_pattern. luma returns the increment
// of luma bin b8 given the bins decoded so far, chroma the increment of
// chroma bin 0 or 1; nil functions use 0.
func (d *SliceDecoder) CodedBlockPattern(luma func(b8, decoded int) int, chroma func(binIdx int) int) (int, error) {
	return d.slice.CodedBlockPattern(luma, chroma)
}

// BlockCat is ctxBlockCat.
type BlockCat int

const (
	CatLumaDC BlockCat = iota
	CatLumaAC
	CatLuma4x4
	CatChromaDC
	CatChromaAC
	CatLuma8x8
)

func (c BlockCat) String() string { return syntax.BlockCat(c).String() }

// CodedBlockFlag decodes coded_block_flag.
func (d *SliceDecoder) CodedBlockFlag(cat BlockCat, ctxInc int) (bool, error) {
	return d.slice.CodedBlockFlag(syntax.BlockCat(cat), ctxInc)
}

// MaxNumCoeff returns the coefficient count of a block of cat.
func (d *SliceDecoder) MaxNumCoeff(cat BlockCat) (int, error) {
	return d.slice.MaxNumCoeff(syntax.BlockCat(cat))
}

// Residual decodes the coefficients of a block into coeffs and returns the
// number of non-zero levels.
func (d *SliceDecoder) Residual(cat BlockCat, coeffs []int32) (int, error) {
	return d.slice.Residual(syntax.BlockCat(cat), coeffs)
}

// ResidualField decodes a block with frame or field significance map
// contexts selected for this call, as in MBAFF frames.
func (d *SliceDecoder) ResidualField(cat BlockCat, field bool, coeffs []int32) (int, error) {
	return d.slice.ResidualField(syntax.BlockCat(cat), field, coeffs)
}

// PCMSamples returns the raw samples of an I_PCM macroblock.
func (d *SliceDecoder) PCMSamples() ([]byte, error) { return d.slice.PCMSamples() }
