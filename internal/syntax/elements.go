package syntax

import (
	"github.com/pkg/errors"

	"github.com/jdeng/goavc/internal/cabac"
)

// MbFieldDecodingFlag decodes mb_field_decoding_flag; ctxInc is 0..2.
func (s *Slice) MbFieldDecodingFlag(ctxInc int) (bool, error) {
	v, err := s.decision(cabac.FamilyMbFieldDecodingFlag, ctxInc)
	return s.flag("mb_field_decoding_flag", v, err)
}

// EndOfSlice decodes end_of_slice_flag. After a 1 no further element can be
// read from the slice.
func (s *Slice) EndOfSlice() (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	end, err := s.terminate()
	if err == nil && end {
		s.ended = true
		s.debugf("end of slice after %d bits", s.engine.BitsConsumed())
	}
	return s.flag("end_of_slice_flag", end, err)
}

// TransformSize8x8Flag decodes transform_size_8x8_flag; ctxInc is 0..2.
func (s *Slice) TransformSize8x8Flag(ctxInc int) (bool, error) {
	v, err := s.decision(cabac.FamilyTransformSize8x8Flag, ctxInc)
	return s.flag("transform_size_8x8_flag", v, err)
}

// PrevIntraPredModeFlag decodes prev_intra4x4_pred_mode_flag or
// prev_intra8x8_pred_mode_flag.
func (s *Slice) PrevIntraPredModeFlag() (bool, error) {
	v, err := s.decision(cabac.FamilyPrevIntraPredModeFlag, 0)
	return s.flag("prev_intra_pred_mode_flag", v, err)
}

// RemIntraPredMode decodes the 3 bit rem_intra4x4_pred_mode or
// rem_intra8x8_pred_mode.
func (s *Slice) RemIntraPredMode() (int, error) {
	v, err := cabac.DecodeFixedLength(s.engine, s.table.Set(cabac.FamilyRemIntraPredMode), 0, 3)
	return s.value("rem_intra_pred_mode", int(v), err)
}

// IntraChromaPredMode decodes intra_chroma_pred_mode; ctxInc is 0..2.
func (s *Slice) IntraChromaPredMode(ctxInc int) (int, error) {
	u := cabac.Unary{Ctx: cabac.Ladder{First: ctxInc, Next: 3, Last: 3}, CMax: 3, Truncated: true}
	v, err := u.Decode(s.engine, s.table.Set(cabac.FamilyIntraChromaPredMode))
	return s.value("intra_chroma_pred_mode", int(v), err)
}

// MbQpDelta decodes mb_qp_delta; ctxInc is 0 or 1. Values outside the range
// allowed for the luma bit depth are reported as corrupt.
func (s *Slice) MbQpDelta(ctxInc int) (int, error) {
	maxBins := 52 + s.opts.qpBdOffsetY()
	u := cabac.Unary{Ctx: cabac.Ladder{First: ctxInc, Next: 2, Last: 3}, Limit: uint32(maxBins + 1)}
	k, err := u.Decode(s.engine, s.table.Set(cabac.FamilyMbQpDelta))
	if err != nil {
		return s.value("mb_qp_delta", 0, err)
	}
	v := int(k+1) / 2
	if k%2 == 0 {
		v = -int(k / 2)
	}
	return s.value("mb_qp_delta", v, nil)
}

// MaxRefIdx bounds ref_idx_lX.
const MaxRefIdx = 31

// RefIdx decodes ref_idx_l0 or ref_idx_l1; ctxInc is 0..3.
func (s *Slice) RefIdx(ctxInc int) (int, error) {
	u := cabac.Unary{Ctx: cabac.Ladder{First: ctxInc, Next: 4, Last: 5}, Limit: MaxRefIdx + 1}
	v, err := u.Decode(s.engine, s.table.Set(cabac.FamilyRefIdx))
	return s.value("ref_idx", int(v), err)
}

// Mvd decodes one component of mvd_l0 or mvd_l1; comp is 0 for horizontal
// and 1 for vertical, ctxInc is 0..2.
func (s *Slice) Mvd(comp, ctxInc int) (int, error) {
	f := cabac.FamilyMvdX
	switch comp {
	case 0:
	case 1:
		f = cabac.FamilyMvdY
	default:
		return 0, errors.Errorf("syntax: invalid mvd component %d", comp)
	}
	v, err := cabac.DecodeSignedExpGolombEscape(s.engine, s.table.Set(f), cabac.Mvd(ctxInc))
	return s.value("mvd", int(v), err)
}

// CBPLumaInc derives the context increment of luma prefix bin b8 from the
// bins already decoded for this macroblock.
type CBPLumaInc func(b8 int, decoded int) int

// CBPChromaInc derives the context increment of chroma suffix bin binIdx
// (0 or 1), excluding the offset of 4 the second bin carries.
type CBPChromaInc func(binIdx int) int

// CodedBlockPattern decodes coded_block_pattern: four fixed length luma bins
// and, for 4:2:0 and 4:2:2, a truncated unary chroma value. Nil functions use
// increment 0.
func (s *Slice) CodedBlockPattern(luma CBPLumaInc, chroma CBPChromaInc) (int, error) {
	cbp := 0
	for b8 := 0; b8 < 4; b8++ {
		inc := 0
		if luma != nil {
			inc = luma(b8, cbp)
		}
		bit, err := s.decision(cabac.FamilyCodedBlockPatternLuma, inc)
		if err != nil {
			return s.value("coded_block_pattern", 0, err)
		}
		if bit {
			cbp |= 1 << uint(b8)
		}
	}
	if s.opts.ChromaArrayType != 1 && s.opts.ChromaArrayType != 2 {
		return s.value("coded_block_pattern", cbp, nil)
	}
	chromaValue := 0
	for binIdx := 0; binIdx < 2; binIdx++ {
		inc := 0
		if chroma != nil {
			inc = chroma(binIdx)
		}
		bit, err := s.decision(cabac.FamilyCodedBlockPatternChroma, 4*binIdx+inc)
		if err != nil {
			return s.value("coded_block_pattern", 0, err)
		}
		if !bit {
			break
		}
		chromaValue++
	}
	return s.value("coded_block_pattern", cbp|chromaValue<<4, nil)
}

// PCMSampleBytes returns the size of the pcm_sample_luma and
// pcm_sample_chroma data of one macroblock.
func (s *Slice) PCMSampleBytes() int {
	bits := 256 * s.opts.BitDepthLuma
	switch s.opts.ChromaArrayType {
	case 1:
		bits += 2 * 64 * s.opts.BitDepthChroma
	case 2:
		bits += 2 * 128 * s.opts.BitDepthChroma
	case 3:
		bits += 2 * 256 * s.opts.BitDepthChroma
	}
	return bits / 8
}

// PCMSamples reads the raw samples that follow an I_PCM mb_type and restarts
// the engine on the byte after them. The returned slice aliases the input.
func (s *Slice) PCMSamples() ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if !s.pcmPending {
		return nil, errors.New("syntax: pcm samples without an I_PCM macroblock")
	}
	n := s.PCMSampleBytes()
	offset := s.engine.AlignedOffset()
	stream := s.engine.Stream()
	stream.SetOffset(uint32(offset))
	raw, err := stream.ReadBytes(n)
	if err != nil {
		return nil, errors.Wrap(err, "syntax: pcm samples")
	}
	if err := s.engine.Restart(offset + n); err != nil {
		return nil, errors.Wrap(err, "syntax: restarting after pcm samples")
	}
	s.pcmPending = false
	s.debugf("read %d pcm bytes at byte %d, engine restarted at %d", n, offset, offset+n)
	s.emit("pcm_samples", n)
	return raw, nil
}
