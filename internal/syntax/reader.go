package syntax

import (
	"github.com/jdeng/goavc/internal/cabac"
)

// Macroblock type values shared by the readers. Intra types inside P and B
// slices are offset by the number of inter types of the slice.
const (
	MbTypeINxN   = 0
	MbTypeIPCM   = 25
	MbTypeSI     = 0
	IntraOffsetP = 5
	IntraOffsetB = 23
	// BDirect16x16 is the B mb_type decoded from a single 0 bin.
	BDirect16x16 = 0
	// P8x8 and B8x8 carry sub_mb_type elements.
	P8x8 = 3
	B8x8 = 22
)

// SymbolReader decodes the syntax elements whose binarization or contexts
// differ between slice types. One reader is selected per slice.
type SymbolReader interface {
	SliceType() SliceType
	MbSkipFlag(s *Slice, ctxInc int) (bool, error)
	MbType(s *Slice, ctxInc, intraCtxInc int) (int, error)
	SubMbType(s *Slice) (int, error)
}

// ReaderFor returns the reader of t. SP slices share the P reader.
func ReaderFor(t SliceType) SymbolReader {
	switch t {
	case SliceI:
		return intraReader{}
	case SliceSI:
		return siReader{}
	case SliceB:
		return bReader{}
	case SliceSP:
		return pReader{sliceType: SliceSP}
	default:
		return pReader{sliceType: SliceP}
	}
}

// PCMMbType returns the mb_type value of I_PCM in a slice of type t.
func PCMMbType(t SliceType) int {
	switch t {
	case SliceSI:
		return 1 + MbTypeIPCM
	case SliceP, SliceSP:
		return IntraOffsetP + MbTypeIPCM
	case SliceB:
		return IntraOffsetB + MbTypeIPCM
	default:
		return MbTypeIPCM
	}
}

// intraBins places the bins of the I mb_type tree after the first bin.
type intraBins struct {
	luma, chroma, chroma2, predHi, predLo int
}

var iSliceBins = intraBins{luma: 3, chroma: 4, chroma2: 5, predHi: 6, predLo: 7}

// suffixBins lays out the intra suffix of P and B mb_type starting at base.
func suffixBins(base int) intraBins {
	return intraBins{luma: base + 1, chroma: base + 2, chroma2: base + 2, predHi: base + 3, predLo: base + 3}
}

// decodeIntraMbType decodes I_NxN, I_16x16_* or I_PCM. The second bin is a
// terminate bin; a 1 there selects I_PCM and leaves the engine waiting for
// the samples.
func decodeIntraMbType(s *Slice, f cabac.Family, first int, l intraBins) (int, error) {
	bit, err := s.decision(f, first)
	if err != nil || !bit {
		return MbTypeINxN, err
	}
	pcm, err := s.terminate()
	if err != nil {
		return 0, err
	}
	if pcm {
		s.pcmPending = true
		s.debugf("I_PCM at bit %d", s.engine.BitsConsumed())
		return MbTypeIPCM, nil
	}
	mbType := 1
	if bit, err = s.decision(f, l.luma); err != nil {
		return 0, err
	} else if bit {
		mbType += 12
	}
	if bit, err = s.decision(f, l.chroma); err != nil {
		return 0, err
	} else if bit {
		mbType += 4
		if bit, err = s.decision(f, l.chroma2); err != nil {
			return 0, err
		} else if bit {
			mbType += 4
		}
	}
	if bit, err = s.decision(f, l.predHi); err != nil {
		return 0, err
	} else if bit {
		mbType += 2
	}
	if bit, err = s.decision(f, l.predLo); err != nil {
		return 0, err
	} else if bit {
		mbType++
	}
	return mbType, nil
}

type intraReader struct{}

func (intraReader) SliceType() SliceType { return SliceI }

func (intraReader) MbSkipFlag(*Slice, int) (bool, error) { return false, ErrNotApplicable }

func (intraReader) MbType(s *Slice, ctxInc, _ int) (int, error) {
	return decodeIntraMbType(s, cabac.FamilyMbTypeI, ctxInc, iSliceBins)
}

func (intraReader) SubMbType(*Slice) (int, error) { return 0, ErrNotApplicable }

type siReader struct{}

func (siReader) SliceType() SliceType { return SliceSI }

func (siReader) MbSkipFlag(*Slice, int) (bool, error) { return false, ErrNotApplicable }

func (siReader) MbType(s *Slice, ctxInc, intraCtxInc int) (int, error) {
	bit, err := s.decision(cabac.FamilyMbTypeSI, ctxInc)
	if err != nil || !bit {
		return MbTypeSI, err
	}
	v, err := decodeIntraMbType(s, cabac.FamilyMbTypeI, intraCtxInc, iSliceBins)
	if err != nil {
		return 0, err
	}
	return 1 + v, nil
}

func (siReader) SubMbType(*Slice) (int, error) { return 0, ErrNotApplicable }

type pReader struct {
	sliceType SliceType
}

func (r pReader) SliceType() SliceType { return r.sliceType }

func (pReader) MbSkipFlag(s *Slice, ctxInc int) (bool, error) {
	return s.decision(cabac.FamilyMbSkipP, ctxInc)
}

// MbType decodes the P prefix tree 000, 011, 010, 001 for P_L0_16x16,
// P_L0_L0_16x8, P_L0_L0_8x16 and P_8x8; a leading 1 introduces an intra
// suffix.
func (pReader) MbType(s *Slice, _, _ int) (int, error) {
	const f = cabac.FamilyMbTypeP
	b0, err := s.decision(f, 0)
	if err != nil {
		return 0, err
	}
	if b0 {
		v, err := decodeIntraMbType(s, f, 3, suffixBins(3))
		if err != nil {
			return 0, err
		}
		return IntraOffsetP + v, nil
	}
	b1, err := s.decision(f, 1)
	if err != nil {
		return 0, err
	}
	if !b1 {
		b2, err := s.decision(f, 2)
		if err != nil {
			return 0, err
		}
		if b2 {
			return P8x8, nil
		}
		return 0, nil
	}
	b2, err := s.decision(f, 3)
	if err != nil {
		return 0, err
	}
	if b2 {
		return 1, nil
	}
	return 2, nil
}

func (pReader) SubMbType(s *Slice) (int, error) {
	const f = cabac.FamilySubMbTypeP
	bit, err := s.decision(f, 0)
	if err != nil || bit {
		return 0, err
	}
	if bit, err = s.decision(f, 1); err != nil {
		return 0, err
	} else if !bit {
		return 1, nil
	}
	if bit, err = s.decision(f, 2); err != nil {
		return 0, err
	} else if bit {
		return 2, nil
	}
	return 3, nil
}

type bReader struct{}

func (bReader) SliceType() SliceType { return SliceB }

func (bReader) MbSkipFlag(s *Slice, ctxInc int) (bool, error) {
	return s.decision(cabac.FamilyMbSkipB, ctxInc)
}

func (bReader) MbType(s *Slice, ctxInc, _ int) (int, error) {
	const f = cabac.FamilyMbTypeB
	bit, err := s.decision(f, ctxInc)
	if err != nil || !bit {
		return BDirect16x16, err
	}
	if bit, err = s.decision(f, 3); err != nil {
		return 0, err
	} else if !bit {
		l1, err := s.decision(f, 5)
		if err != nil {
			return 0, err
		}
		if l1 {
			return 2, nil
		}
		return 1, nil
	}
	bits := 0
	for i, idx := range [4]int{4, 5, 5, 5} {
		b, err := s.decision(f, idx)
		if err != nil {
			return 0, err
		}
		if b {
			bits |= 1 << uint(3-i)
		}
	}
	switch {
	case bits < 8:
		return bits + 3, nil
	case bits == 13:
		v, err := decodeIntraMbType(s, f, 5, suffixBins(5))
		if err != nil {
			return 0, err
		}
		return IntraOffsetB + v, nil
	case bits == 14:
		return 11, nil
	case bits == 15:
		return B8x8, nil
	}
	b, err := s.decision(f, 5)
	if err != nil {
		return 0, err
	}
	bits <<= 1
	if b {
		bits |= 1
	}
	return bits - 4, nil
}

func (bReader) SubMbType(s *Slice) (int, error) {
	const f = cabac.FamilySubMbTypeB
	bit, err := s.decision(f, 0)
	if err != nil || !bit {
		return 0, err
	}
	if bit, err = s.decision(f, 1); err != nil {
		return 0, err
	} else if !bit {
		l1, err := s.decision(f, 3)
		if err != nil {
			return 0, err
		}
		if l1 {
			return 2, nil
		}
		return 1, nil
	}
	subType := 3
	if bit, err = s.decision(f, 2); err != nil {
		return 0, err
	} else if bit {
		if bit, err = s.decision(f, 3); err != nil {
			return 0, err
		} else if bit {
			last, err := s.decision(f, 3)
			if err != nil {
				return 0, err
			}
			if last {
				return 12, nil
			}
			return 11, nil
		}
		subType += 4
	}
	for _, weight := range [2]int{2, 1} {
		b, err := s.decision(f, 3)
		if err != nil {
			return 0, err
		}
		if b {
			subType += weight
		}
	}
	return subType, nil
}
