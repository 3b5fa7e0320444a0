package syntax

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/jdeng/goavc/internal/cabac"
)

// BlockCat is ctxBlockCat, the residual block category.
type BlockCat uint8

const (
	CatLumaDC BlockCat = iota
	CatLumaAC
	CatLuma4x4
	CatChromaDC
	CatChromaAC
	CatLuma8x8
)

func (c BlockCat) String() string {
	switch c {
	case CatLumaDC:
		return "Intra16x16DC"
	case CatLumaAC:
		return "Intra16x16AC"
	case CatLuma4x4:
		return "Luma4x4"
	case CatChromaDC:
		return "ChromaDC"
	case CatChromaAC:
		return "ChromaAC"
	case CatLuma8x8:
		return "Luma8x8"
	default:
		return fmt.Sprintf("BlockCat(%d)", int(c))
	}
}

// Per category offsets inside each residual context family.
var (
	cbfCatOffset   = [5]int{0, 4, 8, 12, 16}
	sigCatOffset   = [5]int{0, 15, 29, 44, 47}
	levelCatOffset = [5]int{0, 10, 20, 30, 39}
)

// numC8x8 is the number of 8x8 chroma blocks per component.
func (s *Slice) numC8x8() int {
	if s.opts.ChromaArrayType == 2 {
		return 2
	}
	return 1
}

// MaxNumCoeff returns the number of coefficients coded for a block of cat.
func (s *Slice) MaxNumCoeff(cat BlockCat) (int, error) {
	switch cat {
	case CatLumaDC, CatLuma4x4:
		return 16, nil
	case CatLumaAC:
		return 15, nil
	case CatChromaDC, CatChromaAC:
		if s.opts.ChromaArrayType != 1 && s.opts.ChromaArrayType != 2 {
			return 0, errors.Wrapf(ErrUnsupported, "%s with ChromaArrayType %d", cat, s.opts.ChromaArrayType)
		}
		if cat == CatChromaAC {
			return 15, nil
		}
		return 4 * s.numC8x8(), nil
	case CatLuma8x8:
		return 64, errors.Wrapf(ErrUnsupported, "%s", cat)
	}
	return 0, errors.Wrapf(ErrUnsupported, "%s", cat)
}

// CodedBlockFlag decodes coded_block_flag of a block of cat; ctxInc is 0..3.
func (s *Slice) CodedBlockFlag(cat BlockCat, ctxInc int) (bool, error) {
	if int(cat) >= len(cbfCatOffset) {
		return s.flag("coded_block_flag", false, errors.Wrapf(ErrUnsupported, "%s", cat))
	}
	if ctxInc < 0 || ctxInc > 3 {
		return s.flag("coded_block_flag", false, errors.Wrapf(cabac.ErrContextIndexOutOfRange, "coded_block_flag increment %d", ctxInc))
	}
	v, err := s.decision(cabac.FamilyCodedBlockFlag, cbfCatOffset[cat]+ctxInc)
	return s.flag("coded_block_flag", v, err)
}

// Residual decodes the significance map and the levels of one block whose
// coded_block_flag is 1. coeffs must hold MaxNumCoeff(cat) entries and
// receives the levels in scan order; the number of non-zero levels is
// returned.
func (s *Slice) Residual(cat BlockCat, coeffs []int32) (int, error) {
	return s.ResidualField(cat, s.opts.Field, coeffs)
}

// ResidualField is Residual with the significance map contexts chosen per
// call. MBAFF frames pass the macroblock's mb_field_decoding_flag.
func (s *Slice) ResidualField(cat BlockCat, field bool, coeffs []int32) (int, error) {
	maxNumCoeff, err := s.MaxNumCoeff(cat)
	if err != nil {
		return s.value("residual", 0, err)
	}
	if len(coeffs) != maxNumCoeff {
		return 0, errors.Errorf("syntax: %s block needs %d coefficients, got %d", cat, maxNumCoeff, len(coeffs))
	}
	for i := range coeffs {
		coeffs[i] = 0
	}

	sigFamily, lastFamily := cabac.FamilySignificantFrame, cabac.FamilyLastSignificantFrame
	if field {
		sigFamily, lastFamily = cabac.FamilySignificantField, cabac.FamilyLastSignificantField
	}
	sigSet := s.table.Set(sigFamily)[sigCatOffset[cat]:]
	lastSet := s.table.Set(lastFamily)[sigCatOffset[cat]:]

	var positions [64]int
	numCoeff := 0
	lastFound := false
	for i := 0; i < maxNumCoeff-1; i++ {
		inc := i
		if cat == CatChromaDC {
			inc = i / s.numC8x8()
			if inc > 2 {
				inc = 2
			}
		}
		sig, err := cabac.Decision(s.engine, sigSet, inc)
		if err != nil {
			return s.value("significant_coeff_flag", 0, err)
		}
		if !sig {
			continue
		}
		positions[numCoeff] = i
		numCoeff++
		last, err := cabac.Decision(s.engine, lastSet, inc)
		if err != nil {
			return s.value("last_significant_coeff_flag", 0, err)
		}
		if last {
			lastFound = true
			break
		}
	}
	if !lastFound {
		positions[numCoeff] = maxNumCoeff - 1
		numCoeff++
	}

	levelSet := s.table.Set(cabac.FamilyCoeffAbsLevel)[levelCatOffset[cat]:]
	maxGt1Inc := 4
	if cat == CatChromaDC {
		maxGt1Inc = 3
	}
	numGt1, numEq1 := 0, 0
	for j := numCoeff - 1; j >= 0; j-- {
		first := 0
		if numGt1 == 0 {
			first = 1 + numEq1
			if first > 4 {
				first = 4
			}
		}
		rest := numGt1
		if rest > maxGt1Inc {
			rest = maxGt1Inc
		}
		absMinus1, err := cabac.DecodeExpGolombEscape(s.engine, levelSet, cabac.CoeffAbsLevel(first, 5+rest))
		if err != nil {
			return s.value("coeff_abs_level_minus1", 0, err)
		}
		if absMinus1 >= 1<<28 {
			return s.value("coeff_abs_level_minus1", 0, errors.Wrapf(cabac.ErrStreamCorrupt, "level %d", absMinus1))
		}
		level := int32(absMinus1) + 1
		if level == 1 {
			numEq1++
		} else {
			numGt1++
		}
		neg, err := s.bypass()
		if err != nil {
			return s.value("coeff_sign_flag", 0, err)
		}
		if neg {
			level = -level
		}
		coeffs[positions[j]] = level
	}
	return s.value("residual", numCoeff, nil)
}
