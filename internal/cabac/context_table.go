package cabac

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NumContexts is the size of the ctxIdx space, 0..1023.
const NumContexts = 1024

// Family names a context set: the contiguous run of ctxIdx values that one
// syntax element family draws from.
type Family uint8

const (
	FamilyMbTypeSI Family = iota
	FamilyMbTypeI
	FamilyMbSkipP
	FamilyMbTypeP
	FamilySubMbTypeP
	FamilyMbSkipB
	FamilyMbTypeB
	FamilySubMbTypeB
	FamilyMvdX
	FamilyMvdY
	FamilyRefIdx
	FamilyMbQpDelta
	FamilyIntraChromaPredMode
	FamilyPrevIntraPredModeFlag
	FamilyRemIntraPredMode
	FamilyMbFieldDecodingFlag
	FamilyCodedBlockPatternLuma
	FamilyCodedBlockPatternChroma
	FamilyCodedBlockFlag
	FamilySignificantFrame
	FamilyLastSignificantFrame
	FamilyCoeffAbsLevel
	FamilySignificantField
	FamilyLastSignificantField
	FamilyTransformSize8x8Flag
	FamilySignificant8x8Frame
	FamilyLastSignificant8x8Frame
	FamilyCoeffAbsLevel8x8
	FamilySignificant8x8Field
	FamilyLastSignificant8x8Field
	FamilyResidual444
	numFamilies
)

type familyLayout struct {
	name   string
	offset uint16
	size   uint16
}

// familyLayouts places every family in the ctxIdx space. ctxIdx 276 belongs to
// end_of_slice_flag and the I_PCM bin, which are terminate bins and have no
// adaptive state.
var familyLayouts = [numFamilies]familyLayout{
	FamilyMbTypeSI:                {"mb_type(SI prefix)", 0, 3},
	FamilyMbTypeI:                 {"mb_type(I)", 3, 8},
	FamilyMbSkipP:                 {"mb_skip_flag(P/SP)", 11, 3},
	FamilyMbTypeP:                 {"mb_type(P/SP)", 14, 7},
	FamilySubMbTypeP:              {"sub_mb_type(P/SP)", 21, 3},
	FamilyMbSkipB:                 {"mb_skip_flag(B)", 24, 3},
	FamilyMbTypeB:                 {"mb_type(B)", 27, 9},
	FamilySubMbTypeB:              {"sub_mb_type(B)", 36, 4},
	FamilyMvdX:                    {"mvd_lX[][][0]", 40, 7},
	FamilyMvdY:                    {"mvd_lX[][][1]", 47, 7},
	FamilyRefIdx:                  {"ref_idx_lX", 54, 6},
	FamilyMbQpDelta:               {"mb_qp_delta", 60, 4},
	FamilyIntraChromaPredMode:     {"intra_chroma_pred_mode", 64, 4},
	FamilyPrevIntraPredModeFlag:   {"prev_intra_pred_mode_flag", 68, 1},
	FamilyRemIntraPredMode:        {"rem_intra_pred_mode", 69, 1},
	FamilyMbFieldDecodingFlag:     {"mb_field_decoding_flag", 70, 3},
	FamilyCodedBlockPatternLuma:   {"coded_block_pattern(luma)", 73, 4},
	FamilyCodedBlockPatternChroma: {"coded_block_pattern(chroma)", 77, 8},
	FamilyCodedBlockFlag:          {"coded_block_flag", 85, 20},
	FamilySignificantFrame:        {"significant_coeff_flag(frame)", 105, 61},
	FamilyLastSignificantFrame:    {"last_significant_coeff_flag(frame)", 166, 61},
	FamilyCoeffAbsLevel:           {"coeff_abs_level_minus1", 227, 49},
	FamilySignificantField:        {"significant_coeff_flag(field)", 277, 61},
	FamilyLastSignificantField:    {"last_significant_coeff_flag(field)", 338, 61},
	FamilyTransformSize8x8Flag:    {"transform_size_8x8_flag", 399, 3},
	FamilySignificant8x8Frame:     {"significant_coeff_flag(frame,8x8)", 402, 15},
	FamilyLastSignificant8x8Frame: {"last_significant_coeff_flag(frame,8x8)", 417, 9},
	FamilyCoeffAbsLevel8x8:        {"coeff_abs_level_minus1(8x8)", 426, 10},
	FamilySignificant8x8Field:     {"significant_coeff_flag(field,8x8)", 436, 15},
	FamilyLastSignificant8x8Field: {"last_significant_coeff_flag(field,8x8)", 451, 9},
	FamilyResidual444:             {"residual(4:4:4 Cb/Cr)", 460, 564},
}

// Offset returns the first ctxIdx of the family.
func (f Family) Offset() int {
	if f >= numFamilies {
		return 0
	}
	return int(familyLayouts[f].offset)
}

// Size returns the number of contexts in the family.
func (f Family) Size() int {
	if f >= numFamilies {
		return 0
	}
	return int(familyLayouts[f].size)
}

func (f Family) String() string {
	if f >= numFamilies {
		return fmt.Sprintf("Family(%d)", int(f))
	}
	return familyLayouts[f].name
}

// ContextTable owns every context state of one slice. It is reset per slice
// and must not be shared between concurrently decoding slices.
type ContextTable struct {
	ctx [NumContexts]ContextState
	qp  int
}

// NewContextTable returns a table initialised from params at qp.
func NewContextTable(qp int, params InitTable) *ContextTable {
	t := &ContextTable{}
	t.Init(qp, params)
	return t
}

// Init seeds every context from params at qp. Contexts beyond len(params) use
// DefaultInitParam.
func (t *ContextTable) Init(qp int, params InitTable) {
	t.qp = qp
	for i := range t.ctx {
		p := DefaultInitParam
		if i < len(params) {
			p = params[i]
		}
		t.ctx[i] = InitContext(qp, int(p.M), int(p.N))
	}
}

// QP returns the quantisation parameter the table was initialised with.
func (t *ContextTable) QP() int { return t.qp }

// Set returns the family's contexts as a slice aliasing the table.
func (t *ContextTable) Set(f Family) []ContextState {
	if f >= numFamilies {
		return nil
	}
	l := familyLayouts[f]
	end := int(l.offset) + int(l.size)
	return t.ctx[l.offset:end:end]
}

// At returns context idx of family f.
func (t *ContextTable) At(f Family, idx int) (*ContextState, error) {
	if f >= numFamilies || idx < 0 || idx >= int(familyLayouts[f].size) {
		return nil, errors.Wrapf(ErrContextIndexOutOfRange, "%s[%d]", f, idx)
	}
	return &t.ctx[int(familyLayouts[f].offset)+idx], nil
}

// Index returns the context with absolute ctxIdx.
func (t *ContextTable) Index(ctxIdx int) (*ContextState, error) {
	if ctxIdx < 0 || ctxIdx >= NumContexts {
		return nil, errors.Wrapf(ErrContextIndexOutOfRange, "ctxIdx %d", ctxIdx)
	}
	return &t.ctx[ctxIdx], nil
}

// Range returns n contexts starting at ctxIdx as a slice aliasing the table.
func (t *ContextTable) Range(ctxIdx, n int) ([]ContextState, error) {
	if ctxIdx < 0 || n < 0 || ctxIdx+n > NumContexts {
		return nil, errors.Wrapf(ErrContextIndexOutOfRange, "ctxIdx %d+%d", ctxIdx, n)
	}
	end := ctxIdx + n
	return t.ctx[ctxIdx:end:end], nil
}

// InitTable lists the (m, n) pair of every ctxIdx for one slice type and
// cabac_init_idc combination.
type InitTable []InitParam

// NewInitTable returns a full-size table filled with DefaultInitParam.
func NewInitTable() InitTable {
	t := make(InitTable, NumContexts)
	for i := range t {
		t[i] = DefaultInitParam
	}
	return t
}

// ParseInitTable reads "ctxIdx m n" lines. Blank lines and text after '#'
// are ignored; contexts that are not listed keep DefaultInitParam.
func ParseInitTable(r io.Reader) (InitTable, error) {
	t := NewInitTable()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, errors.Errorf("cabac: init table line %d: want 3 fields, got %d", line, len(fields))
		}
		var vals [3]int
		for i, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, errors.Wrapf(err, "cabac: init table line %d", line)
			}
			vals[i] = v
		}
		if vals[0] < 0 || vals[0] >= NumContexts {
			return nil, errors.Wrapf(ErrContextIndexOutOfRange, "init table line %d: ctxIdx %d", line, vals[0])
		}
		if vals[1] < -128 || vals[1] > 127 || vals[2] < -128 || vals[2] > 127 {
			return nil, errors.Errorf("cabac: init table line %d: m/n out of int8 range", line)
		}
		t[vals[0]] = InitParam{M: int8(vals[1]), N: int8(vals[2])}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "cabac: reading init table")
	}
	return t, nil
}
