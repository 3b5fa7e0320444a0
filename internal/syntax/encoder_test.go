package syntax

import (
	"testing"

	"github.com/jdeng/goavc/internal/cabac"
	"github.com/jdeng/goavc/internal/cabactest"
)

// testInitTable gives every context a distinct, non-trivial starting state.
func testInitTable() cabac.InitTable {
	t := cabac.NewInitTable()
	for i := range t {
		t[i] = cabac.InitParam{M: int8((i*7)%41 - 20), N: int8((i*13)%90 + 20)}
	}
	return t
}

func testOptions(st SliceType) Options {
	params := testInitTable()
	return Options{
		SliceType:    st,
		QP:           28,
		CabacInitIDC: 1,
		InitTables:   InitTables{Intra: params, Inter: [3]cabac.InitTable{nil, params, nil}},
	}
}

// sliceEncoder writes syntax elements with a context table mirroring the one
// a Slice created from the same options starts with.
type sliceEncoder struct {
	t     *testing.T
	enc   *cabactest.Encoder
	table *cabac.ContextTable
}

func newSliceEncoder(t *testing.T, opts Options) *sliceEncoder {
	t.Helper()
	params, err := opts.InitTables.For(opts.SliceType, opts.CabacInitIDC)
	if err != nil {
		t.Fatal(err)
	}
	return &sliceEncoder{t: t, enc: cabactest.NewEncoder(), table: cabac.NewContextTable(opts.QP, params)}
}

func (se *sliceEncoder) bin(f cabac.Family, idx int, b bool) {
	se.t.Helper()
	ctx, err := se.table.At(f, idx)
	if err != nil {
		se.t.Fatalf("encoder context: %v", err)
	}
	se.enc.EncodeDecision(ctx, b)
}

func (se *sliceEncoder) open(opts Options) *Slice {
	se.t.Helper()
	s, err := NewSlice(se.enc.Payload(), 0, opts)
	if err != nil {
		se.t.Fatalf("NewSlice returned error: %v", err)
	}
	return s
}

// intraType writes the I mb_type tree. In I slices first is the chosen bin 0
// context and the rest sit at 3..7; as a P or B suffix everything follows
// base.
func (se *sliceEncoder) intraType(f cabac.Family, first int, suffix bool, v int) {
	luma, chroma, chroma2, predHi, predLo := 3, 4, 5, 6, 7
	if suffix {
		luma, chroma, chroma2, predHi, predLo = first+1, first+2, first+2, first+3, first+3
	}
	if v == MbTypeINxN {
		se.bin(f, first, false)
		return
	}
	se.bin(f, first, true)
	if v == MbTypeIPCM {
		se.enc.EncodeTerminate(true)
		return
	}
	se.enc.EncodeTerminate(false)
	v--
	se.bin(f, luma, v/12 == 1)
	c := (v % 12) / 4
	se.bin(f, chroma, c != 0)
	if c != 0 {
		se.bin(f, chroma2, c == 2)
	}
	se.bin(f, predHi, v&2 != 0)
	se.bin(f, predLo, v&1 != 0)
}

func (se *sliceEncoder) pType(v int) {
	const f = cabac.FamilyMbTypeP
	if v >= IntraOffsetP {
		se.bin(f, 0, true)
		se.intraType(f, 3, true, v-IntraOffsetP)
		return
	}
	se.bin(f, 0, false)
	switch v {
	case 0, 3:
		se.bin(f, 1, false)
		se.bin(f, 2, v == 3)
	case 1, 2:
		se.bin(f, 1, true)
		se.bin(f, 3, v == 1)
	}
}

func (se *sliceEncoder) bBits(bits, n int) {
	for i := n - 1; i >= 0; i-- {
		idx := 5
		if i == n-1 {
			idx = 4
		}
		se.bin(cabac.FamilyMbTypeB, idx, bits>>uint(i)&1 != 0)
	}
}

func (se *sliceEncoder) bType(v, ctxInc int) {
	const f = cabac.FamilyMbTypeB
	if v == BDirect16x16 {
		se.bin(f, ctxInc, false)
		return
	}
	se.bin(f, ctxInc, true)
	if v <= 2 {
		se.bin(f, 3, false)
		se.bin(f, 5, v == 2)
		return
	}
	se.bin(f, 3, true)
	switch {
	case v >= IntraOffsetB:
		se.bBits(13, 4)
		se.intraType(f, 5, true, v-IntraOffsetB)
	case v <= 10:
		se.bBits(v-3, 4)
	case v == 11:
		se.bBits(14, 4)
	case v == B8x8:
		se.bBits(15, 4)
	default:
		se.bBits(v+4, 5)
	}
}

func (se *sliceEncoder) pSubType(v int) {
	const f = cabac.FamilySubMbTypeP
	se.bin(f, 0, v == 0)
	if v == 0 {
		return
	}
	se.bin(f, 1, v != 1)
	if v != 1 {
		se.bin(f, 2, v == 2)
	}
}

func (se *sliceEncoder) bSubType(v int) {
	const f = cabac.FamilySubMbTypeB
	se.bin(f, 0, v != 0)
	switch {
	case v == 0:
	case v <= 2:
		se.bin(f, 1, false)
		se.bin(f, 3, v == 2)
	case v <= 6:
		se.bin(f, 1, true)
		se.bin(f, 2, false)
		se.bin(f, 3, (v-3)&2 != 0)
		se.bin(f, 3, (v-3)&1 != 0)
	case v <= 10:
		se.bin(f, 1, true)
		se.bin(f, 2, true)
		se.bin(f, 3, false)
		se.bin(f, 3, (v-7)&2 != 0)
		se.bin(f, 3, (v-7)&1 != 0)
	default:
		se.bin(f, 1, true)
		se.bin(f, 2, true)
		se.bin(f, 3, true)
		se.bin(f, 3, v == 12)
	}
}

func (se *sliceEncoder) qpDelta(v, ctxInc int) {
	k := uint32(2*v - 1)
	if v <= 0 {
		k = uint32(-2 * v)
	}
	se.enc.EncodeUnary(se.table.Set(cabac.FamilyMbQpDelta), cabac.Ladder{First: ctxInc, Next: 2, Last: 3}, k, false, 0)
}

func (se *sliceEncoder) refIdx(v, ctxInc int) {
	se.enc.EncodeUnary(se.table.Set(cabac.FamilyRefIdx), cabac.Ladder{First: ctxInc, Next: 4, Last: 5}, uint32(v), false, 0)
}

func (se *sliceEncoder) mvd(comp, v, ctxInc int) {
	f := cabac.FamilyMvdX
	if comp == 1 {
		f = cabac.FamilyMvdY
	}
	se.enc.EncodeUEGk(se.table.Set(f), cabac.Mvd(ctxInc), int32(v), true)
}

// residual mirrors the significance map and level coding of Slice.Residual.
func (se *sliceEncoder) residual(cat BlockCat, coeffs []int32, field bool, numC8x8 int) {
	sigFamily, lastFamily := cabac.FamilySignificantFrame, cabac.FamilyLastSignificantFrame
	if field {
		sigFamily, lastFamily = cabac.FamilySignificantField, cabac.FamilyLastSignificantField
	}
	offsets := map[BlockCat][2]int{0: {0, 0}, 1: {15, 10}, 2: {29, 20}, 3: {44, 30}, 4: {47, 39}}[cat]
	lastPos := -1
	for i, c := range coeffs {
		if c != 0 {
			lastPos = i
		}
	}
	var positions []int
	for i := 0; i < len(coeffs)-1; i++ {
		inc := i
		if cat == CatChromaDC {
			inc = i / numC8x8
			if inc > 2 {
				inc = 2
			}
		}
		sig := coeffs[i] != 0
		se.bin(sigFamily, offsets[0]+inc, sig)
		if !sig {
			continue
		}
		positions = append(positions, i)
		se.bin(lastFamily, offsets[0]+inc, i == lastPos)
		if i == lastPos {
			break
		}
	}
	if lastPos == len(coeffs)-1 {
		positions = append(positions, lastPos)
	}
	levelSet := se.table.Set(cabac.FamilyCoeffAbsLevel)[offsets[1]:]
	numGt1, numEq1 := 0, 0
	for j := len(positions) - 1; j >= 0; j-- {
		level := coeffs[positions[j]]
		abs := level
		if abs < 0 {
			abs = -abs
		}
		first := 0
		if numGt1 == 0 {
			first = 1 + numEq1
			if first > 4 {
				first = 4
			}
		}
		rest := numGt1
		maxRest := 4
		if cat == CatChromaDC {
			maxRest = 3
		}
		if rest > maxRest {
			rest = maxRest
		}
		se.enc.EncodeUEGk(levelSet, cabac.CoeffAbsLevel(first, 5+rest), abs-1, false)
		if abs == 1 {
			numEq1++
		} else {
			numGt1++
		}
		se.enc.EncodeBypass(level < 0)
	}
}
