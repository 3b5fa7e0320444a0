package cabac

import (
	"github.com/pkg/errors"
)

const (
	// DefaultUnaryLimit bounds open-ended unary codes.
	DefaultUnaryLimit uint32 = 1 << 12
	// DefaultEscapeOrder bounds the order an Exp-Golomb suffix may reach.
	DefaultEscapeOrder uint = 28
)

// Ladder assigns contexts to the bins of a unary code: bin 0 uses First,
// bin i >= 1 uses Next+i-1 clamped to Last. All indices are relative to the
// context set handed to the decoder.
type Ladder struct {
	First int
	Next  int
	Last  int
}

// Incrementing returns the ladder base, base+1, ... clamped at base+maxOffset.
func Incrementing(base, maxOffset int) Ladder {
	return Ladder{First: base, Next: base + 1, Last: base + maxOffset}
}

func (l Ladder) index(binIdx uint32) int {
	if binIdx == 0 {
		return l.First
	}
	idx := l.Next + int(binIdx) - 1
	if idx > l.Last || idx < l.Next {
		return l.Last
	}
	return idx
}

func contextAt(ctxs []ContextState, idx int) (*ContextState, error) {
	if idx < 0 || idx >= len(ctxs) {
		return nil, errors.Wrapf(ErrContextIndexOutOfRange, "index %d in set of %d", idx, len(ctxs))
	}
	return &ctxs[idx], nil
}

// Decision decodes one context-coded bin of ctxs[idx].
func Decision(e *Engine, ctxs []ContextState, idx int) (bool, error) {
	ctx, err := contextAt(ctxs, idx)
	if err != nil {
		return false, err
	}
	return e.DecodeDecision(ctx)
}

// Unary describes a unary or truncated unary binarization.
type Unary struct {
	Ctx Ladder
	// CMax is the truncation point when Truncated is set.
	CMax      uint32
	Truncated bool
	// Limit bounds open-ended codes; zero selects DefaultUnaryLimit.
	Limit uint32
}

// Decode counts 1 bins until a 0 bin, or until CMax bins for truncated codes.
func (u Unary) Decode(e *Engine, ctxs []ContextState) (uint32, error) {
	limit := u.Limit
	if limit == 0 {
		limit = DefaultUnaryLimit
	}
	var n uint32
	for {
		if u.Truncated && n >= u.CMax {
			return n, nil
		}
		if !u.Truncated && n >= limit {
			return 0, errors.Wrapf(ErrStreamCorrupt, "unary code longer than %d bins", limit)
		}
		bit, err := Decision(e, ctxs, u.Ctx.index(n))
		if err != nil {
			return 0, err
		}
		if !bit {
			return n, nil
		}
		n++
	}
}

// DecodeUnary decodes a unary code whose bin i uses context
// base+min(i, maxCtxOffset).
func DecodeUnary(e *Engine, ctxs []ContextState, base, maxCtxOffset int) (uint32, error) {
	return Unary{Ctx: Incrementing(base, maxCtxOffset)}.Decode(e, ctxs)
}

// DecodeUnaryTruncated is DecodeUnary with a hard ceiling of maxSymbol bins.
// A ceiling of zero decodes nothing.
func DecodeUnaryTruncated(e *Engine, ctxs []ContextState, base, maxCtxOffset int, maxSymbol uint32) (uint32, error) {
	return Unary{Ctx: Incrementing(base, maxCtxOffset), CMax: maxSymbol, Truncated: true}.Decode(e, ctxs)
}

// UEGk describes the concatenated truncated-unary / k-th order Exp-Golomb
// binarization used for mvd and coefficient levels.
type UEGk struct {
	Ctx   Ladder
	UCoff uint32
	K     uint
	// MaxOrder bounds the suffix order; zero selects DefaultEscapeOrder.
	MaxOrder uint
}

// Mvd is the UEG3 binarization of mvd_lX with its prefix contexts.
func Mvd(firstInc int) UEGk {
	return UEGk{Ctx: Ladder{First: firstInc, Next: 3, Last: 6}, UCoff: 9, K: 3, MaxOrder: 24}
}

// CoeffAbsLevel is the UEG0 binarization of coeff_abs_level_minus1.
func CoeffAbsLevel(firstInc, restInc int) UEGk {
	return UEGk{Ctx: Ladder{First: firstInc, Next: restInc, Last: restInc}, UCoff: 14, K: 0}
}

// DecodeExpGolombEscape decodes the magnitude of a UEGk code word: a context
// coded truncated unary prefix of at most UCoff bins, followed by a bypass
// coded Exp-Golomb suffix when the prefix saturates.
func DecodeExpGolombEscape(e *Engine, ctxs []ContextState, u UEGk) (uint32, error) {
	prefix, err := Unary{Ctx: u.Ctx, CMax: u.UCoff, Truncated: true}.Decode(e, ctxs)
	if err != nil {
		return 0, err
	}
	if prefix < u.UCoff {
		return prefix, nil
	}
	suffix, err := DecodeExpGolombBypass(e, u.K, u.MaxOrder)
	if err != nil {
		return 0, err
	}
	return prefix + suffix, nil
}

// DecodeSignedExpGolombEscape decodes a UEGk magnitude followed by a bypass
// sign bin when the magnitude is non-zero.
func DecodeSignedExpGolombEscape(e *Engine, ctxs []ContextState, u UEGk) (int32, error) {
	mag, err := DecodeExpGolombEscape(e, ctxs, u)
	if err != nil || mag == 0 {
		return 0, err
	}
	neg, err := e.DecodeBypass()
	if err != nil {
		return 0, err
	}
	if neg {
		return -int32(mag), nil
	}
	return int32(mag), nil
}

// DecodeExpGolombBypass decodes a k-th order Exp-Golomb value from bypass
// bins. maxOrder bounds the order the unary part may raise k to; zero selects
// DefaultEscapeOrder.
func DecodeExpGolombBypass(e *Engine, k uint, maxOrder uint) (uint32, error) {
	if maxOrder == 0 || maxOrder > 31 {
		maxOrder = DefaultEscapeOrder
	}
	if k > maxOrder {
		return 0, errors.Wrapf(ErrStreamCorrupt, "exp-golomb order %d exceeds %d", k, maxOrder)
	}
	var v uint32
	for {
		bit, err := e.DecodeBypass()
		if err != nil {
			return 0, err
		}
		if !bit {
			break
		}
		v += 1 << k
		k++
		if k > maxOrder {
			return 0, errors.Wrapf(ErrStreamCorrupt, "exp-golomb suffix order exceeds %d", maxOrder)
		}
	}
	for k > 0 {
		k--
		bit, err := e.DecodeBypass()
		if err != nil {
			return 0, err
		}
		if bit {
			v += 1 << k
		}
	}
	return v, nil
}

// DecodeFixedLength decodes n context-coded bins of ctxs[idx], least
// significant bit first.
func DecodeFixedLength(e *Engine, ctxs []ContextState, idx int, n uint) (uint32, error) {
	var v uint32
	for i := uint(0); i < n; i++ {
		bit, err := Decision(e, ctxs, idx)
		if err != nil {
			return 0, err
		}
		if bit {
			v |= 1 << i
		}
	}
	return v, nil
}

// DecodeBypassBits decodes n bypass bins, most significant bit first.
func DecodeBypassBits(e *Engine, n uint) (uint32, error) {
	if n > 32 {
		return 0, errors.Errorf("cabac: cannot decode %d bypass bins into uint32", n)
	}
	var v uint32
	for i := uint(0); i < n; i++ {
		bit, err := e.DecodeBypass()
		if err != nil {
			return 0, err
		}
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v, nil
}
