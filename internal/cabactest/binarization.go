package cabactest

import (
	"github.com/jdeng/goavc/internal/cabac"
)

// ladderIndex mirrors the decoder's context schedule.
func ladderIndex(l cabac.Ladder, binIdx uint32) int {
	if binIdx == 0 {
		return l.First
	}
	idx := l.Next + int(binIdx) - 1
	if idx > l.Last || idx < l.Next {
		return l.Last
	}
	return idx
}

// EncodeUnary codes v as v one-bins and a terminating zero-bin, or without
// the zero when truncated at cMax.
func (enc *Encoder) EncodeUnary(ctxs []cabac.ContextState, l cabac.Ladder, v uint32, truncated bool, cMax uint32) {
	var i uint32
	for ; i < v; i++ {
		enc.EncodeDecision(&ctxs[ladderIndex(l, i)], true)
	}
	if !truncated || v < cMax {
		enc.EncodeDecision(&ctxs[ladderIndex(l, v)], false)
	}
}

// EncodeUEGk codes a UEGk magnitude, followed by a sign bypass bin when
// signed and v is non-zero.
func (enc *Encoder) EncodeUEGk(ctxs []cabac.ContextState, u cabac.UEGk, v int32, signed bool) {
	mag := uint32(v)
	if v < 0 {
		mag = uint32(-v)
	}
	prefix := mag
	if prefix > u.UCoff {
		prefix = u.UCoff
	}
	enc.EncodeUnary(ctxs, u.Ctx, prefix, true, u.UCoff)
	if mag >= u.UCoff {
		enc.EncodeExpGolombBypass(mag-u.UCoff, u.K)
	}
	if signed && mag != 0 {
		enc.EncodeBypass(v < 0)
	}
}

// EncodeExpGolombBypass codes v as a k-th order Exp-Golomb code in bypass bins.
func (enc *Encoder) EncodeExpGolombBypass(v uint32, k uint) {
	for v >= 1<<k {
		enc.EncodeBypass(true)
		v -= 1 << k
		k++
	}
	enc.EncodeBypass(false)
	for k > 0 {
		k--
		enc.EncodeBypass((v>>k)&1 != 0)
	}
}

// EncodeFixedLength codes the low n bits of v, LSB first, all with ctx.
func (enc *Encoder) EncodeFixedLength(ctx *cabac.ContextState, v uint32, n uint) {
	for i := uint(0); i < n; i++ {
		enc.EncodeDecision(ctx, (v>>i)&1 != 0)
	}
}

// EncodeBypassBits codes the low n bits of v, MSB first.
func (enc *Encoder) EncodeBypassBits(v uint32, n uint) {
	for i := n; i > 0; i-- {
		enc.EncodeBypass((v>>(i-1))&1 != 0)
	}
}

// Payload flushes the slice with a terminate bin of true if needed and
// returns the bytes plus the two bytes of lookahead padding the decoder
// requires.
func (enc *Encoder) Payload() []byte {
	if !enc.flushed {
		enc.EncodeTerminate(true)
	}
	return append(enc.Bytes(), 0, 0)
}
