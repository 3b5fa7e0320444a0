// Package cabactest provides a reference arithmetic encoder used to build
// streams with known bins for decoder tests and sample payloads.
package cabactest

import (
	"github.com/jdeng/goavc/internal/cabac"
)

// Encoder is the H.264 binary arithmetic encoder (low/range formulation with
// outstanding-bit carry resolution). It mirrors the decoder's adaptation so a
// context table seeded identically on both sides stays in lock step.
type Encoder struct {
	low         uint32
	rng         uint32
	firstBit    bool
	outstanding int
	bits        []byte
	flushed     bool
}

// NewEncoder returns an encoder ready for the first bin of a slice.
func NewEncoder() *Encoder {
	return &Encoder{rng: 510, firstBit: true}
}

// EncodeDecision codes bin with ctx and adapts ctx.
func (enc *Encoder) EncodeDecision(ctx *cabac.ContextState, bin bool) {
	state := ctx.State
	rLPS := cabac.LPSRange(state, enc.rng>>6)
	enc.rng -= rLPS
	if bin != ctx.MPS {
		enc.low += enc.rng
		enc.rng = rLPS
		if state == 0 {
			ctx.MPS = !ctx.MPS
		}
		ctx.State = cabac.NextStateLPS(state)
	} else {
		ctx.State = cabac.NextStateMPS(state)
	}
	enc.renorm()
}

// EncodeBypass codes an equiprobable bin.
func (enc *Encoder) EncodeBypass(bin bool) {
	enc.low <<= 1
	if bin {
		enc.low += enc.rng
	}
	switch {
	case enc.low >= 1024:
		enc.putBit(1)
		enc.low -= 1024
	case enc.low < 512:
		enc.putBit(0)
	default:
		enc.low -= 512
		enc.outstanding++
	}
}

// EncodeTerminate codes a terminate bin. A bin of true flushes the encoder;
// the last bit written is the stop bit.
func (enc *Encoder) EncodeTerminate(bin bool) {
	enc.rng -= 2
	if !bin {
		enc.renorm()
		return
	}
	enc.low += enc.rng
	enc.rng = 2
	enc.renorm()
	enc.putBit(uint8((enc.low >> 9) & 1))
	v := ((enc.low >> 7) & 3) | 1
	enc.bits = append(enc.bits, uint8(v>>1)&1, uint8(v)&1)
	enc.flushed = true
}

// BitCount returns the number of bits written so far.
func (enc *Encoder) BitCount() int { return len(enc.bits) }

// Bytes returns the written bits packed MSB first, zero padded to a byte
// boundary.
func (enc *Encoder) Bytes() []byte {
	out := make([]byte, (len(enc.bits)+7)/8)
	for i, b := range enc.bits {
		if b != 0 {
			out[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return out
}

// Restart resets the coder state after raw bytes were appended, keeping the
// written bits. The bit count must be byte aligned.
func (enc *Encoder) Restart() {
	enc.low = 0
	enc.rng = 510
	enc.firstBit = true
	enc.outstanding = 0
	enc.flushed = false
}

// AppendAligned pads the written bits with zeros to a byte boundary and then
// appends raw bytes, as PCM samples follow an I_PCM mb_type.
func (enc *Encoder) AppendAligned(raw []byte) {
	for len(enc.bits)%8 != 0 {
		enc.bits = append(enc.bits, 0)
	}
	for _, b := range raw {
		for i := 7; i >= 0; i-- {
			enc.bits = append(enc.bits, (b>>uint(i))&1)
		}
	}
}

func (enc *Encoder) renorm() {
	for enc.rng < 256 {
		switch {
		case enc.low < 256:
			enc.putBit(0)
		case enc.low >= 512:
			enc.low -= 512
			enc.putBit(1)
		default:
			enc.low -= 256
			enc.outstanding++
		}
		enc.rng <<= 1
		enc.low <<= 1
	}
}

func (enc *Encoder) putBit(b uint8) {
	if enc.firstBit {
		enc.firstBit = false
	} else {
		enc.bits = append(enc.bits, b)
	}
	for ; enc.outstanding > 0; enc.outstanding-- {
		enc.bits = append(enc.bits, 1-b)
	}
}
