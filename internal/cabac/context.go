package cabac

import "fmt"

// ContextState is the adaptive probability estimate of one context: a 6-bit
// state rank and the most probable symbol.
type ContextState struct {
	State uint8
	MPS   bool
}

// String renders the state the way trace output prints it.
func (c ContextState) String() string {
	mps := 0
	if c.MPS {
		mps = 1
	}
	return fmt.Sprintf("%d/%d", c.State, mps)
}

// InitParam holds the (m, n) calibration pair of one context.
type InitParam struct {
	M int8
	N int8
}

// DefaultInitParam seeds an equiprobable context (state 0, MPS 1) at any QP.
var DefaultInitParam = InitParam{M: 0, N: 64}

const (
	minQP = 0
	maxQP = 51
)

// InitContext derives a context state from the slice QP and the linear model
// preCtxState = clip(1, 126, ((m * clip(0, 51, qp)) >> 4) + n).
func InitContext(qp, m, n int) ContextState {
	pre := clip3(1, 126, ((m*clip3(minQP, maxQP, qp))>>4)+n)
	if pre >= 64 {
		return ContextState{State: uint8(pre - 64), MPS: true}
	}
	return ContextState{State: uint8(63 - pre), MPS: false}
}

func clip3(lo, hi, v int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
