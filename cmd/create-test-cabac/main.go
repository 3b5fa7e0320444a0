package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/jdeng/goavc/internal/cabac"
	"github.com/jdeng/goavc/internal/cabactest"
)

// writer accumulates the encoded bins and the matching script lines.
type writer struct {
	enc   *cabactest.Encoder
	table *cabac.ContextTable
	lines []string
}

func (w *writer) add(expect int, format string, args ...interface{}) {
	w.lines = append(w.lines, fmt.Sprintf(format, args...)+fmt.Sprintf(" # want %d", expect))
}

func (w *writer) contexts(ctxIdx, n int) []cabac.ContextState {
	set, err := w.table.Range(ctxIdx, n)
	if err != nil {
		log.Fatalf("Invalid context range: %v", err)
	}
	return set
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// createSample encodes n random operations over a table initialised at qp
// with the default parameters.
func createSample(rng *rand.Rand, n, qp int) *writer {
	w := &writer{enc: cabactest.NewEncoder(), table: cabac.NewContextTable(qp, nil)}
	for i := 0; i < n; i++ {
		switch op := rng.Intn(18); {
		case op < 7:
			ctxIdx := rng.Intn(cabac.NumContexts)
			ctx := &w.contexts(ctxIdx, 1)[0]
			bin := ctx.MPS
			if rng.Intn(4) == 0 {
				bin = !bin
			}
			w.enc.EncodeDecision(ctx, bin)
			w.add(b2i(bin), "d %d", ctxIdx)
		case op < 10:
			bin := rng.Intn(2) == 1
			w.enc.EncodeBypass(bin)
			w.add(b2i(bin), "b")
		case op < 12:
			ctxIdx, maxOff := rng.Intn(cabac.NumContexts-8), rng.Intn(6)
			v := uint32(rng.Intn(12))
			w.enc.EncodeUnary(w.contexts(ctxIdx, maxOff+1), cabac.Incrementing(0, maxOff), v, false, 0)
			w.add(int(v), "u %d %d", ctxIdx, maxOff)
		case op < 14:
			ctxIdx, maxOff, cMax := rng.Intn(cabac.NumContexts-8), rng.Intn(4), uint32(rng.Intn(8))
			v := uint32(rng.Intn(int(cMax) + 1))
			w.enc.EncodeUnary(w.contexts(ctxIdx, maxOff+1), cabac.Incrementing(0, maxOff), v, true, cMax)
			w.add(int(v), "tu %d %d %d", ctxIdx, maxOff, cMax)
		case op < 15:
			ctxIdx, firstInc := rng.Intn(cabac.NumContexts-7), rng.Intn(3)
			v := int32(rng.Intn(600) - 300)
			w.enc.EncodeUEGk(w.contexts(ctxIdx, 7), cabac.Mvd(firstInc), v, true)
			w.add(int(v), "eg %d %d", ctxIdx, firstInc)
		case op < 16:
			n := uint(1 + rng.Intn(16))
			v := uint32(rng.Intn(1 << n))
			w.enc.EncodeBypassBits(v, n)
			w.add(int(v), "bb %d", n)
		case op < 17:
			k := uint(rng.Intn(4))
			v := uint32(rng.Intn(5000))
			w.enc.EncodeExpGolombBypass(v, k)
			w.add(int(v), "egb %d", k)
		default:
			w.enc.EncodeTerminate(false)
			w.add(0, "t")
		}
	}
	return w
}

func main() {
	var outPrefix = flag.String("output", "sample", "Output prefix; writes <prefix>.bin and <prefix>.script")
	var numOps = flag.Int("n", 200, "Number of operations to encode")
	var seed = flag.Int64("seed", 1, "Random seed")
	var qp = flag.Int("qp", 26, "Slice QP the contexts are initialised with")
	flag.Parse()

	w := createSample(rand.New(rand.NewSource(*seed)), *numOps, *qp)
	payload := w.enc.Payload()
	w.add(1, "t")

	if err := os.WriteFile(*outPrefix+".bin", payload, 0o644); err != nil {
		log.Fatalf("Failed to write payload: %v", err)
	}
	f, err := os.Create(*outPrefix + ".script")
	if err != nil {
		log.Fatalf("Failed to create script: %v", err)
	}
	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "# %d operations, qp %d, seed %d\n", *numOps, *qp, *seed)
	for _, line := range w.lines {
		fmt.Fprintln(bw, line)
	}
	if err := bw.Flush(); err != nil {
		log.Fatalf("Failed to write script: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close script: %v", err)
	}

	fmt.Printf("Created %s.bin (%d bytes, %d bits) and %s.script\n", *outPrefix, len(payload), w.enc.BitCount(), *outPrefix)
	fmt.Printf("Decode with: cabactrace -input %s.bin -script %s.script -qp %d\n", *outPrefix, *outPrefix, *qp)
}
