package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	avc "github.com/jdeng/goavc/pkg/avc"
)

// sliceOptions maps the command line settings to decoder options. A
// ChromaArrayType of 0 selects monochrome decoding.
func sliceOptions(st avc.SliceType, qp, initIDC, chromaArrayType int, field bool) avc.Options {
	return avc.Options{
		SliceType:       st,
		QP:              qp,
		CabacInitIDC:    initIDC,
		ChromaArrayType: chromaArrayType,
		Monochrome:      chromaArrayType == 0,
		Field:           field,
	}
}

func main() {
	var inputFile = flag.String("input", "", "Slice data payload (arithmetic coded bytes plus two bytes of padding)")
	var scriptFile = flag.String("script", "", "Bin script listing the operations to decode")
	var offset = flag.Int("offset", 0, "Byte offset of the first arithmetic coded byte")
	var sliceType = flag.String("slice-type", "P", "Slice type: P, B, I, SP or SI")
	var qp = flag.Int("qp", 26, "Slice QP used for context initialisation")
	var initIDC = flag.Int("init-idc", 0, "cabac_init_idc")
	var initFile = flag.String("init", "", "Optional init table (ctxIdx m n per line) for the slice type")
	var chromaArrayType = flag.Int("chroma", 1, "ChromaArrayType (0 = monochrome, 1 = 4:2:0, 2 = 4:2:2, 3 = 4:4:4)")
	var field = flag.Bool("field", false, "Use field coded significance maps")
	var verbose = flag.Bool("v", false, "Print debug output and the register state after every operation")
	flag.Parse()

	if *inputFile == "" || *scriptFile == "" {
		log.Fatal("Input and script files are required. Use -input and -script flags.")
	}

	data, err := os.ReadFile(*inputFile)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}
	script, err := os.Open(*scriptFile)
	if err != nil {
		log.Fatalf("Failed to open script: %v", err)
	}
	steps, err := parseScript(script)
	script.Close()
	if err != nil {
		log.Fatalf("Failed to parse script: %v", err)
	}

	st, err := avc.ParseSliceType(strings.ToUpper(*sliceType))
	if err != nil {
		log.Fatalf("Invalid slice type: %v", err)
	}
	opts := sliceOptions(st, *qp, *initIDC, *chromaArrayType, *field)
	if *initFile != "" {
		f, err := os.Open(*initFile)
		if err != nil {
			log.Fatalf("Failed to open init table: %v", err)
		}
		table, err := avc.ParseInitTable(f)
		f.Close()
		if err != nil {
			log.Fatalf("Failed to parse init table: %v", err)
		}
		if st == avc.SliceI || st == avc.SliceSI {
			opts.IntraInit = table
		} else if *initIDC >= 0 && *initIDC < 3 {
			opts.InterInit[*initIDC] = table
		}
	}
	if *verbose {
		opts.Logger = log.New(os.Stderr, "", log.Lmicroseconds)
	}

	decoder, err := avc.NewSliceDecoder(data, *offset, opts)
	if err != nil {
		log.Fatalf("Failed to start slice decoding: %v", err)
	}

	fmt.Printf("Decoding %d operations from %d bytes (%s slice, qp %d)\n", len(steps), len(data), st, *qp)
	mismatches := 0
	for i, s := range steps {
		v, err := run(decoder, s)
		if err != nil {
			log.Fatalf("Operation %d (line %d, %s) failed: %v", i, s.line, s.op, err)
		}
		mark := ""
		if s.hasWant && v != s.want {
			mark = fmt.Sprintf("  MISMATCH want %d", s.want)
			mismatches++
		}
		fmt.Printf("%5d  %-12s %6d  bits=%d%s\n", i, s.op, v, decoder.BitsConsumed(), mark)
		if *verbose {
			regs := decoder.Registers()
			fmt.Printf("       range=%d value=0x%06x bitsLeft=%d offset=%d\n", regs.Range, regs.Value, regs.BitsLeft, regs.Offset)
		}
	}

	fmt.Printf("Status %s after %d bits (%d bytes)\n", decoder.Status(), decoder.BitsConsumed(), (decoder.BitsConsumed()+7)/8)
	if mismatches > 0 {
		log.Fatalf("%d of %d operations did not match the script", mismatches, len(steps))
	}
}
