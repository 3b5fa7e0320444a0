package main

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	avc "github.com/jdeng/goavc/pkg/avc"
)

// step is one line of a bin script: an operation, its integer arguments and
// an optional expected result given as "# want N".
type step struct {
	line    int
	op      string
	args    []int
	want    int
	hasWant bool
}

// opArity lists the accepted operations with their minimum and maximum
// argument counts.
var opArity = map[string][2]int{
	"d":            {1, 1},
	"b":            {0, 0},
	"t":            {0, 0},
	"u":            {2, 2},
	"tu":           {3, 3},
	"eg":           {2, 2},
	"bb":           {1, 1},
	"egb":          {1, 1},
	"mb_skip":      {1, 1},
	"mb_type":      {1, 2},
	"sub_mb_type":  {0, 0},
	"mb_field":     {1, 1},
	"end_of_slice": {0, 0},
	"t8x8":         {1, 1},
	"prev_intra":   {0, 0},
	"rem_intra":    {0, 0},
	"chroma_pred":  {1, 1},
	"qp_delta":     {1, 1},
	"ref_idx":      {1, 1},
	"mvd":          {2, 2},
	"cbp":          {0, 0},
	"cbf":          {2, 2},
	"residual":     {1, 2},
	"pcm":          {0, 0},
}

func parseScript(r io.Reader) ([]step, error) {
	var steps []step
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		var comment string
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text, comment = text[:i], strings.TrimSpace(text[i+1:])
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		st := step{line: line, op: fields[0]}
		arity, ok := opArity[st.op]
		if !ok {
			return nil, errors.Errorf("line %d: unknown operation %q", line, st.op)
		}
		if n := len(fields) - 1; n < arity[0] || n > arity[1] {
			return nil, errors.Errorf("line %d: %s takes %d to %d arguments, got %d", line, st.op, arity[0], arity[1], n)
		}
		for _, f := range fields[1:] {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
			st.args = append(st.args, v)
		}
		if strings.HasPrefix(comment, "want ") {
			v, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(comment, "want ")))
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: bad expectation", line)
			}
			st.want, st.hasWant = v, true
		}
		steps = append(steps, st)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "reading script")
	}
	return steps, nil
}

func boolInt(b bool, err error) (int, error) {
	if b {
		return 1, err
	}
	return 0, err
}

// run executes one step and returns its integer result. Residual blocks
// report the number of non-zero coefficients and pcm the sample byte count.
// A second residual argument of 1 selects field significance contexts.
func run(d *avc.SliceDecoder, st step) (int, error) {
	a := st.args
	switch st.op {
	case "d":
		return boolInt(d.Decision(a[0]))
	case "b":
		return boolInt(d.Bypass())
	case "t":
		return boolInt(d.Terminate())
	case "u":
		v, err := d.Unary(a[0], a[1])
		return int(v), err
	case "tu":
		v, err := d.UnaryTruncated(a[0], a[1], uint32(a[2]))
		return int(v), err
	case "eg":
		v, err := d.ExpGolombEscape(a[0], a[1])
		return int(v), err
	case "bb":
		if a[0] < 0 {
			return 0, errors.Errorf("negative bin count %d", a[0])
		}
		v, err := d.BypassBits(uint(a[0]))
		return int(v), err
	case "egb":
		if a[0] < 0 {
			return 0, errors.Errorf("negative order %d", a[0])
		}
		v, err := d.ExpGolombBypass(uint(a[0]))
		return int(v), err
	case "mb_skip":
		return boolInt(d.MbSkipFlag(a[0]))
	case "mb_type":
		intraInc := 0
		if len(a) > 1 {
			intraInc = a[1]
		}
		return d.MbType(a[0], intraInc)
	case "sub_mb_type":
		return d.SubMbType()
	case "mb_field":
		return boolInt(d.MbFieldDecodingFlag(a[0]))
	case "end_of_slice":
		return boolInt(d.EndOfSlice())
	case "t8x8":
		return boolInt(d.TransformSize8x8Flag(a[0]))
	case "prev_intra":
		return boolInt(d.PrevIntraPredModeFlag())
	case "rem_intra":
		return d.RemIntraPredMode()
	case "chroma_pred":
		return d.IntraChromaPredMode(a[0])
	case "qp_delta":
		return d.MbQpDelta(a[0])
	case "ref_idx":
		return d.RefIdx(a[0])
	case "mvd":
		return d.Mvd(a[0], a[1])
	case "cbp":
		return d.CodedBlockPattern(nil, nil)
	case "cbf":
		return boolInt(d.CodedBlockFlag(avc.BlockCat(a[0]), a[1]))
	case "residual":
		n, err := d.MaxNumCoeff(avc.BlockCat(a[0]))
		if err != nil {
			return 0, err
		}
		if len(a) > 1 {
			return d.ResidualField(avc.BlockCat(a[0]), a[1] != 0, make([]int32, n))
		}
		return d.Residual(avc.BlockCat(a[0]), make([]int32, n))
	case "pcm":
		samples, err := d.PCMSamples()
		return len(samples), err
	}
	return 0, errors.Errorf("unknown operation %q", st.op)
}
