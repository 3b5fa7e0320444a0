package syntax

import (
	"log"

	"github.com/pkg/errors"

	"github.com/jdeng/goavc/internal/cabac"
)

// InitTables holds the (m, n) context parameters a slice is seeded from.
// Intra serves I and SI slices; Inter is indexed by cabac_init_idc. A nil
// table seeds every context with cabac.DefaultInitParam.
type InitTables struct {
	Intra cabac.InitTable
	Inter [3]cabac.InitTable
}

// For selects the table of a slice type and cabac_init_idc.
func (t InitTables) For(st SliceType, cabacInitIDC int) (cabac.InitTable, error) {
	if st.IsIntra() {
		return t.Intra, nil
	}
	if cabacInitIDC < 0 || cabacInitIDC > 2 {
		return nil, errors.Errorf("syntax: cabac_init_idc %d out of range", cabacInitIDC)
	}
	return t.Inter[cabacInitIDC], nil
}

// Event describes one decoded syntax element.
type Event struct {
	Element string
	Value   int
	// BitsConsumed is the engine position after the element.
	BitsConsumed uint32
	Registers    cabac.Snapshot
}

// Options configures a slice decoding session.
type Options struct {
	SliceType SliceType
	// QP is SliceQPY, used for context initialisation.
	QP           int
	CabacInitIDC int
	InitTables   InitTables
	// Field selects the field scan significance map contexts.
	Field bool
	// ChromaArrayType is 0 for monochrome, 1 for 4:2:0, 2 for 4:2:2 and 3
	// for 4:4:4. Zero value means 4:2:0 unless Monochrome is set.
	ChromaArrayType int
	Monochrome      bool
	BitDepthLuma    int
	BitDepthChroma  int
	// Logger receives debug lines when set.
	Logger *log.Logger
	// Trace is called after every decoded syntax element.
	Trace func(Event)
}

func (o Options) withDefaults() Options {
	if o.ChromaArrayType == 0 && !o.Monochrome {
		o.ChromaArrayType = 1
	}
	if o.Monochrome {
		o.ChromaArrayType = 0
	}
	if o.BitDepthLuma == 0 {
		o.BitDepthLuma = 8
	}
	if o.BitDepthChroma == 0 {
		o.BitDepthChroma = 8
	}
	return o
}

func (o Options) validate() error {
	if o.SliceType > SliceSI {
		return errors.Errorf("syntax: invalid slice type %d", o.SliceType)
	}
	if o.ChromaArrayType < 0 || o.ChromaArrayType > 3 {
		return errors.Errorf("syntax: invalid ChromaArrayType %d", o.ChromaArrayType)
	}
	if o.BitDepthLuma < 8 || o.BitDepthLuma > 14 || o.BitDepthChroma < 8 || o.BitDepthChroma > 14 {
		return errors.Errorf("syntax: bit depth %d/%d out of range", o.BitDepthLuma, o.BitDepthChroma)
	}
	qpBdOffset := 6 * (o.BitDepthLuma - 8)
	if o.QP < -qpBdOffset || o.QP > 51 {
		return errors.Errorf("syntax: slice QP %d out of range", o.QP)
	}
	return nil
}

// qpBdOffsetY is QpBdOffsetY of the luma bit depth.
func (o Options) qpBdOffsetY() int { return 6 * (o.BitDepthLuma - 8) }
