package syntax

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// SliceType follows the slice_type values of the slice header modulo 5.
type SliceType uint8

const (
	SliceP SliceType = iota
	SliceB
	SliceI
	SliceSP
	SliceSI
)

// SliceTypeFromHeader maps a slice_type header value (0..9) to a SliceType.
func SliceTypeFromHeader(v int) (SliceType, error) {
	if v < 0 || v > 9 {
		return 0, errors.Errorf("syntax: invalid slice_type %d", v)
	}
	return SliceType(v % 5), nil
}

// ParseSliceType accepts the letter names used by the command line tools or a
// numeric slice_type header value.
func ParseSliceType(name string) (SliceType, error) {
	if v, err := strconv.Atoi(name); err == nil {
		return SliceTypeFromHeader(v)
	}
	switch name {
	case "P", "p":
		return SliceP, nil
	case "B", "b":
		return SliceB, nil
	case "I", "i":
		return SliceI, nil
	case "SP", "sp":
		return SliceSP, nil
	case "SI", "si":
		return SliceSI, nil
	}
	return 0, errors.Errorf("syntax: unknown slice type %q", name)
}

// IsIntra reports whether every macroblock of the slice is intra coded.
func (t SliceType) IsIntra() bool { return t == SliceI || t == SliceSI }

func (t SliceType) String() string {
	switch t {
	case SliceP:
		return "P"
	case SliceB:
		return "B"
	case SliceI:
		return "I"
	case SliceSP:
		return "SP"
	case SliceSI:
		return "SI"
	default:
		return fmt.Sprintf("SliceType(%d)", int(t))
	}
}
