package syntax

import "github.com/pkg/errors"

var (
	// ErrNotApplicable reports a syntax element that the slice type never codes,
	// such as mb_skip_flag in an I slice.
	ErrNotApplicable = errors.New("syntax: element not present in this slice type")
	// ErrUnsupported reports a residual block category without a significance
	// map implementation.
	ErrUnsupported = errors.New("syntax: unsupported block category")
	// ErrSliceEnded is returned once end_of_slice_flag has been decoded as 1.
	ErrSliceEnded = errors.New("syntax: slice already ended")
)
