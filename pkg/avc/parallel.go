package avc

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// SliceJob is one independently decodable slice.
type SliceJob struct {
	Data    []byte
	Offset  int
	Options Options
}

// SliceFunc consumes the syntax elements of slice index i.
type SliceFunc func(ctx context.Context, i int, d *SliceDecoder) error

// DecodeSlices runs fn for every job with at most workers slices in flight.
// Each job gets its own decoder and context table. The first error cancels
// ctx for the remaining jobs and is returned.
func DecodeSlices(ctx context.Context, jobs []SliceJob, workers int, fn SliceFunc) error {
	if fn == nil {
		return errors.New("avc: nil slice function")
	}
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range jobs {
		i, job := i, jobs[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			d, err := NewSliceDecoder(job.Data, job.Offset, job.Options)
			if err != nil {
				return errors.Wrapf(err, "avc: slice %d", i)
			}
			if err := fn(ctx, i, d); err != nil {
				return errors.Wrapf(err, "avc: slice %d", i)
			}
			return nil
		})
	}
	return g.Wait()
}
