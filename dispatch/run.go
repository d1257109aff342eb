package dispatch

import (
	"context"

	"github.com/cpmech/gosl/chk"
	"github.com/gocal/gocal/gain"
	"github.com/gocal/gocal/tensor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Task identifies one (row-chunk, chan-chunk) unit of work.
type Task struct {
	RowRange, ChanRange Range
}

// Process solves and/or outputs one chunk. Dispatcher.Run calls it once
// per Task, concurrently, each with its own freshly allocated chain built
// by chainFactory — no solver state is shared across chunks (§3).
type Process func(ctx context.Context, chunk *tensor.Chunk, chain *gain.Chain) error

// Dispatcher runs Process over every (row, chan) chunk of a dataset with
// bounded worker concurrency (§5), generalizing the teacher's MPI rank
// distribution down to a single-process worker pool, grounded on
// golang.org/x/sync/errgroup.
type Dispatcher struct {
	Workers int
	Logger  zerolog.Logger
}

// Run builds the cross product of rowRanges and chanRanges into Tasks and
// runs them through an errgroup.Group capped at d.Workers concurrent
// chunks. The first Process error cancels every task still running and is
// returned; callers that need partial results should have Process itself
// route them out via a side channel before returning an error.
func (d *Dispatcher) Run(ctx context.Context, dataset *tensor.Dataset, rowRanges, chanRanges []Range, chainFactory func() *gain.Chain, process Process) error {
	if chainFactory == nil || process == nil {
		return chk.Err("dispatch: chainFactory and process must both be non-nil")
	}

	g, gctx := errgroup.WithContext(ctx)
	if d.Workers > 0 {
		g.SetLimit(d.Workers)
	}

	for _, rr := range rowRanges {
		for _, cr := range chanRanges {
			rr, cr := rr, cr
			g.Go(func() error {
				taskID := uuid.New().String()
				logger := d.Logger.With().
					Str("task_id", taskID).
					Int("row_start", rr.Start).Int("row_end", rr.End).
					Int("chan_start", cr.Start).Int("chan_end", cr.End).
					Logger()
				taskCtx := logger.WithContext(gctx)

				chunk, err := dataset.Slice(rr.Start, rr.End, cr.Start, cr.End)
				if err != nil {
					return chk.Err("dispatch: slicing rows [%d,%d) chans [%d,%d): %v", rr.Start, rr.End, cr.Start, cr.End, err)
				}

				chain := chainFactory()
				if err := chain.BuildTables(chunk.Time, chunk.ChanFreq, chunk.ChanWidth); err != nil {
					return chk.Err("dispatch: building interval tables: %v", err)
				}
				chain.Allocate(chunk.NAnt)

				logger.Info().Int("rows", chunk.NRow()).Int("chans", chunk.NChan()).Msg("chunk dispatched")
				if err := process(taskCtx, chunk, chain); err != nil {
					logger.Error().Err(err).Msg("chunk failed")
					return err
				}
				logger.Info().Msg("chunk complete")
				return nil
			})
		}
	}

	return g.Wait()
}
