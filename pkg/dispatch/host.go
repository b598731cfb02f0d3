package dispatch

import (
	"context"
	"runtime"
	"time"

	"github.com/willbeason/escape-fractal/pkg/grid"
	"github.com/willbeason/escape-fractal/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// HostName is the name of the host-parallel strategy.
const HostName = "host"

// Host computes frames on a bounded pool of goroutines, one row per task.
type Host struct {
	workers int
}

// NewHost returns a host-parallel dispatcher. If workers is 0 or negative, runtime.NumCPU() is used.
func NewHost(workers int) *Host {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Host{workers: workers}
}

func (h *Host) Name() string { return HostName }

// Workers is the size of the row pool.
func (h *Host) Workers() int { return h.workers }

func (h *Host) Dispatch(ctx context.Context, job Job) (*grid.Grid, error) {
	if err := begin(ctx, job); err != nil {
		return nil, err
	}
	start := time.Now()

	v := job.Viewport
	c := job.Constant()
	b := grid.NewBuilder(v.Width, v.Height, job.MaxIterations)

	// Rows are disjoint slices of the grid; completion order does not matter.
	var g errgroup.Group
	g.SetLimit(h.workers)
	for y := 0; y < v.Height; y++ {
		row := b.Row(y)
		g.Go(func() error {
			for x := range row {
				row[x] = job.Mode.Evaluate(v.Map(x, y), c, job.MaxIterations, job.Metric)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Logger().Debug("frame computed",
		"strategy", HostName,
		"time", job.Time,
		"pixels", v.Pixels(),
		"workers", h.workers,
		"elapsed", time.Since(start))

	return b.Grid(), nil
}

var _ Dispatcher = (*Host)(nil)
