// Package dispatch evaluates the escape-time field of one frame across a whole pixel grid.
//
// Pixels are independent, so every strategy computes each cell exactly once,
// writes it to its own slot, and needs no coordination beyond waiting for completion.
// Host and Device produce identical grids for identical jobs.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/willbeason/escape-fractal/pkg/grid"
	"github.com/willbeason/escape-fractal/pkg/transforms"
	"github.com/willbeason/escape-fractal/pkg/viewport"
)

// ErrJob is returned for a job that cannot be dispatched.
var ErrJob = errors.New("dispatch: invalid job")

// A Job is everything one frame depends on.
type Job struct {
	Viewport      viewport.Viewport
	Mode          transforms.Mode
	Metric        transforms.Metric
	MaxIterations int

	// Time is the animation parameter. Julia mode derives its constant from it.
	Time        float64
	JuliaRadius float64
}

// Constant is the Julia constant of the frame.
func (j Job) Constant() complex128 {
	return transforms.JuliaConstant(j.Time, j.JuliaRadius)
}

// At returns the job for the same frame configuration at animation time t.
func (j Job) At(t float64) Job {
	j.Time = t
	return j
}

// Validate reports whether j can be dispatched.
func (j Job) Validate() error {
	if err := j.Viewport.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrJob, err)
	}
	if j.MaxIterations < 0 {
		return fmt.Errorf("%w: max iterations must be non-negative, got %d", ErrJob, j.MaxIterations)
	}
	return nil
}

// A Dispatcher computes the Grid of a Job.
//
// Dispatch is not interrupted once a frame starts; ctx is only checked before it begins.
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, job Job) (*grid.Grid, error)
}

func begin(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	return ctx.Err()
}
