// Package animation sweeps the animation parameter across frames and delivers
// the computed grids, in order, to a sequential output stream.
package animation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/willbeason/escape-fractal/pkg/dispatch"
	"github.com/willbeason/escape-fractal/pkg/grid"
	"github.com/willbeason/escape-fractal/pkg/logging"
)

var (
	// ErrFrames is returned when a driver is asked for fewer than one frame.
	ErrFrames = errors.New("animation: frame count must be at least 1")

	// ErrDomain is returned for a time domain whose End is not after its Start.
	ErrDomain = errors.New("animation: time domain must have End after Start")
)

// A Domain is the half-open interval [Start, End) the animation parameter is drawn from.
type Domain struct {
	Start, End float64
}

// DefaultDomain is one full turn, [0, 2π).
var DefaultDomain = Domain{Start: 0, End: 2 * math.Pi}

// Samples returns n evenly spaced values of d, starting at d.Start and excluding d.End.
func Samples(n int, d Domain) []float64 {
	if n <= 0 {
		return nil
	}

	step := (d.End - d.Start) / float64(n)
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = d.Start + float64(i)*step
	}
	return ts
}

// A Frame is one completed grid of the sequence.
type Frame struct {
	Index int
	Time  float64
	Grid  *grid.Grid
}

// A Sink receives frames strictly in order. It owns anything it persists.
type Sink interface {
	WriteFrame(ctx context.Context, f Frame) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, f Frame) error

func (fn SinkFunc) WriteFrame(ctx context.Context, f Frame) error {
	return fn(ctx, f)
}

// An AbortError reports the frame at which a sequence stopped and how many frames
// had already been delivered. Delivered frames are not retracted.
type AbortError struct {
	Index     int
	Delivered int

	Err error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("animation: aborted at frame %d after %d delivered: %v", e.Index, e.Delivered, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// A Driver renders Frames samples of Domain with Dispatcher and delivers them to a Sink.
type Driver struct {
	Dispatcher dispatch.Dispatcher

	// Job is the frame configuration. Its Time is replaced by each sample.
	Job dispatch.Job

	Frames int
	Domain Domain

	// Progress, if set, is called after each frame is delivered.
	Progress func(Frame)

	// Pipelined computes frame i+1 while frame i is being delivered.
	// Frames are still computed one at a time and delivered in order.
	Pipelined bool
}

// Run delivers every frame in increasing time order and returns the number delivered.
//
// ctx is checked before each frame is computed and again before it is delivered;
// a dispatch that has started always completes.
// Any failure stops the sequence and is returned as *AbortError.
func (d *Driver) Run(ctx context.Context, sink Sink) (int, error) {
	if d.Frames < 1 {
		return 0, ErrFrames
	}
	if !(d.Domain.End > d.Domain.Start) {
		return 0, fmt.Errorf("%w: [%g, %g)", ErrDomain, d.Domain.Start, d.Domain.End)
	}

	times := Samples(d.Frames, d.Domain)

	var delivered int
	var err error
	if d.Pipelined {
		delivered, err = d.runPipelined(ctx, times, sink)
	} else {
		delivered, err = d.runSequential(ctx, times, sink)
	}

	if err != nil {
		logging.Logger().Warn("animation aborted", "delivered", delivered, "frames", d.Frames, "err", err)
	}
	return delivered, err
}

func (d *Driver) compute(ctx context.Context, i int, t float64) (Frame, error) {
	start := time.Now()

	g, err := d.Dispatcher.Dispatch(ctx, d.Job.At(t))
	if err != nil {
		return Frame{}, err
	}

	logging.Logger().Debug("frame ready",
		"index", i,
		"time", t,
		"dispatcher", d.Dispatcher.Name(),
		"elapsed", time.Since(start))

	return Frame{Index: i, Time: t, Grid: g}, nil
}

func (d *Driver) deliver(ctx context.Context, sink Sink, f Frame) error {
	if err := sink.WriteFrame(ctx, f); err != nil {
		return err
	}
	if d.Progress != nil {
		d.Progress(f)
	}
	return nil
}

func (d *Driver) runSequential(ctx context.Context, times []float64, sink Sink) (int, error) {
	for i, t := range times {
		if err := ctx.Err(); err != nil {
			return i, &AbortError{Index: i, Delivered: i, Err: err}
		}

		f, err := d.compute(ctx, i, t)
		if err != nil {
			return i, &AbortError{Index: i, Delivered: i, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return i, &AbortError{Index: i, Delivered: i, Err: err}
		}

		if err := d.deliver(ctx, sink, f); err != nil {
			return i, &AbortError{Index: i, Delivered: i, Err: err}
		}
	}
	return len(times), nil
}

type computed struct {
	frame Frame
	err   error
}

// runPipelined overlaps computation with delivery through a one-slot channel.
// The producer stops at its first failure. The consumer stops on a failed delivery
// or cancellation and signals the producer through stop.
func (d *Driver) runPipelined(ctx context.Context, times []float64, sink Sink) (int, error) {
	frames := make(chan computed, 1)
	stop := make(chan struct{})

	go func() {
		defer close(frames)
		for i, t := range times {
			select {
			case <-stop:
				return
			default:
			}

			if err := ctx.Err(); err != nil {
				frames <- computed{frame: Frame{Index: i}, err: err}
				return
			}

			f, err := d.compute(ctx, i, t)
			if err != nil {
				f.Index = i
			}

			select {
			case frames <- computed{frame: f, err: err}:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	halt := func() {
		close(stop)
		// Wait for the producer so no dispatch outlives Run.
		for range frames {
		}
	}

	delivered := 0
	for c := range frames {
		if c.err != nil {
			return delivered, &AbortError{Index: c.frame.Index, Delivered: delivered, Err: c.err}
		}
		if err := ctx.Err(); err != nil {
			halt()
			return delivered, &AbortError{Index: c.frame.Index, Delivered: delivered, Err: err}
		}

		if err := d.deliver(ctx, sink, c.frame); err != nil {
			halt()
			return delivered, &AbortError{Index: c.frame.Index, Delivered: delivered, Err: err}
		}
		delivered++
	}
	return delivered, nil
}
