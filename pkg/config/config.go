// Package config holds the render and animation settings shared by every escape command.
package config

import (
	"errors"
	"fmt"
	"math/cmplx"
	"strconv"

	"github.com/spf13/pflag"
	"github.com/willbeason/escape-fractal/pkg/animation"
	"github.com/willbeason/escape-fractal/pkg/device"
	"github.com/willbeason/escape-fractal/pkg/dispatch"
	"github.com/willbeason/escape-fractal/pkg/kernels"
	"github.com/willbeason/escape-fractal/pkg/transforms"
	"github.com/willbeason/escape-fractal/pkg/viewport"
)

// ErrConfiguration is returned for settings that cannot produce a render.
var ErrConfiguration = errors.New("config: invalid configuration")

// Strategies a Config can dispatch with.
const (
	StrategyHost   = "host"
	StrategyDevice = "device"
)

type Config struct {
	Width, Height int
	MaxIterations int

	LowerLeft, UpperRight complex128

	Mode   string
	Metric string

	JuliaRadius float64

	Frames             int
	TimeStart, TimeEnd float64
	FPS                float64

	Strategy string
	Backend  string

	// Workers bounds host parallelism. Zero uses every CPU.
	Workers int

	Pipelined bool
}

// Default is the Julia animation sweeping one full turn of the constant.
func Default() Config {
	return Config{
		Width:         640,
		Height:        426,
		MaxIterations: 100,
		LowerLeft:     -1.5 - 1i,
		UpperRight:    1.5 + 1i,
		Mode:          transforms.Julia.String(),
		Metric:        transforms.Componentwise.String(),
		JuliaRadius:   transforms.DefaultJuliaRadius,
		Frames:        500,
		TimeStart:     animation.DefaultDomain.Start,
		TimeEnd:       animation.DefaultDomain.End,
		FPS:           60,
		Strategy:      StrategyHost,
		Backend:       device.SoftwareName,
	}
}

// Mandelbrot is a single tall still of the bulb left of the origin.
func Mandelbrot() Config {
	c := Default()
	c.Width = 250
	c.Height = 500
	c.MaxIterations = 500
	c.LowerLeft = -1 - 1i
	c.UpperRight = 0 + 1i
	c.Mode = transforms.Mandelbrot.String()
	c.Frames = 1
	return c
}

// Bind registers a flag for every field on flags, defaulting to the current values.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.IntVar(&c.Width, "width", c.Width, "grid width in pixels")
	flags.IntVar(&c.Height, "height", c.Height, "grid height in pixels")
	flags.IntVar(&c.MaxIterations, "max-iterations", c.MaxIterations, "iteration limit per pixel")
	flags.Var((*complexValue)(&c.LowerLeft), "lower-left", "lower-left corner of the viewport")
	flags.Var((*complexValue)(&c.UpperRight), "upper-right", "upper-right corner of the viewport")
	flags.StringVar(&c.Mode, "mode", c.Mode, "mandelbrot or julia")
	flags.StringVar(&c.Metric, "metric", c.Metric, "divergence test, componentwise or modulus")
	flags.Float64Var(&c.JuliaRadius, "julia-radius", c.JuliaRadius, "modulus of the animated Julia constant")
	flags.IntVar(&c.Frames, "frames", c.Frames, "number of frames")
	flags.Float64Var(&c.TimeStart, "time-start", c.TimeStart, "first value of the animation parameter")
	flags.Float64Var(&c.TimeEnd, "time-end", c.TimeEnd, "excluded upper end of the animation parameter")
	flags.Float64Var(&c.FPS, "fps", c.FPS, "playback frame rate")
	flags.StringVar(&c.Strategy, "strategy", c.Strategy, "host or device")
	flags.StringVar(&c.Backend, "backend", c.Backend, "device adapter used by the device strategy")
	flags.IntVar(&c.Workers, "workers", c.Workers, "host worker count, 0 for one per CPU")
	flags.BoolVar(&c.Pipelined, "pipelined", c.Pipelined, "compute the next frame while the current one is written")
}

// Validate reports the first setting that cannot produce a render.
func (c *Config) Validate() error {
	if _, err := c.Viewport(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("%w: max iterations must be non-negative, got %d", ErrConfiguration, c.MaxIterations)
	}
	if c.Frames < 1 {
		return fmt.Errorf("%w: frames must be at least 1, got %d", ErrConfiguration, c.Frames)
	}
	if _, err := transforms.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if _, err := transforms.ParseMetric(c.Metric); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if c.Strategy != StrategyHost && c.Strategy != StrategyDevice {
		return fmt.Errorf("%w: unknown strategy %q", ErrConfiguration, c.Strategy)
	}
	if !(c.FPS > 0) {
		return fmt.Errorf("%w: fps must be positive, got %g", ErrConfiguration, c.FPS)
	}
	if !(c.TimeEnd > c.TimeStart) {
		return fmt.Errorf("%w: empty time domain [%g, %g)", ErrConfiguration, c.TimeStart, c.TimeEnd)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrConfiguration, c.Workers)
	}
	return nil
}

func (c *Config) Viewport() (viewport.Viewport, error) {
	return viewport.New(c.LowerLeft, c.UpperRight, c.Width, c.Height)
}

// Job is the frame configuration at TimeStart. Validate must have succeeded.
func (c *Config) Job() dispatch.Job {
	v, _ := c.Viewport()
	mode, _ := transforms.ParseMode(c.Mode)
	metric, _ := transforms.ParseMetric(c.Metric)

	return dispatch.Job{
		Viewport:      v,
		Mode:          mode,
		Metric:        metric,
		MaxIterations: c.MaxIterations,
		Time:          c.TimeStart,
		JuliaRadius:   c.JuliaRadius,
	}
}

func (c *Config) Domain() animation.Domain {
	return animation.Domain{Start: c.TimeStart, End: c.TimeEnd}
}

// Dispatcher opens the configured strategy. A device strategy never falls back to the host.
// The returned close function releases device resources.
func (c *Config) Dispatcher() (dispatch.Dispatcher, func() error, error) {
	switch c.Strategy {
	case StrategyHost:
		return dispatch.NewHost(c.Workers), func() error { return nil }, nil
	case StrategyDevice:
		d, err := dispatch.OpenDevice(c.Backend, kernels.EscapeTime)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown strategy %q", ErrConfiguration, c.Strategy)
	}
}

// Driver returns an animation driver for the configured frames.
func (c *Config) Driver(d dispatch.Dispatcher) *animation.Driver {
	return &animation.Driver{
		Dispatcher: d,
		Job:        c.Job(),
		Frames:     c.Frames,
		Domain:     c.Domain(),
		Pipelined:  c.Pipelined,
	}
}

// complexValue is a pflag.Value for complex128, written like "-1.5-1i".
type complexValue complex128

func (v *complexValue) String() string {
	return strconv.FormatComplex(complex128(*v), 'g', -1, 128)
}

func (v *complexValue) Set(s string) error {
	z, err := strconv.ParseComplex(s, 128)
	if err != nil {
		return err
	}
	if cmplx.IsNaN(z) || cmplx.IsInf(z) {
		return fmt.Errorf("%q is not finite", s)
	}
	*v = complexValue(z)
	return nil
}

func (*complexValue) Type() string {
	return "complex"
}
