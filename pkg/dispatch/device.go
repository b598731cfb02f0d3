package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/willbeason/escape-fractal/pkg/device"
	"github.com/willbeason/escape-fractal/pkg/grid"
	"github.com/willbeason/escape-fractal/pkg/logging"
)

// DeviceName is the name of the device-parallel strategy.
const DeviceName = "device"

// MaxDeviceIterations is the largest bound whose counts are exact in the device's float32 buffer.
const MaxDeviceIterations = 1 << 24

// Device computes each frame as a single launch of a compiled kernel.
type Device struct {
	backend string
	program device.Program

	// mu keeps one job in flight against the program.
	mu sync.Mutex
}

// NewDevice compiles source on backend. A backend that cannot build the program
// fails here with its own error; there is no fallback to host dispatch.
func NewDevice(backend device.Backend, source []byte) (*Device, error) {
	program, err := backend.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("dispatch: prepare %s backend: %w", backend.Name(), err)
	}

	return &Device{backend: backend.Name(), program: program}, nil
}

// OpenDevice opens the named backend from the device registry and compiles source on it.
func OpenDevice(name string, source []byte) (*Device, error) {
	backend, err := device.Open(name)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	return NewDevice(backend, source)
}

func (d *Device) Name() string { return DeviceName + "/" + d.backend }

func (d *Device) Dispatch(ctx context.Context, job Job) (*grid.Grid, error) {
	if err := begin(ctx, job); err != nil {
		return nil, err
	}
	if job.MaxIterations > MaxDeviceIterations {
		return nil, fmt.Errorf("%w: max iterations %d exceeds device limit %d", ErrJob, job.MaxIterations, MaxDeviceIterations)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	start := time.Now()
	v := job.Viewport

	buf, err := d.program.Launch(ctx, device.Uniforms{
		Width:         uint32(v.Width),
		Height:        uint32(v.Height),
		MaxIterations: uint32(job.MaxIterations),
		Mode:          uint32(job.Mode),
		Metric:        uint32(job.Metric),
		Time:          job.Time,
		JuliaRadius:   job.JuliaRadius,
		LowerLeft:     v.LowerLeft,
		UpperRight:    v.UpperRight,
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch: launch %s: %w", d.program.EntryPoint(), err)
	}

	g, err := grid.FromFloat32(v.Width, v.Height, job.MaxIterations, buf)
	if err != nil {
		return nil, fmt.Errorf("dispatch: read back %s: %w", d.program.EntryPoint(), err)
	}

	logging.Logger().Debug("frame computed",
		"strategy", d.Name(),
		"time", job.Time,
		"pixels", v.Pixels(),
		"elapsed", time.Since(start))

	return g, nil
}

// Close releases the compiled program.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.program.Release()
	return nil
}

var _ Dispatcher = (*Device)(nil)
