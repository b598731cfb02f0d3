// Package device defines the compute backend contract used for device-parallel dispatch.
//
// A Backend turns kernel source into a Program. A Program launches over a whole
// Width x Height index domain at once and returns one float32 per index, row-major.
//
// A Program is single-owner: Launch calls are serialized and at most one job is in flight.
package device

import (
	"context"
)

// Uniforms are the scalar inputs of one launch.
// The field order follows the kernel's Uniforms struct, at float64 precision
// where the WGSL uses f32. The software backend passes it to host kernels directly.
type Uniforms struct {
	Width         uint32
	Height        uint32
	MaxIterations uint32
	Mode          uint32
	Metric        uint32
	Time          float64
	JuliaRadius   float64
	LowerLeft     complex128
	UpperRight    complex128
}

// A Backend compiles kernel source for one kind of device.
type Backend interface {
	Name() string

	// Compile builds source into a launchable Program.
	// Failures are reported synchronously as *CompileError.
	Compile(source []byte) (Program, error)
}

// A Program is a compiled kernel bound to a device.
type Program interface {
	EntryPoint() string

	// Launch runs the kernel over the domain u.Width x u.Height and returns the flat result buffer.
	// A launch in flight always runs to completion; ctx is only checked before it starts.
	Launch(ctx context.Context, u Uniforms) ([]float32, error)

	// Release frees device resources. Launching afterwards returns ErrReleased.
	Release()
}
