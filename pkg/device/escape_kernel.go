package device

import (
	"github.com/willbeason/escape-fractal/pkg/transforms"
	"github.com/willbeason/escape-fractal/pkg/viewport"
)

// EscapeTimeEntry is the entry point name of the escape-time kernel.
const EscapeTimeEntry = "escape_time"

// EscapeTime is the host implementation of the escape_time entry point.
// It evaluates the same mapping and recurrence as host-parallel dispatch.
func EscapeTime(x, y uint32, u *Uniforms) float32 {
	v := viewport.Viewport{
		LowerLeft:  u.LowerLeft,
		UpperRight: u.UpperRight,
		Width:      int(u.Width),
		Height:     int(u.Height),
	}

	n := transforms.Mode(u.Mode).Evaluate(
		v.Map(int(x), int(y)),
		transforms.JuliaConstant(u.Time, u.JuliaRadius),
		int(u.MaxIterations),
		transforms.Metric(u.Metric),
	)
	return float32(n)
}
