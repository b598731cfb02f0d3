package transforms

import (
	"fmt"
)

// A Mode chooses which of the seed and the constant of Julia2 vary per pixel.
type Mode int

const (
	// Mandelbrot iterates from the origin with the pixel's sample as the constant.
	Mandelbrot Mode = iota

	// Julia iterates from the pixel's sample with a constant shared by the whole frame.
	Julia
)

var modeNames = map[Mode]string{
	Mandelbrot: "mandelbrot",
	Julia:      "julia",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode returns the Mode with the passed name.
func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown render mode %q", name)
}

// Evaluate returns the escape count of one pixel whose plane sample is sample.
// constant is only read in Julia mode.
func (m Mode) Evaluate(sample, constant complex128, maxIterations int, metric Metric) int {
	if m == Julia {
		return Julia2{C: constant}.Escape(sample, maxIterations, metric)
	}
	return Julia2{C: sample}.Escape(0, maxIterations, metric)
}
