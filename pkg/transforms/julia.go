package transforms

import (
	"math"
)

// DefaultJuliaRadius is the modulus of the animated Julia constant.
const DefaultJuliaRadius = 0.7885

// Julia2 is the quadratic map z -> z^2 + C.
type Julia2 struct {
	C complex128
}

func (j Julia2) Next(z complex128) complex128 {
	return z*z + j.C
}

// Escape iterates j from z for at most maxIterations steps.
//
// It returns the zero-based index of the step whose result first escaped under m,
// or maxIterations if every step stayed bounded. The running iterate is local to the call.
func (j Julia2) Escape(z complex128, maxIterations int, m Metric) int {
	for i := 0; i < maxIterations; i++ {
		z = j.Next(z)
		if m.Escaped(z) {
			return i
		}
	}
	return maxIterations
}

// JuliaConstant is the Julia constant at animation time t: radius * e^(it).
func JuliaConstant(t, radius float64) complex128 {
	s, c := math.Sincos(t)
	return complex(radius*c, radius*s)
}

var _ Transform = Julia2{}
