package transforms

import (
	"fmt"
)

// A Transform iterates a passed point.
type Transform interface {
	Next(z complex128) complex128
}

// Bound is the divergence threshold of the escape test.
const Bound = 2.0

// A Metric decides whether an iterate has escaped.
type Metric int

const (
	// Componentwise escapes once either |Re(z)| or |Im(z)| reaches Bound.
	// This is a square of side 2*Bound, so it escapes no later than Modulus.
	Componentwise Metric = iota

	// Modulus escapes once |z| reaches Bound.
	Modulus
)

var metricNames = map[Metric]string{
	Componentwise: "componentwise",
	Modulus:       "modulus",
}

func (m Metric) String() string {
	if name, ok := metricNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// ParseMetric returns the Metric with the passed name.
func ParseMetric(name string) (Metric, error) {
	for m, n := range metricNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown divergence metric %q", name)
}

// Escaped reports whether z is outside the threshold under m.
func (m Metric) Escaped(z complex128) bool {
	re, im := real(z), imag(z)
	if m == Modulus {
		return re*re+im*im >= Bound*Bound
	}
	return re >= Bound || re <= -Bound || im >= Bound || im <= -Bound
}
