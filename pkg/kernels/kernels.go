// Package kernels bundles the compute programs the escape command hands to device backends.
package kernels

import (
	_ "embed"
)

// EscapeTime is the WGSL source of the escape-time field kernel. Its entry point is
// device.EscapeTimeEntry.
//
//go:embed escape.wgsl
var EscapeTime []byte
