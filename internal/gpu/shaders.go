//go:build !nogpu

package gpu

import _ "embed"

// distanceShaderSource holds both passes of the exact distance transform.
//
//go:embed shaders/distance.wgsl
var distanceShaderSource string
