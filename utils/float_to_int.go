// SPDX-License-Identifier: EPL-2.0

// Package utils holds sample conversions shared by the exporters.
package utils

import "slices"

// Float32ToInt16 scales x from [-1, 1] to 16-bit PCM, clamping values
// outside that range. The scale is symmetric, so -1 maps to -32767.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	return int16(x * 32767.0)
}

// AppendInt16 converts every sample of src with Float32ToInt16 and appends
// the results to dst.
func AppendInt16(dst []int16, src []float32) []int16 {
	dst = slices.Grow(dst, len(src))
	for _, x := range src {
		dst = append(dst, Float32ToInt16(x))
	}
	return dst
}
