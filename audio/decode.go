// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeFloat32LE converts a capture buffer of little-endian IEEE-754
// float32 values into samples. The buffer length must be a multiple of 4.
func DecodeFloat32LE(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes for float32", ErrUnalignedBuffer, len(b))
	}

	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : i*4+4]))
	}
	return out, nil
}

// DecodeInt16LE converts little-endian signed 16-bit PCM into samples
// normalised to [-1, 1).
func DecodeInt16LE(b []byte) ([]float32, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("%w: %d bytes for int16", ErrUnalignedBuffer, len(b))
	}

	out := make([]float32, len(b)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
		out[i] = float32(v) / 32768.0
	}
	return out, nil
}

// Interleave merges planar buffers (one per channel) into a single
// interleaved slice. Planes of unequal length are truncated to the shortest.
func Interleave(planes [][]float32) []float32 {
	switch len(planes) {
	case 0:
		return nil
	case 1:
		out := make([]float32, len(planes[0]))
		copy(out, planes[0])
		return out
	}

	frames := len(planes[0])
	for _, p := range planes[1:] {
		frames = min(frames, len(p))
	}

	channels := len(planes)
	out := make([]float32, frames*channels)
	for f := range frames {
		for c, p := range planes {
			out[f*channels+c] = p[f]
		}
	}
	return out
}
