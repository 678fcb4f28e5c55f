// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1 Layer 3 files with github.com/hajimehoshi/go-mp3.
//
// The decoder always yields interleaved stereo. Pair it with a
// file-backed capture source or the offline mix command:
//
//	src, err := mp3.Decoder{}.Decode(f)
//	buf := make([]float32, 4096)
//	n, err := src.ReadSamples(buf)
package mp3
