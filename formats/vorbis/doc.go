// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files with github.com/jfreymuth/oggvorbis.
//
// Samples are already float32 in the decoder, so ReadSamples decodes
// straight into the caller's buffer. dst is trimmed to a whole number of
// frames.
package vorbis
