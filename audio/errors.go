// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize  = errors.New("dst size must be multiple of channels")
	ErrUnalignedBuffer = errors.New("byte buffer length is not a multiple of the sample size")
	ErrInvalidRate     = errors.New("sample rate must be positive")
	ErrInvalidChannels = errors.New("channel count must be positive")
	ErrUnknownTrack    = errors.New("unknown track")
	ErrDuplicateTrack  = errors.New("track configured twice")
	ErrNoTracks        = errors.New("pipeline needs at least one track")
	ErrNoDecoder       = errors.New("no decoder registered for format")
	ErrNoFormat        = errors.New("source reports no usable format")
)
