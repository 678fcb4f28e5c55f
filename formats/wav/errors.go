// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile              = errors.New("not a WAV file")
	ErrUnsupportedWavLayout    = errors.New("unsupported WAV layout")
	ErrUnsupportedSampleFormat = errors.New("only PCM 16-bit and IEEE float 32-bit supported")
	ErrUnsupportedWavChunks    = errors.New("unsupported WAV chunks")
	ErrWriterClosed            = errors.New("wav writer is closed")
)
