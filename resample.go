// SPDX-License-Identifier: EPL-2.0

package duorec

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/duorec/audio"
	"github.com/ik5/duorec/formats/wav"
	"github.com/ik5/duorec/utils"
)

// ResampleToMono16 converts src to mono 16-bit PCM at targetRate using
// nearest-neighbour rate conversion and channel averaging. It reads src to
// the end and returns the samples and the output rate.
//
// bufferSize is the read size in samples; 4096 is a good default.
func ResampleToMono16(src audio.Source, targetRate int, bufferSize int) ([]int16, int, error) {
	if targetRate <= 0 {
		return nil, 0, fmt.Errorf("%w: %d", audio.ErrInvalidRate, targetRate)
	}
	if bufferSize <= 0 {
		bufferSize = defaultReadSize
	}

	mono := audio.NewMonoMixer(audio.NewResampler(src, targetRate))

	// About two seconds up front; append grows it from there.
	pcm16 := make([]int16, 0, targetRate*2)
	buf := make([]float32, bufferSize)

	for {
		n, err := mono.ReadSamples(buf)
		pcm16 = utils.AppendInt16(pcm16, buf[:n])

		if errors.Is(err, io.EOF) {
			return pcm16, targetRate, nil
		}
		if err != nil {
			return nil, targetRate, err
		}
	}
}

// ExportMono16 writes src to w as a mono 16-bit PCM WAV file at
// targetRate. It returns the number of samples written.
func ExportMono16(w io.Writer, src audio.Source, targetRate int) (int, error) {
	pcm, rate, err := ResampleToMono16(src, targetRate, src.BufSize())
	if err != nil {
		return 0, err
	}
	if err := wav.WritePCM16(w, rate, 1, pcm); err != nil {
		return 0, err
	}
	return len(pcm), nil
}
