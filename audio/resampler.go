// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// Resampler streams from src to a target sample rate through a
// RateConverter. Output is always interleaved stereo.
type Resampler struct {
	src  Source
	conv *RateConverter

	srcBuf  []float32
	pending []float32 // converted samples not yet handed out
	eof     bool
	err     error
}

// NewResampler wraps src so that it produces stereo frames at dstRate.
// Invalid source or target rates surface as an error on the first read.
func NewResampler(src Source, dstRate int) *Resampler {
	r := &Resampler{src: src}

	conv, err := NewRateConverterTo(src.SampleRate(), src.Channels(), dstRate)
	if err != nil {
		r.err = err
		return r
	}
	r.conv = conv

	size := src.BufSize()
	if size <= 0 {
		size = 4096
	}
	// Whole frames only, so a read never splits a frame.
	size -= size % src.Channels()
	if size == 0 {
		size = src.Channels()
	}
	r.srcBuf = make([]float32, size)

	return r
}

func (r *Resampler) SampleRate() int {
	if r.conv == nil {
		return 0
	}
	return r.conv.TargetRate()
}

func (r *Resampler) Channels() int { return TargetChannels }
func (r *Resampler) BufSize() int  { return r.src.BufSize() }

func (r *Resampler) Close() error {
	err := r.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// ReadSamples fills dst with stereo samples at the target rate.
// dst length must be a multiple of 2.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if len(dst)%TargetChannels != 0 {
		return 0, ErrInvalidDstSize
	}

	for len(r.pending) < len(dst) && !r.eof {
		n, err := r.src.ReadSamples(r.srcBuf)
		if n > 0 {
			r.pending = r.conv.Convert(r.pending, r.srcBuf[:n])
		}

		if errors.Is(err, io.EOF) {
			r.eof = true
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w", err)
		}
		if n == 0 {
			// Source made no progress; hand out what we have.
			break
		}
	}

	n := copy(dst, r.pending)
	r.pending = r.pending[:copy(r.pending, r.pending[n:])]

	if n == 0 && r.eof {
		return 0, io.EOF
	}
	if r.eof && len(r.pending) == 0 {
		return n, io.EOF
	}
	return n, nil
}
