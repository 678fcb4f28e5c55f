// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// RateConverter maps an interleaved frame stream at an arbitrary source rate
// onto a fixed target rate by repeating or skipping whole frames. There is no
// interpolation and no anti-aliasing filter.
//
// The converter counts frames consumed and frames emitted over its lifetime
// and emits while emitted*srcRate < consumed*dstRate, so the long-run output
// rate is exactly dstRate and the output never drifts more than one frame
// from the ideal count.
//
// Output is always stereo: a mono input is duplicated into both channels and
// inputs with more than two channels contribute their first two.
//
// A RateConverter is not safe for concurrent use; each capture callback owns
// its own.
type RateConverter struct {
	srcRate  uint64
	dstRate  uint64
	channels int

	consumed uint64
	emitted  uint64
}

// NewRateConverter returns a converter from srcRate with the given channel
// count to TargetSampleRate.
func NewRateConverter(srcRate, channels int) (*RateConverter, error) {
	return NewRateConverterTo(srcRate, channels, TargetSampleRate)
}

// NewRateConverterTo is NewRateConverter with an explicit target rate.
func NewRateConverterTo(srcRate, channels, dstRate int) (*RateConverter, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidRate, srcRate, dstRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	return &RateConverter{
		srcRate:  uint64(srcRate),
		dstRate:  uint64(dstRate),
		channels: channels,
	}, nil
}

func (c *RateConverter) SourceRate() int { return int(c.srcRate) }
func (c *RateConverter) TargetRate() int { return int(c.dstRate) }
func (c *RateConverter) Channels() int   { return c.channels }

// Consumed is the number of source frames fed so far.
func (c *RateConverter) Consumed() uint64 { return c.consumed }

// Emitted is the number of stereo frames produced so far.
func (c *RateConverter) Emitted() uint64 { return c.emitted }

// Reset zeroes both counters.
func (c *RateConverter) Reset() {
	c.consumed = 0
	c.emitted = 0
}

// Convert appends the stereo frames produced by samples to dst and returns
// the extended slice. A trailing partial frame in samples is ignored.
func (c *RateConverter) Convert(dst, samples []float32) []float32 {
	frames := len(samples) / c.channels

	// Rough growth hint; exact count depends on the counters.
	if need := int(uint64(frames)*c.dstRate/c.srcRate+1) * 2; cap(dst)-len(dst) < need {
		grown := make([]float32, len(dst), len(dst)+need)
		copy(grown, dst)
		dst = grown
	}

	for f := range frames {
		base := f * c.channels
		left := samples[base]
		right := left
		if c.channels >= 2 {
			right = samples[base+1]
		}

		c.consumed++
		for c.emitted*c.srcRate < c.consumed*c.dstRate {
			dst = append(dst, left, right)
			c.emitted++
		}
	}

	return dst
}
