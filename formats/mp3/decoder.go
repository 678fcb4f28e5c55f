// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/duorec/audio"
)

// go-mp3 always decodes to interleaved stereo 16-bit little-endian PCM.
const channels = 2

// pcmReader is the part of gomp3.Decoder the source uses.
type pcmReader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec        pcmReader
	sampleRate int
	buf        []byte
	carry      []byte // trailing odd byte of the previous read
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	off := copy(s.buf, s.carry)
	s.carry = s.carry[:0]

	n, err := s.dec.Read(s.buf[off:])
	n += off
	if n < 2 {
		s.carry = append(s.carry, s.buf[:n]...)
		if err != nil {
			return 0, err
		}
		return 0, nil
	}

	if n%2 == 1 {
		s.carry = append(s.carry, s.buf[n-1])
		n--
	}

	samples, derr := audio.DecodeInt16LE(s.buf[:n])
	if derr != nil {
		return 0, fmt.Errorf("%w", derr)
	}
	copy(dst, samples)

	return len(samples), err
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return newSource(dec), nil
}

func newSource(dec pcmReader) *source {
	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}
}
