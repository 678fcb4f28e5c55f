// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ik5/duorec/audio"
)

const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

type wavSource struct {
	r          io.Reader
	sampleRate int
	channels   int
	float      bool // IEEE float32, otherwise PCM16
	buf        []byte
}

func (s *wavSource) SampleRate() int { return s.sampleRate }
func (s *wavSource) Channels() int   { return s.channels }
func (s *wavSource) BufSize() int    { return 4096 }
func (s *wavSource) Close() error    { return nil }

func (s *wavSource) bytesPerSample() int {
	if s.float {
		return 4
	}
	return 2
}

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	size := s.bytesPerSample()
	need := len(dst) * size
	if len(s.buf) < need {
		s.buf = make([]byte, need)
	}

	n, err := io.ReadFull(s.r, s.buf[:need])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("%w", err)
	}

	samples := n / size
	for i := range samples {
		b := s.buf[i*size : (i+1)*size]
		if s.float {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b))
		} else {
			dst[i] = float32(int16(binary.LittleEndian.Uint16(b))) / 32768.0
		}
	}

	if samples == 0 && err != nil {
		return 0, io.EOF
	}
	return samples, nil
}

// Decoder reads RIFF/WAVE streams holding PCM 16-bit or IEEE float 32-bit
// samples. Chunks other than "fmt " and "data" are skipped.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	if !bytes.Equal(header[:4], []byte("RIFF")) || !bytes.Equal(header[8:12], []byte("WAVE")) {
		return nil, ErrNotWavFile
	}

	var (
		src    *wavSource
		chunk  = make([]byte, 8)
		gotFmt bool
	)

	for {
		if _, err := io.ReadFull(r, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrUnsupportedWavChunks
			}
			return nil, fmt.Errorf("%w", err)
		}

		id := string(chunk[:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrUnsupportedWavLayout
			}
			body := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("%w", err)
			}

			var err error
			src, err = parseFmt(body)
			if err != nil {
				return nil, err
			}
			gotFmt = true

		case "data":
			if !gotFmt {
				return nil, ErrUnsupportedWavLayout
			}
			src.r = io.LimitReader(r, size)
			return src, nil

		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return nil, fmt.Errorf("%w", err)
			}
		}
	}
}

func parseFmt(body []byte) (*wavSource, error) {
	audioFormat := binary.LittleEndian.Uint16(body[0:2])
	channels := int(binary.LittleEndian.Uint16(body[2:4]))
	sampleRate := int(binary.LittleEndian.Uint32(body[4:8]))
	bitsPerSample := binary.LittleEndian.Uint16(body[14:16])

	if channels <= 0 || sampleRate <= 0 {
		return nil, ErrUnsupportedWavLayout
	}

	src := &wavSource{sampleRate: sampleRate, channels: channels}
	switch {
	case audioFormat == formatPCM && bitsPerSample == 16:
	case audioFormat == formatIEEEFloat && bitsPerSample == 32:
		src.float = true
	default:
		return nil, ErrUnsupportedSampleFormat
	}

	src.buf = make([]byte, 4096*(int(bitsPerSample)/8))
	return src, nil
}
