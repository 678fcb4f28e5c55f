// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestWriteWAV16_Header(t *testing.T) {
	t.Parallel()

	samples := []int16{100, 200, 300, 400}
	var buf bytes.Buffer
	if err := WriteWAV16(&buf, 44100, samples); err != nil {
		t.Fatalf("WriteWAV16() error = %v", err)
	}

	data := buf.Bytes()
	if len(data) != 44+len(samples)*2 {
		t.Fatalf("file is %d bytes, want %d", len(data), 44+len(samples)*2)
	}

	for _, tt := range []struct {
		name string
		got  uint32
		want uint32
	}{
		{"riff size", binary.LittleEndian.Uint32(data[4:8]), 36 + 8},
		{"fmt size", binary.LittleEndian.Uint32(data[16:20]), 16},
		{"format", uint32(binary.LittleEndian.Uint16(data[20:22])), formatPCM},
		{"channels", uint32(binary.LittleEndian.Uint16(data[22:24])), 1},
		{"sample rate", binary.LittleEndian.Uint32(data[24:28]), 44100},
		{"byte rate", binary.LittleEndian.Uint32(data[28:32]), 88200},
		{"block align", uint32(binary.LittleEndian.Uint16(data[32:34])), 2},
		{"bits", uint32(binary.LittleEndian.Uint16(data[34:36])), 16},
		{"data size", binary.LittleEndian.Uint32(data[40:44]), 8},
	} {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}

	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		t.Error("chunk markers are wrong")
	}
}

func TestWriteWAV16_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteWAV16(&buf, 8000, nil); err != nil {
		t.Fatalf("WriteWAV16() error = %v", err)
	}
	if buf.Len() != 44 {
		t.Errorf("file is %d bytes, want 44", buf.Len())
	}
}

func TestWritePCM16_RoundTrip(t *testing.T) {
	t.Parallel()

	// Longer than one write chunk to cover the chunked path.
	samples := make([]int16, 20_000)
	for i := range samples {
		samples[i] = int16(i - 10_000)
	}

	var buf bytes.Buffer
	if err := WritePCM16(&buf, 16000, 2, samples); err != nil {
		t.Fatalf("WritePCM16() error = %v", err)
	}

	src, err := Decoder{}.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.Channels() != 2 || src.SampleRate() != 16000 {
		t.Fatalf("format = %d Hz %d ch, want 16000 Hz 2 ch", src.SampleRate(), src.Channels())
	}

	out := make([]float32, len(samples))
	total := 0
	for total < len(out) {
		n, err := src.ReadSamples(out[total:])
		total += n
		if err != nil {
			break
		}
	}

	if total != len(samples) {
		t.Fatalf("decoded %d samples, want %d", total, len(samples))
	}
	for i, s := range samples {
		if want := float32(s) / 32768; out[i] != want {
			t.Fatalf("sample %d = %v, want %v", i, out[i], want)
		}
	}
}

func TestWritePCM16_Layout(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WritePCM16(&buf, 8000, 2, []int16{1, 2, 3}); !errors.Is(err, ErrUnsupportedWavLayout) {
		t.Errorf("odd stereo samples: error = %v, want ErrUnsupportedWavLayout", err)
	}
	if err := WritePCM16(&buf, 8000, 0, nil); !errors.Is(err, ErrUnsupportedWavLayout) {
		t.Errorf("zero channels: error = %v, want ErrUnsupportedWavLayout", err)
	}
}

type failingWriter struct{ after int }

var errWrite = errors.New("write failed")

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errWrite
	}
	w.after--
	return len(p), nil
}

func TestWriteWAV16_WriteError(t *testing.T) {
	t.Parallel()

	if err := WriteWAV16(&failingWriter{}, 8000, []int16{1}); !errors.Is(err, errWrite) {
		t.Errorf("header write error = %v, want errWrite", err)
	}
	if err := WriteWAV16(&failingWriter{after: 1}, 8000, []int16{1}); !errors.Is(err, errWrite) {
		t.Errorf("sample write error = %v, want errWrite", err)
	}
}

func BenchmarkWriteWAV16(b *testing.B) {
	samples := make([]int16, 16000)

	b.ReportAllocs()
	for b.Loop() {
		var buf bytes.Buffer
		_ = WriteWAV16(&buf, 16000, samples)
	}
}
