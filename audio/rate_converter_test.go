// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"math"
	"testing"
)

func TestRateConverter_Downsample(t *testing.T) {
	t.Parallel()

	conv, err := NewRateConverter(96000, 2)
	if err != nil {
		t.Fatalf("NewRateConverter() error = %v", err)
	}

	out := conv.Convert(nil, make([]float32, 1000*2))
	if got := len(out) / 2; got != 500 {
		t.Errorf("1000 frames at 96 kHz produced %d frames, want 500", got)
	}
	if conv.Consumed() != 1000 || conv.Emitted() != 500 {
		t.Errorf("counters = %d/%d, want 1000/500", conv.Consumed(), conv.Emitted())
	}
}

func TestRateConverter_DriftBound(t *testing.T) {
	t.Parallel()

	conv, err := NewRateConverter(44100, 1)
	if err != nil {
		t.Fatalf("NewRateConverter() error = %v", err)
	}

	// Irregular chunk sizes, the way a capture callback delivers them.
	chunks := []int{1, 7, 441, 480, 1024, 3, 999}
	src := make([]float32, 1024)
	var (
		out  []float32
		fed  int
		next = 1
	)

	for i := 0; fed < 1_000_000; i++ {
		n := min(chunks[i%len(chunks)], 1_000_000-fed)
		out = conv.Convert(out[:0], src[:n])
		fed += n

		if fed >= next || fed == 1_000_000 {
			ideal := float64(fed) * 48000 / 44100
			if d := math.Abs(float64(conv.Emitted()) - ideal); d > 1 {
				t.Fatalf("after %d frames emitted %d, ideal %.2f (drift %.2f)", fed, conv.Emitted(), ideal, d)
			}
			next *= 3
		}
	}
}

func TestRateConverter_ChunkingInvariant(t *testing.T) {
	t.Parallel()

	whole, _ := NewRateConverter(22050, 1)
	split, _ := NewRateConverter(22050, 1)

	src := make([]float32, 5000)
	for i := range src {
		src[i] = float32(i)
	}

	want := whole.Convert(nil, src)

	var got []float32
	for off := 0; off < len(src); off += 333 {
		got = split.Convert(got, src[off:min(off+333, len(src))])
	}

	if len(got) != len(want) {
		t.Fatalf("chunked output has %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRateConverter_ChannelMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		in       []float32
		want     []float32
	}{
		{"mono duplicated", 1, []float32{0.25, -0.5}, []float32{0.25, 0.25, -0.5, -0.5}},
		{"stereo kept", 2, []float32{0.1, 0.2, 0.3, 0.4}, []float32{0.1, 0.2, 0.3, 0.4}},
		{"surround truncated", 3, []float32{0.1, 0.2, 0.9, 0.3, 0.4, 0.9}, []float32{0.1, 0.2, 0.3, 0.4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conv, err := NewRateConverterTo(48000, tt.channels, 48000)
			if err != nil {
				t.Fatalf("NewRateConverterTo() error = %v", err)
			}

			got := conv.Convert(nil, tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Convert() returned %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Convert()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRateConverter_UpsampleRepeatsFrames(t *testing.T) {
	t.Parallel()

	conv, _ := NewRateConverter(24000, 1)
	got := conv.Convert(nil, []float32{1, 2, 3})

	want := []float32{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}
	if len(got) != len(want) {
		t.Fatalf("Convert() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Convert() = %v, want %v", got, want)
		}
	}
}

func TestRateConverter_PartialFrameIgnored(t *testing.T) {
	t.Parallel()

	conv, _ := NewRateConverterTo(48000, 2, 48000)
	got := conv.Convert(nil, []float32{0.1, 0.2, 0.3})

	if len(got) != 2 {
		t.Errorf("Convert() returned %d samples, want 2", len(got))
	}
	if conv.Consumed() != 1 {
		t.Errorf("Consumed() = %d, want 1", conv.Consumed())
	}
}

func TestRateConverter_Reset(t *testing.T) {
	t.Parallel()

	conv, _ := NewRateConverter(44100, 2)
	conv.Convert(nil, make([]float32, 200))
	conv.Reset()

	if conv.Consumed() != 0 || conv.Emitted() != 0 {
		t.Errorf("after Reset counters = %d/%d, want 0/0", conv.Consumed(), conv.Emitted())
	}
	if conv.SourceRate() != 44100 || conv.TargetRate() != TargetSampleRate || conv.Channels() != 2 {
		t.Error("Reset changed the converter configuration")
	}
}

func BenchmarkRateConverter_Convert(b *testing.B) {
	conv, _ := NewRateConverter(44100, 2)
	src := make([]float32, 882)
	dst := make([]float32, 0, 1024)

	b.ReportAllocs()
	for b.Loop() {
		dst = conv.Convert(dst[:0], src)
	}
}
