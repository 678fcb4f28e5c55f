// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"sync"
	"time"
)

// mockSource yields totalFrames frames built by waveform, at most chunk
// frames per read when chunk > 0.
type mockSource struct {
	sampleRate  int
	channels    int
	totalFrames int
	chunk       int
	generated   int
	waveform    func(frame, channel int) float32
	closed      bool
}

func newMockSource(sampleRate, channels, totalFrames int, waveform func(frame, channel int) float32) *mockSource {
	return &mockSource{
		sampleRate:  sampleRate,
		channels:    channels,
		totalFrames: totalFrames,
		waveform:    waveform,
	}
}

func newConstantSource(sampleRate, channels, totalFrames int, value float32) *mockSource {
	return newMockSource(sampleRate, channels, totalFrames, func(int, int) float32 { return value })
}

// newRampSource encodes the frame index in every sample, which makes
// repeated and skipped frames visible.
func newRampSource(sampleRate, channels, totalFrames int) *mockSource {
	return newMockSource(sampleRate, channels, totalFrames, func(frame, channel int) float32 {
		return float32(frame*10 + channel)
	})
}

func (m *mockSource) SampleRate() int { return m.sampleRate }
func (m *mockSource) Channels() int   { return m.channels }
func (m *mockSource) BufSize() int    { return 4096 }

func (m *mockSource) Close() error {
	m.closed = true
	return nil
}

func (m *mockSource) ReadSamples(dst []float32) (int, error) {
	if m.generated >= m.totalFrames {
		return 0, io.EOF
	}

	frames := min(len(dst)/m.channels, m.totalFrames-m.generated)
	if m.chunk > 0 {
		frames = min(frames, m.chunk)
	}

	for f := range frames {
		for ch := range m.channels {
			dst[f*m.channels+ch] = m.waveform(m.generated+f, ch)
		}
	}
	m.generated += frames

	if m.generated >= m.totalFrames {
		return frames * m.channels, io.EOF
	}
	return frames * m.channels, nil
}

var errBrokenSource = errors.New("broken source")

type brokenSource struct{ mockSource }

func (b *brokenSource) ReadSamples([]float32) (int, error) { return 0, errBrokenSource }

// frameRecorder is a FrameWriter keeping every frame in memory.
type frameRecorder struct {
	mu     sync.Mutex
	frames [][2]float32
	fail   error
}

func (r *frameRecorder) WriteFrame(left, right float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fail != nil {
		return r.fail
	}
	r.frames = append(r.frames, [2]float32{left, right})
	return nil
}

func (r *frameRecorder) Frames() [][2]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][2]float32, len(r.frames))
	copy(out, r.frames)
	return out
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}
