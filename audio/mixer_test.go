// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
)

func newTestMixer(out FrameWriter) (*Mixer, *RingBuffer, *RingBuffer) {
	system, mic := NewRingBuffer(), NewRingBuffer()
	m := NewMixer(out,
		MixInput{Buffer: system, Weight: 0.5},
		MixInput{Buffer: mic, Weight: 0.5},
	)
	return m, system, mic
}

func TestMixer_Arithmetic(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	m, system, mic := newTestMixer(rec)

	system.Push(1, 1)
	mic.Push(-1, -1)

	if n := m.Drain(); n != 1 {
		t.Fatalf("Drain() = %d, want 1", n)
	}
	if got := rec.Frames(); got[0] != [2]float32{0, 0} {
		t.Errorf("mixed frame = %v, want [0 0]", got[0])
	}
}

func TestMixer_Average(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	m, system, mic := newTestMixer(rec)

	system.Push(0.5, -0.5, 0.25, 0)
	mic.Push(0.25, 0.5, 0.25, 1)
	m.Drain()

	want := [][2]float32{{0.375, 0}, {0.25, 0.5}}
	got := rec.Frames()
	if len(got) != len(want) {
		t.Fatalf("got %d frames, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("frame %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMixer_PairingProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	rec := &frameRecorder{}
	m, system, mic := newTestMixer(rec)

	var pushedSystem, pushedMic, drained int
	next := float32(0)
	for range 500 {
		// Strictly increasing values make a repeated sample detectable.
		batch := func() []float32 {
			s := make([]float32, rng.IntN(9))
			for i := range s {
				next++
				s[i] = next
			}
			return s
		}

		if rng.IntN(2) == 0 {
			s := batch()
			system.Push(s...)
			pushedSystem += len(s)
		} else {
			s := batch()
			mic.Push(s...)
			pushedMic += len(s)
		}
		drained += m.Drain()
	}

	want := min(pushedSystem, pushedMic) / 2
	if drained != want {
		t.Errorf("drained %d pairs, want floor(min(%d, %d)/2) = %d", drained, pushedSystem, pushedMic, want)
	}
	if len(rec.Frames()) != want {
		t.Errorf("writer got %d frames, want %d", len(rec.Frames()), want)
	}

	// Both inputs are increasing, so any reused sample breaks monotonicity.
	frames := rec.Frames()
	for i := 1; i < len(frames); i++ {
		if frames[i][0] <= frames[i-1][0] {
			t.Fatalf("frame %d = %v does not follow %v", i, frames[i], frames[i-1])
		}
	}

	leftover := system.Len() + mic.Len()
	if got := pushedSystem + pushedMic - 4*drained; got != leftover {
		t.Errorf("samples unaccounted for: %d consumed beyond pairs", got-leftover)
	}
}

func TestMixer_UnpairedTailStays(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	m, system, mic := newTestMixer(rec)

	system.Push(0.1, 0.2, 0.3, 0.4, 0.5)
	mic.Push(0.1, 0.2, 0.3)

	if n := m.Drain(); n != 1 {
		t.Fatalf("Drain() = %d, want 1", n)
	}
	if system.Len() != 3 || mic.Len() != 1 {
		t.Errorf("leftovers = %d/%d, want 3/1", system.Len(), mic.Len())
	}
}

func TestMixer_WriteErrorsSwallowed(t *testing.T) {
	t.Parallel()

	errDisk := errors.New("disk full")
	rec := &frameRecorder{fail: errDisk}
	m, system, mic := newTestMixer(rec)

	var (
		seen  []error
		stats DrainStats
	)
	m.SetErrorHandler(func(err error) { seen = append(seen, err) })
	m.SetObserver(func(s DrainStats) { stats = s })

	system.Push(1, 1, 1, 1)
	mic.Push(1, 1, 1, 1)

	if n := m.Drain(); n != 2 {
		t.Fatalf("Drain() = %d, want 2 even when writes fail", n)
	}
	if stats.WriteErrors != 2 || len(seen) != 2 || !errors.Is(seen[0], errDisk) {
		t.Errorf("WriteErrors = %d, handler saw %v", stats.WriteErrors, seen)
	}
	if system.Len() != 0 || mic.Len() != 0 {
		t.Error("failed frames were not consumed")
	}
}

func TestMixer_MeterAndObserver(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	var snapshots []Levels
	meter := NewLevelMeter(DefaultLevelInterval, func(l Levels) { snapshots = append(snapshots, l) })
	meter.SetClock(clock.Now)

	rec := &frameRecorder{}
	m, system, mic := newTestMixer(rec)
	m.SetMeter(meter)

	var stats []DrainStats
	m.SetObserver(func(s DrainStats) { stats = append(stats, s) })

	system.Push(0.5, 0.5, 0.5)
	mic.Push(0.5, 0.5)
	m.Drain()

	// Inside the throttle window.
	system.Push(0.5)
	mic.Push(0.5, 0.5)
	m.Drain()

	if len(snapshots) != 1 {
		t.Fatalf("emitted %d snapshots, want 1", len(snapshots))
	}
	if snapshots[0].Mixed != 0.5 {
		t.Errorf("mixed level = %v, want 0.5", snapshots[0].Mixed)
	}

	if len(stats) != 2 || !stats[0].Emitted || stats[1].Emitted {
		t.Fatalf("drain stats = %+v", stats)
	}
	if stats[0].Backlog[0] != 1 || stats[0].Backlog[1] != 0 {
		t.Errorf("first drain backlog = %v, want [1 0]", stats[0].Backlog)
	}

	// Empty drains do not touch the meter.
	clock.Advance(DefaultLevelInterval)
	m.Drain()
	if len(snapshots) != 1 {
		t.Error("a drain without pairs emitted a snapshot")
	}
}

func TestMixer_Detach(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	m, system, mic := newTestMixer(rec)

	if got := m.Detach(); got != FrameWriter(rec) {
		t.Fatalf("Detach() = %v, want the recorder", got)
	}

	system.Push(1, 1)
	mic.Push(1, 1)
	if n := m.Drain(); n != 0 {
		t.Errorf("Drain() after Detach = %d, want 0", n)
	}
	if m.Detach() != nil {
		t.Error("second Detach() returned a writer")
	}
}

func TestMixer_ConcurrentDrain(t *testing.T) {
	t.Parallel()

	rec := &frameRecorder{}
	m, system, mic := newTestMixer(rec)

	const batches, size = 200, 64
	var wg sync.WaitGroup
	for _, buf := range []*RingBuffer{system, mic} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range batches {
				buf.Push(make([]float32, size)...)
				m.Drain()
			}
		}()
	}
	wg.Wait()
	m.Drain()

	if got, want := len(rec.Frames()), batches*size/2; got != want {
		t.Errorf("wrote %d frames, want %d", got, want)
	}
}
