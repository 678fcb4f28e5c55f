// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"math"
	"sync"
	"time"
)

// DefaultLevelInterval is the minimum spacing between two level emissions.
const DefaultLevelInterval = 50 * time.Millisecond

// RMS returns the root-mean-square of samples, or 0 for an empty batch.
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(samples))))
}

// Levels is one loudness snapshot handed to the host UI.
type Levels struct {
	Mic    float32   `json:"mic_level"`
	System float32   `json:"system_level"`
	Mixed  float32   `json:"mixed_level"`
	At     time.Time `json:"-"`
}

// LevelMeter keeps the latest per-track RMS values and throttles outward
// notifications to at most one per interval.
//
// Track levels are written by each capture callback at its own cadence and
// are not phase-aligned with the mixed level passed to Observe.
type LevelMeter struct {
	interval time.Duration
	now      func() time.Time
	emit     func(Levels)

	mu     sync.Mutex
	mic    float32
	system float32
	last   time.Time
}

// NewLevelMeter returns a meter calling emit at most once per interval.
// A nil emit turns Observe into bookkeeping only.
func NewLevelMeter(interval time.Duration, emit func(Levels)) *LevelMeter {
	if interval <= 0 {
		interval = DefaultLevelInterval
	}
	return &LevelMeter{
		interval: interval,
		now:      time.Now,
		emit:     emit,
	}
}

// SetClock replaces the time source. Meant for tests.
func (m *LevelMeter) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = now
}

// SetLevel records the latest level of a track, replacing the previous one.
func (m *LevelMeter) SetLevel(kind TrackKind, level float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case TrackMic:
		m.mic = level
	case TrackSystem:
		m.system = level
	}
}

// Snapshot returns the current track levels with the given mixed level.
func (m *LevelMeter) Snapshot(mixed float32) Levels {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Levels{Mic: m.mic, System: m.system, Mixed: mixed, At: m.now()}
}

// Observe is called after a drain that produced at least one mixed pair.
// It emits a snapshot when the interval has elapsed since the last emission
// and reports whether it did.
func (m *LevelMeter) Observe(mixed float32) bool {
	m.mu.Lock()
	now := m.now()
	if !m.last.IsZero() && now.Sub(m.last) < m.interval {
		m.mu.Unlock()
		return false
	}
	m.last = now
	levels := Levels{Mic: m.mic, System: m.system, Mixed: mixed, At: now}
	emit := m.emit
	m.mu.Unlock()

	if emit != nil {
		emit(levels)
	}
	return true
}

// Reset zeroes the track levels and the throttle timer.
func (m *LevelMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mic = 0
	m.system = 0
	m.last = time.Time{}
}
