// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"math"
	"sync"
)

// FrameWriter receives mixed stereo frames.
type FrameWriter interface {
	WriteFrame(left, right float32) error
}

// MixInput is one buffer feeding the Mixer and the gain applied to it.
type MixInput struct {
	Buffer *RingBuffer
	Weight float32
}

// DrainStats describes one Drain call.
type DrainStats struct {
	Pairs       int
	WriteErrors int
	Emitted     bool
	Backlog     []int // samples left in each input, in input order
}

// Mixer pairs samples from its inputs by FIFO position, applies the input
// weights, and writes the result. It is the only consumer of the buffers.
//
// Drain may be called concurrently from every capture callback. Each call
// takes the input buffer locks in declaration order and then the output
// lock, so all call sites agree on the order.
type Mixer struct {
	inputs []MixInput

	outMu sync.Mutex
	out   FrameWriter

	meter    *LevelMeter
	observer func(DrainStats)
	onError  func(error)
}

// NewMixer returns a Mixer writing to out. With two inputs at weight 0.5
// each the output is the plain average.
func NewMixer(out FrameWriter, inputs ...MixInput) *Mixer {
	in := make([]MixInput, len(inputs))
	copy(in, inputs)
	return &Mixer{inputs: in, out: out}
}

// SetMeter attaches the LevelMeter updated after each productive drain.
// It must be called before the first Drain.
func (m *Mixer) SetMeter(meter *LevelMeter) { m.meter = meter }

// SetObserver registers a callback receiving per-drain statistics. It runs
// inside the critical section and must not block.
func (m *Mixer) SetObserver(fn func(DrainStats)) { m.observer = fn }

// SetErrorHandler registers a callback for swallowed write errors.
func (m *Mixer) SetErrorHandler(fn func(error)) { m.onError = fn }

// Drain mixes every currently pairable sample and returns the number of
// frames written. Unpaired tail samples stay buffered.
func (m *Mixer) Drain() int {
	if len(m.inputs) == 0 {
		return 0
	}

	for _, in := range m.inputs {
		in.Buffer.mu.Lock()
	}
	m.outMu.Lock()
	defer func() {
		m.outMu.Unlock()
		for i := len(m.inputs) - 1; i >= 0; i-- {
			m.inputs[i].Buffer.mu.Unlock()
		}
	}()

	if m.out == nil {
		return 0
	}

	var (
		stats DrainStats
		sum   float64
	)

	for m.pairableLocked() {
		var left, right float32
		for _, in := range m.inputs {
			l, r, _ := in.Buffer.popPairLocked()
			left += in.Weight * l
			right += in.Weight * r
		}

		if err := m.out.WriteFrame(left, right); err != nil {
			stats.WriteErrors++
			if m.onError != nil {
				m.onError(err)
			}
		}

		sum += (float64(left)*float64(left) + float64(right)*float64(right)) / 2
		stats.Pairs++
	}

	if stats.Pairs > 0 && m.meter != nil {
		stats.Emitted = m.meter.Observe(float32(math.Sqrt(sum / float64(stats.Pairs))))
	}

	if m.observer != nil {
		stats.Backlog = make([]int, len(m.inputs))
		for i, in := range m.inputs {
			stats.Backlog[i] = in.Buffer.lenLocked()
		}
		m.observer(stats)
	}

	return stats.Pairs
}

// Detach removes the output under the full lock set and returns it. Later
// drains become no-ops, so the caller may finalize the writer safely.
func (m *Mixer) Detach() FrameWriter {
	for _, in := range m.inputs {
		in.Buffer.mu.Lock()
	}
	m.outMu.Lock()
	defer func() {
		m.outMu.Unlock()
		for i := len(m.inputs) - 1; i >= 0; i-- {
			m.inputs[i].Buffer.mu.Unlock()
		}
	}()

	out := m.out
	m.out = nil
	return out
}

func (m *Mixer) pairableLocked() bool {
	for _, in := range m.inputs {
		if in.Buffer.lenLocked() < 2 {
			return false
		}
	}
	return true
}
