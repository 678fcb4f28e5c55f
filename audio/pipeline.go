// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// TrackKind identifies a capture source feeding the pipeline.
type TrackKind int

const (
	TrackSystem TrackKind = iota
	TrackMic
)

func (k TrackKind) String() string {
	switch k {
	case TrackSystem:
		return "system"
	case TrackMic:
		return "mic"
	default:
		return fmt.Sprintf("track(%d)", int(k))
	}
}

// TrackConfig describes one input of a Pipeline. A zero Weight means an
// equal share (1/N).
type TrackConfig struct {
	Kind   TrackKind
	Format Format
	Weight float32
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	levelHandler  func(Levels)
	levelInterval time.Duration
	metering      bool
	capacity      int
	observer      func(DrainStats)
	onError       func(error)
	clock         func() time.Time
}

// WithLevelHandler sets the receiver of throttled level snapshots. It is
// called from a capture callback and must not block.
func WithLevelHandler(fn func(Levels)) PipelineOption {
	return func(o *pipelineOptions) { o.levelHandler = fn }
}

// WithLevelInterval overrides DefaultLevelInterval.
func WithLevelInterval(d time.Duration) PipelineOption {
	return func(o *pipelineOptions) {
		if d > 0 {
			o.levelInterval = d
		}
	}
}

// WithoutMetering disables level tracking entirely.
func WithoutMetering() PipelineOption {
	return func(o *pipelineOptions) { o.metering = false }
}

// WithBufferCapacity bounds every track buffer to n samples, dropping the
// oldest on overflow. n <= 0 keeps the buffers unbounded.
func WithBufferCapacity(n int) PipelineOption {
	return func(o *pipelineOptions) { o.capacity = n }
}

// WithDrainObserver receives statistics for every drain.
func WithDrainObserver(fn func(DrainStats)) PipelineOption {
	return func(o *pipelineOptions) { o.observer = fn }
}

// WithWriteErrorHandler receives write errors the mixer swallows.
func WithWriteErrorHandler(fn func(error)) PipelineOption {
	return func(o *pipelineOptions) { o.onError = fn }
}

// WithClock replaces time.Now for the level throttle.
func WithClock(now func() time.Time) PipelineOption {
	return func(o *pipelineOptions) { o.clock = now }
}

// Track is the per-source half of the pipeline: it owns the source's
// converter and buffer.
type Track struct {
	kind   TrackKind
	format Format
	conv   *RateConverter // nil when the source already delivers TargetFormat
	buf    *RingBuffer
	tmp    []float32
}

func (t *Track) Kind() TrackKind { return t.kind }
func (t *Track) Format() Format { return t.format }
func (t *Track) Buffer() *RingBuffer { return t.buf }
func (t *Track) Converter() *RateConverter { return t.conv }

// Pipeline wires tracks, a Mixer and an optional LevelMeter together. One
// Pipeline serves one recording session.
type Pipeline struct {
	tracks []*Track
	mixer  *Mixer
	meter  *LevelMeter
}

// NewPipeline builds a pipeline writing to out. Tracks are mixed in the
// order given; list the system track first.
func NewPipeline(out FrameWriter, tracks []TrackConfig, opts ...PipelineOption) (*Pipeline, error) {
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}

	o := pipelineOptions{
		levelInterval: DefaultLevelInterval,
		metering:      true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{}
	inputs := make([]MixInput, 0, len(tracks))
	seen := make(map[TrackKind]bool, len(tracks))

	for _, tc := range tracks {
		if seen[tc.Kind] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTrack, tc.Kind)
		}
		seen[tc.Kind] = true

		t := &Track{
			kind:   tc.Kind,
			format: tc.Format,
			buf:    NewBoundedRingBuffer(o.capacity),
		}
		if tc.Format != TargetFormat {
			conv, err := NewRateConverter(tc.Format.SampleRate, tc.Format.Channels)
			if err != nil {
				return nil, fmt.Errorf("%s track: %w", tc.Kind, err)
			}
			t.conv = conv
		}

		weight := tc.Weight
		if weight == 0 {
			weight = 1 / float32(len(tracks))
		}

		p.tracks = append(p.tracks, t)
		inputs = append(inputs, MixInput{Buffer: t.buf, Weight: weight})
	}

	p.mixer = NewMixer(out, inputs...)
	p.mixer.SetObserver(o.observer)
	p.mixer.SetErrorHandler(o.onError)

	if o.metering {
		p.meter = NewLevelMeter(o.levelInterval, o.levelHandler)
		if o.clock != nil {
			p.meter.SetClock(o.clock)
		}
		p.mixer.SetMeter(p.meter)
	}

	return p, nil
}

// Track returns the track of the given kind, or nil.
func (p *Pipeline) Track(kind TrackKind) *Track {
	for _, t := range p.tracks {
		if t.kind == kind {
			return t
		}
	}
	return nil
}

func (p *Pipeline) Mixer() *Mixer { return p.mixer }
func (p *Pipeline) Meter() *LevelMeter { return p.meter }

// Feed is what a capture callback runs for every batch: record the batch
// level, convert to the target format, buffer, and drain. It returns the
// number of frames the drain wrote.
//
// Feed must not be called concurrently for the same track.
func (p *Pipeline) Feed(kind TrackKind, samples []float32) (int, error) {
	t := p.Track(kind)
	if t == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTrack, kind)
	}
	if len(samples) == 0 {
		return 0, nil
	}

	if p.meter != nil {
		p.meter.SetLevel(kind, RMS(samples))
	}

	if t.conv == nil {
		t.buf.Push(samples...)
	} else {
		t.tmp = t.conv.Convert(t.tmp[:0], samples)
		t.buf.Push(t.tmp...)
	}

	return p.mixer.Drain(), nil
}

// Drain runs one mixer drain without feeding anything.
func (p *Pipeline) Drain() int { return p.mixer.Drain() }

// Close detaches the writer, clears every buffer and resets the meter. The
// detached writer is returned for finalization.
func (p *Pipeline) Close() FrameWriter {
	out := p.mixer.Detach()
	for _, t := range p.tracks {
		t.buf.Clear()
		if t.conv != nil {
			t.conv.Reset()
		}
	}
	if p.meter != nil {
		p.meter.Reset()
	}
	return out
}
