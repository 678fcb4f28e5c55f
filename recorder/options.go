// SPDX-License-Identifier: EPL-2.0

package recorder

import (
	"log/slog"
	"time"

	"github.com/ik5/duorec/audio"
	"github.com/ik5/duorec/capture"
	"github.com/ik5/duorec/internal/observe"
)

// DefaultFilePrefix starts every output file name unless overridden.
const DefaultFilePrefix = "recording"

// Option configures a Controller.
type Option func(*options)

type options struct {
	outputDir     string
	prefix        string
	system        capture.Opener
	mic           capture.Opener
	systemWeight  float32
	micWeight     float32
	metering      bool
	levelInterval time.Duration
	capacity      int
	emitter       Emitter
	log           *slog.Logger
	metrics       *observe.Metrics
	now           func() time.Time
}

func defaultOptions() options {
	return options{
		outputDir:     ".",
		prefix:        DefaultFilePrefix,
		metering:      true,
		levelInterval: audio.DefaultLevelInterval,
		emitter:       nopEmitter{},
		now:           time.Now,
	}
}

// WithOutputDir sets the directory receiving recordings. It is created on
// Start when missing.
func WithOutputDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.outputDir = dir
		}
	}
}

// WithFilePrefix sets the file name prefix.
func WithFilePrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithSystemSource sets the opener of the system-audio source. Without it
// sessions record the microphone alone.
func WithSystemSource(open capture.Opener) Option {
	return func(o *options) { o.system = open }
}

// WithMicSource sets the opener of the microphone source. Without it
// sessions record system audio alone.
func WithMicSource(open capture.Opener) Option {
	return func(o *options) { o.mic = open }
}

// WithWeights sets the mix weight of each source. Zero means an equal
// share.
func WithWeights(system, mic float32) Option {
	return func(o *options) {
		o.systemWeight = system
		o.micWeight = mic
	}
}

// WithMetering turns level events on or off.
func WithMetering(on bool) Option {
	return func(o *options) { o.metering = on }
}

// WithLevelInterval sets the minimum spacing of level events.
func WithLevelInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.levelInterval = d
		}
	}
}

// WithBufferCapacity bounds each source buffer to n samples, dropping the
// oldest on overflow. Zero keeps buffers unbounded.
func WithBufferCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithEmitter sets the event sink.
func WithEmitter(e Emitter) Option {
	return func(o *options) {
		if e != nil {
			o.emitter = e
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics sets the instruments. Default: observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now for file names, session times and the level
// throttle.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
