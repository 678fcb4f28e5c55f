// SPDX-License-Identifier: EPL-2.0

// Package filesrc replays a decoded audio file as a capture.Device, feeding
// the handler from its own goroutine at the file's real-time rate.
package filesrc

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/ik5/duorec/audio"
	"github.com/ik5/duorec/capture"
)

// DefaultPeriod is the spacing between two delivered batches.
const DefaultPeriod = 10 * time.Millisecond

// Option configures a Source.
type Option func(*Source)

// WithPeriod sets the batch period. Zero replays as fast as the handler
// consumes, which is what tests and offline runs want.
func WithPeriod(d time.Duration) Option {
	return func(s *Source) {
		if d >= 0 {
			s.period = d
		}
	}
}

// WithLogger sets the logger for read errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) { s.log = l }
}

// WithOnEOF registers a callback run on the replay goroutine once the file
// is exhausted or a read fails.
func WithOnEOF(fn func(err error)) Option {
	return func(s *Source) { s.onEOF = fn }
}

// Source is a capture.Device backed by an audio.Source.
type Source struct {
	src    audio.Source
	format audio.Format
	period time.Duration
	log    *slog.Logger
	onEOF  func(error)

	mu      sync.Mutex
	started bool
	stopped bool
	quit    chan struct{}
	done    chan struct{}
}

var _ capture.Device = (*Source)(nil)

// New wraps src. The Source owns src and closes it on Stop.
func New(src audio.Source, opts ...Option) *Source {
	s := &Source{
		src:    src,
		format: audio.FormatOf(src),
		period: DefaultPeriod,
		log:    slog.Default(),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open decodes path with the decoder registered for its extension.
func Open(path string, registry *audio.Registry, opts ...Option) (*Source, error) {
	src, err := registry.Open(path)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("%w: %w", capture.ErrSourceUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %w", capture.ErrUnsupportedFormat, err)
	}
	return New(src, opts...), nil
}

// Opener defers Open to session start, so each session replays the file
// from the beginning.
func Opener(path string, registry *audio.Registry, opts ...Option) capture.Opener {
	return func() (capture.Device, error) {
		s, err := Open(path, registry, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func (s *Source) Format() audio.Format { return s.format }

func (s *Source) Start(h capture.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return capture.ErrAlreadyStarted
	}
	s.started = true

	go s.run(h)
	return nil
}

// Stop halts the replay, waits for the goroutine and closes the file.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	if s.started {
		close(s.quit)
		<-s.done
	}

	if err := s.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// Done is closed once the replay goroutine exits.
func (s *Source) Done() <-chan struct{} { return s.done }

func (s *Source) run(h capture.Handler) {
	defer close(s.done)

	frames := s.format.SampleRate * int(max(s.period, time.Millisecond)) / int(time.Second)
	buf := make([]float32, max(frames, 1)*s.format.Channels)

	var tick <-chan time.Time
	if s.period > 0 {
		t := time.NewTicker(s.period)
		defer t.Stop()
		tick = t.C
	}

	for {
		if tick != nil {
			select {
			case <-s.quit:
				return
			case <-tick:
			}
		} else {
			select {
			case <-s.quit:
				return
			default:
			}
		}

		n, err := s.src.ReadSamples(buf)
		if n > 0 {
			h(buf[:n])
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Error("file source read failed", slog.Any("err", err))
			} else {
				err = nil
			}
			if s.onEOF != nil {
				s.onEOF(err)
			}
			return
		}
	}
}
