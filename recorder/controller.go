// SPDX-License-Identifier: EPL-2.0

// Package recorder runs recording sessions: it opens the capture sources,
// feeds them through an audio.Pipeline into a WAV file and tears everything
// down again on Stop.
//
// A Controller holds at most one live session. Start, Stop and Toggle are
// serialized by the Controller's lock; capture callbacks never take it.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ik5/duorec/audio"
	"github.com/ik5/duorec/capture"
	"github.com/ik5/duorec/formats/wav"
	"github.com/ik5/duorec/internal/observe"
)

// Status describes the controller state.
type Status struct {
	Recording bool      `json:"recording"`
	Path      string    `json:"path,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Frames    uint64    `json:"frames"`
}

// Controller owns the Idle/Recording state machine.
type Controller struct {
	opts    options
	log     *slog.Logger
	metrics *observe.Metrics

	mu      sync.Mutex
	session *session
}

type session struct {
	id       string
	path     string
	started  time.Time
	writer   *wav.Writer
	pipeline *audio.Pipeline
	devices  []capture.Device
	kinds    []audio.TrackKind
}

// New returns an idle Controller.
func New(opts ...Option) *Controller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Controller{opts: o, log: o.log, metrics: o.metrics}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Start opens both sources and begins recording. It returns the absolute
// path of the output file.
func (c *Controller) Start() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.startLocked()
}

// Stop ends the session and finalizes the file. The controller is idle
// afterwards even when finalization fails.
func (c *Controller) Stop() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stopLocked()
}

// Toggle starts when idle and stops when recording, deciding under the
// controller lock. It returns whether a session is live afterwards.
func (c *Controller) Toggle() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		_, err := c.startLocked()
		return c.session != nil, err
	}
	_, err := c.stopLocked()
	return c.session != nil, err
}

// IsRecording reports whether a session is live.
func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session != nil
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return Status{}
	}
	return Status{
		Recording: true,
		Path:      s.path,
		SessionID: s.id,
		StartedAt: s.started,
		Frames:    s.writer.Frames(),
	}
}

func (c *Controller) startLocked() (string, error) {
	if c.session != nil {
		return "", ErrAlreadyRecording
	}
	if c.opts.system == nil && c.opts.mic == nil {
		return "", ErrNoSources
	}

	now := c.opts.now()
	dir, err := filepath.Abs(c.opts.outputDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}

	path, err := nextPath(dir, c.opts.prefix, now)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	writer, err := wav.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}

	s := &session{
		id:      uuid.NewString(),
		path:    path,
		started: now,
		writer:  writer,
	}
	log := c.log.With(slog.String("session_id", s.id))

	// abort releases everything acquired so far. Devices that were opened
	// but never started are released by Stop as well.
	abort := func(cause error) (string, error) {
		for _, dev := range s.devices {
			if err := dev.Stop(); err != nil {
				log.Warn("release capture source", slog.Any("err", err))
			}
		}
		if err := writer.Close(); err != nil {
			log.Warn("close aborted recording", slog.String("path", path), slog.Any("err", err))
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("remove aborted recording", slog.String("path", path), slog.Any("err", err))
		}
		return "", cause
	}

	var tracks []audio.TrackConfig
	for _, src := range []struct {
		kind   audio.TrackKind
		open   capture.Opener
		weight float32
	}{
		{audio.TrackSystem, c.opts.system, c.opts.systemWeight},
		{audio.TrackMic, c.opts.mic, c.opts.micWeight},
	} {
		if src.open == nil {
			continue
		}
		dev, err := src.open()
		if err != nil {
			return abort(fmt.Errorf("open %s source: %w", src.kind, err))
		}
		s.devices = append(s.devices, dev)
		s.kinds = append(s.kinds, src.kind)
		tracks = append(tracks, audio.TrackConfig{Kind: src.kind, Format: dev.Format(), Weight: src.weight})
	}

	p, err := audio.NewPipeline(writer, tracks, c.pipelineOptions(log)...)
	if err != nil {
		return abort(fmt.Errorf("%w: %w", capture.ErrUnsupportedFormat, err))
	}
	s.pipeline = p

	for i, dev := range s.devices {
		kind := s.kinds[i]
		err := dev.Start(func(samples []float32) {
			_, _ = p.Feed(kind, samples)
		})
		if err != nil {
			return abort(fmt.Errorf("start %s source: %w", kind, err))
		}
	}

	c.session = s
	c.metrics.ActiveSessions.Add(context.Background(), 1)
	log.Info("recording started", slog.String("path", path), slog.Int("sources", len(s.devices)))
	c.opts.emitter.Emit(EventRecordingStatus, StatusPayload{Recording: true, Path: path})

	return path, nil
}

func (c *Controller) pipelineOptions(log *slog.Logger) []audio.PipelineOption {
	var writeErrs atomic.Uint64
	names := make([]string, 0, 2)
	if c.opts.system != nil {
		names = append(names, audio.TrackSystem.String())
	}
	if c.opts.mic != nil {
		names = append(names, audio.TrackMic.String())
	}

	opts := []audio.PipelineOption{
		audio.WithBufferCapacity(c.opts.capacity),
		audio.WithClock(c.opts.now),
		audio.WithDrainObserver(func(stats audio.DrainStats) {
			c.metrics.RecordDrain(context.Background(), stats, names)
		}),
		audio.WithWriteErrorHandler(func(err error) {
			// Runs on a capture thread for every failed frame.
			if writeErrs.Add(1) == 1 {
				log.Warn("dropping frames the writer rejected", slog.Any("err", err))
			}
		}),
	}
	if !c.opts.metering {
		return append(opts, audio.WithoutMetering())
	}
	return append(opts,
		audio.WithLevelInterval(c.opts.levelInterval),
		audio.WithLevelHandler(func(l audio.Levels) {
			c.opts.emitter.Emit(EventAudioLevels, l)
		}),
	)
}

func (c *Controller) stopLocked() (string, error) {
	s := c.session
	if s == nil {
		return "", ErrNotRecording
	}
	c.session = nil
	log := c.log.With(slog.String("session_id", s.id))

	for i, dev := range s.devices {
		if err := dev.Stop(); err != nil {
			log.Warn("stop capture source", slog.String("source", s.kinds[i].String()), slog.Any("err", err))
		}
	}

	s.pipeline.Drain()

	dropped := make(map[string]uint64, len(s.kinds))
	for _, kind := range s.kinds {
		dropped[kind.String()] = s.pipeline.Track(kind).Buffer().Dropped()
	}
	frames := s.writer.Frames()

	s.pipeline.Close()
	closeErr := s.writer.Close()

	elapsed := c.opts.now().Sub(s.started)
	ctx := context.Background()
	c.metrics.ActiveSessions.Add(ctx, -1)
	c.metrics.RecordSession(ctx, elapsed.Seconds(), dropped)

	c.opts.emitter.Emit(EventRecordingStatus, StatusPayload{Recording: false, Path: s.path})

	if closeErr != nil {
		log.Error("finalize recording", slog.String("path", s.path), slog.Any("err", closeErr))
		return "", fmt.Errorf("%w: finalize %s: %w", ErrIO, s.path, closeErr)
	}

	log.Info("recording stopped",
		slog.String("path", s.path),
		slog.Uint64("frames", frames),
		slog.Duration("duration", elapsed),
	)
	return s.path, nil
}

// nextPath returns dir/<prefix>_YYYYMMDD_HHMMSS.wav, adding _1, _2, ... when
// the name is taken.
func nextPath(dir, prefix string, now time.Time) (string, error) {
	base := prefix + "_" + now.Format("20060102_150405")
	for n := 0; n < 1000; n++ {
		name := base + ".wav"
		if n > 0 {
			name = fmt.Sprintf("%s_%d.wav", base, n)
		}
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free file name for %s in %s", base, dir)
}
