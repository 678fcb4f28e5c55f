// SPDX-License-Identifier: EPL-2.0

// Package observe holds the OpenTelemetry instruments used by the recorder
// and the control server.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ik5/duorec/audio"
)

const meterName = "github.com/ik5/duorec"

// Metrics holds every instrument duorec records.
type Metrics struct {
	// MixerDrains counts Drain calls that wrote at least one frame.
	MixerDrains metric.Int64Counter
	// MixerPairs counts stereo frames produced by the mixer.
	MixerPairs metric.Int64Counter
	// WriterErrors counts frames the output writer rejected.
	WriterErrors metric.Int64Counter
	// LevelsEmitted counts audio-levels events sent to the host.
	LevelsEmitted metric.Int64Counter
	// BufferBacklog samples the number of buffered samples per source after
	// each drain. Attribute: source.
	BufferBacklog metric.Int64Histogram
	// BufferDropped counts samples discarded by bounded buffers.
	// Attribute: source.
	BufferDropped metric.Int64Counter
	// ActiveSessions is 1 while a recording is in progress.
	ActiveSessions metric.Int64UpDownCounter
	// SessionDuration records the wall-clock length of finished recordings.
	SessionDuration metric.Float64Histogram
	// HTTPRequestDuration records control server latency.
	// Attributes: method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var (
		met Metrics
		err error
	)

	if met.MixerDrains, err = m.Int64Counter("duorec.mixer.drains",
		metric.WithDescription("Drain passes that produced output frames."),
	); err != nil {
		return nil, err
	}
	if met.MixerPairs, err = m.Int64Counter("duorec.mixer.pairs",
		metric.WithDescription("Stereo frames produced by the mixer."),
		metric.WithUnit("{frame}"),
	); err != nil {
		return nil, err
	}
	if met.WriterErrors, err = m.Int64Counter("duorec.writer.errors",
		metric.WithDescription("Frames rejected by the output writer."),
	); err != nil {
		return nil, err
	}
	if met.LevelsEmitted, err = m.Int64Counter("duorec.levels.emitted",
		metric.WithDescription("Audio level events emitted to the host."),
	); err != nil {
		return nil, err
	}
	if met.BufferBacklog, err = m.Int64Histogram("duorec.buffer.backlog",
		metric.WithDescription("Samples waiting in a source buffer after a drain."),
		metric.WithUnit("{sample}"),
		metric.WithExplicitBucketBoundaries(0, 2, 64, 480, 960, 4800, 9600, 48000, 96000),
	); err != nil {
		return nil, err
	}
	if met.BufferDropped, err = m.Int64Counter("duorec.buffer.dropped",
		metric.WithDescription("Samples discarded by bounded source buffers."),
		metric.WithUnit("{sample}"),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("duorec.sessions.active",
		metric.WithDescription("Recording sessions in progress."),
	); err != nil {
		return nil, err
	}
	if met.SessionDuration, err = m.Float64Histogram("duorec.session.duration",
		metric.WithDescription("Length of finished recording sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("duorec.http.request.duration",
		metric.WithDescription("Control server request latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5),
	); err != nil {
		return nil, err
	}

	return &met, nil
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics returns instruments built from the global MeterProvider.
// It panics if instrument creation fails, which only happens on programmer
// error (invalid names or bucket boundaries).
func DefaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is shorthand for a metric option carrying a single string attribute.
func Attr(key, value string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String(key, value))
}

// RecordDrain records one mixer pass. sources names the mixer inputs in
// input order and labels the backlog samples.
func (m *Metrics) RecordDrain(ctx context.Context, stats audio.DrainStats, sources []string) {
	if stats.Pairs > 0 {
		m.MixerDrains.Add(ctx, 1)
		m.MixerPairs.Add(ctx, int64(stats.Pairs))
	}
	if stats.WriteErrors > 0 {
		m.WriterErrors.Add(ctx, int64(stats.WriteErrors))
	}
	if stats.Emitted {
		m.LevelsEmitted.Add(ctx, 1)
	}
	for i, n := range stats.Backlog {
		name := "unknown"
		if i < len(sources) {
			name = sources[i]
		}
		m.BufferBacklog.Record(ctx, int64(n), Attr("source", name))
	}
}

// RecordSession records a finished recording of the given length.
func (m *Metrics) RecordSession(ctx context.Context, seconds float64, dropped map[string]uint64) {
	m.SessionDuration.Record(ctx, seconds)
	for source, n := range dropped {
		if n > 0 {
			m.BufferDropped.Add(ctx, int64(n), Attr("source", source))
		}
	}
}
