// SPDX-License-Identifier: EPL-2.0

package observe

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ik5/duorec/audio"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q: got %T, want Sum[int64]", name, met.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordDrain(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordDrain(ctx, audio.DrainStats{Pairs: 480, WriteErrors: 2, Emitted: true, Backlog: []int{0, 96}}, []string{"system", "mic"})
	m.RecordDrain(ctx, audio.DrainStats{Pairs: 20, Backlog: []int{4, 0}}, []string{"system", "mic"})
	m.RecordDrain(ctx, audio.DrainStats{Backlog: []int{6, 0}}, []string{"system", "mic"})

	rm := collect(t, reader)

	if got := sumOf(t, rm, "duorec.mixer.drains"); got != 2 {
		t.Errorf("drains: got %d, want 2", got)
	}
	if got := sumOf(t, rm, "duorec.mixer.pairs"); got != 500 {
		t.Errorf("pairs: got %d, want 500", got)
	}
	if got := sumOf(t, rm, "duorec.writer.errors"); got != 2 {
		t.Errorf("writer errors: got %d, want 2", got)
	}
	if got := sumOf(t, rm, "duorec.levels.emitted"); got != 1 {
		t.Errorf("levels emitted: got %d, want 1", got)
	}

	met := findMetric(rm, "duorec.buffer.backlog")
	if met == nil {
		t.Fatal("backlog histogram not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("backlog: got %T, want Histogram[int64]", met.Data)
	}
	counts := map[string]uint64{}
	for _, dp := range hist.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("source"))
		counts[v.AsString()] += dp.Count
	}
	if counts["system"] != 3 || counts["mic"] != 3 {
		t.Errorf("backlog samples per source: got %v, want 3 each", counts)
	}
}

func TestRecordSession(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveSessions.Add(ctx, 1)
	m.ActiveSessions.Add(ctx, -1)
	m.RecordSession(ctx, 12.5, map[string]uint64{"system": 0, "mic": 40})

	rm := collect(t, reader)

	if got := sumOf(t, rm, "duorec.sessions.active"); got != 0 {
		t.Errorf("active sessions: got %d, want 0", got)
	}
	if got := sumOf(t, rm, "duorec.buffer.dropped"); got != 40 {
		t.Errorf("dropped: got %d, want 40", got)
	}

	met := findMetric(rm, "duorec.session.duration")
	if met == nil {
		t.Fatal("session duration not found")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Sum != 12.5 {
		t.Errorf("session duration: got %+v, want one point summing 12.5", hist.DataPoints)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	m, reader := newTestMetrics(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := Middleware(m, log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusConflict)
	}

	rm := collect(t, reader)
	met := findMetric(rm, "duorec.http.request.duration")
	if met == nil {
		t.Fatal("request duration not found")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 {
		t.Fatalf("data points: got %d, want 1", len(hist.DataPoints))
	}
	status, _ := hist.DataPoints[0].Attributes.Value(attribute.Key("status"))
	if status.AsString() != "409" {
		t.Errorf("status attribute: got %q, want %q", status.AsString(), "409")
	}
}
