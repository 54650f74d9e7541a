package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClassifySweepError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", context.DeadlineExceeded, SweepErrorTypeDeadlineExceeded},
		{"gateway", errors.New("gateway unavailable: timeout"), SweepErrorTypeGateway},
		{"db", errors.New("sql: connection refused"), SweepErrorTypeDB},
		{"other", errors.New("boom"), SweepErrorTypeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySweepError(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestSweepMetricsRecordIntent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newSweepMetrics(reg, Config{ServiceName: "kirana-test", Environment: "test"})

	m.RecordIntent("status_changed")
	m.RecordIntent("status_changed")
	m.RecordIntent("unchanged")

	if got := testutil.ToFloat64(m.intentsSynced.WithLabelValues("status_changed")); got != 2 {
		t.Fatalf("expected 2 status_changed intents, got %v", got)
	}
	if got := testutil.ToFloat64(m.intentsSynced.WithLabelValues("unchanged")); got != 1 {
		t.Fatalf("expected 1 unchanged intent, got %v", got)
	}
}
