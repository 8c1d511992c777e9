package prometheus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goAuthGate "github.com/MrEthical07/goAuthGate"
)

type fakeSource struct {
	snapshot goAuthGate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goAuthGate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

type statsSourceFake struct {
	fakeSource
	stats goAuthGate.Stats
	err   error
}

func (s statsSourceFake) Stats(context.Context) (goAuthGate.Stats, error) { return s.stats, s.err }

func TestCollectEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthGate.MetricsSnapshot{
			Counters:   map[goAuthGate.MetricID]uint64{},
			Histograms: map[goAuthGate.MetricID][]uint64{},
		},
	})

	assert.Equal(t, 0, testutil.CollectAndCount(exp))
}

func TestCollectCountersAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthGate.MetricsSnapshot{
			Counters: map[goAuthGate.MetricID]uint64{
				goAuthGate.MetricLoginSuccess: 7,
			},
			Histograms: map[goAuthGate.MetricID][]uint64{
				goAuthGate.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	expected := `
# HELP goauthgate_login_success_total Successful password logins.
# TYPE goauthgate_login_success_total counter
goauthgate_login_success_total 7
# HELP goauthgate_audit_dropped_total Dropped audit events due to dispatcher backpressure.
# TYPE goauthgate_audit_dropped_total counter
goauthgate_audit_dropped_total 2
`
	require.NoError(t, testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"goauthgate_login_success_total", "goauthgate_audit_dropped_total"))

	expectedHist := `
# HELP goauthgate_validate_latency_seconds ValidateAccess latency histogram.
# TYPE goauthgate_validate_latency_seconds histogram
goauthgate_validate_latency_seconds_bucket{le="0.005"} 1
goauthgate_validate_latency_seconds_bucket{le="0.01"} 3
goauthgate_validate_latency_seconds_bucket{le="0.025"} 6
goauthgate_validate_latency_seconds_bucket{le="0.05"} 10
goauthgate_validate_latency_seconds_bucket{le="0.1"} 15
goauthgate_validate_latency_seconds_bucket{le="0.25"} 21
goauthgate_validate_latency_seconds_bucket{le="0.5"} 28
goauthgate_validate_latency_seconds_bucket{le="+Inf"} 36
goauthgate_validate_latency_seconds_sum 0
goauthgate_validate_latency_seconds_count 36
`
	require.NoError(t, testutil.CollectAndCompare(exp, strings.NewReader(expectedHist),
		"goauthgate_validate_latency_seconds"))
}

func TestCollectStatsGauges(t *testing.T) {
	exp := NewPrometheusExporterFromSource(statsSourceFake{
		fakeSource: fakeSource{snapshot: goAuthGate.MetricsSnapshot{
			Counters: map[goAuthGate.MetricID]uint64{goAuthGate.MetricLogout: 1},
		}},
		stats: goAuthGate.Stats{ActiveFamilies: 3, RevokedTokens: 5, ThrottleCounters: 1},
	})

	expected := `
# HELP goauthgate_active_families Refresh families currently tracked.
# TYPE goauthgate_active_families gauge
goauthgate_active_families 3
# HELP goauthgate_revoked_tokens Entries in the revocation store.
# TYPE goauthgate_revoked_tokens gauge
goauthgate_revoked_tokens 5
`
	require.NoError(t, testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"goauthgate_active_families", "goauthgate_revoked_tokens"))
}

func TestCollectStatsErrorIsReported(t *testing.T) {
	exp := NewPrometheusExporterFromSource(statsSourceFake{
		fakeSource: fakeSource{snapshot: goAuthGate.MetricsSnapshot{
			Counters: map[goAuthGate.MetricID]uint64{goAuthGate.MetricLogout: 1},
		}},
		err: errors.New("redis down"),
	})

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(exp))
	_, err := reg.Gather()
	assert.Error(t, err)
}

func TestHandlerServesPrivateRegistry(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthGate.MetricsSnapshot{
			Counters:   map[goAuthGate.MetricID]uint64{goAuthGate.MetricLoginSuccess: 1},
			Histograms: map[goAuthGate.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "goauthgate_login_success_total 1")
	assert.NotContains(t, rec.Body.String(), "go_goroutines")
}

func TestEngineExporterRegisters(t *testing.T) {
	engine, err := goAuthGate.New().
		WithConfig(func() goAuthGate.Config {
			cfg := goAuthGate.DefaultConfig()
			cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
			return cfg
		}()).
		WithMetricsEnabled(true).
		WithDefaultProvider(goAuthGate.NewLocalProvider(nil, 0, nil)).
		Build()
	require.NoError(t, err)
	defer engine.Close()

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewPrometheusExporter(engine)))
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
