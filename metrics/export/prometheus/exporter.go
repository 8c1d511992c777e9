package prometheus

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	goAuthGate "github.com/MrEthical07/goAuthGate"
	"github.com/MrEthical07/goAuthGate/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() goAuthGate.MetricsSnapshot
	AuditDropped() uint64
}

type statsSource interface {
	Stats(ctx context.Context) (goAuthGate.Stats, error)
}

// statsTimeout bounds the Stats call made on every scrape.
const statsTimeout = 2 * time.Second

// PrometheusExporter is a prometheus.Collector over an engine's metric
// snapshot. Values are read at scrape time; nothing is cached.
type PrometheusExporter struct {
	source metricsSource
	stats  statsSource

	counters     []*prometheus.Desc
	histograms   []*prometheus.Desc
	gauges       []*prometheus.Desc
	auditDropped *prometheus.Desc
}

// NewPrometheusExporter creates a collector that reads from engine.
func NewPrometheusExporter(engine *goAuthGate.Engine) *PrometheusExporter {
	if engine == nil {
		return NewPrometheusExporterFromSource(nil)
	}
	return NewPrometheusExporterFromSource(engine)
}

// NewPrometheusExporterFromSource creates a collector from a custom source.
// Sources that also report Stats get state-size gauges.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	p := &PrometheusExporter{
		source:       source,
		auditDropped: prometheus.NewDesc(internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, nil, nil),
	}
	p.stats, _ = source.(statsSource)

	for _, def := range internaldefs.CounterDefs {
		p.counters = append(p.counters, prometheus.NewDesc(def.Name, def.Help, nil, nil))
	}
	for _, def := range internaldefs.HistogramDefs {
		p.histograms = append(p.histograms, prometheus.NewDesc(def.Name, def.Help, nil, nil))
	}
	if p.stats != nil {
		for _, def := range internaldefs.GaugeDefs {
			p.gauges = append(p.gauges, prometheus.NewDesc(def.Name, def.Help, nil, nil))
		}
	}
	return p
}

// Describe implements prometheus.Collector.
func (p *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range p.counters {
		ch <- d
	}
	for _, d := range p.histograms {
		ch <- d
	}
	for _, d := range p.gauges {
		ch <- d
	}
	ch <- p.auditDropped
}

// Collect implements prometheus.Collector. Nothing is emitted while the
// engine's metrics are disabled.
func (p *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	if p == nil || p.source == nil {
		return
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return
	}

	for i, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(p.counters[i], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for j, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[j]
		}
		// Sum is not tracked by the engine.
		ch <- prometheus.MustNewConstHistogram(p.histograms[i], cumulative[len(cumulative)-1], 0, buckets)
	}

	if p.stats != nil {
		ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
		stats, err := p.stats.Stats(ctx)
		cancel()
		if err != nil {
			for _, d := range p.gauges {
				ch <- prometheus.NewInvalidMetric(d, err)
			}
		} else {
			for i, def := range internaldefs.GaugeDefs {
				ch <- prometheus.MustNewConstMetric(p.gauges[i], prometheus.GaugeValue, float64(def.Value(stats)))
			}
		}
	}

	ch <- prometheus.MustNewConstMetric(p.auditDropped, prometheus.CounterValue, float64(dropped))
}

// Handler serves this collector alone from a private registry.
func (p *PrometheusExporter) Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(p)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
