package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector bridges a Collector into the Prometheus exposition
// model. Each scrape snapshots every known primitive record and emits const
// metrics, so the bridge holds no state of its own.
type PrometheusCollector struct {
	collector *Collector

	executions  *prometheus.Desc
	latency     *prometheus.Desc
	compliant   *prometheus.Desc
	errorBudget *prometheus.Desc
	throughput  *prometheus.Desc
	active      *prometheus.Desc
	cost        *prometheus.Desc
	savings     *prometheus.Desc
	savingsRate *prometheus.Desc
}

// NewPrometheusCollector creates a bridge over c.
func NewPrometheusCollector(c *Collector) *PrometheusCollector {
	return &PrometheusCollector{
		collector: c,
		executions: prometheus.NewDesc(
			"loom_executions_total",
			"Primitive executions by outcome.",
			[]string{"primitive", "outcome"}, nil,
		),
		latency: prometheus.NewDesc(
			"loom_latency_seconds",
			"Latency percentiles over the rolling sample window.",
			[]string{"primitive", "quantile"}, nil,
		),
		compliant: prometheus.NewDesc(
			"loom_slo_compliant",
			"1 when both availability and latency-rate objectives hold.",
			[]string{"primitive"}, nil,
		),
		errorBudget: prometheus.NewDesc(
			"loom_error_budget_remaining",
			"Fraction of the availability error budget remaining, clamped at 0.",
			[]string{"primitive"}, nil,
		),
		throughput: prometheus.NewDesc(
			"loom_throughput_rps",
			"Requests per second over the trailing minute.",
			[]string{"primitive"}, nil,
		),
		active: prometheus.NewDesc(
			"loom_active_requests",
			"Executions currently in flight.",
			[]string{"primitive"}, nil,
		),
		cost: prometheus.NewDesc(
			"loom_cost_total",
			"Accumulated execution cost.",
			[]string{"primitive"}, nil,
		),
		savings: prometheus.NewDesc(
			"loom_savings_total",
			"Accumulated cost avoided by cache hits.",
			[]string{"primitive"}, nil,
		),
		savingsRate: prometheus.NewDesc(
			"loom_savings_rate",
			"savings / (cost + savings).",
			[]string{"primitive"}, nil,
		),
	}
}

func (p *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.executions
	ch <- p.latency
	ch <- p.compliant
	ch <- p.errorBudget
	ch <- p.throughput
	ch <- p.active
	ch <- p.cost
	ch <- p.savings
	ch <- p.savingsRate
}

func (p *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	for name, snap := range p.collector.Snapshots() {
		ch <- prometheus.MustNewConstMetric(p.executions, prometheus.CounterValue,
			float64(snap.Successes), name, "success")
		ch <- prometheus.MustNewConstMetric(p.executions, prometheus.CounterValue,
			float64(snap.Failures), name, "error")

		ch <- prometheus.MustNewConstMetric(p.latency, prometheus.GaugeValue,
			snap.P50.Seconds(), name, "0.5")
		ch <- prometheus.MustNewConstMetric(p.latency, prometheus.GaugeValue,
			snap.P90.Seconds(), name, "0.9")
		ch <- prometheus.MustNewConstMetric(p.latency, prometheus.GaugeValue,
			snap.P95.Seconds(), name, "0.95")
		ch <- prometheus.MustNewConstMetric(p.latency, prometheus.GaugeValue,
			snap.P99.Seconds(), name, "0.99")

		compliant := 0.0
		if snap.Compliant {
			compliant = 1.0
		}
		ch <- prometheus.MustNewConstMetric(p.compliant, prometheus.GaugeValue,
			compliant, name)
		ch <- prometheus.MustNewConstMetric(p.errorBudget, prometheus.GaugeValue,
			snap.ErrorBudgetRemaining, name)
		ch <- prometheus.MustNewConstMetric(p.throughput, prometheus.GaugeValue,
			snap.Throughput, name)
		ch <- prometheus.MustNewConstMetric(p.active, prometheus.GaugeValue,
			float64(snap.Active), name)
		ch <- prometheus.MustNewConstMetric(p.cost, prometheus.CounterValue,
			snap.Cost, name)
		ch <- prometheus.MustNewConstMetric(p.savings, prometheus.CounterValue,
			snap.Savings, name)
		ch <- prometheus.MustNewConstMetric(p.savingsRate, prometheus.GaugeValue,
			snap.SavingsRate, name)
	}
}

// Handler returns an http.Handler serving c in the Prometheus text
// exposition format, suitable for mounting at /metrics.
func Handler(c *Collector) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewPrometheusCollector(c))
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
