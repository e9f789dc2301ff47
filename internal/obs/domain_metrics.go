package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ValuationRunsTotal counts valuation pipeline runs by outcome.
	ValuationRunsTotal *prometheus.CounterVec
	// ValuationRunDuration records end-to-end valuation run latency in milliseconds.
	ValuationRunDuration prometheus.Histogram
	// ValuationRowsLast tracks the row count produced by the most recent run.
	ValuationRowsLast prometheus.Gauge
	// MarketFetchTotal counts market aggregate fetches by outcome.
	MarketFetchTotal *prometheus.CounterVec
	// MarketStaleTotal counts fetches rejected by the freshness gate.
	MarketStaleTotal prometheus.Counter
	// CatalogLoadTotal counts static catalog load attempts by outcome.
	CatalogLoadTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ValuationRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "valuation_runs_total",
			Help:      "Count of valuation pipeline runs by outcome.",
		}, []string{"result"})
		ValuationRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "valuation_run_duration_ms",
			Help:      "End-to-end valuation run latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		})
		ValuationRowsLast = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "valuation_rows_last",
			Help:      "Row count produced by the most recent valuation run.",
		})
		MarketFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "market_fetch_total",
			Help:      "Count of market aggregate fetches by outcome.",
		}, []string{"result"})
		MarketStaleTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "market_stale_total",
			Help:      "Number of market responses rejected as stale.",
		})
		CatalogLoadTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_load_total",
			Help:      "Count of static catalog load attempts by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, ValuationRunsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ValuationRunsTotal = v
			}
		})
		mustRegisterCollector(reg, ValuationRunDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				ValuationRunDuration = v
			}
		})
		mustRegisterCollector(reg, ValuationRowsLast, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				ValuationRowsLast = v
			}
		})
		mustRegisterCollector(reg, MarketFetchTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				MarketFetchTotal = v
			}
		})
		mustRegisterCollector(reg, MarketStaleTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				MarketStaleTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogLoadTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogLoadTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, c prometheus.Collector, replace func(prometheus.Collector)) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			replace(are.ExistingCollector)
			return
		}
		panic(err)
	}
}
