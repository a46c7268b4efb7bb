package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics for the conversion service
// and implements convert.MetricsRecorder.
type Collector struct {
	gatherer prometheus.Gatherer

	Conversions        *prometheus.CounterVec
	ConversionDuration prometheus.Histogram
	EOPLookups         *prometheus.CounterVec
	EOPLookupDuration  prometheus.Histogram

	EOPTableRows    prometheus.Gauge
	EOPTableLastMJD prometheus.Gauge
}

// NewCollector registers the conversion metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	conversions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timescale_conversions_total",
		Help: "Total TDB to TT conversions, labeled by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	conversionDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timescale_conversion_duration_seconds",
		Help:    "Wall-clock latency of a full conversion.",
		Buckets: []float64{1e-6, 1e-5, 1e-4, 1e-3, 0.01, 0.1, 1, 10},
	}))
	if err != nil {
		return nil, err
	}

	lookups, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timescale_eop_lookups_total",
		Help: "Earth-orientation TT-UT1 lookups, labeled by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	lookupDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timescale_eop_lookup_duration_seconds",
		Help:    "Latency of Earth-orientation lookups.",
		Buckets: []float64{1e-6, 1e-5, 1e-4, 1e-3, 0.01, 0.1, 1, 10},
	}))
	if err != nil {
		return nil, err
	}

	rows, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timescale_eop_table_rows",
		Help: "Rows in the Earth-orientation table currently in service.",
	}))
	if err != nil {
		return nil, err
	}

	lastMJD, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timescale_eop_table_last_mjd",
		Help: "Last MJD covered by the Earth-orientation table.",
	}))
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:           gatherer,
		Conversions:        conversions,
		ConversionDuration: conversionDuration,
		EOPLookups:         lookups,
		EOPLookupDuration:  lookupDuration,
		EOPTableRows:       rows,
		EOPTableLastMJD:    lastMJD,
	}, nil
}

// RecordConversion implements convert.MetricsRecorder.
func (c *Collector) RecordConversion(outcome string, d time.Duration) {
	c.Conversions.WithLabelValues(outcome).Inc()
	c.ConversionDuration.Observe(d.Seconds())
}

// RecordEOPLookup implements convert.MetricsRecorder.
func (c *Collector) RecordEOPLookup(outcome string, d time.Duration) {
	c.EOPLookups.WithLabelValues(outcome).Inc()
	c.EOPLookupDuration.Observe(d.Seconds())
}

// SetTableStats publishes the size and coverage of the EOP table after
// a load or refresh.
func (c *Collector) SetTableStats(rows int, lastMJD float64) {
	c.EOPTableRows.Set(float64(rows))
	c.EOPTableLastMJD.Set(lastMJD)
}

// Handler exposes the metrics endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, cv *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return cv, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return g, nil
}
