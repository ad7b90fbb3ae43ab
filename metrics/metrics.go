// Package metrics is a thin, optional abstraction over Prometheus so the
// engine's hot paths never pay for metric collection unless a caller opts
// in. It mirrors the sink-interface pattern used to make arena-cache's
// instrumentation pluggable: a no-op sink by default, a Prometheus-backed
// sink when a *prometheus.Registry is supplied.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Sink is the instrumentation surface every subsystem logs counters and
// gauges through. Subsystems depend only on this interface, never on
// Prometheus types directly, so a host that doesn't care about metrics
// pays nothing for them.
type Sink interface {
	IncCounter(name string, labels ...string)
	SetGauge(name string, value float64, labels ...string)
	ObserveHistogram(name string, value float64, labels ...string)
}

// Noop discards every observation. It is the default Sink for every
// subsystem constructor that accepts one.
type Noop struct{}

func (Noop) IncCounter(string, ...string)                 {}
func (Noop) SetGauge(string, float64, ...string)          {}
func (Noop) ObserveHistogram(string, float64, ...string)  {}

var _ Sink = Noop{}

// Prom is a Sink backed by a *prometheus.Registry. Metric vectors are
// created lazily on first use of a given name, labeled uniformly by a
// single "label" dimension (the call site's discretion on what it means —
// e.g. asset kind, task-scheduler worker id, DAG resource key).
type Prom struct {
	reg *prometheus.Registry

	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewProm creates a Prometheus-backed Sink registered against reg. Passing
// a nil registry is equivalent to constructing Noop{}.
func NewProm(reg *prometheus.Registry) Sink {
	if reg == nil {
		return Noop{}
	}
	return &Prom{
		reg:        reg,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func (p *Prom) counterVec(name string, nLabels int) *prometheus.CounterVec {
	if c, ok := p.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name + "_total",
		Help: name + " total count",
	}, labelNames(nLabels))
	p.reg.MustRegister(c)
	p.counters[name] = c
	return c
}

func (p *Prom) gaugeVec(name string, nLabels int) *prometheus.GaugeVec {
	if g, ok := p.gauges[name]; ok {
		return g
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: name + " current value",
	}, labelNames(nLabels))
	p.reg.MustRegister(g)
	p.gauges[name] = g
	return g
}

func (p *Prom) histogramVec(name string, nLabels int) *prometheus.HistogramVec {
	if h, ok := p.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    name + " distribution",
		Buckets: prometheus.DefBuckets,
	}, labelNames(nLabels))
	p.reg.MustRegister(h)
	p.histograms[name] = h
	return h
}

func labelNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "label"
	}
	return names
}

func (p *Prom) IncCounter(name string, labels ...string) {
	p.counterVec(name, len(labels)).WithLabelValues(labels...).Inc()
}

func (p *Prom) SetGauge(name string, value float64, labels ...string) {
	p.gaugeVec(name, len(labels)).WithLabelValues(labels...).Set(value)
}

func (p *Prom) ObserveHistogram(name string, value float64, labels ...string) {
	p.histogramVec(name, len(labels)).WithLabelValues(labels...).Observe(value)
}

var _ Sink = (*Prom)(nil)
