// Package telemetry is a thin Prometheus wrapper shared by pkg/modulecache,
// pkg/module, and pkg/script, following the same opt-in pattern as the
// teacher's pkg/metrics.go: a Sink interface with a no-op default and a
// Prometheus-backed implementation (Prom, built over a caller-supplied
// *prometheus.Registry) used only when the caller passes it as the Sink of a
// WithMetrics option. No package pays for metric updates unless the caller
// opted in.
//
// © 2026 pulsar authors. MIT License.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Sink is the generic counters/gauge surface every instrumented package
// reduces its events to. Label values are free-form (a module-class+version
// cache key, a supermodule path, a scripted method name) so one Sink
// implementation serves every caller.
type Sink interface {
	IncCounter(name string, labels ...string)
	AddGauge(name string, delta float64, labels ...string)
	SetGauge(name string, value float64, labels ...string)
}

// Noop discards every observation. It is the default Sink for every
// instrumented package so metrics collection is strictly opt-in.
type Noop struct{}

func (Noop) IncCounter(string, ...string)          {}
func (Noop) AddGauge(string, float64, ...string)    {}
func (Noop) SetGauge(string, float64, ...string)    {}

// Prom is a Sink backed by a caller-supplied *prometheus.Registry. Metrics
// are created lazily per name on first use and cached, since the set of
// names a given package reports is fixed at compile time but the label
// cardinality (e.g. one label per module-class) is not known up front.
type Prom struct {
	namespace string
	reg       *prometheus.Registry

	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
	labelKey string
}

// NewProm constructs a Prom sink registered under namespace, using reg as
// the collector registry. labelKey names the single label every metric
// here carries (e.g. "class" for modulecache, "method" for script).
func NewProm(namespace string, reg *prometheus.Registry, labelKey string) *Prom {
	return &Prom{
		namespace: namespace,
		reg:       reg,
		counters:  make(map[string]*prometheus.CounterVec),
		gauges:    make(map[string]*prometheus.GaugeVec),
		labelKey:  labelKey,
	}
}

func (p *Prom) counter(name string) *prometheus.CounterVec {
	if c, ok := p.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.namespace,
		Name:      name,
		Help:      "pulsar " + p.namespace + " " + name,
	}, []string{p.labelKey})
	p.reg.MustRegister(c)
	p.counters[name] = c
	return c
}

func (p *Prom) gauge(name string) *prometheus.GaugeVec {
	if g, ok := p.gauges[name]; ok {
		return g
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: p.namespace,
		Name:      name,
		Help:      "pulsar " + p.namespace + " " + name,
	}, []string{p.labelKey})
	p.reg.MustRegister(g)
	p.gauges[name] = g
	return g
}

func label(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return labels[0]
}

func (p *Prom) IncCounter(name string, labels ...string) {
	p.counter(name).WithLabelValues(label(labels)).Inc()
}

func (p *Prom) AddGauge(name string, delta float64, labels ...string) {
	p.gauge(name).WithLabelValues(label(labels)).Add(delta)
}

func (p *Prom) SetGauge(name string, value float64, labels ...string) {
	p.gauge(name).WithLabelValues(label(labels)).Set(value)
}
