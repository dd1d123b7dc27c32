// Package metrics mirrors the teacher's metrics package: lazily
// registered prometheus collectors behind small label-aware wrappers,
// so call sites never touch the prometheus client_golang API directly.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registry = prometheus.NewRegistry()

// Registry exposes the collector registry for the metrics HTTP handler.
func Registry() *prometheus.Registry { return registry }

// CounterVec is a lazily-registered counter with labels.
type CounterVec struct {
	name   string
	labels []string
	once   sync.Once
	vec    *prometheus.CounterVec
}

// LazyLoadCounterVec declares (but does not yet register) a counter
// vector; registration happens on first use.
func LazyLoadCounterVec(name string, labels []string) func() *CounterVec {
	cv := &CounterVec{name: name, labels: labels}
	return func() *CounterVec {
		cv.once.Do(func() {
			cv.vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: cv.name}, cv.labels)
			registry.MustRegister(cv.vec)
		})
		return cv
	}
}

// Add increments the counter with no labels.
func (c *CounterVec) Add(v float64) {
	c.vec.WithLabelValues().Add(v)
}

// AddWithLabel increments the counter for the given label values,
// keyed by the label names passed to LazyLoadCounterVec.
func (c *CounterVec) AddWithLabel(v float64, labels map[string]string) {
	c.vec.With(labels).Add(v)
}

// GaugeVec is a lazily-registered gauge with labels.
type GaugeVec struct {
	name   string
	labels []string
	once   sync.Once
	vec    *prometheus.GaugeVec
}

func LazyLoadGaugeVec(name string, labels []string) func() *GaugeVec {
	gv := &GaugeVec{name: name, labels: labels}
	return func() *GaugeVec {
		gv.once.Do(func() {
			gv.vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: gv.name}, gv.labels)
			registry.MustRegister(gv.vec)
		})
		return gv
	}
}

func (g *GaugeVec) AddWithLabel(v float64, labels map[string]string) {
	g.vec.With(labels).Add(v)
}

func (g *GaugeVec) SetWithLabel(v float64, labels map[string]string) {
	g.vec.With(labels).Set(v)
}

// HistogramVec is a lazily-registered histogram with labels.
type HistogramVec struct {
	name    string
	labels  []string
	buckets []float64
	once    sync.Once
	vec     *prometheus.HistogramVec
}

// BucketHTTPReqs mirrors the teacher's default request-duration buckets (ms).
var BucketHTTPReqs = []int64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

func LazyLoadHistogramVec(name string, labels []string, buckets []int64) func() *HistogramVec {
	f := make([]float64, len(buckets))
	for i, b := range buckets {
		f[i] = float64(b)
	}
	hv := &HistogramVec{name: name, labels: labels, buckets: f}
	return func() *HistogramVec {
		hv.once.Do(func() {
			hv.vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: hv.name, Buckets: hv.buckets}, hv.labels)
			registry.MustRegister(hv.vec)
		})
		return hv
	}
}

func (h *HistogramVec) ObserveWithLabels(v int64, labels map[string]string) {
	h.vec.With(labels).Observe(float64(v))
}

// Counter is a lazily-registered, unlabeled counter.
type Counter struct {
	name string
	once sync.Once
	c    prometheus.Counter
}

func LazyLoadCounter(name string) func() *Counter {
	c := &Counter{name: name}
	return func() *Counter {
		c.once.Do(func() {
			c.c = prometheus.NewCounter(prometheus.CounterOpts{Name: c.name})
			registry.MustRegister(c.c)
		})
		return c
	}
}

func (c *Counter) Add(v float64) { c.c.Add(v) }

// Gauge is a lazily-registered, unlabeled gauge.
type Gauge struct {
	name string
	once sync.Once
	g    prometheus.Gauge
}

func LazyLoadGauge(name string) func() *Gauge {
	g := &Gauge{name: name}
	return func() *Gauge {
		g.once.Do(func() {
			g.g = prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name})
			registry.MustRegister(g.g)
		})
		return g
	}
}

func (g *Gauge) Set(v float64) { g.g.Set(v) }
func (g *Gauge) Add(v float64) { g.g.Add(v) }
