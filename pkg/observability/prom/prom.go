// Package prom implements observability hooks with Prometheus metrics.
//
// A release run is a short-lived process, so metrics are not scraped;
// [Hooks.WriteTextfile] dumps them once for the node-exporter textfile
// collector at the end of the run.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/monocrate/pkg/observability"
)

// Hooks records monocrate events into a private Prometheus registry.
type Hooks struct {
	observability.NoopHTTPHooks

	registry *prometheus.Registry

	lookups        *prometheus.CounterVec
	lookupDuration prometheus.Histogram
	bumps          prometheus.Counter
	publishes      *prometheus.CounterVec
	publishTime    prometheus.Histogram
	cacheEvents    *prometheus.CounterVec
}

// New creates Hooks with all collectors registered.
func New() *Hooks {
	h := &Hooks{
		registry: prometheus.NewRegistry(),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monocrate_registry_lookups_total",
				Help: "Registry version lookups by result.",
			},
			[]string{"result"},
		),
		lookupDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "monocrate_registry_lookup_duration_seconds",
				Help:    "Time taken to resolve the published version of one package.",
				Buckets: prometheus.DefBuckets,
			},
		),
		bumps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "monocrate_bumped_packages_total",
				Help: "Packages whose version was raised.",
			},
		),
		publishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monocrate_publish_total",
				Help: "Publish attempts by result (published, failed, skipped).",
			},
			[]string{"result"},
		),
		publishTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "monocrate_publish_duration_seconds",
				Help:    "Time taken by one publish subprocess.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		cacheEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "monocrate_cache_events_total",
				Help: "Registry cache events by type (hit, miss, set).",
			},
			[]string{"event"},
		),
	}
	h.registry.MustRegister(h.lookups, h.lookupDuration, h.bumps, h.publishes, h.publishTime, h.cacheEvents)
	return h
}

// Register installs h as the global release and cache hooks.
func (h *Hooks) Register() {
	observability.SetReleaseHooks(h)
	observability.SetCacheHooks(h)
}

// Gatherer exposes the underlying registry.
func (h *Hooks) Gatherer() prometheus.Gatherer { return h.registry }

// WriteTextfile writes all metrics to path in the text exposition format.
func (h *Hooks) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, h.registry)
}

func (h *Hooks) OnLookup(_ context.Context, _ string, d time.Duration, err error) {
	h.lookups.WithLabelValues(result(err, "ok")).Inc()
	h.lookupDuration.Observe(d.Seconds())
}

func (h *Hooks) OnBump(context.Context, string, string, string) {
	h.bumps.Inc()
}

func (h *Hooks) OnPublishStart(context.Context, string, string) {}

func (h *Hooks) OnPublishComplete(_ context.Context, _, _ string, d time.Duration, err error) {
	h.publishes.WithLabelValues(result(err, "published")).Inc()
	h.publishTime.Observe(d.Seconds())
}

func (h *Hooks) OnPublishSkip(context.Context, string, string) {
	h.publishes.WithLabelValues("skipped").Inc()
}

func (h *Hooks) OnCacheHit(context.Context, string)      { h.cacheEvents.WithLabelValues("hit").Inc() }
func (h *Hooks) OnCacheMiss(context.Context, string)     { h.cacheEvents.WithLabelValues("miss").Inc() }
func (h *Hooks) OnCacheSet(context.Context, string, int) { h.cacheEvents.WithLabelValues("set").Inc() }

func result(err error, ok string) string {
	if err != nil {
		return "failed"
	}
	return ok
}

var (
	_ observability.ReleaseHooks = (*Hooks)(nil)
	_ observability.CacheHooks   = (*Hooks)(nil)
)
