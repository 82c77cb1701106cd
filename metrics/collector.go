// Package metrics exposes pipeline and HTTP measurements to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector implements pipeline.Recorder.
type Collector struct {
	runsTotal          *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	stageErrors        *prometheus.CounterVec
	critiquePasses     prometheus.Histogram
	judgmentFallbacks  prometheus.Counter
	forcedAcceptances  prometheus.Counter
	httpRequestsTotal  *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector registers all metrics on reg. A nil reg uses the default registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	f := promauto.With(reg)
	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.runsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Completed pipeline runs by outcome",
	}, []string{"outcome"})

	c.stageDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Stage execution time, including the provider call",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	c.stageErrors = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stage_errors_total",
		Help:      "Stages that failed with a run-level error",
	}, []string{"stage"})

	c.critiquePasses = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "critique_passes",
		Help:      "Critic passes per run",
		Buckets:   []float64{1, 2, 3},
	})

	c.judgmentFallbacks = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "judgment_fallbacks_total",
		Help:      "Critic outputs that could not be decoded",
	})

	c.forcedAcceptances = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forced_acceptances_total",
		Help:      "Runs accepted because the revision cap was reached",
	})

	c.httpRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	c.httpRequestLatency = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	return c
}

func (c *Collector) StageCompleted(stage string, d time.Duration, err error) {
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		c.stageErrors.WithLabelValues(stage).Inc()
	}
}

func (c *Collector) JudgmentFallback() {
	c.judgmentFallbacks.Inc()
}

func (c *Collector) RunCompleted(outcome string, critiquePasses int, forced bool) {
	c.runsTotal.WithLabelValues(outcome).Inc()
	if critiquePasses > 0 {
		c.critiquePasses.Observe(float64(critiquePasses))
	}
	if forced {
		c.forcedAcceptances.Inc()
	}
	c.logger.Debug("run recorded",
		zap.String("outcome", outcome),
		zap.Int("critique_passes", critiquePasses),
	)
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpRequestLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
