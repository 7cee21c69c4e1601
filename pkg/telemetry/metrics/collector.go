package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/jobs"
	"mercator-hq/saturn/pkg/limits"
	"mercator-hq/saturn/pkg/limits/ratelimit"
	"mercator-hq/saturn/pkg/tenant"
)

// Admission results.
const (
	ResultAdmitted = "admitted"
	ResultTimeout  = "timeout"
	ResultCanceled = "canceled"
	ResultError    = "error"
)

// waitBuckets span sub-second slot waits up to multi-minute rate-limit waits.
var waitBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600}

// Collector records Saturn metrics in its own registry.
type Collector struct {
	registry  *prometheus.Registry
	namespace string
	enabled   bool

	limiterWaits       *prometheus.CounterVec
	limiterWaitSeconds *prometheus.HistogramVec
	admissions         *prometheus.CounterVec
	admissionWait      *prometheus.HistogramVec
	inFlight           *prometheus.GaugeVec

	poolInstances prometheus.Gauge
	evictions     *prometheus.CounterVec
	builds        *prometheus.CounterVec
	buildSeconds  prometheus.Histogram

	jobStatus  *prometheus.CounterVec
	duplicates prometheus.Counter

	gatesOnce sync.Once
}

var (
	_ limits.Observer        = (*Collector)(nil)
	_ ratelimit.WaitObserver = (*Collector)(nil)
	_ tenant.Observer        = (*Collector)(nil)
	_ jobs.Observer          = (*Collector)(nil)
)

// NewCollector creates a collector. A nil registry means a fresh one.
// When cfg disables metrics every Observe call is a no-op.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = config.DefaultMetricsNamespace
	}

	c := &Collector{
		registry:  registry,
		namespace: ns,
		enabled:   cfg.IsEnabled(),

		limiterWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "limiter_waits_total",
			Help:      "Number of times a caller waited for rate-limit capacity",
		}, []string{"service", "reason"}),
		limiterWaitSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "limiter_wait_seconds",
			Help:      "Individual rate-limit wait durations",
			Buckets:   waitBuckets,
		}, []string{"service", "reason"}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "admissions_total",
			Help:      "Admission attempts by result",
		}, []string{"service", "result"}),
		admissionWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "admission_wait_seconds",
			Help:      "Total time spent waiting for admission",
			Buckets:   waitBuckets,
		}, []string{"service"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "admissions_in_flight",
			Help:      "Admitted calls not yet released, as last reported by a gate of the service",
		}, []string{"service"}),

		poolInstances: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "pool_instances",
			Help:      "Tenant instances resident in the pool",
		}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "pool_evictions_total",
			Help:      "Tenant instances removed from the pool",
		}, []string{"reason"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "instance_builds_total",
			Help:      "Tenant instance constructions by result",
		}, []string{"result"}),
		buildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "instance_build_seconds",
			Help:      "Tenant instance construction time",
			Buckets:   prometheus.DefBuckets,
		}),

		jobStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "job_status_total",
			Help:      "Job records written, by new status",
		}, []string{"status"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "job_duplicate_rejections_total",
			Help:      "Jobs rejected because their subject was busy",
		}),
	}

	registry.MustRegister(
		c.limiterWaits, c.limiterWaitSeconds,
		c.admissions, c.admissionWait, c.inFlight,
		c.poolInstances, c.evictions, c.builds, c.buildSeconds,
		c.jobStatus, c.duplicates,
	)
	return c
}

// Registry returns the Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RegisterGates exports the usage of every gate returned by snapshot on
// each scrape. Only the first call has an effect.
func (c *Collector) RegisterGates(snapshot func() []limits.GateStatus) {
	c.gatesOnce.Do(func() {
		if !c.enabled {
			return
		}
		c.registry.MustRegister(newGateCollector(c.namespace, snapshot))
	})
}

// ObserveLimiterWait implements ratelimit.WaitObserver.
func (c *Collector) ObserveLimiterWait(service, reason string, wait time.Duration) {
	if !c.enabled {
		return
	}
	c.limiterWaits.WithLabelValues(service, reason).Inc()
	c.limiterWaitSeconds.WithLabelValues(service, reason).Observe(wait.Seconds())
}

// ObserveAdmission implements limits.Observer.
func (c *Collector) ObserveAdmission(service string, wait time.Duration, err error) {
	if !c.enabled {
		return
	}
	c.admissions.WithLabelValues(service, admissionResult(err)).Inc()
	c.admissionWait.WithLabelValues(service).Observe(wait.Seconds())
}

func admissionResult(err error) string {
	switch {
	case err == nil:
		return ResultAdmitted
	case errors.Is(err, limits.ErrAdmissionTimeout), errors.Is(err, context.DeadlineExceeded):
		return ResultTimeout
	case errors.Is(err, context.Canceled):
		return ResultCanceled
	default:
		return ResultError
	}
}

// ObserveInFlight implements limits.Observer.
func (c *Collector) ObserveInFlight(service string, inFlight int64) {
	if !c.enabled {
		return
	}
	c.inFlight.WithLabelValues(service).Set(float64(inFlight))
}

// ObservePoolSize implements tenant.Observer.
func (c *Collector) ObservePoolSize(size int) {
	if !c.enabled {
		return
	}
	c.poolInstances.Set(float64(size))
}

// ObserveEviction implements tenant.Observer. The tenant id is not used as
// a label.
func (c *Collector) ObserveEviction(tenantID, reason string) {
	if !c.enabled {
		return
	}
	c.evictions.WithLabelValues(reason).Inc()
}

// ObserveBuild implements tenant.Observer.
func (c *Collector) ObserveBuild(duration time.Duration, err error) {
	if !c.enabled {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	c.builds.WithLabelValues(result).Inc()
	c.buildSeconds.Observe(duration.Seconds())
}

// ObserveJobStatus implements jobs.Observer.
func (c *Collector) ObserveJobStatus(status jobs.Status) {
	if !c.enabled {
		return
	}
	c.jobStatus.WithLabelValues(string(status)).Inc()
}

// ObserveDuplicateOperation implements jobs.Observer.
func (c *Collector) ObserveDuplicateOperation() {
	if !c.enabled {
		return
	}
	c.duplicates.Inc()
}
