package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/saturn/pkg/limits"
	"mercator-hq/saturn/pkg/limits/ratelimit"
)

// gateCollector reads gate usage at scrape time. Gates of the same service
// (tenants with distinct overrides) are summed.
type gateCollector struct {
	snapshot func() []limits.GateStatus
	usage    *prometheus.Desc
	gates    *prometheus.Desc
}

func newGateCollector(namespace string, snapshot func() []limits.GateStatus) *gateCollector {
	return &gateCollector{
		snapshot: snapshot,
		usage: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "gate_usage"),
			"Current window usage and limits of admission gates",
			[]string{"service", "dimension", "kind"}, nil,
		),
		gates: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "gates"),
			"Number of admission gates per service",
			[]string{"service"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (g *gateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- g.usage
	ch <- g.gates
}

type usageSum struct {
	gates                int
	rpm, tpm, concurrent ratelimit.Usage
}

func add(a, b ratelimit.Usage) ratelimit.Usage {
	return ratelimit.Usage{Current: a.Current + b.Current, Limit: a.Limit + b.Limit}
}

// Collect implements prometheus.Collector.
func (g *gateCollector) Collect(ch chan<- prometheus.Metric) {
	sums := make(map[string]*usageSum)
	var order []string
	for _, st := range g.snapshot() {
		s, ok := sums[st.Service]
		if !ok {
			s = &usageSum{}
			sums[st.Service] = s
			order = append(order, st.Service)
		}
		s.gates++
		s.rpm = add(s.rpm, st.RPM)
		s.tpm = add(s.tpm, st.TPM)
		s.concurrent = add(s.concurrent, st.Concurrent)
	}

	for _, service := range order {
		s := sums[service]
		ch <- prometheus.MustNewConstMetric(g.gates, prometheus.GaugeValue, float64(s.gates), service)
		for _, d := range []struct {
			name string
			u    ratelimit.Usage
		}{
			{"rpm", s.rpm},
			{"tpm", s.tpm},
			{"concurrent", s.concurrent},
		} {
			ch <- prometheus.MustNewConstMetric(g.usage, prometheus.GaugeValue, float64(d.u.Current), service, d.name, "current")
			ch <- prometheus.MustNewConstMetric(g.usage, prometheus.GaugeValue, float64(d.u.Limit), service, d.name, "limit")
		}
	}
}
