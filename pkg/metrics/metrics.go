// Package metrics exposes Prometheus counters for authentication outcomes.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded for every auth operation.
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid"
	OutcomeDenied    = "denied"
	OutcomeConflict  = "conflict"
	OutcomeNotFound  = "not_found"
	OutcomeThrottled = "throttled"
	OutcomeError     = "error"
)

// Recorder records auth outcomes. A nil *Metrics is a valid no-op Recorder.
type Recorder interface {
	Auth(op, outcome string)
}

type Metrics struct {
	registry     *prometheus.Registry
	AuthRequests *prometheus.CounterVec
}

// New creates a registry with Go/process collectors and the auth counters.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		AuthRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authflow_auth_requests_total",
				Help: "Total number of auth requests by operation and outcome",
			},
			[]string{"op", "outcome"},
		),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AuthRequests,
	)
	return m
}

func (m *Metrics) Auth(op, outcome string) {
	if m == nil {
		return
	}
	m.AuthRequests.WithLabelValues(op, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
