package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the counters recorded while generating and dispatching
// payloads. Each instance owns its registry so tests stay isolated.
type Metrics struct {
	registry *prometheus.Registry

	PayloadsGenerated *prometheus.CounterVec
	GenerationErrors  *prometheus.CounterVec
	JobsDispatched    *prometheus.CounterVec
	ImagesSaved       prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		PayloadsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "codexgen_payloads_generated_total",
			Help: "Total number of job payloads generated, by provider.",
		}, []string{"provider"}),
		GenerationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "codexgen_generation_errors_total",
			Help: "Total number of failed generation runs, by provider.",
		}, []string{"provider"}),
		JobsDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "codexgen_jobs_dispatched_total",
			Help: "Total number of jobs submitted to the job server, by status.",
		}, []string{"status"}),
		ImagesSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "codexgen_images_saved_total",
			Help: "Total number of images downloaded and stored.",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePayload counts one generated payload. Nil receivers are ignored.
func (m *Metrics) ObservePayload(provider string) {
	if m == nil {
		return
	}
	m.PayloadsGenerated.WithLabelValues(provider).Inc()
}

func (m *Metrics) ObserveGenerationError(provider string) {
	if m == nil {
		return
	}
	m.GenerationErrors.WithLabelValues(provider).Inc()
}

// ObserveDispatch counts a submitted job as "ok" or "error".
func (m *Metrics) ObserveDispatch(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.JobsDispatched.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveImageSaved() {
	if m == nil {
		return
	}
	m.ImagesSaved.Inc()
}
