// Package metrics provides Prometheus metrics for field rendering, saves,
// the picker and the HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dcaform"

// Render outcomes.
const (
	OutcomeRendered = "rendered"
	OutcomeEmpty    = "empty"
	OutcomeCustom   = "custom"
	OutcomeDenied   = "denied"
	OutcomeError    = "error"
)

// Collector holds all Prometheus metrics. A nil collector records nothing.
type Collector struct {
	// Field renderer
	FieldRenders       *prometheus.CounterVec
	RenderDuration     *prometheus.HistogramVec
	ValidationFailures *prometheus.CounterVec
	Saves              *prometheus.CounterVec

	// Picker
	PickerInits *prometheus.CounterVec

	// Schema
	SchemaReloads      prometheus.Counter
	SchemaReloadErrors prometheus.Counter

	// HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		FieldRenders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "field_renders_total",
				Help:      "Total number of field rows rendered",
			},
			[]string{"table", "outcome"},
		),
		RenderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "field_render_duration_seconds",
				Help:      "Field row render duration in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"table"},
		),
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Total number of rejected field submissions",
			},
			[]string{"table", "field"},
		),
		Saves: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "saves_total",
				Help:      "Total number of field saves by result",
			},
			[]string{"table", "result"},
		),
		PickerInits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "picker_inits_total",
				Help:      "Total number of picker initialisations by result",
			},
			[]string{"result"},
		),
		SchemaReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reloads_total",
				Help:      "Total number of successful schema reloads",
			},
		),
		SchemaReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reload_errors_total",
				Help:      "Total number of failed schema reloads",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveRender records one field render.
func (c *Collector) ObserveRender(table, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.FieldRenders.WithLabelValues(table, outcome).Inc()
	c.RenderDuration.WithLabelValues(table).Observe(d.Seconds())
}

// ValidationFailed records a rejected submission.
func (c *Collector) ValidationFailed(table, field string) {
	if c == nil {
		return
	}
	c.ValidationFailures.WithLabelValues(table, field).Inc()
}

// Saved records a save attempt.
func (c *Collector) Saved(table string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Saves.WithLabelValues(table, result).Inc()
}

// PickerInit records a picker initialisation result.
func (c *Collector) PickerInit(result string) {
	if c == nil {
		return
	}
	c.PickerInits.WithLabelValues(result).Inc()
}

// SchemaReloaded records a schema reload.
func (c *Collector) SchemaReloaded(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.SchemaReloadErrors.Inc()
		return
	}
	c.SchemaReloads.Inc()
}

// ObserveRequest records one HTTP request.
func (c *Collector) ObserveRequest(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.RequestsTotal.WithLabelValues(method, route, status).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
