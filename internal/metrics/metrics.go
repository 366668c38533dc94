// Package metrics exposes detection results as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gonum.org/v1/gonum/stat"

	"github.com/sweeney/boiler-vision/internal/logic"
)

// Cycle results used as the "result" label.
const (
	ResultOK        = "ok"
	ResultAmbiguous = "ambiguous"
	ResultFailed    = "failed"
	ResultSkipped   = "skipped"
)

// Metrics holds the Prometheus collectors for the daemon.
type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	percentage    prometheus.Gauge
	heating       prometheus.Gauge
	roomLight     prometheus.Gauge
	buttonPressed prometheus.Gauge
	litFraction   *prometheus.GaugeVec
	meanLit       prometheus.Gauge
	lastSuccess   prometheus.Gauge
	mqttConnected prometheus.Gauge
	requestsTotal *prometheus.CounterVec
}

// New creates and registers the collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boiler_vision_cycles_total",
			Help: "Detection cycles by result",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "boiler_vision_cycle_duration_seconds",
			Help:    "Wall time of a detection cycle",
			Buckets: []float64{1, 2, 4, 6, 8, 10, 15, 30},
		}),
		percentage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boiler_vision_percentage",
			Help: "Boiler charge percentage from steady lights",
		}),
		heating: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boiler_vision_heating",
			Help: "1 while a light is blinking",
		}),
		roomLight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boiler_vision_room_light",
			Help: "1 while the room light is on",
		}),
		buttonPressed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boiler_vision_button_pressed",
			Help: "1 when the boost button was pressed during the last cycle",
		}),
		litFraction: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "boiler_vision_light_lit_fraction",
			Help: "Share of samples in which each light was lit in the last cycle",
		}, []string{"light"}),
		meanLit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boiler_vision_mean_lit_fraction",
			Help: "Mean lit fraction across all lights in the last cycle",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boiler_vision_last_success_timestamp_seconds",
			Help: "Unix time of the last cycle that resolved a state",
		}),
		mqttConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boiler_vision_mqtt_connected",
			Help: "1 while the broker connection is up",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boiler_vision_http_requests_total",
			Help: "HTTP requests served by status code",
		}, []string{"code"}),
	}

	registry.MustRegister(
		m.cycles,
		m.cycleDuration,
		m.percentage,
		m.heating,
		m.roomLight,
		m.buttonPressed,
		m.litFraction,
		m.meanLit,
		m.lastSuccess,
		m.mqttConnected,
		m.requestsTotal,
	)
	for _, r := range []string{ResultOK, ResultAmbiguous, ResultFailed, ResultSkipped} {
		m.cycles.WithLabelValues(r)
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle records a cycle that resolved a state, ambiguous or not.
func (m *Metrics) ObserveCycle(at time.Time, d time.Duration, state logic.BoilerState, roomLight, buttonPressed bool, tallies [logic.NumLights]logic.LightTally) {
	result := ResultOK
	if state.Ambiguous {
		result = ResultAmbiguous
	}
	m.cycles.WithLabelValues(result).Inc()
	m.cycleDuration.Observe(d.Seconds())
	m.percentage.Set(float64(state.Percentage))
	m.heating.Set(boolValue(state.Heating))
	m.roomLight.Set(boolValue(roomLight))
	m.buttonPressed.Set(boolValue(buttonPressed))

	fractions := make([]float64, 0, logic.NumLights)
	for i, t := range tallies {
		f := t.Fraction()
		fractions = append(fractions, f)
		m.litFraction.WithLabelValues(strconv.Itoa(i)).Set(f)
	}
	m.meanLit.Set(stat.Mean(fractions, nil))
	m.lastSuccess.Set(float64(at.Unix()))
}

// ObserveFailure records a cycle that produced no state.
func (m *Metrics) ObserveFailure(d time.Duration) {
	m.cycles.WithLabelValues(ResultFailed).Inc()
	m.cycleDuration.Observe(d.Seconds())
}

// ObserveSkipped records a cycle skipped while disconnected.
func (m *Metrics) ObserveSkipped() {
	m.cycles.WithLabelValues(ResultSkipped).Inc()
}

// SetMQTTConnected sets the connection gauge.
func (m *Metrics) SetMQTTConnected(connected bool) {
	m.mqttConnected.Set(boolValue(connected))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	inner := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		inner.ServeHTTP(w, r)
	})
}

// RequestMiddleware returns chi-compatible middleware counting requests by
// status code.
func (m *Metrics) RequestMiddleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.requestsTotal, next)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
