// Package metrics defines the Prometheus collectors for outbound calls
// made by the client and for the stub service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client groups collectors for the API client.  Collectors are
// registered on the registry passed to NewClient so tests can use a
// fresh one.
type Client struct {
	Registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
	actions  *prometheus.CounterVec
}

// NewClient creates and registers the client collectors.
func NewClient(reg *prometheus.Registry) *Client {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Client{
		Registry: reg,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supply_client_http_requests_total",
				Help: "Total number of HTTP requests sent to the supply service",
			},
			[]string{"code", "method"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "supply_client_http_request_duration_seconds",
				Help:    "Duration of HTTP requests sent to the supply service",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"code", "method"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "supply_client_http_in_flight",
			Help: "HTTP requests currently in flight",
		}),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supply_client_actions_total",
				Help: "Client actions by outcome (ok, error, skipped)",
			},
			[]string{"action", "outcome"},
		),
	}
	reg.MustRegister(c.requests, c.duration, c.inFlight, c.actions)
	return c
}

// Transport wraps next with request counting, latency and in-flight
// instrumentation.  A nil next means http.DefaultTransport.
func (c *Client) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperInFlight(c.inFlight,
		promhttp.InstrumentRoundTripperCounter(c.requests,
			promhttp.InstrumentRoundTripperDuration(c.duration, next)))
}

// Action records the outcome of one controller action.
func (c *Client) Action(action, outcome string) {
	if c == nil {
		return
	}
	c.actions.WithLabelValues(action, outcome).Inc()
}

// WriteTextfile writes every collected metric to path in the text
// exposition format, for node_exporter's textfile collector.
func (c *Client) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.Registry)
}

// Server groups collectors for the stub service.
type Server struct {
	Registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewServer(reg *prometheus.Registry) *Server {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		Registry: reg,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "supply_stub_http_requests_total",
				Help: "Total number of HTTP requests served by the stub",
			},
			[]string{"method", "path", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "supply_stub_http_request_duration_seconds",
				Help:    "Duration of HTTP requests served by the stub",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
	reg.MustRegister(s.requests, s.duration)
	return s
}

// Observe records one served request.
func (s *Server) Observe(method, path, status string, seconds float64) {
	s.requests.WithLabelValues(method, path, status).Inc()
	s.duration.WithLabelValues(method, path, status).Observe(seconds)
}

// Handler exposes the registry for scraping.
func (s *Server) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})
}
