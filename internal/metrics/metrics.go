package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"songbench/internal/user"
)

// Metrics exposes a running load test to Prometheus. Each instance owns its
// registry so several runs in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    *prometheus.CounterVec
	users    prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "songbench",
			Name:      "requests_total",
			Help:      "Requests issued by virtual users, by task and outcome.",
		}, []string{"task", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "songbench",
			Name:      "request_duration_seconds",
			Help:      "Service time of successful requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"task"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "songbench",
			Name:      "response_bytes_total",
			Help:      "Response body bytes read.",
		}, []string{"task"}),
		users: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "songbench",
			Name:      "active_users",
			Help:      "Virtual users currently running.",
		}),
	}

	m.registry.MustRegister(m.requests, m.duration, m.bytes, m.users)

	return m
}

func (m *Metrics) Observe(o user.Outcome) {
	outcome := "success"
	if !o.Success() {
		outcome = "failure"
	}

	m.requests.WithLabelValues(o.Task, outcome).Inc()
	m.bytes.WithLabelValues(o.Task).Add(float64(o.Bytes))
	if o.Success() {
		m.duration.WithLabelValues(o.Task).Observe(o.ServiceTime.Seconds())
	}
}

func (m *Metrics) SetUsers(n int) {
	m.users.Set(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, m *Metrics, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", zap.Error(err))
		}
	}()
}
