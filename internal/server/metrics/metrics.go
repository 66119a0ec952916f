// Package metrics exposes Prometheus counters for the message server.
// All methods are safe on a nil *Metrics, which disables collection.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophmail"

type Metrics struct {
	registry *prometheus.Registry

	connectionsActive prometheus.Gauge
	connections       *prometheus.CounterVec
	commands          *prometheus.CounterVec
	commandDuration   *prometheus.HistogramVec
	delivered         prometheus.Counter
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections_active",
			Help:      "Connections currently being served.",
		}),
		connections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Accepted connections by outcome.",
		}, []string{"result"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "commands_total",
			Help:      "Commands handled, by command and final status token.",
		}, []string{"command", "status"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "command_duration_seconds",
			Help:      "Time from command frame to final response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "messages_delivered_total",
			Help:      "Messages handed to recipients by GET.",
		}),
	}
	m.registry.MustRegister(m.connectionsActive, m.connections, m.commands, m.commandDuration, m.delivered)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ConnectionOpened counts an accepted connection and marks it active.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.WithLabelValues("accepted").Inc()
	m.connectionsActive.Inc()
}

// ConnectionClosed is the counterpart of ConnectionOpened.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

// ConnectionRejected counts a connection refused over the limit.
func (m *Metrics) ConnectionRejected() {
	if m == nil {
		return
	}
	m.connections.WithLabelValues("rejected").Inc()
}

func (m *Metrics) Command(command, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, status).Inc()
	m.commandDuration.WithLabelValues(command).Observe(d.Seconds())
}

func (m *Metrics) Delivered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.delivered.Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger logging.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return m.serve(ctx, lis, logger)
}

func (m *Metrics) serve(ctx context.Context, lis net.Listener, logger logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "metrics endpoint listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
