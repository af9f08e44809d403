// Copyright (c) Tailscale Inc & AUTHORS
// SPDX-License-Identifier: BSD-3-Clause

// Package debugsrv exposes a loopback-only HTTP surface for
// operational visibility: /debug/vars, /metrics, and /debug/pprof/*.
// Adapted from the teacher's tsweb package, trimmed to what a
// single-purpose daemon needs rather than a full webserver toolkit.
package debugsrv

import (
	"context"
	"expvar"
	"net"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on http.DefaultServeMux
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics are the counters/histograms the reconciler and sampler
// update every tick.
type Metrics struct {
	ReconcileTicks  prometheus.Counter
	ReconcileErrors prometheus.Counter
	SampleTicks     prometheus.Counter
	SampleDuration  prometheus.Histogram
}

// NewMetrics registers and returns the metric set on its own registry.
func NewMetrics() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		ReconcileTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netifmond_reconcile_ticks_total",
			Help: "Number of completed reconcile ticks.",
		}),
		ReconcileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netifmond_reconcile_errors_total",
			Help: "Number of reconcile ticks skipped due to an error.",
		}),
		SampleTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netifmond_sample_ticks_total",
			Help: "Number of completed sampler ticks.",
		}),
		SampleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "netifmond_sample_duration_seconds",
			Help: "Wall-clock duration of a sampler tick.",
		}),
	}
	reg.MustRegister(m.ReconcileTicks, m.ReconcileErrors, m.SampleTicks, m.SampleDuration)
	return m, reg
}

// Server is a loopback-only debug/metrics HTTP server. Its failure is
// logged but never fatal — it is observability, not core function,
// and deliberately sits outside spec.md §4.H's "either task
// terminating is fatal" rule, which names only the reconciler and
// sampler tasks.
type Server struct {
	Log  *zap.Logger
	Addr string // e.g. "127.0.0.1:6060"
	Reg  *prometheus.Registry
}

// Run serves until ctx is cancelled. A listen or serve failure is
// logged and Run returns nil; it never reports an error.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/metrics", promhttp.HandlerFor(s.Reg, promhttp.HandlerOpts{}))
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		s.Log.Warn("debugsrv: failed to listen, debug surface disabled", zap.String("addr", s.Addr), zap.Error(err))
		return nil
	}

	srv := &http.Server{Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			s.Log.Warn("debugsrv: serve error", zap.Error(err))
		}
		return nil
	}
}
