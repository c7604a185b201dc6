package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/apimgmt/pkg/logger"
)

// Probe is a named dependency check.
type Probe struct {
	Name  string
	Check func(context.Context) error
}

// HealthCheckHandler answers liveness probes with 200 "ALIVE" when no probes
// are given. With probes it answers readiness: 200 "READY" when all pass,
// 503 "NOT_READY" otherwise.
func HealthCheckHandler(log *slog.Logger, probes ...Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(probes) == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		ctx := r.Context()
		for _, p := range probes {
			if err := p.Check(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", slog.String("dependency", p.Name), logger.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}

// OpsHandler routes /metrics from gatherer, /healthz and /readyz.
func OpsHandler(log *slog.Logger, gatherer prometheus.Gatherer, probes ...Probe) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("GET /healthz", HealthCheckHandler(log))
	mux.Handle("GET /readyz", HealthCheckHandler(log, probes...))
	return mux
}
