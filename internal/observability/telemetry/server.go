package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ServeMetrics exposes the Prometheus registry on its own listener. Serving
// errors are logged, never fatal: metrics are best effort.
func ServeMetrics(port int, path string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	go func() {
		log.Info("Serving metrics", zap.String("addr", addr), zap.String("path", path))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Metrics server stopped", zap.Error(err))
		}
	}()
}
