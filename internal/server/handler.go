package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BaSui01/stockpile/internal/health"
)

// ReportSource 提供最近一轮健康检查结果
type ReportSource interface {
	Last() health.Report
}

// NewHandler 组装 /metrics 与 /healthz 路由；gatherer 为 nil 时使用默认 Registry
func NewHandler(source ReportSource, gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		report := source.Last()
		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(struct {
			Healthy bool `json:"healthy"`
			health.Report
		}{Healthy: report.Healthy(), Report: report})
	})
	return mux
}
