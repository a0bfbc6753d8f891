// Package metrics 进程内 prometheus 指标，init 时注册到默认 registry
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grafik_http_requests_total", Help: "HTTP requests by route, method, status and caller role"},
		[]string{"route", "method", "status", "role"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grafik_http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"route", "method"},
	)
	// HTTPRejected 被限流/超时/并发上限/包体上限拦下的请求
	HTTPRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grafik_http_rejected_total", Help: "Requests rejected before reaching a handler"},
		[]string{"reason"},
	)

	Signups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grafik_signups_total", Help: "Signup rows created, by resulting status"},
		[]string{"status"},
	)
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grafik_notifications_total", Help: "Notification attempts by delivery mode and result"},
		[]string{"mode", "result"},
	)
	ImportRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grafik_import_rows_total", Help: "Spreadsheet import rows by outcome"},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency, HTTPRejected, Signups, Notifications, ImportRows)
}
