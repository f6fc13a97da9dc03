// Package metrics はマイグレーション実行と状態APIのPrometheusメトリクスを提供する。
package metrics

import (
	"context"
	"time"

	"dbdeploy/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// スクリプト指標
	ScriptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbdeploy_scripts_total",
			Help: "Number of migration scripts processed by result",
		},
		[]string{"result"},
	)

	ScriptApplyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dbdeploy_script_apply_duration_seconds",
			Help:    "Time spent applying one migration script",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
	)

	BatchesExecutedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dbdeploy_batches_executed_total",
			Help: "Number of statement batches executed",
		},
	)

	// 実行指標
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbdeploy_runs_total",
			Help: "Number of migration runs by final state",
		},
		[]string{"state"},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dbdeploy_last_run_timestamp_seconds",
			Help: "Unix time of the last finished migration run",
		},
	)

	// HTTP リクエスト指標
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbdeploy_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbdeploy_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

const (
	resultApplied = "applied"
	resultSkipped = "skipped"
	resultFailed  = "failed"
)

// Recorder はスクリプトごとの結果をメトリクスに記録する。
type Recorder struct{}

// NewRecorder は新しいRecorderを生成する。
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ScriptApplied は適用したスクリプトを記録する。
func (r *Recorder) ScriptApplied(filename string, elapsed time.Duration, batches int) {
	ScriptsTotal.WithLabelValues(resultApplied).Inc()
	ScriptApplyDuration.Observe(elapsed.Seconds())
	BatchesExecutedTotal.Add(float64(batches))
}

// ScriptSkipped は適用済みでスキップしたスクリプトを記録する。
func (r *Recorder) ScriptSkipped(filename string) {
	ScriptsTotal.WithLabelValues(resultSkipped).Inc()
}

// ScriptFailed は失敗したスクリプトを記録する。
func (r *Recorder) ScriptFailed(filename string) {
	ScriptsTotal.WithLabelValues(resultFailed).Inc()
}

// RecordRun は実行の最終状態を記録する。
func RecordRun(state domain.RunState) {
	RunsTotal.WithLabelValues(string(state)).Inc()
	LastRunTimestamp.SetToCurrentTime()
}

// RecordHTTPRequest は HTTP リクエストを記録する。
func RecordHTTPRequest(method, path string, status int, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// Push は実行指標を Pushgateway に送る。CLI のように scrape されないプロセスで使う。
func Push(ctx context.Context, url, database string) error {
	return push.New(url, "dbdeploy").
		Grouping("database", database).
		Collector(ScriptsTotal).
		Collector(ScriptApplyDuration).
		Collector(BatchesExecutedTotal).
		Collector(RunsTotal).
		Collector(LastRunTimestamp).
		PushContext(ctx)
}

// statusClass は HTTP ステータスコードを区分に変換する。
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
