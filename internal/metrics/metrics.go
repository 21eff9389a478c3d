// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 上流APIリクエストの結果ラベル
const (
	UpstreamResultSuccess  = "success"
	UpstreamResultError    = "error"
	UpstreamResultNotFound = "not_found"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア、サービス層、レシピAPIクライアントから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordHTTPLatency(duration time.Duration)
	RecordFavoriteAdded()
	RecordFavoriteRemoved()
	RecordFavoriteConflict()
	RecordUpstreamRequest(operation, result string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests      *prometheus.CounterVec
	httpLatency       prometheus.Histogram
	favoritesAdded    prometheus.Counter
	favoritesRemoved  prometheus.Counter
	favoriteConflicts prometheus.Counter
	upstreamRequests  *prometheus.CounterVec
	upstreamLatency   *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipebook_http_requests_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recipebook_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		favoritesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebook_favorites_added_total",
			Help: "お気に入り追加成功の合計数",
		}),
		favoritesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebook_favorites_removed_total",
			Help: "お気に入り削除成功の合計数",
		}),
		favoriteConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recipebook_favorites_conflicts_total",
			Help: "登録済みmealIdへの追加要求の合計数",
		}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipebook_upstream_requests_total",
			Help: "レシピAPIへのリクエスト数（操作・結果別）",
		}, []string{"operation", "result"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recipebook_upstream_latency_seconds",
			Help:    "レシピAPIのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.favoritesAdded,
		c.favoritesRemoved,
		c.favoriteConflicts,
		c.upstreamRequests,
		c.upstreamLatency,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordHTTPLatency(duration time.Duration) {
	c.httpLatency.Observe(duration.Seconds())
}

// RecordFavoriteAdded はお気に入り追加を記録する。
func (c *Collector) RecordFavoriteAdded() {
	c.favoritesAdded.Inc()
}

// RecordFavoriteRemoved はお気に入り削除を記録する。
func (c *Collector) RecordFavoriteRemoved() {
	c.favoritesRemoved.Inc()
}

// RecordFavoriteConflict は重複追加の拒否を記録する。
func (c *Collector) RecordFavoriteConflict() {
	c.favoriteConflicts.Inc()
}

// RecordUpstreamRequest はレシピAPIへのリクエスト結果とレイテンシを記録する。
func (c *Collector) RecordUpstreamRequest(operation, result string, duration time.Duration) {
	c.upstreamRequests.WithLabelValues(operation, result).Inc()
	c.upstreamLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
