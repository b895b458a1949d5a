// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// Sefariaクライアントとフェッチサービスから利用する。
type MetricsCollector interface {
	RecordFetchSuccess()
	RecordFetchFailure(kind string)
	RecordPersistFailure()
	RecordRecordAppended()
	RecordUpstreamStatus(endpoint string, statusCode int)
	RecordUpstreamLatency(endpoint string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	fetchSuccess    prometheus.Counter
	fetchFail       *prometheus.CounterVec
	persistFail     prometheus.Counter
	recordsAppended prometheus.Counter
	upstreamStatus  *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studytoday_fetch_success_total",
			Help: "トピックとカレンダーの取得に成功した回数",
		}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studytoday_fetch_fail_total",
			Help: "エラー種別ごとの取得失敗回数",
		}, []string{"kind"}),
		persistFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studytoday_persist_fail_total",
			Help: "ログストアへの書き込み失敗回数",
		}),
		recordsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studytoday_records_appended_total",
			Help: "ログストアに追加したレコード数",
		}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studytoday_upstream_status_total",
			Help: "エンドポイント・HTTPステータスコード別のレスポンス数",
		}, []string{"endpoint", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "studytoday_upstream_latency_seconds",
			Help:    "Sefaria APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.persistFail,
		c.recordsAppended,
		c.upstreamStatus,
		c.upstreamLatency,
	)

	return c
}

// RecordFetchSuccess は取得成功を記録する。
func (c *Collector) RecordFetchSuccess() {
	c.fetchSuccess.Inc()
}

// RecordFetchFailure は取得失敗をエラー種別付きで記録する。
func (c *Collector) RecordFetchFailure(kind string) {
	c.fetchFail.WithLabelValues(kind).Inc()
}

// RecordPersistFailure はログストアへの書き込み失敗を記録する。
func (c *Collector) RecordPersistFailure() {
	c.persistFail.Inc()
}

// RecordRecordAppended はログレコードの追加を記録する。
func (c *Collector) RecordRecordAppended() {
	c.recordsAppended.Inc()
}

// RecordUpstreamStatus はSefaria APIのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(endpoint string, statusCode int) {
	c.upstreamStatus.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamLatency はSefaria APIリクエストのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(endpoint string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
