// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とハンドラーから利用する。
type MetricsCollector interface {
	RecordSubmission(position string)
	RecordSubmissionRejected(reason string)
	RecordDelivery(path string)
	RecordDeliveryFailure()
	RecordDeliveryLatency(duration time.Duration)
	RecordNotificationPublished(eventType string)
	RecordStatusChange(status string)
	RecordDashboardStream(delta int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	submissions         *prometheus.CounterVec
	submissionsRejected *prometheus.CounterVec
	deliveries          *prometheus.CounterVec
	deliveryFail        prometheus.Counter
	deliveryLatency     prometheus.Histogram
	notifications       *prometheus.CounterVec
	statusChanges       *prometheus.CounterVec
	dashboardStreams    prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tryout_submissions_total",
			Help: "受理された応募の合計数（ポジション別）",
		}, []string{"position"}),
		submissionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tryout_submissions_rejected_total",
			Help: "拒否された応募の合計数（理由別）",
		}, []string{"reason"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tryout_deliveries_total",
			Help: "応募配信成功の合計数（経路別）",
		}, []string{"path"}),
		deliveryFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tryout_delivery_fail_total",
			Help: "全経路で配信に失敗した応募の合計数",
		}),
		deliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tryout_delivery_latency_seconds",
			Help:    "応募配信のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tryout_notifications_published_total",
			Help: "発行された通知イベントの合計数（種別別）",
		}, []string{"type"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tryout_status_changes_total",
			Help: "応募ステータス変更の合計数（変更先別）",
		}, []string{"status"}),
		dashboardStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tryout_dashboard_streams",
			Help: "接続中のダッシュボードイベントストリーム数",
		}),
	}

	reg.MustRegister(
		c.submissions,
		c.submissionsRejected,
		c.deliveries,
		c.deliveryFail,
		c.deliveryLatency,
		c.notifications,
		c.statusChanges,
		c.dashboardStreams,
	)

	return c
}

// RecordSubmission は応募の受理を記録する。
func (c *Collector) RecordSubmission(position string) {
	c.submissions.WithLabelValues(position).Inc()
}

// RecordSubmissionRejected は応募の拒否を記録する。
func (c *Collector) RecordSubmissionRejected(reason string) {
	c.submissionsRejected.WithLabelValues(reason).Inc()
}

// RecordDelivery は配信成功を経路（upstream / webhook）別に記録する。
func (c *Collector) RecordDelivery(path string) {
	c.deliveries.WithLabelValues(path).Inc()
}

// RecordDeliveryFailure は全経路での配信失敗を記録する。
func (c *Collector) RecordDeliveryFailure() {
	c.deliveryFail.Inc()
}

// RecordDeliveryLatency は配信のレイテンシを記録する。
func (c *Collector) RecordDeliveryLatency(duration time.Duration) {
	c.deliveryLatency.Observe(duration.Seconds())
}

// RecordNotificationPublished は通知イベントの発行を記録する。
func (c *Collector) RecordNotificationPublished(eventType string) {
	c.notifications.WithLabelValues(eventType).Inc()
}

// RecordStatusChange は応募ステータスの変更を記録する。
func (c *Collector) RecordStatusChange(status string) {
	c.statusChanges.WithLabelValues(status).Inc()
}

// RecordDashboardStream はストリーム接続数の増減を記録する。
func (c *Collector) RecordDashboardStream(delta int) {
	c.dashboardStreams.Add(float64(delta))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
