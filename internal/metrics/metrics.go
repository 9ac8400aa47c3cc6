// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス収集のインターフェース。
// サービス層から利用する。
type Recorder interface {
	RecordPolicyDecision(effect, rule string)
	RecordVerifyAttempt(outcome string)
	RecordVerifyLatency(duration time.Duration)
	RecordCascadeDelete(bookmarkCount int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	policyDecisions  *prometheus.CounterVec
	verifyAttempts   *prometheus.CounterVec
	verifyLatency    prometheus.Histogram
	cascadeDeletes   prometheus.Counter
	bookmarksDeleted prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		policyDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bukuma_policy_decisions_total",
			Help: "認可判定の結果・規則別の合計数",
		}, []string{"effect", "rule"}),
		verifyAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bukuma_share_verify_attempts_total",
			Help: "共有パスワード検証の結果別の合計数",
		}, []string{"outcome"}),
		verifyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bukuma_share_verify_latency_seconds",
			Help:    "共有パスワード検証のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		cascadeDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bukuma_collection_cascade_deletes_total",
			Help: "コレクションのカスケード削除の合計数",
		}),
		bookmarksDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bukuma_bookmarks_cascade_deleted_total",
			Help: "カスケード削除で消されたブックマークの合計数",
		}),
	}

	reg.MustRegister(
		c.policyDecisions,
		c.verifyAttempts,
		c.verifyLatency,
		c.cascadeDeletes,
		c.bookmarksDeleted,
	)

	return c
}

// RecordPolicyDecision は認可判定を記録する。
func (c *Collector) RecordPolicyDecision(effect, rule string) {
	c.policyDecisions.WithLabelValues(effect, rule).Inc()
}

// RecordVerifyAttempt は共有パスワード検証の試行を記録する。
func (c *Collector) RecordVerifyAttempt(outcome string) {
	c.verifyAttempts.WithLabelValues(outcome).Inc()
}

// RecordVerifyLatency は共有パスワード検証のレイテンシを記録する。
func (c *Collector) RecordVerifyLatency(duration time.Duration) {
	c.verifyLatency.Observe(duration.Seconds())
}

// RecordCascadeDelete はカスケード削除を記録する。
func (c *Collector) RecordCascadeDelete(bookmarkCount int) {
	c.cascadeDeletes.Inc()
	c.bookmarksDeleted.Add(float64(bookmarkCount))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ Recorder = (*Collector)(nil)
