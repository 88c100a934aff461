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
// サービス層・ミドルウェア・ワーカーから利用する。
type MetricsCollector interface {
	RecordInvoiceGenerated(currency string, amountCents int64)
	RecordInvoicePreview()
	RecordInvoiceOverlap()
	RecordWorkspaceProvisioned()
	RecordLogin(method string, success bool)
	RecordHTTPStatus(statusCode int)
	RecordHTTPLatency(duration time.Duration)
	RecordCleanup(kind string, deleted int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	invoicesGenerated *prometheus.CounterVec
	invoicedCents     *prometheus.CounterVec
	invoicePreviews   prometheus.Counter
	invoiceOverlaps   prometheus.Counter
	provisioned       prometheus.Counter
	logins            *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
	httpLatency       prometheus.Histogram
	cleanupDeleted    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		invoicesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retainerkit_invoices_generated_total",
			Help: "作業時間から生成された請求書の合計数",
		}, []string{"currency"}),
		invoicedCents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retainerkit_invoiced_cents_total",
			Help: "生成された請求書の金額合計（最小通貨単位）",
		}, []string{"currency"}),
		invoicePreviews: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retainerkit_invoice_previews_total",
			Help: "請求書プレビューの合計数",
		}),
		invoiceOverlaps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retainerkit_invoice_overlap_conflicts_total",
			Help: "請求期間の重複で拒否された生成の合計数",
		}),
		provisioned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retainerkit_workspaces_provisioned_total",
			Help: "自動作成された既定ワークスペースの合計数",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retainerkit_logins_total",
			Help: "ログイン試行の合計数",
		}, []string{"method", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retainerkit_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "retainerkit_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		cleanupDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retainerkit_cleanup_deleted_total",
			Help: "クリーンアップで削除された行数",
		}, []string{"kind"}),
	}

	reg.MustRegister(
		c.invoicesGenerated,
		c.invoicedCents,
		c.invoicePreviews,
		c.invoiceOverlaps,
		c.provisioned,
		c.logins,
		c.httpStatus,
		c.httpLatency,
		c.cleanupDeleted,
	)

	return c
}

// RecordInvoiceGenerated は請求書の生成を記録する。
func (c *Collector) RecordInvoiceGenerated(currency string, amountCents int64) {
	c.invoicesGenerated.WithLabelValues(currency).Inc()
	c.invoicedCents.WithLabelValues(currency).Add(float64(amountCents))
}

// RecordInvoicePreview はプレビューを記録する。
func (c *Collector) RecordInvoicePreview() {
	c.invoicePreviews.Inc()
}

// RecordInvoiceOverlap は期間重複による拒否を記録する。
func (c *Collector) RecordInvoiceOverlap() {
	c.invoiceOverlaps.Inc()
}

// RecordWorkspaceProvisioned は既定ワークスペースの自動作成を記録する。
func (c *Collector) RecordWorkspaceProvisioned() {
	c.provisioned.Inc()
}

// RecordLogin はログイン試行を記録する。methodは"password"またはプロバイダー名。
func (c *Collector) RecordLogin(method string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(method, result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordHTTPLatency(duration time.Duration) {
	c.httpLatency.Observe(duration.Seconds())
}

// RecordCleanup はクリーンアップで削除した行数を記録する。
func (c *Collector) RecordCleanup(kind string, deleted int64) {
	c.cleanupDeleted.WithLabelValues(kind).Add(float64(deleted))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordInvoiceGenerated(string, int64) {}
func (Nop) RecordInvoicePreview()                {}
func (Nop) RecordInvoiceOverlap()                {}
func (Nop) RecordWorkspaceProvisioned()          {}
func (Nop) RecordLogin(string, bool)             {}
func (Nop) RecordHTTPStatus(int)                 {}
func (Nop) RecordHTTPLatency(time.Duration)      {}
func (Nop) RecordCleanup(string, int64)          {}

// OrNop はmがnilの場合にNopを返す。
func OrNop(m MetricsCollector) MetricsCollector {
	if m == nil {
		return Nop{}
	}
	return m
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

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
