// ============================================================================
// gridpath Metrics - Prometheus 監控指標
// ============================================================================
//
// Package: internal/metrics
// 文件: metrics.go
// 功能: 收集和暴露搜尋與協調器運行指標，支持 Prometheus 監控
//
// 指標分類:
//
//   1. 任務計數器 (Counter) - 累計值，只增不減：
//      - gridpath_jobs_requested_total: 建立成功的 Search Job 總數
//      - gridpath_jobs_rejected_total: 前置條件不符被拒絕的請求總數
//      - gridpath_jobs_dispatched_total: 已交給 Worker 的任務總數
//      - gridpath_searches_total{outcome}: 搜尋結束次數 (found/unreachable/error)
//      - gridpath_jobs_delivered_total: 回呼已送達的任務總數
//      - gridpath_delivery_panics_total: 回呼 panic 次數
//
//   2. 性能指標 (Histogram) - 分佈統計：
//      - gridpath_search_duration_seconds: 搜尋本體耗時
//      - gridpath_queue_wait_seconds: 任務在 Worker 佇列中的等待時間
//      - gridpath_search_expanded_cells: 每次搜尋展開的節點數
//
//   3. 狀態指標 (Gauge) - 瞬時值：
//      - gridpath_jobs_pending: 等待 Worker 的任務數（含已分派、尚未開始者）
//      - gridpath_jobs_running: 搜尋中任務數
//      - gridpath_jobs_done: 搜尋完成、回呼尚未送達的任務數
//
// Prometheus 查詢示例:
//
//   # 95 分位搜尋延遲
//   histogram_quantile(0.95, rate(gridpath_search_duration_seconds_bucket[5m]))
//
//   # 不可達比例
//   rate(gridpath_searches_total{outcome="unreachable"}[5m]) / rate(gridpath_searches_total[5m])
//
// HTTP 端點:
//   通過 /metrics 端點暴露，默認端口: 9090
//
// 使用方式:
//   所有方法在 nil *Collector 上呼叫都是 no-op，未啟用 metrics 時可以直接傳 nil。
//
// ============================================================================

package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 搜尋結果分類，作為 gridpath_searches_total 的 outcome 標籤
const (
	OutcomeFound       = "found"
	OutcomeUnreachable = "unreachable"
	OutcomeError       = "error"
)

// Collector Prometheus 指標收集器
type Collector struct {
	// 任務相關指標
	jobsRequested  prometheus.Counter
	jobsRejected   prometheus.Counter
	jobsDispatched prometheus.Counter
	searches       *prometheus.CounterVec
	jobsDelivered  prometheus.Counter
	deliveryPanics prometheus.Counter

	// 效能指標
	searchDuration prometheus.Histogram
	queueWait      prometheus.Histogram
	expandedCells  prometheus.Histogram

	// 狀態指標
	jobsPending prometheus.Gauge
	jobsRunning prometheus.Gauge
	jobsDone    prometheus.Gauge
}

// NewCollector 創建新的指標收集器並註冊到 reg
//
// reg 為 nil 時使用 prometheus.DefaultRegisterer。同一個 Registerer 只能
// 註冊一個 Collector，重複註冊會 panic。
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		jobsRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gridpath_jobs_requested_total",
			Help: "Total number of search jobs created",
		}),
		jobsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gridpath_jobs_rejected_total",
			Help: "Total number of path requests rejected by precondition checks",
		}),
		jobsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gridpath_jobs_dispatched_total",
			Help: "Total number of search jobs handed to workers",
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gridpath_searches_total",
			Help: "Total number of finished searches by outcome",
		}, []string{"outcome"}),
		jobsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gridpath_jobs_delivered_total",
			Help: "Total number of completion callbacks delivered",
		}),
		deliveryPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gridpath_delivery_panics_total",
			Help: "Total number of completion callbacks that panicked",
		}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridpath_search_duration_seconds",
			Help:    "Search body execution time in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		queueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridpath_queue_wait_seconds",
			Help:    "Time a job waited in the worker queue in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		expandedCells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridpath_search_expanded_cells",
			Help:    "Number of cells expanded per search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		jobsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gridpath_jobs_pending",
			Help: "Current number of jobs waiting for a worker",
		}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gridpath_jobs_running",
			Help: "Current number of jobs being searched",
		}),
		jobsDone: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gridpath_jobs_done",
			Help: "Current number of finished jobs awaiting delivery",
		}),
	}

	// 註冊所有指標
	reg.MustRegister(
		c.jobsRequested,
		c.jobsRejected,
		c.jobsDispatched,
		c.searches,
		c.jobsDelivered,
		c.deliveryPanics,
		c.searchDuration,
		c.queueWait,
		c.expandedCells,
		c.jobsPending,
		c.jobsRunning,
		c.jobsDone,
	)

	return c
}

// RecordRequested 記錄新建立的 Search Job
func (c *Collector) RecordRequested() {
	if c == nil {
		return
	}
	c.jobsRequested.Inc()
}

// RecordRejected 記錄被拒絕的路徑請求
func (c *Collector) RecordRejected() {
	if c == nil {
		return
	}
	c.jobsRejected.Inc()
}

// RecordDispatch 記錄任務分派
func (c *Collector) RecordDispatch() {
	if c == nil {
		return
	}
	c.jobsDispatched.Inc()
}

// RecordSearch 記錄一次搜尋結束
func (c *Collector) RecordSearch(outcome string, duration, queueWait time.Duration, expanded int) {
	if c == nil {
		return
	}
	c.searches.WithLabelValues(outcome).Inc()
	c.searchDuration.Observe(duration.Seconds())
	c.queueWait.Observe(queueWait.Seconds())
	c.expandedCells.Observe(float64(expanded))
}

// RecordDelivered 記錄回呼送達
func (c *Collector) RecordDelivered() {
	if c == nil {
		return
	}
	c.jobsDelivered.Inc()
}

// RecordDeliveryPanic 記錄回呼 panic
func (c *Collector) RecordDeliveryPanic() {
	if c == nil {
		return
	}
	c.deliveryPanics.Inc()
}

// UpdateQueueStats 更新任務狀態統計
func (c *Collector) UpdateQueueStats(pending, running, done int) {
	if c == nil {
		return
	}
	c.jobsPending.Set(float64(pending))
	c.jobsRunning.Set(float64(running))
	c.jobsDone.Set(float64(done))
}

// Handler 返回 gatherer 的 /metrics HTTP handler，gatherer 為 nil 時使用預設 registry
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewServer 建立暴露 /metrics 的 HTTP 伺服器，由呼叫者負責啟動與關閉
func NewServer(port int, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
