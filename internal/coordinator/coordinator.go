// ============================================================================
// gridpath 協調器 - Search Job 調度與回呼送達
// ============================================================================
//
// Package: internal/coordinator
// 文件: coordinator.go
// 功能: 接收路徑請求，交給 Worker Pool 執行，輪詢 done 旗標並送達回呼
//
// 架構設計:
//   協調以下組件：
//   - JobManager: 任務狀態登記（created/running/done）
//   - WorkerPool: 工作線程池，實際執行搜尋
//   - Metrics: Prometheus 指標（可為 nil）
//
// 核心循環:
//   1. Dispatch Loop - 從 pending 隊列取任務分派給 worker
//   2. Result Loop - 接收 worker 搜尋摘要，只用於 metrics
//   3. Deliver Loop - (AutoDeliver) 定期呼叫 Poll()
//
// 回呼送達:
//   回呼只在 Poll() 中觸發，Poll() 由宿主循環（例如每幀一次）呼叫，
//   或在 AutoDeliver 模式下由 Deliver Loop 呼叫。Poll() 之間互斥，
//   所以同一個協調器的回呼永遠不會並發執行。
//   任務是否完成只看 Job.Done()，Worker 的結果摘要可能被丟棄。
//
// 關閉順序:
//  1. close(stopCh) → 通知 dispatch/deliver 循環停止
//  2. pool.Stop()   → Worker 完成當前搜尋後退出，關閉 resultCh
//  3. loopWg.Wait() → 等待所有循環退出
//  4. drain()       → 在目前 goroutine 上執行仍在佇列中的任務
//  5. 最後一次 Poll() → 送達所有已完成的任務
//   每個被接受的請求在 Stop() 返回前都會收到一次回呼。
//
// ============================================================================

package coordinator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ChuLiYu/gridpath/internal/grid"
	"github.com/ChuLiYu/gridpath/internal/jobmanager"
	"github.com/ChuLiYu/gridpath/internal/metrics"
	"github.com/ChuLiYu/gridpath/internal/pathfind"
	"github.com/ChuLiYu/gridpath/internal/searchjob"
	"github.com/ChuLiYu/gridpath/internal/worker"
	"github.com/ChuLiYu/gridpath/pkg/types"
)

var (
	// ErrStopped 協調器已關閉，不再接受請求
	ErrStopped = errors.New("coordinator stopped")
	// ErrAlreadyStarted Start 被呼叫超過一次
	ErrAlreadyStarted = errors.New("coordinator already started")
)

// ============================================================================
// 資料結構定義
// ============================================================================

// Config 協調器配置
type Config struct {
	WorkerCount      int           // Worker 數量
	QueueSize        int           // Worker Pool 任務/結果通道緩衝
	DispatchInterval time.Duration // 分派循環的最長間隔
	PollInterval     time.Duration // AutoDeliver 模式下的輪詢間隔
	AllowVertical    bool          // 是否允許上下台階
	AutoDeliver      bool          // 由背景循環呼叫 Poll()
}

// DefaultConfig 返回預設配置
func DefaultConfig() Config {
	return Config{
		WorkerCount:      4,
		QueueSize:        256,
		DispatchInterval: 10 * time.Millisecond,
		PollInterval:     16 * time.Millisecond,
		AllowVertical:    true,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.WorkerCount <= 0 {
		c.WorkerCount = def.WorkerCount
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.DispatchInterval <= 0 {
		c.DispatchInterval = def.DispatchInterval
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
}

// Stats 協調器狀態快照
type Stats struct {
	Pending   int           `json:"pending"`
	Running   int           `json:"running"`
	Done      int           `json:"done"`
	Delivered int           `json:"delivered"`
	Queued    int           `json:"queued"` // Running 中仍在 Worker 佇列、尚未開始搜尋的部分
	Workers   int           `json:"workers"`
	Uptime    time.Duration `json:"uptime"`
}

// Coordinator 核心協調器
type Coordinator struct {
	mu         sync.Mutex
	grid       *grid.Grid
	jobManager *jobmanager.JobManager
	pool       *worker.Pool
	metrics    *metrics.Collector
	config     Config
	options    []pathfind.Option

	stopCh    chan struct{}
	wakeCh    chan struct{} // Submit 後立即喚醒 dispatch loop
	started   bool
	stopped   bool
	startTime time.Time
	loopWg    sync.WaitGroup

	deliverMu sync.Mutex // Poll() 互斥
}

// ============================================================================
// 核心方法實作
// ============================================================================

// New 建立新的協調器
//
// 參數：
//   - g: 所有搜尋共用的 Grid，搜尋進行中不可修改
//   - config: 協調器配置，零值欄位使用預設值
//   - m: 指標收集器，可為 nil
func New(g *grid.Grid, config Config, m *metrics.Collector) *Coordinator {
	config.applyDefaults()
	return &Coordinator{
		grid:       g,
		jobManager: jobmanager.NewJobManager(),
		pool:       worker.NewPool(config.QueueSize),
		metrics:    m,
		config:     config,
		options:    []pathfind.Option{pathfind.WithVertical(config.AllowVertical)},
		stopCh:     make(chan struct{}),
		wakeCh:     make(chan struct{}, 1),
	}
}

// Grid 返回協調器搜尋的 Grid
func (c *Coordinator) Grid() *grid.Grid {
	return c.grid
}

// Start 啟動 Worker Pool 和背景循環
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return ErrStopped
	}
	if c.started {
		return ErrAlreadyStarted
	}

	if err := c.pool.Start(c.config.WorkerCount); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	c.startTime = time.Now()
	c.started = true

	c.loopWg.Add(2)
	go c.dispatchLoop()
	go c.resultLoop()
	if c.config.AutoDeliver {
		c.loopWg.Add(1)
		go c.deliverLoop()
	}

	slog.Info("Coordinator started",
		"workers", c.config.WorkerCount,
		"allowVertical", c.config.AllowVertical,
		"autoDeliver", c.config.AutoDeliver)
	return nil
}

// ============================================================================
// 請求入口
// ============================================================================

// RequestPath 建立從 start 到 target 的 Search Job 並排入佇列
//
// 回呼會在之後某次 Poll() 中收到路徑（不含 start，含 target），
// 不可達時收到空切片。
func (c *Coordinator) RequestPath(start, target types.Coord, onComplete searchjob.Callback) (types.JobID, error) {
	job, err := c.Request(start, target, onComplete)
	if err != nil {
		return "", err
	}
	return job.ID(), nil
}

// Request 與 RequestPath 相同，但返回 Job 本身，供呼叫者在送達後讀取 Result()
func (c *Coordinator) Request(start, target types.Coord, onComplete searchjob.Callback) (*searchjob.Job, error) {
	job, err := c.newJob(start, target, onComplete)
	if err != nil {
		c.metrics.RecordRejected()
		slog.Debug("Path request rejected", "start", start, "target", target, "error", err)
		return nil, err
	}
	if err := c.Submit(job); err != nil {
		return nil, err
	}
	return job, nil
}

func (c *Coordinator) newJob(start, target types.Coord, onComplete searchjob.Callback) (*searchjob.Job, error) {
	from := c.grid.At(start)
	if from == nil {
		return nil, fmt.Errorf("%w: start %s", searchjob.ErrOutsideGrid, start)
	}
	to := c.grid.At(target)
	if to == nil {
		return nil, fmt.Errorf("%w: target %s", searchjob.ErrOutsideGrid, target)
	}
	return searchjob.New(c.grid, from, to, onComplete, c.options...)
}

// Submit 排入一個已建立的 Search Job
//
// 可以在 Start() 之前呼叫，任務會在啟動後分派。
func (c *Coordinator) Submit(job *searchjob.Job) error {
	// 持有 mu 入列，Stop() 設定 stopped 之後不會再有新任務
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	err := c.jobManager.Enqueue(job)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	c.metrics.RecordRequested()

	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
	return nil
}

// ============================================================================
// 回呼送達
// ============================================================================

// Poll 送達所有已完成任務的回呼，返回本次送達數
//
// 宿主循環應定期呼叫。回呼在呼叫者的 goroutine 上依提交順序執行。
func (c *Coordinator) Poll() int {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	delivered := 0
	for _, job := range c.jobManager.CollectDone() {
		if c.deliver(job) {
			delivered++
		}
	}

	if delivered > 0 {
		slog.Debug("Delivered search results", "count", delivered)
	}
	c.updateGauges()
	return delivered
}

// deliver 觸發單個任務的回呼，回呼 panic 不影響其他任務
func (c *Coordinator) deliver(job *searchjob.Job) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.metrics.RecordDeliveryPanic()
			slog.Error("Completion callback panicked",
				"jobID", job.ID(),
				"start", job.Start().Coord(),
				"target", job.Target().Coord(),
				"panic", r)
			ok = false
		}
	}()

	if err := job.Deliver(); err != nil {
		slog.Warn("Failed to deliver job", "jobID", job.ID(), "error", err)
		return false
	}
	if err := job.Err(); err != nil {
		slog.Error("Search failed",
			"jobID", job.ID(),
			"start", job.Start().Coord(),
			"target", job.Target().Coord(),
			"error", err)
	}
	c.metrics.RecordDelivered()
	return true
}

// ============================================================================
// 背景循環
// ============================================================================

// dispatchLoop 調度待處理任務給 Worker Pool
func (c *Coordinator) dispatchLoop() {
	defer c.loopWg.Done()
	ticker := time.NewTicker(c.config.DispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			slog.Debug("Dispatch loop stopped")
			return
		case <-ticker.C:
		case <-c.wakeCh:
		}

		c.dispatchPending()
	}
}

// dispatchPending 分派所有待處理任務，Pool 關閉時停止
func (c *Coordinator) dispatchPending() {
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		job := c.jobManager.PopPending()
		if job == nil {
			return
		}

		if err := c.jobManager.MarkRunning(job.ID()); err != nil {
			slog.Error("Failed to mark running", "jobID", job.ID(), "error", err)
			continue
		}

		task := worker.Task{Job: job, EnqueuedAt: time.Now()}
		if err := c.pool.Submit(task); err != nil {
			if rqErr := c.jobManager.Requeue(job.ID()); rqErr != nil {
				slog.Error("Failed to requeue", "jobID", job.ID(), "error", rqErr)
			}
			if !errors.Is(err, worker.ErrPoolClosed) {
				slog.Error("Failed to submit task", "jobID", job.ID(), "error", err)
			}
			return
		}
		c.metrics.RecordDispatch()
	}
}

// resultLoop 處理 Worker 搜尋摘要
// 注意：此循環會一直運行到 Pool 關閉為止
func (c *Coordinator) resultLoop() {
	defer c.loopWg.Done()
	for {
		result, err := c.pool.ReceiveResult()
		if err != nil {
			slog.Debug("Result loop stopped")
			return
		}
		c.handleResult(result)
	}
}

// handleResult 記錄單個搜尋摘要
func (c *Coordinator) handleResult(result worker.Result) {
	outcome := metrics.OutcomeUnreachable
	switch {
	case result.Error != nil:
		outcome = metrics.OutcomeError
	case result.Found:
		outcome = metrics.OutcomeFound
	}
	c.metrics.RecordSearch(outcome, result.Duration, result.QueueWait, result.Expanded)

	slog.Debug("Search finished",
		"jobID", result.JobID,
		"outcome", outcome,
		"pathLength", result.PathLength,
		"expanded", result.Expanded,
		"duration", result.Duration)
}

// deliverLoop 在背景定期呼叫 Poll()
func (c *Coordinator) deliverLoop() {
	defer c.loopWg.Done()
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			slog.Debug("Deliver loop stopped")
			return
		case <-ticker.C:
			c.Poll()
		}
	}
}

// updateGauges 把仍在 Worker 佇列中的任務計為等待，而非搜尋中
func (c *Coordinator) updateGauges() {
	stats := c.jobManager.Stats()
	queued := min(c.pool.QueueLength(), stats["running"])
	c.metrics.UpdateQueueStats(stats["pending"]+queued, stats["running"]-queued, stats["done"])
}

// ============================================================================
// 公開查詢與關閉
// ============================================================================

// Status 取得單個任務的狀態，已送達的任務回報 StatusDelivered
func (c *Coordinator) Status(jobID types.JobID) types.JobStatus {
	status, err := c.jobManager.Status(jobID)
	if err != nil {
		return types.StatusDelivered
	}
	return status
}

// Stats 取得協調器狀態
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	var uptime time.Duration
	if c.started {
		uptime = time.Since(c.startTime)
	}
	c.mu.Unlock()

	stats := c.jobManager.Stats()
	return Stats{
		Pending:   stats["pending"],
		Running:   stats["running"],
		Done:      stats["done"],
		Delivered: stats["delivered"],
		Queued:    min(c.pool.QueueLength(), stats["running"]),
		Workers:   c.pool.GetWorkerCount(),
		Uptime:    uptime,
	}
}

// drain 在呼叫者的 goroutine 上執行所有已接受但尚未開始的任務
//
// 包含待分派佇列中的任務，以及已送進 Worker 佇列但 Worker 退出前沒有取走的任務。
// 執行後由最後一次 Poll() 送達，每個被接受的請求都會收到一次回呼。
func (c *Coordinator) drain() {
	jobs := c.jobManager.Unstarted()
	for job := c.jobManager.PopPending(); job != nil; job = c.jobManager.PopPending() {
		if err := c.jobManager.MarkRunning(job.ID()); err != nil {
			slog.Error("Failed to mark running", "jobID", job.ID(), "error", err)
			continue
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		return
	}

	slog.Info("Running remaining searches before shutdown", "count", len(jobs))
	for _, job := range jobs {
		start := time.Now()
		if err := job.Run(); err != nil {
			slog.Warn("Failed to run remaining job", "jobID", job.ID(), "error", err)
			continue
		}
		res := job.Result()
		c.handleResult(worker.Result{
			JobID:      job.ID(),
			Found:      res.Found,
			PathLength: len(res.Path),
			Cost:       res.TotalCost,
			Expanded:   res.ExpandedCells,
			Error:      job.Err(),
			Duration:   time.Since(start),
		})
	}
}

// Stop 優雅關閉協調器，可重複呼叫
//
// 尚未開始的任務會在這裡同步執行並送達，所以 Stop 可能需要一段時間。
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	started := c.started
	c.mu.Unlock()

	slog.Info("Stopping coordinator...")

	close(c.stopCh)
	if started {
		c.pool.Stop()
		c.loopWg.Wait()
	}

	c.drain()
	c.Poll()

	if remaining := c.jobManager.Len(); remaining > 0 {
		slog.Warn("Coordinator stopped with undelivered jobs", "count", remaining)
	}
	slog.Info("Coordinator stopped")
}
