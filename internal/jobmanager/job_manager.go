// ============================================================================
// gridpath 任務管理器 - Search Job 狀態登記
// ============================================================================
//
// Package: internal/jobmanager
// 文件: job_manager.go
// 功能: 在協調器一側追蹤每個 Search Job 的生命週期，直到回呼送達
//
// 設計理念:
//   1. jobs map - 統一的任務存儲，作為單一真實來源 (Single Source of Truth)
//   2. 狀態索引 - pending queue、running map 提供快速查詢
//   3. 搜尋是否完成只看 Job 自身的 done 旗標，不依賴 Worker 回報
//
// 任務狀態轉換 (State Machine):
//   Created (待分派)
//      ↓ PopPending() + MarkRunning()
//   Running (已交給 Worker)
//      ↓ Job.Done() == true，由 CollectDone() 取出
//   Delivered (回呼已觸發，從管理器移除)
//
// 狀態轉換規則:
//   - Created → Running: 通過 PopPending() + MarkRunning()
//   - Running → Created: 通過 Requeue() (提交到 Worker Pool 失敗時)
//   - Running → Delivered: 通過 CollectDone()，只有 done 旗標為 true 的任務
//
// 並發安全:
//   - 使用 sync.RWMutex 保護所有數據結構
//   - Job.Done() 是原子讀取，可以在持有讀鎖時呼叫
//
// ============================================================================

package jobmanager

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ChuLiYu/gridpath/internal/searchjob"
	"github.com/ChuLiYu/gridpath/pkg/types"
)

// ============================================================================
// 錯誤定義
// ============================================================================

var (
	// 任務 ID 重複錯誤
	ErrDuplicateJob = errors.New("job already exists")
	// 任務不在執行中狀態
	ErrNotRunning = errors.New("job not running")
	// 任務不在待分派狀態
	ErrNotPending = errors.New("job not pending")
	// 任務不存在
	ErrJobNotFound = errors.New("job not found")
	// 空任務
	ErrNilJob = errors.New("job is nil")
)

// entry 管理器內部對單一任務的記錄
type entry struct {
	job       *searchjob.Job
	status    types.JobStatus
	seq       uint64 // 加入順序，CollectDone 依此排序
	createdAt int64
	updatedAt int64
}

// JobManager 代表任務管理器
type JobManager struct {
	mu        sync.RWMutex
	jobs      map[types.JobID]*entry // 所有未送達的任務
	queue     []types.JobID          // 待分派佇列 (FIFO)
	running   map[types.JobID]*entry // 已交給 Worker 的任務
	nextSeq   uint64
	delivered int // 已取出送達的任務累計數
}

// NewJobManager 建立新的任務管理器實例
//
// 併發安全：返回的實例是執行緒安全的
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:    make(map[types.JobID]*entry),
		queue:   make([]types.JobID, 0),
		running: make(map[types.JobID]*entry),
	}
}

// Enqueue 將新任務加入系統，設定為待分派狀態
//
// 錯誤處理：
//   - ErrNilJob: job 為 nil
//   - ErrDuplicateJob: 任務 ID 已存在於系統中
func (jm *JobManager) Enqueue(job *searchjob.Job) error {
	if job == nil {
		return ErrNilJob
	}

	jm.mu.Lock()
	defer jm.mu.Unlock()

	if _, exists := jm.jobs[job.ID()]; exists {
		return ErrDuplicateJob
	}

	now := time.Now().UnixMilli()
	jm.nextSeq++
	jm.jobs[job.ID()] = &entry{
		job:       job,
		status:    types.StatusCreated,
		seq:       jm.nextSeq,
		createdAt: now,
		updatedAt: now,
	}
	jm.queue = append(jm.queue, job.ID())
	return nil
}

// PopPending 取出一個待分派的任務，但不改變其狀態
//
// 使用範例：
//
//	job := jm.PopPending()
//	if job != nil {
//	    // 分派前需要呼叫 MarkRunning 來改變狀態
//	}
func (jm *JobManager) PopPending() *searchjob.Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	for len(jm.queue) > 0 {
		jobID := jm.queue[0]
		jm.queue = jm.queue[1:]
		if e, ok := jm.jobs[jobID]; ok {
			return e.job
		}
	}
	return nil
}

// MarkRunning 將任務標記為已交給 Worker
//
// 錯誤處理：
//   - ErrJobNotFound: 任務不存在於系統中
//   - ErrNotPending: 任務狀態不是 StatusCreated
func (jm *JobManager) MarkRunning(jobID types.JobID) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	e, exists := jm.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if e.status != types.StatusCreated {
		return ErrNotPending
	}

	e.status = types.StatusRunning
	e.updatedAt = time.Now().UnixMilli()
	jm.running[jobID] = e
	return nil
}

// Requeue 將尚未被 Worker 執行的任務放回佇列
//
// 只有 Run() 尚未開始的任務可以重新排隊，Search Job 不能執行兩次。
func (jm *JobManager) Requeue(jobID types.JobID) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	e, exists := jm.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if e.status != types.StatusRunning || e.job.State() != searchjob.StateCreated {
		return ErrNotRunning
	}

	e.status = types.StatusCreated
	e.updatedAt = time.Now().UnixMilli()
	delete(jm.running, jobID)
	jm.queue = append(jm.queue, jobID)
	return nil
}

// CollectDone 取出所有 done 旗標為 true 的執行中任務並從管理器移除
//
// 返回值依加入順序排列。呼叫者負責對每個任務呼叫 Deliver()。
func (jm *JobManager) CollectDone() []*searchjob.Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	var done []*entry
	for id, e := range jm.running {
		if !e.job.Done() {
			continue
		}
		done = append(done, e)
		delete(jm.running, id)
		delete(jm.jobs, id)
	}
	if len(done) == 0 {
		return nil
	}

	sort.Slice(done, func(i, j int) bool { return done[i].seq < done[j].seq })
	jobs := make([]*searchjob.Job, len(done))
	for i, e := range done {
		e.status = types.StatusDelivered
		jobs[i] = e.job
	}
	jm.delivered += len(jobs)
	return jobs
}

// Unstarted 返回已交給 Worker 但搜尋尚未開始的任務，依加入順序排列
//
// 任務仍留在管理器中。關閉時用來找回還在 Worker 佇列裡的任務。
func (jm *JobManager) Unstarted() []*searchjob.Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	var waiting []*entry
	for _, e := range jm.running {
		if e.job.State() == searchjob.StateCreated {
			waiting = append(waiting, e)
		}
	}

	sort.Slice(waiting, func(i, j int) bool { return waiting[i].seq < waiting[j].seq })
	jobs := make([]*searchjob.Job, len(waiting))
	for i, e := range waiting {
		jobs[i] = e.job
	}
	return jobs
}

// Stats 取得各狀態任務的統計資訊
//
// 返回值：
//   - pending: 待分派
//   - running: 已交給 Worker、搜尋尚未完成
//   - done: 搜尋已完成、回呼尚未送達
//   - delivered: 累計已取出送達
func (jm *JobManager) Stats() map[string]int {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	running, done := 0, 0
	for _, e := range jm.running {
		if e.job.Done() {
			done++
		} else {
			running++
		}
	}

	return map[string]int{
		"pending":   len(jm.queue),
		"running":   running,
		"done":      done,
		"delivered": jm.delivered,
	}
}

// ============================================================================
// 查詢方法
// ============================================================================

// GetJob 取得任務，不存在 (或已送達) 時回傳 nil
func (jm *JobManager) GetJob(jobID types.JobID) *searchjob.Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	if e, ok := jm.jobs[jobID]; ok {
		return e.job
	}
	return nil
}

// Status 取得任務目前的狀態
//
// 執行中且 done 旗標已設定的任務回報 StatusDone。
func (jm *JobManager) Status(jobID types.JobID) (types.JobStatus, error) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	e, ok := jm.jobs[jobID]
	if !ok {
		return "", ErrJobNotFound
	}
	if e.status == types.StatusRunning && e.job.Done() {
		return types.StatusDone, nil
	}
	return e.status, nil
}

// Len 返回尚未送達的任務數
func (jm *JobManager) Len() int {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	return len(jm.jobs)
}
