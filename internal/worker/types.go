package worker

import (
	"time"

	"github.com/ChuLiYu/gridpath/internal/searchjob"
	"github.com/ChuLiYu/gridpath/pkg/types"
)

// Task 代表要執行的搜尋任務
type Task struct {
	Job        *searchjob.Job // 要執行的 Search Job
	EnqueuedAt time.Time      // 提交時間，用於計算排隊延遲
}

// Result 代表任務執行結果
type Result struct {
	JobID      types.JobID   // 任務 ID
	Found      bool          // 是否找到路徑
	PathLength int           // 路徑長度（不含起點）
	Cost       float64       // 路徑總成本
	Expanded   int           // 展開的格子數
	Error      error         // 內部錯誤（目標不可達不算錯誤）
	Duration   time.Duration // 搜尋執行時間
	QueueWait  time.Duration // 在佇列中等待的時間
}
