package integration

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/ChuLiYu/gridpath/internal/coordinator"
	"github.com/ChuLiYu/gridpath/internal/grid"
	"github.com/ChuLiYu/gridpath/internal/level"
	"github.com/ChuLiYu/gridpath/pkg/types"
	"github.com/stretchr/testify/require"
)

func terrainCoordinator(tb testing.TB, workers int) (*coordinator.Coordinator, []types.Coord) {
	tb.Helper()
	layout, err := level.GenerateTerrain(types.Coord{X: 48, Y: 8, Z: 48}, 7)
	require.NoError(tb, err)
	g, err := layout.Build()
	require.NoError(tb, err)

	coord := coordinator.New(g, coordinator.Config{
		WorkerCount:   workers,
		QueueSize:     1024,
		AllowVertical: true,
	}, nil)
	require.NoError(tb, coord.Start())
	tb.Cleanup(coord.Stop)
	return coord, layout.Walkable
}

// TestSystemThroughput 提交 500 個查詢，由主執行緒以 Poll 送達，
// 驗證全部在時限內送達且每個回呼只執行一次
func TestSystemThroughput(t *testing.T) {
	coord, surface := terrainCoordinator(t, 8)

	const total = 500
	var delivered atomic.Int64
	begin := time.Now()

	for i := 0; i < total; i++ {
		from := surface[(i*37)%len(surface)]
		to := surface[(i*101+13)%len(surface)]
		_, err := coord.RequestPath(from, to, func([]*grid.Cell) {
			delivered.Add(1)
		})
		require.NoError(t, err)
	}

	deadline := time.Now().Add(60 * time.Second)
	for delivered.Load() < total && time.Now().Before(deadline) {
		coord.Poll()
		time.Sleep(time.Millisecond)
	}

	elapsed := time.Since(begin)
	require.Equal(t, int64(total), delivered.Load(), "all callbacks should fire")

	// 再 Poll 幾次不應重複送達
	for i := 0; i < 5; i++ {
		coord.Poll()
	}
	require.Equal(t, int64(total), delivered.Load())

	stats := coord.Stats()
	t.Logf("delivered %d paths in %v (%.0f paths/s)", total, elapsed, float64(total)/elapsed.Seconds())
	require.Equal(t, total, stats.Delivered)
	require.Zero(t, stats.Pending+stats.Running+stats.Done)
}

func BenchmarkThroughput(b *testing.B) {
	coord, surface := terrainCoordinator(b, 8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var delivered int
		for j := 0; j < 100; j++ {
			from := surface[(i+j*37)%len(surface)]
			to := surface[(i*7+j*101)%len(surface)]
			_, err := coord.RequestPath(from, to, func([]*grid.Cell) { delivered++ })
			require.NoError(b, err)
		}
		for delivered < 100 {
			coord.Poll()
		}
	}
	b.StopTimer()
}
