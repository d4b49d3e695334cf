// ============================================================================
// gridpath 端到端測試套件
// ============================================================================
//
// Package: test/integration
// 文件: pipeline_test.go
// 功能: 關卡檔 → Grid → Coordinator → gRPC 的完整流程
//
// TestLevelFileToService:
//   - 以壓縮格式寫入含牆的關卡
//   - 重新載入並建立 Grid
//   - 透過 gRPC 查詢繞牆路徑與不可達路徑
//
// TestTerrainSearch:
//   - 產生 Perlin 地形
//   - 相鄰地表格子之間的查詢必須送達且路徑合法
//
// ============================================================================

package integration

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/ChuLiYu/gridpath/internal/coordinator"
	"github.com/ChuLiYu/gridpath/internal/grid"
	"github.com/ChuLiYu/gridpath/internal/level"
	"github.com/ChuLiYu/gridpath/internal/server"
	"github.com/ChuLiYu/gridpath/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func serve(t *testing.T, g *grid.Grid) *server.Client {
	t.Helper()

	coord := coordinator.New(g, coordinator.Config{
		WorkerCount:   4,
		PollInterval:  time.Millisecond,
		AllowVertical: true,
		AutoDeliver:   true,
	}, nil)
	require.NoError(t, coord.Start())

	lis := bufconn.Listen(1 << 20)
	gs := server.NewGRPCServer(server.NewServer(coord))
	go func() { _ = gs.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		coord.Stop()
		gs.Stop()
	})
	return server.NewClient(conn)
}

func TestLevelFileToService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levels", "walled.yaml.zst")

	// 8×1×8 平面，x=4 一整排牆，只在 z=7 留一個缺口
	layout := level.DefaultLayout()
	layout.Size = types.Coord{X: 8, Y: 1, Z: 8}
	for z := 0; z < 7; z++ {
		layout.Blocked = append(layout.Blocked, types.Coord{X: 4, Y: 0, Z: z})
	}
	require.NoError(t, level.Write(path, layout))

	loaded, err := level.Load(path)
	require.NoError(t, err)
	g, err := loaded.Build()
	require.NoError(t, err)

	client := serve(t, g)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.FindPath(ctx, types.Coord{}, types.Coord{X: 7, Y: 0, Z: 0})
	require.NoError(t, err)
	require.True(t, resp.Found)
	assert.Contains(t, resp.Path, types.Coord{X: 4, Y: 0, Z: 7}, "path must go through the gap")
	assert.Equal(t, types.Coord{X: 7, Y: 0, Z: 0}, resp.Path[len(resp.Path)-1])

	// 封住缺口之後變成不可達
	require.NoError(t, g.SetWalkable(types.Coord{X: 4, Y: 0, Z: 7}, false))
	resp, err = client.FindPath(ctx, types.Coord{}, types.Coord{X: 7, Y: 0, Z: 0})
	require.NoError(t, err)
	assert.False(t, resp.Found)
	assert.Empty(t, resp.Path)
}

func TestTerrainSearch(t *testing.T) {
	size := types.Coord{X: 24, Y: 6, Z: 24}
	layout, err := level.GenerateTerrain(size, 42)
	require.NoError(t, err)
	g, err := layout.Build()
	require.NoError(t, err)

	client := serve(t, g)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	surface := make(map[[2]int]types.Coord, len(layout.Walkable))
	for _, c := range layout.Walkable {
		surface[[2]int{c.X, c.Z}] = c
	}

	for x := 0; x+1 < size.X; x += 3 {
		from := surface[[2]int{x, 0}]
		to := surface[[2]int{x + 1, 0}]

		resp, err := client.FindPath(ctx, from, to)
		require.NoError(t, err)
		if !resp.Found {
			continue
		}

		// 每一步都落在地表上，且高度差不超過 1
		prev := from
		for _, c := range resp.Path {
			assert.Equal(t, surface[[2]int{c.X, c.Z}], c, "step %s is not on the surface", c)
			assert.LessOrEqual(t, abs(c.Y-prev.Y), 1)
			assert.LessOrEqual(t, abs(c.X-prev.X), 1)
			assert.LessOrEqual(t, abs(c.Z-prev.Z), 1)
			prev = c
		}
		assert.Equal(t, to, prev)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
