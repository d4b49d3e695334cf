package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ChuLiYu/gridpath/internal/coordinator"
	"github.com/ChuLiYu/gridpath/internal/grid"
	"github.com/ChuLiYu/gridpath/internal/level"
	"github.com/ChuLiYu/gridpath/pkg/types"
	"github.com/dustin/go-humanize"
)

// frame is the host loop tick; Poll runs once per frame like a game update.
const frame = 16 * time.Millisecond

func main() {
	jobCount := 1000
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n <= 0 {
			fmt.Println("Usage: go run cmd/demo/main.go [job-count]")
			os.Exit(1)
		}
		jobCount = n
	}

	seed := time.Now().UnixNano()
	layout, err := level.GenerateTerrain(types.Coord{X: 64, Y: 12, Z: 64}, seed)
	if err != nil {
		log.Fatalf("Failed to generate terrain: %v", err)
	}
	g, err := layout.Build()
	if err != nil {
		log.Fatalf("Failed to build grid: %v", err)
	}
	fmt.Printf("✓ Terrain generated (seed %d, %s walkable cells)\n", seed, humanize.Comma(int64(g.WalkableCount())))

	coord := coordinator.New(g, coordinator.DefaultConfig(), nil)
	if err := coord.Start(); err != nil {
		log.Fatalf("Failed to start coordinator: %v", err)
	}
	fmt.Printf("✓ Coordinator started (%d workers)\n", coord.Stats().Workers)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	rng := rand.New(rand.NewSource(seed))
	surface := layout.Walkable
	found, unreachable := 0, 0
	var steps int
	begin := time.Now()

	for i := 0; i < jobCount; i++ {
		from := surface[rng.Intn(len(surface))]
		to := surface[rng.Intn(len(surface))]
		_, err := coord.RequestPath(from, to, func(path []*grid.Cell) {
			if len(path) == 0 && from != to {
				unreachable++
				return
			}
			found++
			steps += len(path)
		})
		if err != nil {
			log.Fatalf("Failed to request path: %v", err)
		}
	}
	fmt.Printf("✓ Requested %s paths\n\n", humanize.Comma(int64(jobCount)))

	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	frames := 0

	for found+unreachable < jobCount {
		select {
		case <-sigChan:
			fmt.Println("\n\nReceived shutdown signal, stopping gracefully...")
			coord.Stop()
			fmt.Println("✓ Coordinator stopped")
			return
		case <-ticker.C:
			frames++
			coord.Poll()
			if frames%10 == 0 {
				st := coord.Stats()
				fmt.Printf("📊 Frame %d: Pending=%d, Running=%d, Delivered=%d\n",
					frames, st.Pending, st.Running, st.Delivered)
			}
		}
	}

	elapsed := time.Since(begin)
	coord.Stop()

	fmt.Printf("\n📊 Final Status:\n")
	fmt.Printf("  Found:       %s\n", humanize.Comma(int64(found)))
	fmt.Printf("  Unreachable: %s\n", humanize.Comma(int64(unreachable)))
	if found > 0 {
		fmt.Printf("  Avg Steps:   %.1f\n", float64(steps)/float64(found))
	}
	fmt.Printf("  Frames:      %d\n", frames)
	fmt.Printf("  Elapsed:     %s\n", elapsed.Round(time.Millisecond))
	fmt.Println("✓ Coordinator stopped")
}
