// ============================================================================
// gridpath CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Provides user-friendly command line interface based on Cobra framework
//
// Command Structure:
//   gridpath                       # Root command
//   ├── run                        # Start pathfinding service
//   ├── find                       # One-shot path query (local or remote)
//   │   ├── --from, --to          # x,y,z cell coordinates
//   │   ├── --remote              # gRPC address of a running service
//   │   └── --flat                # disable step-up / step-down moves
//   ├── generate                   # Write a Perlin terrain level file
//   ├── status                     # View configuration and level summary
//   ├── --config, -c               # Specify config file
//   ├── --version                  # Display version information
//   └── --help                     # Display help information
//
// run Command:
//   1. Load config file and level
//   2. Create and start Coordinator (background delivery)
//   3. Start Metrics HTTP server (if enabled)
//   4. Start gRPC Pathfinder server
//   5. Listen for system signals (SIGINT, SIGTERM) and shut down gracefully
//
//   Examples:
//     ./gridpath run
//     ./gridpath run -c custom-config.yaml
//
// find Command:
//   Examples:
//     ./gridpath find --from 0,0,0 --to 9,0,9
//     ./gridpath find --from 0,0,0 --to 9,0,9 --remote localhost:50061
//
// ============================================================================

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ChuLiYu/gridpath/internal/coordinator"
	"github.com/ChuLiYu/gridpath/internal/grid"
	"github.com/ChuLiYu/gridpath/internal/level"
	"github.com/ChuLiYu/gridpath/internal/metrics"
	"github.com/ChuLiYu/gridpath/internal/server"
	"github.com/ChuLiYu/gridpath/pkg/types"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var configFile string

// findTimeout bounds a single find query.
const findTimeout = 30 * time.Second

func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gridpath",
		Short: "gridpath: asynchronous A* pathfinding on 3D grids",
		Long: `gridpath runs A* searches over a 3D cell grid on worker goroutines:
- diagonal moves without corner cutting
- single-cell step-up and step-down
- exactly-once completion callbacks
- gRPC service and Prometheus metrics`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildFindCommand())
	rootCmd.AddCommand(buildGenerateCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

// ============================================================================
// run
// ============================================================================

func buildRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the gridpath service",
		Long:  "Load the level, start the coordinator, the gRPC Pathfinder service and the metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := setupLogging(cfg.Log.Level); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runService(ctx, cfg)
		},
	}
	return cmd
}

func runService(ctx context.Context, cfg *Config) error {
	g, err := cfg.loadGrid()
	if err != nil {
		return err
	}
	sx, sy, sz := g.Size()
	slog.Info("Level loaded",
		"size", fmt.Sprintf("%dx%dx%d", sx, sy, sz),
		"walkable", g.WalkableCount())

	var collector *metrics.Collector
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(nil)
		metricsSrv = metrics.NewServer(cfg.Metrics.Port, nil)
		go func() {
			slog.Info("Starting metrics server", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server error", "error", err)
			}
		}()
	}

	coord := coordinator.New(g, cfg.coordinatorConfig(true), collector)
	if err := coord.Start(); err != nil {
		return fmt.Errorf("failed to start coordinator: %w", err)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		coord.Stop()
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.Port, err)
	}
	grpcServer := server.NewGRPCServer(server.NewServer(coord))

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("gRPC server listening", "addr", lis.Addr().String())
		serveErr <- grpcServer.Serve(lis)
	}()

	slog.Info("System started successfully")

	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal, stopping gracefully...")
	case err = <-serveErr:
		slog.Error("gRPC server failed", "error", err)
	}

	// stop the coordinator first so in-flight FindPath calls get their result
	coord.Stop()
	grpcServer.GracefulStop()
	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	slog.Info("System stopped")
	return err
}

// ============================================================================
// find
// ============================================================================

func buildFindCommand() *cobra.Command {
	var from, to, remote string
	var flat bool

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find a path between two cells",
		Long:  "Run a single search against the configured level, or against a running service with --remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseCoord(from)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			target, err := parseCoord(to)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), findTimeout)
			defer cancel()

			var resp *server.PathResponse
			if remote != "" {
				resp, err = findRemote(ctx, remote, start, target)
			} else {
				resp, err = findLocal(ctx, start, target, flat)
			}
			if err != nil {
				return err
			}
			printPath(cmd.OutOrStdout(), start, resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start cell as x,y,z")
	cmd.Flags().StringVar(&to, "to", "", "target cell as x,y,z")
	cmd.Flags().StringVar(&remote, "remote", "", "gRPC address of a running service (e.g. localhost:50061)")
	cmd.Flags().BoolVar(&flat, "flat", false, "disable step-up / step-down moves (local only)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")

	return cmd
}

func findRemote(ctx context.Context, addr string, start, target types.Coord) (*server.PathResponse, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	return server.NewClient(conn).FindPath(ctx, start, target)
}

// findLocal runs the search on a private coordinator and drives delivery with
// Poll the way a host loop would.
func findLocal(ctx context.Context, start, target types.Coord, flat bool) (*server.PathResponse, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	g, err := cfg.loadGrid()
	if err != nil {
		return nil, err
	}

	ccfg := cfg.coordinatorConfig(false)
	if flat {
		ccfg.AllowVertical = false
	}
	coord := coordinator.New(g, ccfg, nil)
	if err := coord.Start(); err != nil {
		return nil, err
	}
	defer coord.Stop()

	var path []*grid.Cell
	delivered := false
	job, err := coord.Request(start, target, func(p []*grid.Cell) {
		path = p
		delivered = true
	})
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(ccfg.PollInterval)
	defer ticker.Stop()
	for !delivered {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			coord.Poll()
		}
	}

	if err := job.Err(); err != nil {
		return nil, err
	}
	res := job.Result()
	resp := &server.PathResponse{
		JobID:    job.ID(),
		Found:    res.Found,
		Cost:     res.TotalCost,
		Expanded: res.ExpandedCells,
	}
	for _, c := range path {
		resp.Path = append(resp.Path, c.Coord())
	}
	return resp, nil
}

func printPath(w io.Writer, start types.Coord, resp *server.PathResponse) {
	if !resp.Found {
		fmt.Fprintf(w, "No path from %s (expanded %s cells)\n", start, humanize.Comma(int64(resp.Expanded)))
		return
	}

	steps := make([]string, 0, len(resp.Path)+1)
	steps = append(steps, start.String())
	for _, c := range resp.Path {
		steps = append(steps, c.String())
	}
	fmt.Fprintf(w, "Path: %s\n", strings.Join(steps, " -> "))
	fmt.Fprintf(w, "Steps: %d  Cost: %s  Expanded: %s cells\n",
		len(resp.Path),
		humanize.Ftoa(resp.Cost),
		humanize.Comma(int64(resp.Expanded)))
}

// ============================================================================
// generate
// ============================================================================

func buildGenerateCommand() *cobra.Command {
	var out, size string
	var seed int64

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a terrain level file",
		Long:  "Write a Perlin heightmap level; files ending in .zst are zstd-compressed",
		RunE: func(cmd *cobra.Command, args []string) error {
			dims, err := parseCoord(size)
			if err != nil {
				return fmt.Errorf("invalid --size: %w", err)
			}
			layout, err := level.GenerateTerrain(dims, seed)
			if err != nil {
				return err
			}
			if err := level.Write(out, layout); err != nil {
				return fmt.Errorf("failed to write level: %w", err)
			}

			info, err := os.Stat(out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %s cells, %s walkable, %s\n",
				out,
				humanize.Comma(int64(dims.X*dims.Y*dims.Z)),
				humanize.Comma(int64(len(layout.Walkable))),
				humanize.Bytes(uint64(info.Size())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "levels/terrain.yaml", "output level file")
	cmd.Flags().StringVar(&size, "size", "32,8,32", "level size as x,y,z")
	cmd.Flags().Int64Var(&seed, "seed", 1, "noise seed")

	return cmd
}

// ============================================================================
// status
// ============================================================================

func buildStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show system status",
		Long:  "Display configuration and level summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(cmd.OutOrStdout())
		},
	}
	return cmd
}

func showStatus(w io.Writer) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Fprintln(w, "gridpath status")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  ├─ Config File:       %s\n", configFile)
	fmt.Fprintf(w, "  ├─ Workers:           %d\n", cfg.Coordinator.WorkerCount)
	fmt.Fprintf(w, "  ├─ Queue Size:        %d\n", cfg.Coordinator.QueueSize)
	fmt.Fprintf(w, "  ├─ Poll Interval:     %s\n", cfg.Coordinator.PollInterval)
	fmt.Fprintf(w, "  ├─ Vertical Moves:    %t\n", *cfg.Coordinator.AllowVertical)
	fmt.Fprintf(w, "  └─ gRPC Port:         %d\n", cfg.Server.Port)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Level:")
	layout, err := cfg.loadLevel()
	if err != nil {
		fmt.Fprintf(w, "  └─ Error: %v\n", err)
	} else {
		source := cfg.Level.File
		if source == "" {
			source = "(built-in default)"
		}
		g, err := layout.Build()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  ├─ Source:            %s\n", source)
		fmt.Fprintf(w, "  ├─ Size:              %dx%dx%d\n", layout.Size.X, layout.Size.Y, layout.Size.Z)
		fmt.Fprintf(w, "  ├─ Cells:             %s\n", humanize.Comma(int64(g.CellCount())))
		fmt.Fprintf(w, "  └─ Walkable:          %s\n", humanize.Comma(int64(g.WalkableCount())))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Metrics:")
	if cfg.Metrics.Enabled {
		fmt.Fprintf(w, "  └─ Enabled on http://localhost:%d/metrics\n", cfg.Metrics.Port)
	} else {
		fmt.Fprintln(w, "  └─ Disabled")
	}
	return nil
}

// parseCoord parses "x,y,z".
func parseCoord(s string) (types.Coord, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return types.Coord{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var xyz [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return types.Coord{}, fmt.Errorf("component %d of %q: %w", i, s, err)
		}
		xyz[i] = v
	}
	return types.Coord{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
