package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ChuLiYu/gridpath/internal/level"
	"github.com/ChuLiYu/gridpath/internal/searchjob"
	"github.com/ChuLiYu/gridpath/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := BuildCLI()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644), "Failed to write test config file")
	return path
}

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()

	assert.NotNil(t, cmd, "BuildCLI should return a non-nil command")
	assert.Equal(t, "gridpath", cmd.Use, "Root command should be 'gridpath'")
	assert.Equal(t, "1.0.0", cmd.Version, "Version should be 1.0.0")

	// 檢查子命令
	commands := cmd.Commands()
	assert.Len(t, commands, 4, "Should have 4 subcommands")

	commandNames := make(map[string]bool)
	for _, c := range commands {
		commandNames[c.Use] = true
	}

	assert.True(t, commandNames["run"], "Should have 'run' command")
	assert.True(t, commandNames["find"], "Should have 'find' command")
	assert.True(t, commandNames["generate"], "Should have 'generate' command")
	assert.True(t, commandNames["status"], "Should have 'status' command")

	// 檢查持久化標誌
	configFlag := cmd.PersistentFlags().Lookup("config")
	assert.NotNil(t, configFlag, "Should have --config flag")
	assert.Equal(t, "c", configFlag.Shorthand, "Should have -c shorthand")
	assert.Equal(t, "configs/default.yaml", configFlag.DefValue, "Default config path should be configs/default.yaml")
}

func TestBuildRunCommand(t *testing.T) {
	cmd := buildRunCommand()

	assert.Equal(t, "run", cmd.Use, "Command should be 'run'")
	assert.Contains(t, cmd.Short, "Start", "Short description should mention 'Start'")
	assert.NotNil(t, cmd.RunE, "RunE function should be set")
}

func TestBuildFindCommand(t *testing.T) {
	cmd := buildFindCommand()

	assert.Equal(t, "find", cmd.Use, "Command should be 'find'")
	for _, name := range []string{"from", "to", "remote", "flat"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "Should have --%s flag", name)
	}
	assert.NotNil(t, cmd.RunE, "RunE function should be set")
}

func TestBuildGenerateCommand(t *testing.T) {
	cmd := buildGenerateCommand()

	assert.Equal(t, "generate", cmd.Use, "Command should be 'generate'")

	outFlag := cmd.Flags().Lookup("out")
	require.NotNil(t, outFlag, "Should have --out flag")
	assert.Equal(t, "o", outFlag.Shorthand, "Should have -o shorthand")
	assert.Equal(t, "32,8,32", cmd.Flags().Lookup("size").DefValue)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	configPath := writeConfig(t, `
level:
  file: "levels/arena.yaml.zst"

coordinator:
  worker_count: 8
  queue_size: 64
  dispatch_interval: 5ms
  poll_interval: 20ms
  allow_vertical: false

server:
  port: 6000

metrics:
  enabled: true
  port: 8080

log:
  level: debug
`)

	cfg, err := loadConfig(configPath)
	require.NoError(t, err, "loadConfig should not return an error")
	require.NotNil(t, cfg, "Config should not be nil")

	assert.Equal(t, "levels/arena.yaml.zst", cfg.Level.File)

	// 驗證 Coordinator 配置
	assert.Equal(t, 8, cfg.Coordinator.WorkerCount, "Worker count should be 8")
	assert.Equal(t, 64, cfg.Coordinator.QueueSize, "Queue size should be 64")
	assert.Equal(t, 5*time.Millisecond, cfg.Coordinator.DispatchInterval)
	assert.Equal(t, 20*time.Millisecond, cfg.Coordinator.PollInterval)
	require.NotNil(t, cfg.Coordinator.AllowVertical)
	assert.False(t, *cfg.Coordinator.AllowVertical, "Vertical moves should be disabled")

	assert.Equal(t, 6000, cfg.Server.Port)
	assert.True(t, cfg.Metrics.Enabled, "Metrics should be enabled")
	assert.Equal(t, 8080, cfg.Metrics.Port, "Metrics port should be 8080")
	assert.Equal(t, "debug", cfg.Log.Level)

	ccfg := cfg.coordinatorConfig(true)
	assert.Equal(t, 8, ccfg.WorkerCount)
	assert.False(t, ccfg.AllowVertical)
	assert.True(t, ccfg.AutoDeliver)
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := loadConfig("/nonexistent/config.yaml")

	assert.Error(t, err, "loadConfig should return an error for nonexistent file")
	assert.Nil(t, cfg, "Config should be nil on error")
	assert.Contains(t, err.Error(), "failed to read config file", "Error should mention file reading failure")
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	// 創建包含無效 YAML 的臨時文件
	configPath := writeConfig(t, `
coordinator:
  worker_count: "not a number"
  invalid yaml structure
    broken indentation
`)

	cfg, err := loadConfig(configPath)

	assert.Error(t, err, "loadConfig should return an error for invalid YAML")
	assert.Nil(t, cfg, "Config should be nil on parse error")
	assert.Contains(t, err.Error(), "failed to parse config YAML", "Error should mention YAML parsing failure")
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	configPath := writeConfig(t, "")

	// 空文件應該能解析，並套用預設值
	cfg, err := loadConfig(configPath)
	require.NoError(t, err, "Empty YAML file should parse without error")

	assert.Equal(t, 4, cfg.Coordinator.WorkerCount)
	assert.Equal(t, 256, cfg.Coordinator.QueueSize)
	assert.Equal(t, 10*time.Millisecond, cfg.Coordinator.DispatchInterval)
	assert.Equal(t, 16*time.Millisecond, cfg.Coordinator.PollInterval)
	require.NotNil(t, cfg.Coordinator.AllowVertical)
	assert.True(t, *cfg.Coordinator.AllowVertical)
	assert.Equal(t, defaultServerPort, cfg.Server.Port)
	assert.Equal(t, defaultMetricsPort, cfg.Metrics.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	// 只包含部分配置
	configPath := writeConfig(t, `
coordinator:
  worker_count: 2
`)

	cfg, err := loadConfig(configPath)
	require.NoError(t, err, "Partial config should parse successfully")
	assert.Equal(t, 2, cfg.Coordinator.WorkerCount, "Worker count should be set")
	assert.Equal(t, 256, cfg.Coordinator.QueueSize, "Unset fields should get defaults")
	assert.Empty(t, cfg.Level.File, "Unset level file should stay empty")
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"WARN", false},
		{"error", false},
		{"verbose", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := setupLogging(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	require.NoError(t, setupLogging("info"))
}

func TestParseCoord(t *testing.T) {
	tests := []struct {
		in      string
		want    types.Coord
		wantErr bool
	}{
		{"0,0,0", types.Coord{}, false},
		{"1,2,3", types.Coord{X: 1, Y: 2, Z: 3}, false},
		{" 4, 5 ,6 ", types.Coord{X: 4, Y: 5, Z: 6}, false},
		{"-1,0,2", types.Coord{X: -1, Y: 0, Z: 2}, false},
		{"1,2", types.Coord{}, true},
		{"1,2,3,4", types.Coord{}, true},
		{"a,b,c", types.Coord{}, true},
		{"", types.Coord{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCoord(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFind_DefaultLevel(t *testing.T) {
	configPath := writeConfig(t, `
coordinator:
  worker_count: 1
  poll_interval: 1ms
`)

	out, err := execute(t, "-c", configPath, "find", "--from", "0,0,0", "--to", "9,0,9")
	require.NoError(t, err)

	assert.Contains(t, out, "Path: (0,0,0) -> (1,0,1)")
	assert.Contains(t, out, "Steps: 9")
	assert.Contains(t, out, "Cost: 126")
}

func TestFind_Unreachable(t *testing.T) {
	dir := t.TempDir()
	levelPath := filepath.Join(dir, "walled.yaml")

	layout := level.DefaultLayout()
	layout.Size = types.Coord{X: 5, Y: 1, Z: 5}
	for z := 0; z < 5; z++ {
		layout.Blocked = append(layout.Blocked, types.Coord{X: 2, Y: 0, Z: z})
	}
	require.NoError(t, level.Write(levelPath, layout))

	configPath := writeConfig(t, "level:\n  file: "+levelPath+"\ncoordinator:\n  poll_interval: 1ms\n")

	out, err := execute(t, "-c", configPath, "find", "--from", "0,0,0", "--to", "4,0,4")
	require.NoError(t, err)
	assert.Contains(t, out, "No path from (0,0,0)")
}

func TestFind_Errors(t *testing.T) {
	configPath := writeConfig(t, "")

	_, err := execute(t, "-c", configPath, "find", "--from", "0,0,0")
	assert.Error(t, err, "missing --to should fail")

	_, err = execute(t, "-c", configPath, "find", "--from", "0,0", "--to", "1,0,1")
	assert.ErrorContains(t, err, "invalid --from")

	_, err = execute(t, "-c", configPath, "find", "--from", "0,0,0", "--to", "50,0,0")
	assert.ErrorIs(t, err, searchjob.ErrOutsideGrid)
}

func TestGenerate_ThenStatus(t *testing.T) {
	dir := t.TempDir()
	levelPath := filepath.Join(dir, "terrain.yaml.zst")

	out, err := execute(t, "generate", "-o", levelPath, "--size", "12,4,12", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "576 cells")
	assert.Contains(t, out, "144 walkable")

	loaded, err := level.Load(levelPath)
	require.NoError(t, err)
	assert.Equal(t, types.Coord{X: 12, Y: 4, Z: 12}, loaded.Size)

	configPath := writeConfig(t, "level:\n  file: "+levelPath+"\n")
	out, err = execute(t, "-c", configPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "12x4x12")
	assert.Contains(t, out, "576")
	assert.Contains(t, out, "Disabled")
}

func TestGenerate_InvalidSize(t *testing.T) {
	out := filepath.Join(t.TempDir(), "bad.yaml")

	_, err := execute(t, "generate", "-o", out, "--size", "0,4,4")
	assert.ErrorIs(t, err, level.ErrInvalidLayout)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no file should be written for an invalid size")
}

func TestShowStatus_DefaultLevel(t *testing.T) {
	configPath := writeConfig(t, `
metrics:
  enabled: true
  port: 9100
`)

	out, err := execute(t, "-c", configPath, "status")
	require.NoError(t, err, "status should not return an error")

	assert.Contains(t, out, "(built-in default)")
	assert.Contains(t, out, "10x3x10")
	assert.Contains(t, out, "http://localhost:9100/metrics")
}

func TestShowStatus_MissingConfig(t *testing.T) {
	_, err := execute(t, "-c", "/nonexistent/config.yaml", "status")
	assert.ErrorContains(t, err, "failed to load config")
}
