package level

// ============================================================================
// 職責說明：
// 1. 將關卡描述序列化為 YAML 檔
// 2. 副檔名為 .zst 時以 zstd 壓縮
// 3. 使用原子性寫入（temp file + rename）防止損壞
// 4. 載入時驗證 schema 版本相容性
// ============================================================================

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// ============================================================================
// 錯誤定義
// ============================================================================

var (
	ErrCorruptedLevel      = errors.New("level file is corrupted")
	ErrIncompatibleVersion = errors.New("level schema version is incompatible")
	ErrLevelNotFound       = errors.New("level file not found")
)

func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// Write 原子性寫入關卡檔
//
// 流程：
// 1. 序列化（必要時壓縮）後寫入臨時檔案（.tmp）
// 2. 使用 os.Rename 原子性替換原始檔案
func Write(path string, layout Layout) error {
	if layout.SchemaVersion == 0 {
		layout.SchemaVersion = SchemaVersion
	}
	if err := layout.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(&layout)
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}

	if compressed(path) {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to close zstd encoder: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create level directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp level: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename level: %w", err)
	}

	return nil
}

// Load 載入並驗證關卡檔
//
// 行為：
//   - 檔案不存在時回傳 ErrLevelNotFound
//   - 解壓或反序列化失敗回傳 ErrCorruptedLevel
//   - 版本不符回傳 ErrIncompatibleVersion
func Load(path string) (Layout, error) {
	var layout Layout

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return layout, fmt.Errorf("%w: %s", ErrLevelNotFound, path)
		}
		return layout, fmt.Errorf("failed to read level: %w", err)
	}

	if compressed(path) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return layout, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		data, err = dec.DecodeAll(data, nil)
		dec.Close()
		if err != nil {
			return layout, fmt.Errorf("%w: %v", ErrCorruptedLevel, err)
		}
	}

	if err := yaml.Unmarshal(data, &layout); err != nil {
		return layout, fmt.Errorf("%w: %v", ErrCorruptedLevel, err)
	}

	if layout.SchemaVersion != SchemaVersion {
		return layout, fmt.Errorf("%w: got %d, want %d", ErrIncompatibleVersion, layout.SchemaVersion, SchemaVersion)
	}

	if err := layout.Validate(); err != nil {
		return layout, err
	}
	return layout, nil
}
