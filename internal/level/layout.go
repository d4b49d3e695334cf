// ============================================================================
// gridpath Level Layout - 關卡描述與 Grid 建構
// ============================================================================
//
// Package: internal/level
// 文件: layout.go
// 功能: 描述一個關卡的格子尺寸、可行走性與世界座標偏移，並建構 grid.Grid
//
// 關卡格式 (schema version 1):
//   schema_version: 1
//   size: {x: 10, y: 3, z: 10}
//   offset: {x: 1, y: 1, z: 1}   # 每格的世界座標單位
//   default_walkable: true
//   blocked: [...]               # default_walkable 為 true 時的例外
//   walkable: [...]              # default_walkable 為 false 時的例外
//   air: [...]                   # 標記為 air 的格子，僅作資訊用途
//
// ============================================================================

package level

import (
	"errors"
	"fmt"

	"github.com/ChuLiYu/gridpath/internal/grid"
	"github.com/ChuLiYu/gridpath/pkg/types"
)

// SchemaVersion 目前的關卡格式版本
const SchemaVersion = 1

var (
	// ErrInvalidLayout 關卡描述不合法
	ErrInvalidLayout = errors.New("invalid level layout")
)

// Vec3 世界座標向量
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// WorldPos 是 Build() 寫入每個 Cell 的 worldRef：格子在世界中的位置
type WorldPos Vec3

// Layout 關卡描述
type Layout struct {
	SchemaVersion   int           `yaml:"schema_version"`
	Size            types.Coord   `yaml:"size"`
	Offset          Vec3          `yaml:"offset"`
	DefaultWalkable bool          `yaml:"default_walkable"`
	Blocked         []types.Coord `yaml:"blocked,omitempty"`
	Walkable        []types.Coord `yaml:"walkable,omitempty"`
	Air             []types.Coord `yaml:"air,omitempty"`
}

// DefaultLayout 返回預設關卡：10×3×10，每格一個世界單位，全部可行走
func DefaultLayout() Layout {
	return Layout{
		SchemaVersion:   SchemaVersion,
		Size:            types.Coord{X: 10, Y: 3, Z: 10},
		Offset:          Vec3{X: 1, Y: 1, Z: 1},
		DefaultWalkable: true,
	}
}

// Validate 檢查尺寸與所有例外座標
func (l Layout) Validate() error {
	if l.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: schema version %d, want %d", ErrInvalidLayout, l.SchemaVersion, SchemaVersion)
	}
	if l.Size.X <= 0 || l.Size.Y <= 0 || l.Size.Z <= 0 {
		return fmt.Errorf("%w: size %s", ErrInvalidLayout, l.Size)
	}

	lists := map[string][]types.Coord{
		"blocked":  l.Blocked,
		"walkable": l.Walkable,
		"air":      l.Air,
	}
	for name, coords := range lists {
		for _, c := range coords {
			if !l.contains(c) {
				return fmt.Errorf("%w: %s cell %s outside size %s", ErrInvalidLayout, name, c, l.Size)
			}
		}
	}
	return nil
}

func (l Layout) contains(c types.Coord) bool {
	return c.X >= 0 && c.X < l.Size.X &&
		c.Y >= 0 && c.Y < l.Size.Y &&
		c.Z >= 0 && c.Z < l.Size.Z
}

// WorldPosition 返回格子 c 的世界座標
func (l Layout) WorldPosition(c types.Coord) WorldPos {
	return WorldPos{
		X: float64(c.X) * l.Offset.X,
		Y: float64(c.Y) * l.Offset.Y,
		Z: float64(c.Z) * l.Offset.Z,
	}
}

// Build 依關卡描述建構 Grid
//
// 例外清單中只有與 DefaultWalkable 相反的那一份會被套用。
// 每個 Cell 的 worldRef 設為其 WorldPos。
func (l Layout) Build() (*grid.Grid, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}

	g, err := grid.New(l.Size.X, l.Size.Y, l.Size.Z)
	if err != nil {
		return nil, err
	}

	for z := 0; z < l.Size.Z; z++ {
		for y := 0; y < l.Size.Y; y++ {
			for x := 0; x < l.Size.X; x++ {
				c := types.Coord{X: x, Y: y, Z: z}
				if err := g.SetWalkable(c, l.DefaultWalkable); err != nil {
					return nil, err
				}
				if err := g.SetWorldRef(c, l.WorldPosition(c)); err != nil {
					return nil, err
				}
			}
		}
	}

	exceptions := l.Walkable
	if l.DefaultWalkable {
		exceptions = l.Blocked
	}
	for _, c := range exceptions {
		if err := g.SetWalkable(c, !l.DefaultWalkable); err != nil {
			return nil, err
		}
	}
	for _, c := range l.Air {
		if err := g.SetKind(c, types.KindAir); err != nil {
			return nil, err
		}
	}

	return g, nil
}
