// Package types defines the value types shared across gridpath packages.
package types

import "fmt"

// Coord is an integer cell coordinate inside a grid.
type Coord struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
	Z int `yaml:"z" json:"z"`
}

// Add returns c offset by (dx, dy, dz).
func (c Coord) Add(dx, dy, dz int) Coord {
	return Coord{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// CellKind tags a cell with the kind of space it represents.
// The search does not consult it.
type CellKind int

const (
	KindGround CellKind = iota // standable ground
	KindAir                    // open air
)

func (k CellKind) String() string {
	switch k {
	case KindGround:
		return "ground"
	case KindAir:
		return "air"
	default:
		return "unknown"
	}
}

// JobID uniquely identifies a search job.
type JobID string

// JobStatus is the coordinator-side status of a search job.
type JobStatus string

const (
	StatusCreated   JobStatus = "created"   // accepted, waiting for a worker
	StatusRunning   JobStatus = "running"   // search body handed to a worker
	StatusDone      JobStatus = "done"      // search finished, callback not yet delivered
	StatusDelivered JobStatus = "delivered" // callback fired, job discarded
)
