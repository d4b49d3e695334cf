// Package pathfind implements the A* search over a 3D cell grid.
//
// The entry point is Search, which runs one shortest-path computation from a
// start cell to a target cell. Neighbor expansion understands vertical ledges
// (step down one cell, step up one cell) and refuses horizontal diagonals that
// would clip a blocked corner.
//
// All per-search bookkeeping (g/h costs, parents, open and closed sets) lives
// in tables owned by the call, so any number of searches can run against the
// same grid concurrently.
package pathfind
