package grid

import (
	"sync"
	"testing"

	"github.com/ChuLiYu/gridpath/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	g, err := New(4, 2, 3)
	require.NoError(t, err)

	x, y, z := g.Size()
	assert.Equal(t, 4, x)
	assert.Equal(t, 2, y)
	assert.Equal(t, 3, z)
	assert.Equal(t, 24, g.CellCount())
	assert.Equal(t, 24, g.WalkableCount(), "new cells start walkable")
}

func TestNew_InvalidSize(t *testing.T) {
	_, err := New(0, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = New(3, -1, 3)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestLookup(t *testing.T) {
	g, err := New(3, 3, 3)
	require.NoError(t, err)

	c := g.Lookup(1, 2, 0)
	require.NotNil(t, c)
	assert.Equal(t, types.Coord{X: 1, Y: 2, Z: 0}, c.Coord())
	assert.Equal(t, 1, c.X())
	assert.Equal(t, 2, c.Y())
	assert.Equal(t, 0, c.Z())
	assert.Equal(t, types.KindGround, c.Kind())

	tests := []struct {
		name    string
		x, y, z int
	}{
		{"negative x", -1, 0, 0},
		{"negative y", 0, -1, 0},
		{"negative z", 0, 0, -1},
		{"x past end", 3, 0, 0},
		{"y past end", 0, 3, 0},
		{"z past end", 0, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, g.Lookup(tt.x, tt.y, tt.z))
		})
	}
}

func TestLookup_IdentityStable(t *testing.T) {
	g, err := New(2, 2, 2)
	require.NoError(t, err)

	a := g.Lookup(1, 1, 1)
	require.NoError(t, g.SetWalkable(types.Coord{X: 1, Y: 1, Z: 1}, false))
	b := g.Lookup(1, 1, 1)

	assert.Same(t, a, b)
	assert.False(t, b.Walkable())
	assert.True(t, g.Contains(a))
}

func TestContains_ForeignCell(t *testing.T) {
	g1, err := New(2, 1, 2)
	require.NoError(t, err)
	g2, err := New(2, 1, 2)
	require.NoError(t, err)

	assert.False(t, g1.Contains(g2.Lookup(0, 0, 0)))
	assert.False(t, g1.Contains(nil))
}

func TestMutators(t *testing.T) {
	g, err := New(2, 2, 2)
	require.NoError(t, err)

	at := types.Coord{X: 0, Y: 1, Z: 1}
	require.NoError(t, g.SetKind(at, types.KindAir))
	require.NoError(t, g.SetWorldRef(at, "block-7"))
	require.NoError(t, g.SetWalkable(at, false))

	c := g.At(at)
	assert.Equal(t, types.KindAir, c.Kind())
	assert.Equal(t, "block-7", c.WorldRef())
	assert.False(t, c.Walkable())
	assert.Equal(t, 7, g.WalkableCount())

	err = g.SetWalkable(types.Coord{X: 5, Y: 0, Z: 0}, true)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestLookup_ConcurrentReaders(t *testing.T) {
	g, err := New(8, 2, 8)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				x, z := i%8, (i/8)%8
				c := g.Lookup(x, i%2, z)
				if c == nil || c.X() != x || c.Z() != z {
					t.Errorf("lookup (%d,%d,%d) returned %v", x, i%2, z, c)
					return
				}
			}
		}()
	}
	wg.Wait()
}
