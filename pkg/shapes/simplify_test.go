package shapes

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// circle builds a closed ring approximating a circle with n segments.
func circle(n int, radius float64) orb.Polygon {
	ring := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, orb.Point{radius * math.Cos(theta), radius * math.Sin(theta)})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

func TestNumCoordinates(t *testing.T) {
	t.Parallel()

	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	tests := []struct {
		name string
		geom orb.Geometry
		want int
	}{
		{name: "nil", geom: nil, want: 0},
		{name: "point", geom: orb.Point{1, 2}, want: 1},
		{name: "line string", geom: orb.LineString{{0, 0}, {1, 1}, {2, 2}}, want: 3},
		{name: "polygon", geom: square, want: 5},
		{name: "polygon with hole", geom: orb.Polygon{square[0], {{0.2, 0.2}, {0.4, 0.2}, {0.3, 0.4}, {0.2, 0.2}}}, want: 9},
		{name: "multi polygon", geom: orb.MultiPolygon{square, square}, want: 10},
		{name: "collection", geom: orb.Collection{orb.Point{0, 0}, square}, want: 6},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NumCoordinates(tt.geom))
		})
	}
}

func TestSimplifyToTargetIdentityUnderBudget(t *testing.T) {
	t.Parallel()

	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	got := SimplifyToTarget(square, 100)
	assert.Equal(t, orb.Geometry(square), got, "geometries within budget must pass through unchanged")

	exact := circle(9, 1) // 10 coordinates
	assert.Equal(t, orb.Geometry(exact), SimplifyToTarget(exact, 10))
}

func TestSimplifyToTargetMeetsBudget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		n      int
		target int
	}{
		{name: "mild reduction", n: 500, target: 250},
		{name: "heavy reduction", n: 5000, target: 100},
		{name: "spec scenario 50k to 1k", n: 50000, target: 1000},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := circle(tt.n, 10)
			before := NumCoordinates(g)
			got := SimplifyToTarget(g, tt.target)
			after := NumCoordinates(got)
			require.False(t, IsEmpty(got))
			assert.LessOrEqual(t, after, tt.target)
			assert.Less(t, after, before, "simplification must never increase the vertex count")
		})
	}
}

func TestSimplifyToTargetDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	g := circle(1000, 10)
	before := NumCoordinates(g)
	SimplifyToTarget(g, 50)
	assert.Equal(t, before, NumCoordinates(g))
}

func TestSimplifyMultiPolygon(t *testing.T) {
	t.Parallel()

	mp := orb.MultiPolygon{circle(2000, 5), circle(2000, 3)}
	got := SimplifyToTarget(mp, 200)
	require.False(t, IsEmpty(got))
	assert.LessOrEqual(t, NumCoordinates(got), 200)
}

func TestIsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(orb.Polygon{}))
	assert.False(t, IsEmpty(orb.Point{0, 0}))
}
