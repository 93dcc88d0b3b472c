// Package shapes reduces polygon geometries to a bounded vertex budget by
// searching for a suitable Douglas-Peucker tolerance.
package shapes

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// NumCoordinates returns the total coordinate count of a geometry.
func NumCoordinates(g orb.Geometry) int {
	switch g := g.(type) {
	case nil:
		return 0
	case orb.Point:
		return 1
	case orb.MultiPoint:
		return len(g)
	case orb.LineString:
		return len(g)
	case orb.MultiLineString:
		n := 0
		for _, ls := range g {
			n += len(ls)
		}
		return n
	case orb.Ring:
		return len(g)
	case orb.Polygon:
		n := 0
		for _, r := range g {
			n += len(r)
		}
		return n
	case orb.MultiPolygon:
		n := 0
		for _, p := range g {
			n += NumCoordinates(p)
		}
		return n
	case orb.Collection:
		n := 0
		for _, child := range g {
			n += NumCoordinates(child)
		}
		return n
	case orb.Bound:
		return 2
	}
	return 0
}

// IsEmpty reports whether a geometry has no coordinates left.
func IsEmpty(g orb.Geometry) bool {
	return g == nil || NumCoordinates(g) == 0
}

// SimplifyToTarget returns the geometry unchanged when it is already within
// the target vertex count. Otherwise it bisects a Douglas-Peucker tolerance
// between zero and the larger bounding-box dimension, an upper bound that is
// guaranteed to over-simplify. Throughout the search low keeps the geometry
// over target and high keeps it at or under, so simplifying at the final
// high meets the budget. The iteration count is fixed rather than testing
// for convergence: it bounds latency and keeps output bytes reproducible,
// at the cost of resolving the tolerance only to about D/2^20.
func SimplifyToTarget(g orb.Geometry, target int) orb.Geometry {
	if NumCoordinates(g) <= target {
		return g
	}
	b := g.Bound()
	low, high := 0.0, math.Max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1])
	for i := 0; i < 20; i++ {
		mid := (low + high) / 2
		if NumCoordinates(simplifyAt(g, mid)) > target {
			low = mid
		} else {
			high = mid
		}
	}
	return simplifyAt(g, high)
}

// simplifyAt runs Douglas-Peucker on a clone: orb simplifiers mutate their
// input in place.
func simplifyAt(g orb.Geometry, tolerance float64) orb.Geometry {
	return simplify.DouglasPeucker(tolerance).Simplify(orb.Clone(g))
}
