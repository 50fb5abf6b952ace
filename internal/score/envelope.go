// Package score computes the enclosing square of a group, its normalized
// score, and validates whole submissions.
package score

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/piwi3910/TreePack/internal/geometry"
	"github.com/piwi3910/TreePack/internal/model"
)

// emptyBound is the identity for Union: every real box replaces it.
var emptyBound = orb.Bound{
	Min: orb.Point{math.Inf(1), math.Inf(1)},
	Max: orb.Point{math.Inf(-1), math.Inf(-1)},
}

// Side returns the side length of the smallest axis-aligned square that
// contains b. An empty bound has side 0.
func Side(b orb.Bound) float64 {
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if w < 0 || h < 0 {
		return 0
	}
	return math.Max(w, h)
}

// Normalized returns side²/n.
func Normalized(side float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return side * side / float64(n)
}

// Batch returns the union of bounds in one pass.
func Batch(bounds []orb.Bound) orb.Bound {
	env := emptyBound
	for _, b := range bounds {
		env = union(env, b)
	}
	return env
}

// GroupScore returns the normalized score of g and its envelope.
func GroupScore(g model.Group) (float64, orb.Bound) {
	if len(g) == 0 {
		return 0, emptyBound
	}
	env := Batch(geometry.Bounds(geometry.TransformGroup(g)))
	return Normalized(Side(env), len(g)), env
}

// LeaveOneOut returns, for each i, the envelope of every bound except
// bounds[i], using prefix and suffix extrema.
func LeaveOneOut(bounds []orb.Bound) []orb.Bound {
	n := len(bounds)
	out := make([]orb.Bound, n)
	if n == 0 {
		return out
	}
	suffix := make([]orb.Bound, n+1)
	suffix[n] = emptyBound
	for i := n - 1; i >= 0; i-- {
		suffix[i] = union(suffix[i+1], bounds[i])
	}
	prefix := emptyBound
	for i := 0; i < n; i++ {
		out[i] = union(prefix, suffix[i+1])
		prefix = union(prefix, bounds[i])
	}
	return out
}

// union is orb.Bound.Union without its empty-bound special cases, so that
// emptyBound behaves as an identity.
func union(a, b orb.Bound) orb.Bound {
	return orb.Bound{
		Min: orb.Point{math.Min(a.Min[0], b.Min[0]), math.Min(a.Min[1], b.Min[1])},
		Max: orb.Point{math.Max(a.Max[0], b.Max[0]), math.Max(a.Max[1], b.Max[1])},
	}
}
