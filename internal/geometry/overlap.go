package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// Tolerance is the largest projection overlap, in length units, still
// treated as contact. Pieces that share an edge or a vertex do not overlap.
const Tolerance = 1e-12

// Overlaps reports whether the interiors of a and b intersect with positive
// area. Touching along edges or at vertices is not an overlap.
func Overlaps(a, b *Polygon) bool {
	if !boxesOverlap(a.Bound, b.Bound) {
		return false
	}
	for i, pa := range convexParts {
		if !boxesOverlap(a.parts[i], b.Bound) {
			continue
		}
		for j, pb := range convexParts {
			if !boxesOverlap(a.parts[i], b.parts[j]) {
				continue
			}
			if convexOverlap(a, pa, b, pb) {
				return true
			}
		}
	}
	return false
}

// boxesOverlap is the axis-aligned special case of the separating-axis test.
func boxesOverlap(a, b orb.Bound) bool {
	return a.Min[0] < b.Max[0]-Tolerance && b.Min[0] < a.Max[0]-Tolerance &&
		a.Min[1] < b.Max[1]-Tolerance && b.Min[1] < a.Max[1]-Tolerance
}

// convexOverlap runs the separating-axis test on two convex parts given as
// vertex indices into their polygons.
func convexOverlap(a *Polygon, ia []int, b *Polygon, ib []int) bool {
	if separatedByEdges(a, ia, a, ia, b, ib) {
		return false
	}
	if separatedByEdges(b, ib, a, ia, b, ib) {
		return false
	}
	return true
}

// separatedByEdges tries every edge normal of the part (src, is) as an axis.
func separatedByEdges(src *Polygon, is []int, a *Polygon, ia []int, b *Polygon, ib []int) bool {
	for k := range is {
		p := src.Points[is[k]]
		q := src.Points[is[(k+1)%len(is)]]
		nx, ny := -(q[1] - p[1]), q[0]-p[0]
		l := math.Hypot(nx, ny)
		if l == 0 {
			continue
		}
		nx, ny = nx/l, ny/l

		minA, maxA := project(a, ia, nx, ny)
		minB, maxB := project(b, ib, nx, ny)
		if maxA <= minB+Tolerance || maxB <= minA+Tolerance {
			return true
		}
	}
	return false
}

func project(poly *Polygon, idx []int, nx, ny float64) (float64, float64) {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, i := range idx {
		d := poly.Points[i][0]*nx + poly.Points[i][1]*ny
		if d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}
	return lo, hi
}

// CollidesWithAny reports whether candidate overlaps any polygon in polys
// other than the indices in skip. bounds must be the bounding boxes of polys;
// scanning them first keeps the exact test off most pairs.
func CollidesWithAny(candidate *Polygon, polys []Polygon, bounds []orb.Bound, skip ...int) bool {
	for j := range bounds {
		if !boxesOverlap(candidate.Bound, bounds[j]) || skipped(j, skip) {
			continue
		}
		if Overlaps(candidate, &polys[j]) {
			return true
		}
	}
	return false
}

func skipped(j int, skip []int) bool {
	for _, s := range skip {
		if s == j {
			return true
		}
	}
	return false
}
