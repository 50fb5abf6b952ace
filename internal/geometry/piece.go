// Package geometry places the tree-shaped piece in the plane and decides
// whether two placed pieces overlap.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/piwi3910/TreePack/internal/model"
)

// NumVertices is the number of vertices of the piece outline.
const NumVertices = 15

// Outline is the piece in its local frame, clockwise from the tip.
var Outline = [NumVertices]orb.Point{
	{0, 0.8},
	{0.125, 0.5},
	{0.0625, 0.5},
	{0.2, 0.25},
	{0.1, 0.25},
	{0.35, 0},
	{0.075, 0},
	{0.075, -0.2},
	{-0.075, -0.2},
	{-0.075, 0},
	{-0.35, 0},
	{-0.1, 0.25},
	{-0.2, 0.25},
	{-0.0625, 0.5},
	{-0.125, 0.5},
}

// convexParts splits the outline into convex pieces whose union is the
// outline: tip triangle, upper tier, lower tier, trunk.
var convexParts = [...][]int{
	{0, 1, 14},
	{2, 3, 12, 13},
	{4, 5, 10, 11},
	{6, 7, 8, 9},
}

const numParts = len(convexParts)

// Polygon is one piece placed in the plane.
type Polygon struct {
	Points [NumVertices]orb.Point
	Bound  orb.Bound
	parts  [numParts]orb.Bound
}

// Transform rotates the outline by p.Deg degrees counter-clockwise about the
// origin, then translates it by (p.X, p.Y).
func Transform(p model.Placement) Polygon {
	rad := p.Deg * math.Pi / 180
	sin, cos := math.Sincos(rad)

	var poly Polygon
	for i, v := range Outline {
		poly.Points[i] = orb.Point{
			v[0]*cos - v[1]*sin + p.X,
			v[0]*sin + v[1]*cos + p.Y,
		}
	}
	poly.Bound = boundOf(poly.Points[:])
	for k, idx := range convexParts {
		b := orb.Bound{Min: poly.Points[idx[0]], Max: poly.Points[idx[0]]}
		for _, i := range idx[1:] {
			b = b.Extend(poly.Points[i])
		}
		poly.parts[k] = b
	}
	return poly
}

// TransformGroup places every member of a group.
func TransformGroup(g model.Group) []Polygon {
	polys := make([]Polygon, len(g))
	for i, p := range g {
		polys[i] = Transform(p)
	}
	return polys
}

// Bounds returns the bounding boxes of polys as a parallel slice.
func Bounds(polys []Polygon) []orb.Bound {
	out := make([]orb.Bound, len(polys))
	for i := range polys {
		out[i] = polys[i].Bound
	}
	return out
}

// Ring returns the closed outline.
func (p *Polygon) Ring() orb.Ring {
	ring := make(orb.Ring, 0, NumVertices+1)
	ring = append(ring, p.Points[:]...)
	return append(ring, p.Points[0])
}

// Area returns the area enclosed by the outline.
func (p *Polygon) Area() float64 {
	return math.Abs(planar.Area(p.Ring()))
}

func boundOf(points []orb.Point) orb.Bound {
	b := orb.Bound{Min: points[0], Max: points[0]}
	for _, pt := range points[1:] {
		b = b.Extend(pt)
	}
	return b
}
