package geometry

import (
	"sort"

	"github.com/jbeda/geom"
	"github.com/jbeda/geom/qtree"
	"github.com/paulmach/orb"
)

// indexItem is a polygon box stored in the quadtree under its slice index.
type indexItem struct {
	idx  int
	rect geom.Rect
}

func (it indexItem) Bounds() geom.Rect {
	return it.rect
}

func (it indexItem) Equals(oi interface{}) bool {
	other, ok := oi.(indexItem)
	return ok && other.idx == it.idx
}

func toRect(b orb.Bound) geom.Rect {
	return geom.Rect{
		Min: geom.Coord{X: b.Min[0], Y: b.Min[1]},
		Max: geom.Coord{X: b.Max[0], Y: b.Max[1]},
	}
}

// Index is a broad-phase spatial index over a caller-owned polygon slice.
// Queries return indices into that slice. The slice must not change while
// the index is in use.
type Index struct {
	polys []Polygon
	tree  *qtree.Tree
}

// NewIndex builds a quadtree over the bounding boxes of polys.
func NewIndex(polys []Polygon) *Index {
	all := geom.NilRect()
	for i := range polys {
		all.ExpandToContainRect(toRect(polys[i].Bound))
	}
	// Pad so that boxes on the outer edge are strictly inside the root.
	all.Min = all.Min.Minus(geom.Coord{X: 1, Y: 1})
	all.Max = all.Max.Plus(geom.Coord{X: 1, Y: 1})

	tree := qtree.New(qtree.ConfigDefault(), all)
	for i := range polys {
		tree.FindOrInsert(indexItem{idx: i, rect: toRect(polys[i].Bound)})
	}
	return &Index{polys: polys, tree: tree}
}

// Query returns, ascending, the indices whose boxes intersect b.
func (ix *Index) Query(b orb.Bound) []int {
	col := make(map[qtree.Item]bool)
	ix.tree.CollectIntersect(toRect(b), col)
	out := make([]int, 0, len(col))
	for item := range col {
		out = append(out, item.(indexItem).idx)
	}
	sort.Ints(out)
	return out
}

// Neighbors returns the indices of polygons that overlap polygon i.
func (ix *Index) Neighbors(i int) []int {
	var out []int
	for _, j := range ix.Query(ix.polys[i].Bound) {
		if j != i && Overlaps(&ix.polys[i], &ix.polys[j]) {
			out = append(out, j)
		}
	}
	return out
}

// OverlappingPairs returns every overlapping pair (i, j) with i < j.
func (ix *Index) OverlappingPairs() [][2]int {
	var pairs [][2]int
	for i := range ix.polys {
		for _, j := range ix.Query(ix.polys[i].Bound) {
			if j > i && Overlaps(&ix.polys[i], &ix.polys[j]) {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// HasAnyOverlap reports whether any two polygons in polys overlap.
func HasAnyOverlap(polys []Polygon) bool {
	if len(polys) < 2 {
		return false
	}
	ix := NewIndex(polys)
	for i := range polys {
		for _, j := range ix.Query(polys[i].Bound) {
			if j > i && Overlaps(&polys[i], &polys[j]) {
				return true
			}
		}
	}
	return false
}

// QueryNeighbors returns the indices of polygons in polys that overlap polys[i].
func QueryNeighbors(polys []Polygon, i int) []int {
	return NewIndex(polys).Neighbors(i)
}

// OverlappingPairs returns every overlapping pair in polys.
func OverlappingPairs(polys []Polygon) [][2]int {
	return NewIndex(polys).OverlappingPairs()
}
