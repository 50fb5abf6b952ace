package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/TreePack/internal/model"
)

// pieceArea is the area of the outline: tip 0.0375, tiers 0.065625 and
// 0.1125, trunk 0.03.
const pieceArea = 0.245625

func makeTestPolys(placements ...model.Placement) []Polygon {
	return TransformGroup(model.Group(placements))
}

func TestTransformIdentity(t *testing.T) {
	p := Transform(model.Placement{})
	for i, v := range Outline {
		assert.InDelta(t, v[0], p.Points[i][0], 1e-15)
		assert.InDelta(t, v[1], p.Points[i][1], 1e-15)
	}
	assert.InDelta(t, -0.35, p.Bound.Min[0], 1e-15)
	assert.InDelta(t, 0.35, p.Bound.Max[0], 1e-15)
	assert.InDelta(t, -0.2, p.Bound.Min[1], 1e-15)
	assert.InDelta(t, 0.8, p.Bound.Max[1], 1e-15)
}

func TestTransformRotatesCounterClockwise(t *testing.T) {
	p := Transform(model.Placement{X: 1, Y: 2, Deg: 90})
	// The tip (0, 0.8) rotates to (-0.8, 0) before translation.
	assert.InDelta(t, 0.2, p.Points[0][0], 1e-12)
	assert.InDelta(t, 2.0, p.Points[0][1], 1e-12)
}

func TestTransformInvariantUnderFullTurns(t *testing.T) {
	a := Transform(model.Placement{X: 0.3, Y: -1, Deg: 37})
	b := Transform(model.Placement{X: 0.3, Y: -1, Deg: 37 + 720})
	for i := range a.Points {
		assert.InDelta(t, a.Points[i][0], b.Points[i][0], 1e-12)
		assert.InDelta(t, a.Points[i][1], b.Points[i][1], 1e-12)
	}
}

func TestAreaIsRotationInvariant(t *testing.T) {
	for _, deg := range []float64{0, 13, 90, 181, 359} {
		p := Transform(model.Placement{X: 5, Y: -3, Deg: deg})
		assert.InDelta(t, pieceArea, p.Area(), 1e-12, "deg=%v", deg)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b model.Placement
		want bool
	}{
		{"identical", model.Placement{}, model.Placement{}, true},
		{"touching tier tips", model.Placement{}, model.Placement{X: 0.7}, false},
		{"slightly closer than touching", model.Placement{}, model.Placement{X: 0.69}, true},
		{"far apart", model.Placement{}, model.Placement{X: 5}, false},
		{"stacked tip over trunk", model.Placement{}, model.Placement{Y: 1.0}, false},
		{"upside-down tip to tip", model.Placement{}, model.Placement{Y: 1.6, Deg: 180}, false},
		{"upside-down pushed in", model.Placement{}, model.Placement{X: 0.2, Y: 0.5, Deg: 180}, true},
		{"upside-down sharing a tier edge", model.Placement{}, model.Placement{X: 0.45, Y: 0.25, Deg: 180}, false},
		{"upside-down edge pushed in", model.Placement{}, model.Placement{X: 0.44, Y: 0.24, Deg: 180}, true},
		{"rotated quarter turn overlapping", model.Placement{}, model.Placement{X: 0.3, Y: 0.1, Deg: 90}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Transform(tt.a)
			b := Transform(tt.b)
			assert.Equal(t, tt.want, Overlaps(&a, &b))
			assert.Equal(t, tt.want, Overlaps(&b, &a), "overlap must be symmetric")
		})
	}
}

func TestOverlapsNonConvexNotch(t *testing.T) {
	// The tip of a lower piece touches the underside of the tier beside the
	// trunk: the boxes intersect while the polygons only touch.
	a := Transform(model.Placement{})
	b := Transform(model.Placement{X: 0.3, Y: -0.8})
	assert.True(t, boxesOverlap(a.Bound, b.Bound))
	assert.False(t, Overlaps(&a, &b))
}

func TestCollidesWithAnySkipsIndices(t *testing.T) {
	polys := makeTestPolys(
		model.Placement{X: 0},
		model.Placement{X: 2},
		model.Placement{X: 4},
	)
	bounds := Bounds(polys)
	cand := Transform(model.Placement{X: 2.1})

	assert.True(t, CollidesWithAny(&cand, polys, bounds))
	assert.False(t, CollidesWithAny(&cand, polys, bounds, 1))
}

func TestHasAnyOverlap(t *testing.T) {
	apart := makeTestPolys(
		model.Placement{X: 0},
		model.Placement{X: 0.7},
		model.Placement{X: 1.4},
		model.Placement{Y: 1.0},
	)
	assert.False(t, HasAnyOverlap(apart))

	bad := append(apart, Transform(model.Placement{X: 1.0, Y: 0.1}))
	assert.True(t, HasAnyOverlap(bad))
	assert.False(t, HasAnyOverlap(bad[:1]))
}

func TestIndexQueriesReturnStableIndices(t *testing.T) {
	polys := makeTestPolys(
		model.Placement{X: 0},
		model.Placement{X: 3},
		model.Placement{X: 0.5, Y: 0.1},
		model.Placement{X: 10},
		model.Placement{X: 3.2},
	)

	require.Equal(t, []int{2}, QueryNeighbors(polys, 0))
	require.Equal(t, []int{4}, QueryNeighbors(polys, 1))
	require.Empty(t, QueryNeighbors(polys, 3))

	pairs := OverlappingPairs(polys)
	assert.Equal(t, [][2]int{{0, 2}, {1, 4}}, pairs)
}
