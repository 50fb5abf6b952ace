// Package export renders submissions as PDF reports, QR-coded group cards,
// DXF drawings and PNG previews.
package export

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/piwi3910/TreePack/internal/geometry"
	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/score"
)

// GroupView is one group ready to draw.
type GroupView struct {
	N        int
	Polygons []geometry.Polygon
	Envelope orb.Bound
	Side     float64
	Score    float64
}

// NewGroupView transforms g and measures its envelope.
func NewGroupView(n int, g model.Group) GroupView {
	polys := geometry.TransformGroup(g)
	env := score.Batch(geometry.Bounds(polys))
	side := score.Side(env)
	return GroupView{
		N:        n,
		Polygons: polys,
		Envelope: env,
		Side:     side,
		Score:    score.Normalized(side, n),
	}
}

// Views builds a GroupView for each selected size present in sub. A nil
// selection means every group.
func Views(sub model.Submission, selected []int) ([]GroupView, error) {
	sizes := selected
	if sizes == nil {
		sizes = sub.Sizes()
	}
	views := make([]GroupView, 0, len(sizes))
	for _, n := range sizes {
		g, ok := sub[n]
		if !ok {
			return nil, fmt.Errorf("%w: group %d", model.ErrMissingGroup, n)
		}
		views = append(views, NewGroupView(n, g))
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("no groups to export")
	}
	return views, nil
}

// square returns the envelope grown into the square the score measures,
// centred on the envelope.
func (v GroupView) square() orb.Bound {
	c := v.Envelope.Center()
	h := v.Side / 2
	return orb.Bound{
		Min: orb.Point{c[0] - h, c[1] - h},
		Max: orb.Point{c[0] + h, c[1] + h},
	}
}

// partColor represents an RGB color for a drawn piece.
type partColor struct {
	R, G, B int
}

// partColors cycles through the pieces of a group.
var partColors = []partColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}
