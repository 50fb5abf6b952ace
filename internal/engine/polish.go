package engine

import (
	"context"
	"sort"

	"github.com/paulmach/orb"
	"k8s.io/klog/v2"

	"github.com/piwi3910/TreePack/internal/geometry"
	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/score"
)

// compass holds the eight unit-ish directions tried by Polish.
var compass = [8][2]float64{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// Polish runs deterministic coordinate descent on g: each placement is
// nudged along eight directions over a shrinking step ladder, then turned
// over a shrinking angle ladder. Only moves that strictly shrink the
// enclosing square are kept. It stops after s.Passes passes or after a pass
// without improvement.
func Polish(ctx context.Context, g model.Group, s model.PolishSettings, bound float64) (model.Group, float64) {
	initial, _ := score.GroupScore(g)
	if len(g) == 0 || s.Passes <= 0 {
		return g.Clone(), initial
	}

	out := g.Clone()
	polys := geometry.TransformGroup(out)
	bounds := geometry.Bounds(polys)
	tracker := score.NewTracker(bounds)
	side := tracker.Side()

	try := func(i int, p model.Placement) bool {
		if p.X < -bound || p.X > bound || p.Y < -bound || p.Y > bound {
			return false
		}
		cand := geometry.Transform(p)
		if geometry.CollidesWithAny(&cand, polys, bounds, i) {
			return false
		}
		change := score.Change{Index: i, Bound: cand.Bound}
		newSide := score.Side(tracker.Propose(change))
		if newSide >= side {
			return false
		}
		tracker.Apply(change)
		out[i] = p
		polys[i] = cand
		bounds[i] = cand.Bound
		side = newSide
		return true
	}

	for pass := 0; pass < s.Passes; pass++ {
		if ctx.Err() != nil {
			break
		}
		improved := false
		for _, i := range extremalFirst(bounds, tracker.Envelope()) {
			for _, step := range s.Steps {
				for _, d := range compass {
					p := out[i]
					for try(i, model.Placement{X: p.X + d[0]*step, Y: p.Y + d[1]*step, Deg: p.Deg}) {
						improved = true
						p = out[i]
					}
				}
			}
			for _, step := range s.AngleSteps {
				for _, sign := range []float64{1, -1} {
					p := out[i]
					for try(i, model.Placement{X: p.X, Y: p.Y, Deg: model.NormalizeDeg(p.Deg + sign*step)}) {
						improved = true
						p = out[i]
					}
				}
			}
		}
		klog.V(2).Infof("polish n=%d pass %d side=%.9f", len(g), pass+1, side)
		if !improved {
			break
		}
	}
	return out, score.Normalized(side, len(out))
}

// extremalFirst orders placement indices so that those touching the
// envelope come first; ties keep index order.
func extremalFirst(bounds []orb.Bound, env orb.Bound) []int {
	order := make([]int, len(bounds))
	onEdge := make([]bool, len(bounds))
	for i, b := range bounds {
		order[i] = i
		onEdge[i] = b.Min[0] == env.Min[0] || b.Min[1] == env.Min[1] ||
			b.Max[0] == env.Max[0] || b.Max[1] == env.Max[1]
	}
	sort.SliceStable(order, func(a, b int) bool {
		return onEdge[order[a]] && !onEdge[order[b]]
	})
	return order
}
