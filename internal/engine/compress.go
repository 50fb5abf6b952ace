package engine

import (
	"math"
	"math/rand"

	"github.com/piwi3910/TreePack/internal/geometry"
	"github.com/piwi3910/TreePack/internal/model"
)

// compress shrinks g about its centroid by s.CompressFactor up to
// s.CompressSteps times. After each shrink, overlapping pairs are pushed
// apart along the line between their centres until the layout is valid
// again. It returns the last layout that relaxed cleanly, which is g itself
// when the first step already fails.
func compress(g model.Group, s model.RefineSettings, rng *rand.Rand) model.Group {
	best := g
	for step := 0; step < s.CompressSteps; step++ {
		cand := shrink(best, s.CompressFactor)
		if !relax(cand, s.RelaxIters, s.RelaxStep, s.Bound, rng) {
			break
		}
		best = cand
	}
	return best
}

func shrink(g model.Group, factor float64) model.Group {
	var cx, cy float64
	for _, p := range g {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(g))
	cy /= float64(len(g))

	out := make(model.Group, len(g))
	for i, p := range g {
		out[i] = model.Placement{X: cx + (p.X-cx)*factor, Y: cy + (p.Y-cy)*factor, Deg: p.Deg}
	}
	return out
}

// relax separates overlapping pairs of g in place. It reports whether g is
// free of overlaps within iters rounds.
func relax(g model.Group, iters int, step, bound float64, rng *rand.Rand) bool {
	clamp := func(v float64) float64 { return math.Max(-bound, math.Min(bound, v)) }
	for it := 0; it < iters; it++ {
		pairs := geometry.OverlappingPairs(geometry.TransformGroup(g))
		if len(pairs) == 0 {
			return true
		}
		for _, pr := range pairs {
			i, j := pr[0], pr[1]
			dx, dy := g[i].X-g[j].X, g[i].Y-g[j].Y
			d := math.Hypot(dx, dy)
			if d < 1e-6 {
				dy, dx = math.Sincos(rng.Float64() * 2 * math.Pi)
				d = 1
			}
			ux, uy := dx/d*step, dy/d*step
			g[i].X, g[i].Y = clamp(g[i].X+ux), clamp(g[i].Y+uy)
			g[j].X, g[j].Y = clamp(g[j].X-ux), clamp(g[j].Y-uy)
		}
	}
	return !geometry.HasAnyOverlap(geometry.TransformGroup(g))
}
