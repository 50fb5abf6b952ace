package engine

import (
	"math"

	"github.com/paulmach/orb"
	"k8s.io/klog/v2"

	"github.com/piwi3910/TreePack/internal/geometry"
	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/score"
)

// RotationResult is the outcome of OptimizeRotation.
type RotationResult struct {
	Group    model.Group
	Angle    float64 // degrees applied to the whole group
	OldSide  float64
	NewSide  float64
	Improved bool
}

// OptimizeRotation turns g rigidly about its envelope centre to the angle in
// [0, 90] that minimizes the enclosing square, then moves that centre to
// the origin. The rotated group is kept only if it shrinks the square by at
// least s.MinImprovement and still validates.
func OptimizeRotation(g model.Group, s model.RotationSettings) RotationResult {
	res := RotationResult{Group: g.Clone()}
	if len(g) == 0 {
		return res
	}

	polys := geometry.TransformGroup(g)
	env := score.Batch(geometry.Bounds(polys))
	res.OldSide = score.Side(env)
	res.NewSide = res.OldSide
	c := env.Center()

	pts := make([]orb.Point, 0, len(polys)*geometry.NumVertices)
	for i := range polys {
		for _, p := range polys[i].Points {
			pts = append(pts, orb.Point{p[0] - c[0], p[1] - c[1]})
		}
	}

	best, bestSide := 0.0, res.OldSide
	sweep := func(lo, hi, step float64) {
		if step <= 0 {
			return
		}
		for a := lo; a <= hi+step/2; a += step {
			if side := rotatedSide(pts, a); side < bestSide {
				best, bestSide = a, side
			}
		}
	}
	sweep(0, 90, s.CoarseStep)
	prev := s.CoarseStep
	for _, step := range s.FineSteps {
		sweep(best-prev, best+prev, step)
		prev = step
	}
	if bestSide > res.OldSide-s.MinImprovement {
		return res
	}

	rotated := rotateGroup(g, c, best)
	rpolys := geometry.TransformGroup(rotated)
	renv := score.Batch(geometry.Bounds(rpolys))
	rotated = rotated.Centered(renv.Center()[0], renv.Center()[1])
	if score.ValidateGroup(len(rotated), rotated, model.CoordinateLimit) != nil {
		return res
	}
	newScore, newEnv := score.GroupScore(rotated)
	if newScore >= score.Normalized(res.OldSide, len(g)) {
		return res
	}

	res.Group = rotated
	res.Angle = model.NormalizeDeg(best)
	res.NewSide = score.Side(newEnv)
	res.Improved = true
	return res
}

// rotatedSide is the enclosing-square side of pts turned by deg about the origin.
func rotatedSide(pts []orb.Point, deg float64) float64 {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		x := p[0]*cos - p[1]*sin
		y := p[0]*sin + p[1]*cos
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	return math.Max(maxX-minX, maxY-minY)
}

// rotateGroup turns every placement of g by deg about c.
func rotateGroup(g model.Group, c orb.Point, deg float64) model.Group {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	out := make(model.Group, len(g))
	for i, p := range g {
		dx, dy := p.X-c[0], p.Y-c[1]
		out[i] = model.Placement{
			X:   c[0] + dx*cos - dy*sin,
			Y:   c[1] + dx*sin + dy*cos,
			Deg: model.NormalizeDeg(p.Deg + deg),
		}
	}
	return out
}

// RotateSubmission applies OptimizeRotation to each selected group present
// in sub. A rotated group is rounded to decimals and kept only if it still
// validates and beats the original; rounding failures are listed in the
// report's Fallbacks.
func RotateSubmission(sub model.Submission, selected []int, s model.RotationSettings, decimals int) (model.Submission, RunReport) {
	out := sub.Clone()
	report := RunReport{BaseScore: totalScore(sub)}
	for _, n := range selected {
		g, ok := sub[n]
		if !ok {
			continue
		}
		o := GroupOutcome{N: n, Status: StatusUnchanged}
		o.InitialScore, _ = score.GroupScore(g)
		o.Score = o.InitialScore
		if err := score.ValidateGroup(n, g, model.CoordinateLimit); err != nil {
			o.Status = StatusInvalidInput
			report.Groups = append(report.Groups, o)
			continue
		}

		res := OptimizeRotation(g, s)
		if res.Improved {
			rounded := res.Group.Rounded(decimals)
			rs, _ := score.GroupScore(rounded)
			switch {
			case score.ValidateGroup(n, rounded, model.CoordinateLimit) != nil:
				o.Status = StatusRoundingFallback
				report.Fallbacks = append(report.Fallbacks, n)
			case rs < o.InitialScore:
				o.Status = StatusRefined
				o.Score = rs
				out[n] = rounded
				report.Refined = append(report.Refined, n)
				klog.V(1).Infof("group %03d: rotated %.3f deg, side %.9f -> %.9f", n, res.Angle, res.OldSide, res.NewSide)
			}
		}
		report.Groups = append(report.Groups, o)
	}
	report.FinalScore = totalScore(out)
	return out, report
}
