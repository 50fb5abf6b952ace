package score

import (
	"math"

	"github.com/piwi3910/TreePack/internal/geometry"
	"github.com/piwi3910/TreePack/internal/model"
)

// Report is the outcome of scoring a submission.
type Report struct {
	Total  float64         `json:"total"`
	Groups map[int]float64 `json:"groups"`
}

// ValidateGroup checks the coordinate limit and the no-overlap rule for
// group n. Failures are participant visible.
func ValidateGroup(n int, g model.Group, limit float64) error {
	if len(g) != n {
		return model.NewParticipantVisibleError(n, "expected %d placements, got %d", n, len(g))
	}
	for i, p := range g {
		if !isFinite(p.X) || !isFinite(p.Y) || !isFinite(p.Deg) {
			return model.NewParticipantVisibleError(n, "placement %d has a non-finite value", i)
		}
		if p.X < -limit || p.X > limit || p.Y < -limit || p.Y > limit {
			return model.NewParticipantVisibleError(n, "placement %d at (%g, %g) is outside [-%g, %g]",
				i, p.X, p.Y, limit, limit)
		}
	}
	polys := geometry.TransformGroup(g)
	if pairs := geometry.OverlappingPairs(polys); len(pairs) > 0 {
		return model.NewParticipantVisibleError(n, "pieces %d and %d overlap", pairs[0][0], pairs[0][1])
	}
	return nil
}

// Evaluate validates every group of sub and returns the total score. The
// first invalid group aborts scoring with a ParticipantVisibleError.
func Evaluate(sub model.Submission) (Report, error) {
	report := Report{Groups: make(map[int]float64, len(sub))}
	for _, n := range sub.Sizes() {
		g := sub[n]
		if err := ValidateGroup(n, g, model.CoordinateLimit); err != nil {
			return Report{}, err
		}
		s, _ := GroupScore(g)
		report.Groups[n] = s
		report.Total += s
	}
	return report, nil
}

// EvaluateComplete is Evaluate for a submission that must carry every size
// in 1..maxN.
func EvaluateComplete(sub model.Submission, maxN int) (Report, error) {
	if err := sub.RequireSizes(maxN); err != nil {
		return Report{}, err
	}
	return Evaluate(sub)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
