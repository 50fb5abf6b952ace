package engine

import (
	"k8s.io/klog/v2"

	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/score"
)

// MergeReport says where each group of a merged submission came from.
type MergeReport struct {
	Source  map[int]int // N -> index of the submission it was taken from
	Skipped map[int]int // N -> number of invalid candidates ignored
}

// MergeBest builds a submission that holds, for every N, the lowest-scoring
// valid group among subs. Invalid groups are skipped per group; an N with
// no valid candidate is left out.
func MergeBest(subs []model.Submission) (model.Submission, MergeReport) {
	out := make(model.Submission)
	report := MergeReport{Source: make(map[int]int), Skipped: make(map[int]int)}

	sizes := make(map[int]bool)
	for _, sub := range subs {
		for n := range sub {
			sizes[n] = true
		}
	}

	for n := range sizes {
		bestIdx, bestScore := -1, 0.0
		for i, sub := range subs {
			g, ok := sub[n]
			if !ok {
				continue
			}
			if err := score.ValidateGroup(n, g, model.CoordinateLimit); err != nil {
				report.Skipped[n]++
				klog.V(1).Infof("merge: skipping group %03d of input %d: %v", n, i, err)
				continue
			}
			s, _ := score.GroupScore(g)
			if bestIdx < 0 || s < bestScore {
				bestIdx, bestScore = i, s
			}
		}
		if bestIdx >= 0 {
			out[n] = subs[bestIdx][n].Clone()
			report.Source[n] = bestIdx
		}
	}
	return out, report
}

// BackwardPass walks N from the largest size down, remembering the group
// with the smallest square seen so far. When group N's square is not
// smaller, the first N placements of the remembered group replace it. It
// returns the sizes that were replaced, ascending.
func BackwardPass(sub model.Submission) (model.Submission, []int) {
	out := sub.Clone()
	sizes := sub.Sizes()

	var source model.Group
	bestSide := 0.0
	var replaced []int
	for k := len(sizes) - 1; k >= 0; k-- {
		n := sizes[k]
		g := out[n]
		_, env := score.GroupScore(g)
		side := score.Side(env)
		if source == nil || side < bestSide {
			source, bestSide = g, side
			continue
		}
		if len(source) < n {
			continue
		}
		prefix := source[:n].Clone()
		_, penv := score.GroupScore(prefix)
		if score.Side(penv) < side {
			out[n] = prefix
			replaced = append(replaced, n)
		}
	}

	for i, j := 0, len(replaced)-1; i < j; i, j = i+1, j-1 {
		replaced[i], replaced[j] = replaced[j], replaced[i]
	}
	return out, replaced
}

// RoundSubmission rounds every group of sub to decimals. A group that no
// longer validates once rounded is replaced by the rounded group of the same
// size from fallback, if that one validates. The replaced sizes are
// returned in ascending order.
func RoundSubmission(sub, fallback model.Submission, decimals int) (model.Submission, []int) {
	out := make(model.Submission, len(sub))
	var reverted []int
	for _, n := range sub.Sizes() {
		rounded := sub[n].Rounded(decimals)
		if score.ValidateGroup(n, rounded, model.CoordinateLimit) == nil {
			out[n] = rounded
			continue
		}
		if g, ok := fallback[n]; ok {
			if fr := g.Rounded(decimals); score.ValidateGroup(n, fr, model.CoordinateLimit) == nil {
				klog.Warningf("group %03d: rounding to %d decimals broke the layout, reverting", n, decimals)
				out[n] = fr
				reverted = append(reverted, n)
				continue
			}
		}
		out[n] = rounded
	}
	return out, reverted
}
