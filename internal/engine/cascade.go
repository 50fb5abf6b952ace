package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"k8s.io/klog/v2"

	"github.com/piwi3910/TreePack/internal/geometry"
	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/score"
)

// dedupScale rounds candidate totals to 1e-12 before comparing them.
const dedupScale = 1e12

// CascadeResult is the outcome of Cascade.
type CascadeResult struct {
	Submission   model.Submission
	InitialTotal float64
	Total        float64
	Replaced     []int // sizes whose group now comes from a larger group
	Levels       int   // levels completed before returning
}

// beamState is one candidate submission. Groups and scores are indexed by N
// and shared with the parent state; a successor copies the slice headers
// and replaces at most one entry.
type beamState struct {
	groups   []model.Group
	scores   []float64
	replaced []bool
	total    float64
}

// successor describes a child of a beam state without materializing it.
type successor struct {
	parent int
	del    int // -1 keeps group n-1, otherwise the index deleted from group n
	score  float64
	total  float64
}

// Cascade runs a beam search over "replace group n-1 by group n minus one
// placement" decisions, from the largest size down to 2. Each level expands
// every beam state into a keep successor and one successor per deletable
// placement, then keeps the beamWidth best distinct totals. Width 1 is the
// greedy cascade. A cancelled ctx stops between levels and returns the best
// state reached.
func Cascade(ctx context.Context, sub model.Submission, s model.CascadeSettings) (CascadeResult, error) {
	if err := s.Validate(); err != nil {
		return CascadeResult{}, err
	}
	maxN := sub.MaxN()
	if err := sub.RequireSizes(maxN); err != nil {
		return CascadeResult{}, fmt.Errorf("failed to start cascade: %w", err)
	}

	root := beamState{
		groups:   make([]model.Group, maxN+1),
		scores:   make([]float64, maxN+1),
		replaced: make([]bool, maxN+1),
	}
	for n := 1; n <= maxN; n++ {
		root.groups[n] = sub[n]
		root.scores[n], _ = score.GroupScore(sub[n])
		root.total += root.scores[n]
	}

	res := CascadeResult{InitialTotal: root.total}
	beam := []beamState{root}
	for n := maxN; n >= 2; n-- {
		if ctx.Err() != nil {
			klog.Warningf("cascade cancelled at n=%d: %v", n, ctx.Err())
			break
		}
		succ := expandLevel(beam, n)
		beam = selectBeam(beam, succ, n, s.BeamWidth)
		res.Levels++
		klog.V(1).Infof("cascade n=%d beam=%d best=%.12f", n, len(beam), beam[0].total)
	}

	best := beam[0]
	res.Total = best.total
	res.Submission = make(model.Submission, maxN)
	for n := 1; n <= maxN; n++ {
		res.Submission[n] = best.groups[n].Clone()
		if best.replaced[n] {
			res.Replaced = append(res.Replaced, n)
		}
	}
	return res, nil
}

// expandLevel computes every successor of every beam state at level n. Each
// state is expanded in its own goroutine; the results are joined before the
// caller sorts them.
func expandLevel(beam []beamState, n int) []successor {
	perState := make([][]successor, len(beam))
	var wg sync.WaitGroup
	for p := range beam {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			st := beam[p]
			out := make([]successor, 0, n+1)
			out = append(out, successor{parent: p, del: -1, score: st.scores[n-1], total: st.total})

			bounds := geometry.Bounds(geometry.TransformGroup(st.groups[n]))
			for d, env := range score.LeaveOneOut(bounds) {
				s := score.Normalized(score.Side(env), n-1)
				out = append(out, successor{
					parent: p,
					del:    d,
					score:  s,
					total:  st.total - st.scores[n-1] + s,
				})
			}
			perState[p] = out
		}(p)
	}
	wg.Wait()

	var all []successor
	for _, s := range perState {
		all = append(all, s...)
	}
	return all
}

// selectBeam sorts successors by total, drops duplicate totals, keeps the
// best width of them and materializes only those.
func selectBeam(beam []beamState, succ []successor, n, width int) []beamState {
	sort.SliceStable(succ, func(i, j int) bool {
		a, b := succ[i], succ[j]
		if a.total != b.total {
			return a.total < b.total
		}
		if a.parent != b.parent {
			return a.parent < b.parent
		}
		return a.del < b.del
	})

	next := make([]beamState, 0, width)
	seen := make(map[float64]bool, width)
	for _, s := range succ {
		key := math.Round(s.total * dedupScale)
		if seen[key] {
			continue
		}
		seen[key] = true
		next = append(next, materialize(beam[s.parent], s, n))
		if len(next) == width {
			break
		}
	}
	return next
}

func materialize(parent beamState, s successor, n int) beamState {
	if s.del < 0 {
		return parent
	}
	st := beamState{
		groups:   append([]model.Group(nil), parent.groups...),
		scores:   append([]float64(nil), parent.scores...),
		replaced: append([]bool(nil), parent.replaced...),
		total:    s.total,
	}
	st.groups[n-1] = parent.groups[n].Without(s.del)
	st.scores[n-1] = s.score
	st.replaced[n-1] = true
	return st
}
