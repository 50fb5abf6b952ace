package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/score"
)

// GroupStatus says what happened to one group during a run.
type GroupStatus string

const (
	StatusRefined          GroupStatus = "refined"
	StatusUnchanged        GroupStatus = "unchanged"
	StatusRoundingFallback GroupStatus = "rounding_fallback"
	StatusInvalidInput     GroupStatus = "invalid_input"
)

// GroupOutcome reports the refinement of a single group.
type GroupOutcome struct {
	N            int           `json:"n"`
	Status       GroupStatus   `json:"status"`
	InitialScore float64       `json:"initial_score"`
	Score        float64       `json:"score"`
	Accepted     int           `json:"accepted"`
	Collisions   int           `json:"collisions"`
	Elapsed      time.Duration `json:"elapsed_ns"`
}

// RunReport summarizes a RefineSubmission call.
type RunReport struct {
	BaseScore  float64        `json:"base_score"`
	FinalScore float64        `json:"final_score"`
	Refined    []int          `json:"refined"`
	Fallbacks  []int          `json:"rounding_fallbacks"`
	Groups     []GroupOutcome `json:"groups"`
}

type refineTask struct {
	n    int
	seed int64
}

type refineDone struct {
	outcome GroupOutcome
	group   model.Group
}

// Runner refines many groups of a submission in parallel. Groups are
// independent; each task is seeded with the base seed plus its N.
type Runner struct {
	cfg model.RunConfig
}

// NewRunner creates a runner for cfg.
func NewRunner(cfg model.RunConfig) *Runner {
	return &Runner{cfg: cfg}
}

// RefineSubmission refines the configured groups of sub and returns the new
// submission. Every refined group is rounded to the output precision and
// validated again; if rounding makes it overlap, the original group is kept.
// When ctx ends, groups still queued are left unchanged and running groups
// return their best so far.
func (r *Runner) RefineSubmission(ctx context.Context, sub model.Submission) (model.Submission, RunReport, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, RunReport{}, err
	}
	selected, err := model.ParseGroupList(r.cfg.Groups, model.MaxGroupSize)
	if err != nil {
		return nil, RunReport{}, err
	}

	out := sub.Clone()
	report := RunReport{BaseScore: totalScore(sub)}

	var ns []int
	for _, n := range selected {
		if _, ok := sub[n]; ok {
			ns = append(ns, n)
		}
	}
	if len(ns) == 0 {
		return nil, RunReport{}, fmt.Errorf("%w: none of the selected groups %q are present", model.ErrMissingGroup, r.cfg.Groups)
	}

	workers := r.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(ns))

	tasks := make(chan refineTask)
	results := make(chan refineDone)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				results <- r.refineGroup(ctx, t, sub[t.n])
			}
		}()
	}
	go func() {
		defer close(tasks)
		for _, n := range ns {
			select {
			case tasks <- refineTask{n: n, seed: r.cfg.Seed + int64(n)}:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	for done := range results {
		o := done.outcome
		report.Groups = append(report.Groups, o)
		switch o.Status {
		case StatusRefined:
			out[o.N] = done.group
			report.Refined = append(report.Refined, o.N)
		case StatusRoundingFallback:
			report.Fallbacks = append(report.Fallbacks, o.N)
		}
	}

	sort.Slice(report.Groups, func(i, j int) bool { return report.Groups[i].N < report.Groups[j].N })
	sort.Ints(report.Refined)
	sort.Ints(report.Fallbacks)
	report.FinalScore = totalScore(out)
	if ctx.Err() != nil {
		klog.Warningf("refine stopped early: %v (%d of %d groups processed)", ctx.Err(), len(report.Groups), len(ns))
	}
	return out, report, nil
}

func (r *Runner) refineGroup(ctx context.Context, t refineTask, g model.Group) refineDone {
	start := time.Now()
	o := GroupOutcome{N: t.n, Status: StatusUnchanged}
	o.InitialScore, _ = score.GroupScore(g)
	o.Score = o.InitialScore

	if err := score.ValidateGroup(t.n, g, model.CoordinateLimit); err != nil {
		klog.Warningf("group %03d: input is invalid, leaving it unchanged: %v", t.n, err)
		o.Status = StatusInvalidInput
		return refineDone{outcome: o}
	}

	res := NewRefiner(r.cfg.Refine).Refine(ctx, g, t.seed)
	o.Accepted, o.Collisions = res.Accepted, res.Collisions
	cand, candScore := res.Group, res.Score
	if r.cfg.Polish.Passes > 0 {
		cand, candScore = Polish(ctx, cand, r.cfg.Polish, r.cfg.Refine.Bound)
	}
	o.Elapsed = time.Since(start)
	if candScore >= o.InitialScore {
		klog.V(1).Infof("group %03d: no improvement (%.12f)", t.n, o.InitialScore)
		return refineDone{outcome: o}
	}

	rounded := cand.Rounded(r.cfg.Decimals)
	if err := score.ValidateGroup(t.n, rounded, model.CoordinateLimit); err != nil {
		klog.Warningf("group %03d: rounding to %d decimals broke the layout, keeping original: %v", t.n, r.cfg.Decimals, err)
		o.Status = StatusRoundingFallback
		return refineDone{outcome: o}
	}
	roundedScore, _ := score.GroupScore(rounded)
	if roundedScore >= o.InitialScore {
		return refineDone{outcome: o}
	}

	o.Status = StatusRefined
	o.Score = roundedScore
	klog.V(1).Infof("group %03d: %.12f -> %.12f in %s", t.n, o.InitialScore, o.Score, o.Elapsed)
	return refineDone{outcome: o, group: rounded}
}

// totalScore sums group scores without validating.
func totalScore(sub model.Submission) float64 {
	total := 0.0
	for _, n := range sub.Sizes() {
		s, _ := score.GroupScore(sub[n])
		total += s
	}
	return total
}
