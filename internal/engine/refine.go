package engine

import (
	"context"
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"k8s.io/klog/v2"

	"github.com/piwi3910/TreePack/internal/geometry"
	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/score"
)

// ctxCheckEvery is how many annealing steps run between context checks.
const ctxCheckEvery = 1024

// edgeEps is how close a placement's box must be to the envelope for an
// edge move to pick it.
const edgeEps = 0.01

// RefineResult is the outcome of refining one group.
type RefineResult struct {
	N            int
	Group        model.Group
	InitialScore float64
	Score        float64
	Improved     bool
	Accepted     int // accepted moves over all restarts
	Collisions   int // moves rejected because the candidate overlapped
}

// Refiner improves a single group with simulated annealing. It never
// returns a group scoring worse than its input.
type Refiner struct {
	settings model.RefineSettings
}

// NewRefiner creates a refiner with the given settings.
func NewRefiner(settings model.RefineSettings) *Refiner {
	return &Refiner{settings: settings}
}

// Refine anneals g from scratch on every restart and returns the best
// placement seen. A cancelled ctx stops the search and returns the best so
// far. If no move improves the score, the input group is returned unchanged.
func (r *Refiner) Refine(ctx context.Context, g model.Group, seed int64) RefineResult {
	initial, _ := score.GroupScore(g)
	res := RefineResult{
		N:            len(g),
		Group:        g.Clone(),
		InitialScore: initial,
		Score:        initial,
	}
	if len(g) == 0 || r.settings.Iterations == 0 {
		return res
	}

	a := newAnnealer(r.settings, g, initial, seed)
	for restart := 0; restart < r.settings.Restarts; restart++ {
		if ctx.Err() != nil {
			break
		}
		start := g
		if r.settings.CompressSteps > 0 {
			start = compress(g, r.settings, a.rng)
		}
		a.load(start)
		klog.V(2).Infof("refine n=%d restart %d/%d score=%.9f", len(g), restart+1, r.settings.Restarts, a.energy)
		a.run(ctx, restart)
		klog.V(2).Infof("refine n=%d restart %d done best=%.9f", len(g), restart+1, a.bestScore)
	}

	res.Accepted = a.accepted
	res.Collisions = a.collisions
	if a.best != nil {
		res.Group = a.best
		res.Score = a.bestScore
		res.Improved = true
	}
	return res
}

// annealer holds the working state of one Refine call as parallel arrays.
type annealer struct {
	settings model.RefineSettings
	rng      *rand.Rand
	n        int

	xs, ys, degs []float64
	polys        []geometry.Polygon
	bounds       []orb.Bound
	tracker      *score.Tracker
	gravity      *score.Gravity

	// Scratch space for scale moves, swapped in on acceptance.
	sxs, sys []float64
	spolys   []geometry.Polygon
	sbounds  []orb.Bound

	side   float64
	disp   float64
	energy float64

	best       model.Group // nil until something beats the input
	bestScore  float64
	accepted   int
	collisions int
}

func newAnnealer(settings model.RefineSettings, g model.Group, initial float64, seed int64) *annealer {
	n := len(g)
	return &annealer{
		settings:  settings,
		rng:       rand.New(rand.NewSource(seed)),
		n:         n,
		xs:        make([]float64, n),
		ys:        make([]float64, n),
		degs:      make([]float64, n),
		polys:     make([]geometry.Polygon, n),
		bounds:    make([]orb.Bound, n),
		sxs:       make([]float64, n),
		sys:       make([]float64, n),
		spolys:    make([]geometry.Polygon, n),
		sbounds:   make([]orb.Bound, n),
		tracker:   score.NewTracker(nil),
		gravity:   score.NewGravity(0, nil, nil),
		bestScore: initial,
	}
}

// load resets the working state to g.
func (a *annealer) load(g model.Group) {
	for i, p := range g {
		a.xs[i], a.ys[i], a.degs[i] = p.X, p.Y, p.Deg
		a.polys[i] = geometry.Transform(p)
		a.bounds[i] = a.polys[i].Bound
	}
	a.tracker.Reset(a.bounds)
	a.gravity.Reset(a.settings.GravityWeight, a.xs, a.ys)
	a.side = a.tracker.Side()
	a.disp = a.gravity.Dispersion()
	a.energy = a.gravity.Energy(a.side, a.disp)
	a.record()
}

func (a *annealer) run(ctx context.Context, restart int) {
	s := a.settings
	for step := 0; step < s.Iterations; step++ {
		if step%ctxCheckEvery == 0 && ctx.Err() != nil {
			return
		}
		temp := a.temperature(step)
		tnorm := temp / s.TempStart

		pick := a.rng.Float64()
		switch {
		case pick < s.ScaleProb:
			a.scale(temp, tnorm)
		case pick < s.ScaleProb+s.SwapProb && a.n > 1:
			a.swap(temp)
		case pick < s.ScaleProb+s.SwapProb+s.CentroidProb:
			cx, cy := a.gravity.Centroid()
			a.pull(a.rng.Intn(a.n), cx, cy, 1, 0, temp, tnorm)
		case pick < s.ScaleProb+s.SwapProb+s.CentroidProb+s.CenterProb:
			c := a.tracker.Envelope().Center()
			a.pull(a.rng.Intn(a.n), c[0], c[1], 0.5, 0, temp, tnorm)
		case pick < s.ScaleProb+s.SwapProb+s.CentroidProb+s.CenterProb+s.EdgeProb:
			a.edge(temp, tnorm)
		default:
			a.jitter(temp, tnorm)
		}

		if s.LogEvery > 0 && step > 0 && step%s.LogEvery == 0 {
			klog.V(2).Infof("refine n=%d restart=%d step=%d temp=%.4f energy=%.9f best=%.9f",
				a.n, restart+1, step, temp, a.energy, a.bestScore)
		}
	}
}

// temperature interpolates from TempStart to TempEnd over the run.
func (a *annealer) temperature(step int) float64 {
	s := a.settings
	frac := float64(step) / float64(max(1, s.Iterations-1))
	if s.Schedule == model.ScheduleGeometric {
		return s.TempStart * math.Pow(s.TempEnd/s.TempStart, frac)
	}
	return s.TempStart*(1-frac) + s.TempEnd*frac
}

// accept applies the Metropolis criterion to a candidate energy.
func (a *annealer) accept(energy, temp float64) bool {
	if energy <= a.energy {
		return true
	}
	return a.rng.Float64() < math.Exp(-(energy-a.energy)/math.Max(temp, 1e-6))
}

func (a *annealer) uniform(radius float64) float64 {
	return (a.rng.Float64()*2 - 1) * radius
}

func (a *annealer) clamp(v float64) float64 {
	return math.Max(-a.settings.Bound, math.Min(a.settings.Bound, v))
}

// jitter moves and turns one placement.
func (a *annealer) jitter(temp, tnorm float64) {
	i := a.rng.Intn(a.n)
	nx := a.clamp(a.xs[i] + a.uniform(a.settings.MoveRadius*tnorm))
	ny := a.clamp(a.ys[i] + a.uniform(a.settings.MoveRadius*tnorm))
	nd := model.NormalizeDeg(a.degs[i] + a.uniform(a.settings.AngleRadius*tnorm))
	a.move(i, nx, ny, nd, temp)
}

// pull steps placement i a random distance towards (tx, ty), at most
// MoveRadius*frac at full temperature, and turns it by up to
// AngleRadius*turn.
func (a *annealer) pull(i int, tx, ty, frac, turn, temp, tnorm float64) {
	dx, dy := tx-a.xs[i], ty-a.ys[i]
	d := math.Hypot(dx, dy)
	if d < 1e-6 {
		return
	}
	st := math.Min(d, a.rng.Float64()*a.settings.MoveRadius*tnorm*frac)
	nd := a.degs[i]
	if turn > 0 {
		nd = model.NormalizeDeg(nd + a.uniform(a.settings.AngleRadius*tnorm*turn))
	}
	a.move(i, a.clamp(a.xs[i]+dx/d*st), a.clamp(a.ys[i]+dy/d*st), nd, temp)
}

// edge pulls a placement whose box lies on the envelope towards the
// envelope centre while nudging its angle.
func (a *annealer) edge(temp, tnorm float64) {
	env := a.tracker.Envelope()
	var onEdge []int
	for i, b := range a.bounds {
		if math.Abs(b.Min[0]-env.Min[0]) < edgeEps || math.Abs(b.Max[0]-env.Max[0]) < edgeEps ||
			math.Abs(b.Min[1]-env.Min[1]) < edgeEps || math.Abs(b.Max[1]-env.Max[1]) < edgeEps {
			onEdge = append(onEdge, i)
		}
	}
	if len(onEdge) == 0 {
		return
	}
	c := env.Center()
	a.pull(onEdge[a.rng.Intn(len(onEdge))], c[0], c[1], 0.3, 0.25, temp, tnorm)
}

// move proposes placement i at (nx, ny, nd) and commits it when it is
// collision free and passes the acceptance test.
func (a *annealer) move(i int, nx, ny, nd, temp float64) {
	cand := geometry.Transform(model.Placement{X: nx, Y: ny, Deg: nd})
	if geometry.CollidesWithAny(&cand, a.polys, a.bounds, i) {
		a.collisions++
		return
	}

	change := score.Change{Index: i, Bound: cand.Bound}
	shift := score.Shift{FromX: a.xs[i], FromY: a.ys[i], ToX: nx, ToY: ny}
	side := score.Side(a.tracker.Propose(change))
	disp := a.disp
	if a.gravity.Enabled() {
		disp = a.gravity.Propose(shift)
	}
	energy := a.gravity.Energy(side, disp)
	if !a.accept(energy, temp) {
		return
	}

	a.tracker.Apply(change)
	a.gravity.Apply(shift)
	a.xs[i], a.ys[i], a.degs[i] = nx, ny, nd
	a.polys[i] = cand
	a.bounds[i] = cand.Bound
	a.commit(side, disp, energy)
}

// swap exchanges the positions of two placements, each keeping its angle.
// The centroid sums are unchanged, so only the envelope needs updating.
func (a *annealer) swap(temp float64) {
	i := a.rng.Intn(a.n)
	j := a.rng.Intn(a.n - 1)
	if j >= i {
		j++
	}

	candI := geometry.Transform(model.Placement{X: a.xs[j], Y: a.ys[j], Deg: a.degs[i]})
	candJ := geometry.Transform(model.Placement{X: a.xs[i], Y: a.ys[i], Deg: a.degs[j]})
	if geometry.CollidesWithAny(&candI, a.polys, a.bounds, i, j) ||
		geometry.CollidesWithAny(&candJ, a.polys, a.bounds, i, j) ||
		geometry.Overlaps(&candI, &candJ) {
		a.collisions++
		return
	}

	changes := []score.Change{{Index: i, Bound: candI.Bound}, {Index: j, Bound: candJ.Bound}}
	side := score.Side(a.tracker.Propose(changes...))
	energy := a.gravity.Energy(side, a.disp)
	if !a.accept(energy, temp) {
		return
	}

	a.tracker.Apply(changes...)
	a.xs[i], a.xs[j] = a.xs[j], a.xs[i]
	a.ys[i], a.ys[j] = a.ys[j], a.ys[i]
	a.polys[i], a.polys[j] = candI, candJ
	a.bounds[i], a.bounds[j] = candI.Bound, candJ.Bound
	a.commit(side, a.disp, energy)
}

// scale pulls every placement towards the centroid.
func (a *annealer) scale(temp, tnorm float64) {
	cx, cy := a.gravity.Centroid()
	f := 1 - a.rng.Float64()*a.settings.ScaleRadius*tnorm
	for i := 0; i < a.n; i++ {
		a.sxs[i] = a.clamp(cx + (a.xs[i]-cx)*f)
		a.sys[i] = a.clamp(cy + (a.ys[i]-cy)*f)
		a.spolys[i] = geometry.Transform(model.Placement{X: a.sxs[i], Y: a.sys[i], Deg: a.degs[i]})
		a.sbounds[i] = a.spolys[i].Bound
	}
	if geometry.HasAnyOverlap(a.spolys) {
		a.collisions++
		return
	}

	side := score.Side(score.Batch(a.sbounds))
	disp := a.disp
	if a.gravity.Enabled() {
		disp = score.NewGravity(a.settings.GravityWeight, a.sxs, a.sys).Dispersion()
	}
	energy := a.gravity.Energy(side, disp)
	if !a.accept(energy, temp) {
		return
	}

	a.xs, a.sxs = a.sxs, a.xs
	a.ys, a.sys = a.sys, a.ys
	a.polys, a.spolys = a.spolys, a.polys
	a.bounds, a.sbounds = a.sbounds, a.bounds
	a.tracker.Reset(a.bounds)
	a.gravity.Reset(a.settings.GravityWeight, a.xs, a.ys)
	a.commit(side, a.gravity.Dispersion(), energy)
}

// commit records an accepted move.
func (a *annealer) commit(side, disp, energy float64) {
	a.side, a.disp, a.energy = side, disp, energy
	a.accepted++
	a.record()
}

// record snapshots the placement when its true score beats the best so far.
func (a *annealer) record() {
	if pure := score.Normalized(a.side, a.n); pure < a.bestScore {
		a.bestScore = pure
		if a.best == nil {
			a.best = make(model.Group, a.n)
		}
		for i := range a.best {
			a.best[i] = model.Placement{X: a.xs[i], Y: a.ys[i], Deg: a.degs[i]}
		}
	}
}
