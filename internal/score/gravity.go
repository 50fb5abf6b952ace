package score

import "math"

// gravityCutoff is the largest group size that uses the full gravity weight;
// larger groups use a hundredth of it.
const gravityCutoff = 50

// Shift moves one placement centre.
type Shift struct {
	FromX, FromY float64
	ToX, ToY     float64
}

// Gravity keeps running sums of placement centres so that the mean squared
// distance to their centroid updates in O(1) per moved placement. It only
// biases annealing acceptance; reported scores never include it.
type Gravity struct {
	weight float64
	n      int
	sumX   float64
	sumY   float64
	sumSq  float64
}

// NewGravity builds the running sums for centres (xs[i], ys[i]).
func NewGravity(weight float64, xs, ys []float64) *Gravity {
	g := &Gravity{}
	g.Reset(weight, xs, ys)
	return g
}

// Reset recomputes the sums from scratch.
func (g *Gravity) Reset(weight float64, xs, ys []float64) {
	g.n = len(xs)
	g.weight = weight
	if g.n > gravityCutoff {
		g.weight = weight * 0.01
	}
	g.sumX, g.sumY, g.sumSq = 0, 0, 0
	for i := range xs {
		g.sumX += xs[i]
		g.sumY += ys[i]
		g.sumSq += xs[i]*xs[i] + ys[i]*ys[i]
	}
}

// Enabled reports whether the gravity term contributes to the energy.
func (g *Gravity) Enabled() bool {
	return g.weight > 0 && g.n > 0
}

// Dispersion returns the mean squared distance of centres to their centroid.
func (g *Gravity) Dispersion() float64 {
	return dispersion(g.n, g.sumX, g.sumY, g.sumSq)
}

// Centroid returns the mean placement centre.
func (g *Gravity) Centroid() (float64, float64) {
	if g.n == 0 {
		return 0, 0
	}
	return g.sumX / float64(g.n), g.sumY / float64(g.n)
}

// Propose returns the dispersion after applying shifts, without committing.
func (g *Gravity) Propose(shifts ...Shift) float64 {
	sx, sy, sq := g.shifted(shifts)
	return dispersion(g.n, sx, sy, sq)
}

// Apply commits shifts.
func (g *Gravity) Apply(shifts ...Shift) {
	g.sumX, g.sumY, g.sumSq = g.shifted(shifts)
}

// Energy combines the normalized score for side with the weighted dispersion.
func (g *Gravity) Energy(side, disp float64) float64 {
	e := Normalized(side, g.n)
	if g.Enabled() {
		e += g.weight * disp
	}
	return e
}

func (g *Gravity) shifted(shifts []Shift) (float64, float64, float64) {
	sx, sy, sq := g.sumX, g.sumY, g.sumSq
	for _, s := range shifts {
		sx += s.ToX - s.FromX
		sy += s.ToY - s.FromY
		sq += s.ToX*s.ToX + s.ToY*s.ToY - s.FromX*s.FromX - s.FromY*s.FromY
	}
	return sx, sy, sq
}

func dispersion(n int, sx, sy, sq float64) float64 {
	if n == 0 {
		return 0
	}
	fn := float64(n)
	return math.Max(0, (sq-(sx*sx+sy*sy)/fn)/fn)
}
