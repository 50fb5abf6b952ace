package engine

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/TreePack/internal/geometry"
	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/score"
)

func makeTestSettings() model.RefineSettings {
	s := model.DefaultRefineSettings()
	s.Iterations = 1500
	s.Restarts = 2
	return s
}

// makeTestGrid lays n upright pieces on a loose grid; no two touch.
func makeTestGrid(n int, spacing float64) model.Group {
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	g := make(model.Group, n)
	for i := range g {
		g[i] = model.Placement{
			X: float64(i%cols) * spacing,
			Y: float64(i/cols) * spacing * 1.4,
		}
	}
	return g
}

func requireValid(t *testing.T, g model.Group) {
	t.Helper()
	require.NoError(t, score.ValidateGroup(len(g), g, model.CoordinateLimit))
}

// outlineGap is the smallest distance between the outlines of two
// non-overlapping pieces.
func outlineGap(a, b model.Placement) float64 {
	pa, pb := geometry.Transform(a), geometry.Transform(b)
	ra, rb := pa.Ring(), pb.Ring()
	gap := math.Inf(1)
	for _, p := range ra {
		gap = math.Min(gap, planar.DistanceFrom(rb, p))
	}
	for _, p := range rb {
		gap = math.Min(gap, planar.DistanceFrom(ra, p))
	}
	return gap
}

func TestRefineTwoDistantPiecesImproves(t *testing.T) {
	g := model.Group{{X: 0, Y: 0, Deg: 0}, {X: 5, Y: 0, Deg: 0}}
	res := NewRefiner(makeTestSettings()).Refine(context.Background(), g, 42)

	assert.InDelta(t, 5.7*5.7/2, res.InitialScore, 1e-12)
	assert.True(t, res.Improved)
	assert.Less(t, res.Score, res.InitialScore)
	requireValid(t, res.Group)

	s, _ := score.GroupScore(res.Group)
	assert.InDelta(t, s, res.Score, 1e-12, "reported score must match the returned group")
	assert.Equal(t, model.Group{{X: 0, Y: 0, Deg: 0}, {X: 5, Y: 0, Deg: 0}}, g, "input must not be modified")

	ps := model.DefaultPolishSettings()
	ps.Passes = 20
	out, _ := Polish(context.Background(), res.Group, ps, model.CoordinateLimit)
	requireValid(t, out)
	assert.Less(t, outlineGap(out[0], out[1]), 0.05, "pieces should end up side by side: %+v", out)
}

func TestRefineNeverRegresses(t *testing.T) {
	settings := makeTestSettings()
	settings.SwapProb = 0.2
	settings.ScaleProb = 0.1
	withGravity := settings
	withGravity.GravityWeight = 1e-3
	geometric := settings
	geometric.Schedule = model.ScheduleGeometric

	directed := makeTestSettings()
	directed.CentroidProb, directed.CenterProb, directed.EdgeProb = 0.3, 0.3, 0.3
	compressed := settings
	compressed.CompressSteps = 5
	compressed.CompressFactor = 0.95

	for _, s := range []model.RefineSettings{makeTestSettings(), settings, withGravity, geometric, directed, compressed} {
		for _, n := range []int{1, 3, 7, 12} {
			for seed := int64(1); seed <= 2; seed++ {
				g := makeTestGrid(n, 1.1)
				res := NewRefiner(s).Refine(context.Background(), g, seed)
				assert.LessOrEqual(t, res.Score, res.InitialScore, "n=%d seed=%d", n, seed)
				requireValid(t, res.Group)
				got, _ := score.GroupScore(res.Group)
				assert.InDelta(t, got, res.Score, 1e-12)
			}
		}
	}
}

func TestDirectedMovesCloseTheGap(t *testing.T) {
	s := makeTestSettings()
	s.CentroidProb, s.CenterProb, s.EdgeProb = 0.4, 0.3, 0.3
	g := model.Group{{X: 0, Y: 0}, {X: 5, Y: 0}}

	res := NewRefiner(s).Refine(context.Background(), g, 3)
	require.True(t, res.Improved)
	assert.Less(t, res.Score, res.InitialScore)
	requireValid(t, res.Group)
}

func TestCompressShrinksLooseLayout(t *testing.T) {
	s := makeTestSettings()
	s.CompressSteps = 10
	s.CompressFactor = 0.9
	g := makeTestGrid(4, 2.0)

	out := compress(g, s, rand.New(rand.NewSource(1)))
	requireValid(t, out)
	before, _ := score.GroupScore(g)
	after, _ := score.GroupScore(out)
	assert.Less(t, after, before)
	assert.Equal(t, makeTestGrid(4, 2.0), g, "input must not be modified")
}

func TestCompressKeepsInputWhenRelaxFails(t *testing.T) {
	s := makeTestSettings()
	s.CompressSteps = 3
	s.CompressFactor = 0.5
	s.RelaxIters = 1
	s.RelaxStep = 1e-9
	g := makeTestRow(2, 0.7)

	out := compress(g, s, rand.New(rand.NewSource(1)))
	assert.Equal(t, g, out)
}

func TestRefineIsDeterministic(t *testing.T) {
	g := makeTestGrid(6, 1.2)
	s := makeTestSettings()
	s.SwapProb = 0.1
	a := NewRefiner(s).Refine(context.Background(), g, 7)
	b := NewRefiner(s).Refine(context.Background(), g, 7)
	assert.Equal(t, a.Group, b.Group)
	assert.Equal(t, a.Score, b.Score)
}

func TestRefineCancelledReturnsInput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := makeTestGrid(4, 2)
	res := NewRefiner(makeTestSettings()).Refine(ctx, g, 1)
	assert.False(t, res.Improved)
	assert.Equal(t, g, res.Group)
	assert.Equal(t, res.InitialScore, res.Score)
}

func TestRefineWithoutIterationsIsNoOp(t *testing.T) {
	s := makeTestSettings()
	s.Iterations = 0
	g := makeTestGrid(3, 2)
	res := NewRefiner(s).Refine(context.Background(), g, 1)
	assert.False(t, res.Improved)
	assert.Equal(t, g, res.Group)
}

func TestTemperatureSchedules(t *testing.T) {
	s := makeTestSettings()
	s.Iterations = 11
	s.TempStart, s.TempEnd = 1, 0.01

	a := &annealer{settings: s}
	assert.InDelta(t, 1.0, a.temperature(0), 1e-12)
	assert.InDelta(t, 0.01, a.temperature(10), 1e-12)
	assert.InDelta(t, 0.505, a.temperature(5), 1e-12)

	s.Schedule = model.ScheduleGeometric
	a.settings = s
	assert.InDelta(t, 1.0, a.temperature(0), 1e-12)
	assert.InDelta(t, 0.01, a.temperature(10), 1e-12)
	assert.InDelta(t, 0.1, a.temperature(5), 1e-12)
}

func TestPolishShrinksSquare(t *testing.T) {
	g := model.Group{{X: 0, Y: 0}, {X: 2, Y: 0}}
	ps := model.DefaultPolishSettings()
	ps.Passes = 5

	out, s := Polish(context.Background(), g, ps, model.CoordinateLimit)
	initial, _ := score.GroupScore(g)
	assert.Less(t, s, initial)
	requireValid(t, out)
	got, _ := score.GroupScore(out)
	assert.InDelta(t, got, s, 1e-12)
}

func TestPolishDisabledReturnsCopy(t *testing.T) {
	g := makeTestGrid(3, 2)
	out, s := Polish(context.Background(), g, model.DefaultPolishSettings(), model.CoordinateLimit)
	initial, _ := score.GroupScore(g)
	assert.Equal(t, g, out)
	assert.Equal(t, initial, s)
}

func TestOptimizeRotationSinglePiece(t *testing.T) {
	g := model.Group{{X: 10, Y: 10, Deg: 0}}
	res := OptimizeRotation(g, model.DefaultRotationSettings())

	require.True(t, res.Improved)
	assert.InDelta(t, 1.0, res.OldSide, 1e-12)
	assert.Less(t, res.NewSide, 0.85)
	requireValid(t, res.Group)

	_, env := score.GroupScore(res.Group)
	c := env.Center()
	assert.InDelta(t, 0, c[0], 1e-9)
	assert.InDelta(t, 0, c[1], 1e-9)
}

func TestOptimizeRotationNeverWorsens(t *testing.T) {
	for _, n := range []int{2, 5, 9} {
		g := makeTestGrid(n, 1.0)
		res := OptimizeRotation(g, model.DefaultRotationSettings())
		assert.LessOrEqual(t, res.NewSide, res.OldSide)
		requireValid(t, res.Group)
		if !res.Improved {
			assert.Equal(t, g, res.Group)
		}
	}
}

func TestCompareScenarios(t *testing.T) {
	base := makeTestSettings()
	scenarios := BuildDefaultScenarios(base)
	require.Len(t, scenarios, 5)
	assert.Equal(t, "Current Settings", scenarios[0].Name)
	assert.Equal(t, model.ScheduleGeometric, scenarios[1].Settings.Schedule)

	g := makeTestGrid(4, 1.5)
	results := CompareScenarios(context.Background(), scenarios, g, 3)
	require.Len(t, results, len(scenarios))
	for _, r := range results {
		assert.GreaterOrEqual(t, r.ImprovementPct, 0.0, r.Scenario.Name)
		assert.LessOrEqual(t, r.AcceptRate, 1.0)
		requireValid(t, r.Result.Group)
	}
}

func TestRotateSubmission(t *testing.T) {
	sub := model.Submission{
		1: {{X: 10, Y: 10, Deg: 0}},
		2: makeTestRow(2, 0.2), // overlapping, must be left alone
	}
	out, report := RotateSubmission(sub, []int{1, 2, 3}, model.DefaultRotationSettings(), 9)
	require.Len(t, report.Groups, 2)
	assert.Equal(t, []int{1}, report.Refined)
	assert.Equal(t, StatusInvalidInput, report.Groups[1].Status)
	assert.Equal(t, sub[2], out[2])
	assert.Less(t, report.FinalScore, report.BaseScore)
	requireValid(t, out[1])
	assert.Equal(t, out[1].Rounded(9), out[1])
	assert.Equal(t, model.Group{{X: 10, Y: 10, Deg: 0}}, sub[1], "input must not be modified")
}
