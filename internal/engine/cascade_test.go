package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/TreePack/internal/model"
	"github.com/piwi3910/TreePack/internal/score"
)

// makeTestRow places n upright pieces side by side, spacing apart.
func makeTestRow(n int, spacing float64) model.Group {
	g := make(model.Group, n)
	for i := range g {
		g[i] = model.Placement{X: float64(i) * spacing}
	}
	return g
}

// makeTestCascadeSubmission has compact large groups and loose small ones,
// so deleting from a larger group pays off.
func makeTestCascadeSubmission(maxN int) model.Submission {
	sub := make(model.Submission, maxN)
	for n := 1; n <= maxN; n++ {
		spacing := 2.0
		if n > maxN/2 {
			spacing = 1.0
		}
		sub[n] = makeTestGrid(n, spacing)
	}
	return sub
}

func sumScores(sub model.Submission) float64 {
	total := 0.0
	for _, n := range sub.Sizes() {
		s, _ := score.GroupScore(sub[n])
		total += s
	}
	return total
}

func TestCascadeNeverIncreasesTotal(t *testing.T) {
	for _, width := range []int{1, 3, 8} {
		sub := makeTestCascadeSubmission(12)
		s := model.DefaultCascadeSettings()
		s.BeamWidth = width

		res, err := Cascade(context.Background(), sub, s)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Total, res.InitialTotal, "width=%d", width)
		assert.Less(t, res.Total, res.InitialTotal, "loose small groups should be replaced")
		assert.InDelta(t, sumScores(res.Submission), res.Total, 1e-9)
		assert.Equal(t, 11, res.Levels)

		for n := 1; n <= 12; n++ {
			requireValid(t, res.Submission[n])
		}
		assert.NotEmpty(t, res.Replaced)
	}
}

func TestCascadeGreedyMatchesBestSingleDeletion(t *testing.T) {
	sub := model.Submission{
		1: {{}},
		2: makeTestRow(2, 0.7),
		3: makeTestRow(3, 0.7),
		4: makeTestRow(4, 3.0),
		5: makeTestRow(5, 0.7),
	}

	bestIdx, bestScore := -1, 0.0
	for d := 0; d < 5; d++ {
		s, _ := score.GroupScore(sub[5].Without(d))
		if bestIdx < 0 || s < bestScore {
			bestIdx, bestScore = d, s
		}
	}
	orig4, _ := score.GroupScore(sub[4])
	require.Less(t, bestScore, orig4)

	res, err := Cascade(context.Background(), sub, model.DefaultCascadeSettings())
	require.NoError(t, err)
	assert.Equal(t, sub[5].Without(bestIdx), res.Submission[4])
	assert.Equal(t, sub[5], res.Submission[5])
	assert.Contains(t, res.Replaced, 4)
	assert.LessOrEqual(t, res.Total, res.InitialTotal)
}

func TestCascadeKeepsBetterSmallGroups(t *testing.T) {
	// Every small group is already as compact as its larger neighbour allows.
	sub := model.Submission{}
	for n := 1; n <= 6; n++ {
		sub[n] = makeTestRow(n, 0.7)
	}
	res, err := Cascade(context.Background(), sub, model.DefaultCascadeSettings())
	require.NoError(t, err)
	assert.InDelta(t, res.InitialTotal, res.Total, 1e-12)
}

func TestCascadeRejectsIncompleteSubmission(t *testing.T) {
	sub := makeTestCascadeSubmission(5)
	delete(sub, 2)
	_, err := Cascade(context.Background(), sub, model.DefaultCascadeSettings())
	assert.ErrorIs(t, err, model.ErrMissingGroup)

	_, err = Cascade(context.Background(), makeTestCascadeSubmission(3), model.CascadeSettings{BeamWidth: 0})
	assert.ErrorIs(t, err, model.ErrInvalidSettings)
}

func TestCascadeCancelledReturnsInput(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sub := makeTestCascadeSubmission(6)
	res, err := Cascade(ctx, sub, model.DefaultCascadeSettings())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Levels)
	assert.Equal(t, res.InitialTotal, res.Total)
	assert.Equal(t, sub, res.Submission)
}

func TestMergeBestPicksLowestValidGroup(t *testing.T) {
	loose := model.Submission{1: {{}}, 2: makeTestRow(2, 2.0), 3: makeTestRow(3, 2.0)}
	tight := model.Submission{1: {{}}, 2: makeTestRow(2, 0.7), 3: makeTestRow(3, 0.3)} // group 3 overlaps

	merged, report := MergeBest([]model.Submission{loose, tight})
	require.Len(t, merged, 3)
	assert.Equal(t, 0, report.Source[1], "ties keep the first input")
	assert.Equal(t, 1, report.Source[2])
	assert.Equal(t, 0, report.Source[3], "overlapping group must be skipped")
	assert.Equal(t, 1, report.Skipped[3])
	assert.Equal(t, tight[2], merged[2])
}

func TestBackwardPassUsesPrefixOfLargerGroup(t *testing.T) {
	sub := model.Submission{
		1: {{X: 0}},
		2: makeTestRow(2, 0.7),
		3: makeTestRow(3, 3.0),
		4: makeTestRow(4, 0.7),
	}
	out, replaced := BackwardPass(sub)
	assert.Equal(t, []int{3}, replaced)
	assert.Equal(t, sub[4][:3], out[3])
	assert.Equal(t, sub[2], out[2])
	assert.LessOrEqual(t, sumScores(out), sumScores(sub))
	assert.Equal(t, makeTestRow(3, 3.0), sub[3], "input must not be modified")
}

func TestRoundSubmissionRevertsBrokenGroups(t *testing.T) {
	// Touching pieces at x=0.6 and x=1.3 both round to x=1.
	tight := model.Submission{1: {{}}, 2: {{X: 0.6}, {X: 1.3}}}
	loose := model.Submission{1: {{}}, 2: makeTestRow(2, 2.0)}

	out, reverted := RoundSubmission(tight, loose, 0)
	assert.Equal(t, []int{2}, reverted)
	assert.Equal(t, loose[2], out[2])
	assert.Equal(t, tight[1], out[1])

	out, reverted = RoundSubmission(tight, loose, 6)
	assert.Empty(t, reverted)
	assert.Equal(t, tight[2], out[2])
}
