package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/TreePack/internal/model"
)

func makeTestRunConfig() model.RunConfig {
	cfg := model.DefaultRunConfig()
	cfg.Refine = makeTestSettings()
	cfg.Workers = 2
	cfg.Decimals = 6
	return cfg
}

func TestRefineSubmissionImprovesAndRounds(t *testing.T) {
	sub := model.Submission{}
	for n := 1; n <= 5; n++ {
		sub[n] = makeTestGrid(n, 2.0)
	}

	out, report, err := NewRunner(makeTestRunConfig()).RefineSubmission(context.Background(), sub)
	require.NoError(t, err)
	require.Len(t, report.Groups, 5)
	assert.LessOrEqual(t, report.FinalScore, report.BaseScore)
	assert.NotEmpty(t, report.Refined)
	assert.InDelta(t, sumScores(out), report.FinalScore, 1e-12)

	for n := 1; n <= 5; n++ {
		requireValid(t, out[n])
		assert.Equal(t, out[n].Rounded(6), out[n], "group %d must already be at output precision", n)
	}
	for i, o := range report.Groups {
		assert.Equal(t, i+1, o.N)
		assert.LessOrEqual(t, o.Score, o.InitialScore)
	}
	assert.Equal(t, makeTestGrid(3, 2.0), sub[3], "input must not be modified")
}

func TestRefineSubmissionOnlySelectedGroups(t *testing.T) {
	sub := model.Submission{}
	for n := 1; n <= 4; n++ {
		sub[n] = makeTestGrid(n, 2.0)
	}
	cfg := makeTestRunConfig()
	cfg.Groups = "2,4"

	out, report, err := NewRunner(cfg).RefineSubmission(context.Background(), sub)
	require.NoError(t, err)
	require.Len(t, report.Groups, 2)
	assert.Equal(t, 2, report.Groups[0].N)
	assert.Equal(t, 4, report.Groups[1].N)
	assert.Equal(t, sub[1], out[1])
	assert.Equal(t, sub[3], out[3])
}

func TestRefineSubmissionSkipsInvalidInputGroup(t *testing.T) {
	sub := model.Submission{
		1: {{}},
		2: makeTestRow(2, 0.2), // overlapping
	}
	out, report, err := NewRunner(makeTestRunConfig()).RefineSubmission(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, sub[2], out[2])
	assert.Equal(t, StatusInvalidInput, report.Groups[1].Status)
}

func TestRefineSubmissionNoSelectedGroups(t *testing.T) {
	cfg := makeTestRunConfig()
	cfg.Groups = "10-12"
	_, _, err := NewRunner(cfg).RefineSubmission(context.Background(), model.Submission{1: {{}}})
	assert.ErrorIs(t, err, model.ErrMissingGroup)
}

func TestRefineSubmissionHonoursDeadline(t *testing.T) {
	sub := model.Submission{}
	for n := 1; n <= 30; n++ {
		sub[n] = makeTestGrid(n, 2.0)
	}
	cfg := makeTestRunConfig()
	cfg.Refine.Iterations = 1_000_000
	cfg.Workers = 1

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	out, report, err := NewRunner(cfg).RefineSubmission(ctx, sub)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.LessOrEqual(t, report.FinalScore, report.BaseScore)
	for n := range out {
		requireValid(t, out[n])
	}
}

func TestRefineSubmissionRoundingFallbackKeepsInput(t *testing.T) {
	// Inside a bound of 0.4 every coordinate rounds to zero at 0 decimals,
	// so any improved layout collapses onto a single point.
	sub := model.Submission{2: {{X: -0.4}, {X: 0.4}}}
	cfg := makeTestRunConfig()
	cfg.Refine.Bound = 0.4
	cfg.Decimals = 0

	out, report, err := NewRunner(cfg).RefineSubmission(context.Background(), sub)
	require.NoError(t, err)
	require.Len(t, report.Groups, 1)
	assert.Equal(t, StatusRoundingFallback, report.Groups[0].Status)
	assert.Equal(t, []int{2}, report.Fallbacks)
	assert.Empty(t, report.Refined)
	assert.Equal(t, sub[2], out[2])
	assert.InDelta(t, report.BaseScore, report.FinalScore, 1e-12)
}
