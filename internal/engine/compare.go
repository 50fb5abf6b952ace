package engine

import (
	"context"
	"fmt"

	"github.com/piwi3910/TreePack/internal/model"
)

// ComparisonScenario defines a named set of refine settings to compare.
type ComparisonScenario struct {
	Name     string
	Settings model.RefineSettings
}

// ComparisonResult holds the refinement result and computed statistics
// for a single scenario.
type ComparisonResult struct {
	Scenario       ComparisonScenario
	Result         RefineResult
	ImprovementPct float64
	AcceptRate     float64
}

// CompareScenarios refines the same group under each scenario with the same
// seed and returns the results in scenario order. This shows which move mix
// or schedule suits a group size before committing to a long run.
func CompareScenarios(ctx context.Context, scenarios []ComparisonScenario, g model.Group, seed int64) []ComparisonResult {
	results := make([]ComparisonResult, 0, len(scenarios))

	for _, scenario := range scenarios {
		res := NewRefiner(scenario.Settings).Refine(ctx, g, seed)

		improvement := 0.0
		if res.InitialScore > 0 {
			improvement = 100 * (res.InitialScore - res.Score) / res.InitialScore
		}
		attempts := scenario.Settings.Iterations * scenario.Settings.Restarts
		acceptRate := 0.0
		if attempts > 0 {
			acceptRate = float64(res.Accepted) / float64(attempts)
		}

		results = append(results, ComparisonResult{
			Scenario:       scenario,
			Result:         res,
			ImprovementPct: improvement,
			AcceptRate:     acceptRate,
		})
	}

	return results
}

// BuildDefaultScenarios generates a set of comparison scenarios based on
// the current settings, varying the move mix and the cooling schedule.
func BuildDefaultScenarios(base model.RefineSettings) []ComparisonScenario {
	scenarios := []ComparisonScenario{
		{
			Name:     "Current Settings",
			Settings: base,
		},
	}

	// Scenario: the other cooling schedule
	alt := base
	if base.Schedule == model.ScheduleGeometric {
		alt.Schedule = model.ScheduleLinear
		scenarios = append(scenarios, ComparisonScenario{Name: "Linear Schedule", Settings: alt})
	} else {
		alt.Schedule = model.ScheduleGeometric
		scenarios = append(scenarios, ComparisonScenario{Name: "Geometric Schedule", Settings: alt})
	}

	// Scenario: add swap moves
	if base.SwapProb == 0 {
		swaps := base
		swaps.SwapProb = 0.1
		scenarios = append(scenarios, ComparisonScenario{Name: "With Swaps (10%)", Settings: swaps})
	}

	// Scenario: add scale moves
	if base.ScaleProb == 0 {
		scaled := base
		scaled.ScaleProb = 0.05
		scenarios = append(scenarios, ComparisonScenario{Name: "With Scaling (5%)", Settings: scaled})
	}

	// Scenario: finer jitter
	fine := base
	fine.MoveRadius = base.MoveRadius * 0.25
	fine.AngleRadius = base.AngleRadius * 0.25
	scenarios = append(scenarios, ComparisonScenario{
		Name:     fmt.Sprintf("Fine Moves (%.3g)", fine.MoveRadius),
		Settings: fine,
	})

	return scenarios
}
