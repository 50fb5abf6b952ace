package model

import "fmt"

// Schedule selects how the annealing temperature moves from TempStart to TempEnd.
type Schedule string

const (
	ScheduleLinear    Schedule = "linear"    // straight-line interpolation
	ScheduleGeometric Schedule = "geometric" // constant ratio per step
)

// RefineSettings tunes the simulated-annealing refiner for one group.
type RefineSettings struct {
	Iterations    int      `json:"iterations"`
	Restarts      int      `json:"restarts"`
	MoveRadius    float64  `json:"move_radius"`  // max translation per jitter at full temperature
	AngleRadius   float64  `json:"angle_radius"` // degrees
	SwapProb      float64  `json:"swap_prob"`
	ScaleProb     float64  `json:"scale_prob"`
	ScaleRadius   float64  `json:"scale_radius"`  // max relative shrink per scale move
	CentroidProb  float64  `json:"centroid_prob"` // step one placement towards the centroid
	CenterProb    float64  `json:"center_prob"`   // step one placement towards the envelope centre
	EdgeProb      float64  `json:"edge_prob"`     // step an envelope-edge placement inwards and turn it
	TempStart     float64  `json:"temp_start"`
	TempEnd       float64  `json:"temp_end"`
	Schedule      Schedule `json:"schedule"`
	Bound         float64  `json:"bound"`
	GravityWeight float64  `json:"gravity_weight"` // 0 disables the compactness term
	LogEvery      int      `json:"log_every"`      // iterations between V(2) progress lines, 0 = off

	// Each restart may first shrink its start layout about the centroid,
	// relaxing overlaps by pushing pairs apart.
	CompressSteps  int     `json:"compress_steps"` // 0 disables compression
	CompressFactor float64 `json:"compress_factor"`
	RelaxIters     int     `json:"relax_iters"`
	RelaxStep      float64 `json:"relax_step"`
}

// DefaultRefineSettings returns the settings used when nothing is configured.
func DefaultRefineSettings() RefineSettings {
	return RefineSettings{
		Iterations:   5000,
		Restarts:     4,
		MoveRadius:   0.08,
		AngleRadius:  12.0,
		SwapProb:     0.0,
		ScaleProb:    0.0,
		ScaleRadius:  0.02,
		CentroidProb: 0.1,
		CenterProb:   0.1,
		EdgeProb:     0.1,
		TempStart:    1.0,
		TempEnd:      0.05,
		Schedule:     ScheduleLinear,
		Bound:        CoordinateLimit,

		CompressFactor: 0.99,
		RelaxIters:     60,
		RelaxStep:      0.02,
	}
}

// moveProbs lists the probabilities of every move other than jitter.
func (s RefineSettings) moveProbs() []float64 {
	return []float64{s.ScaleProb, s.SwapProb, s.CentroidProb, s.CenterProb, s.EdgeProb}
}

// Validate checks the settings for values the refiner cannot run with.
func (s RefineSettings) Validate() error {
	switch {
	case s.Iterations < 0 || s.Restarts < 0:
		return fmt.Errorf("%w: iterations and restarts must be non-negative", ErrInvalidSettings)
	case s.MoveRadius < 0 || s.AngleRadius < 0 || s.ScaleRadius < 0:
		return fmt.Errorf("%w: move radii must be non-negative", ErrInvalidSettings)
	case s.ScaleRadius >= 1:
		return fmt.Errorf("%w: scale radius must be below 1", ErrInvalidSettings)
	case !validProbs(s.moveProbs()):
		return fmt.Errorf("%w: move probabilities must be non-negative and sum to at most 1", ErrInvalidSettings)
	case s.CompressSteps < 0:
		return fmt.Errorf("%w: compress steps must be non-negative", ErrInvalidSettings)
	case s.CompressSteps > 0 && (s.CompressFactor <= 0 || s.CompressFactor >= 1):
		return fmt.Errorf("%w: compress factor must be in (0, 1)", ErrInvalidSettings)
	case s.CompressSteps > 0 && (s.RelaxIters < 1 || s.RelaxStep <= 0):
		return fmt.Errorf("%w: compression needs positive relax iterations and step", ErrInvalidSettings)
	case s.TempStart <= 0 || s.TempEnd <= 0:
		return fmt.Errorf("%w: temperatures must be positive", ErrInvalidSettings)
	case s.Schedule != ScheduleLinear && s.Schedule != ScheduleGeometric:
		return fmt.Errorf("%w: unknown schedule %q", ErrInvalidSettings, s.Schedule)
	case s.Bound <= 0:
		return fmt.Errorf("%w: bound must be positive", ErrInvalidSettings)
	case s.GravityWeight < 0:
		return fmt.Errorf("%w: gravity weight must be non-negative", ErrInvalidSettings)
	}
	return nil
}

func validProbs(probs []float64) bool {
	sum := 0.0
	for _, p := range probs {
		if p < 0 {
			return false
		}
		sum += p
	}
	return sum <= 1
}

// PolishSettings tunes the deterministic coordinate-descent pass.
type PolishSettings struct {
	Passes     int       `json:"passes"` // 0 disables polishing
	Steps      []float64 `json:"steps"`
	AngleSteps []float64 `json:"angle_steps"`
}

// DefaultPolishSettings returns a disabled polish pass with the usual ladders.
func DefaultPolishSettings() PolishSettings {
	return PolishSettings{
		Passes:     0,
		Steps:      []float64{0.02, 0.01, 0.005, 0.002, 0.001, 0.0005, 0.0002},
		AngleSteps: []float64{15, 5, 2, 1, 0.5, 0.25},
	}
}

// RotationSettings tunes the whole-group rotation search.
type RotationSettings struct {
	CoarseStep     float64   `json:"coarse_step"` // degrees over [0, 90]
	FineSteps      []float64 `json:"fine_steps"`
	MinImprovement float64   `json:"min_improvement"` // minimum side reduction to accept
}

// DefaultRotationSettings returns the coarse-to-fine ladder 1, 0.1, 0.02 degrees.
func DefaultRotationSettings() RotationSettings {
	return RotationSettings{
		CoarseStep:     1.0,
		FineSteps:      []float64{0.1, 0.02},
		MinImprovement: 1e-9,
	}
}

// CascadeSettings tunes the beam-search deletion cascade.
type CascadeSettings struct {
	BeamWidth    int  `json:"beam_width"`
	SkipBackward bool `json:"skip_backward"`
	SkipCascade  bool `json:"skip_cascade"`
}

// DefaultCascadeSettings returns a greedy (width 1) cascade with the backward pass.
func DefaultCascadeSettings() CascadeSettings {
	return CascadeSettings{BeamWidth: 1}
}

// Validate checks the cascade settings.
func (s CascadeSettings) Validate() error {
	if s.BeamWidth < 1 {
		return fmt.Errorf("%w: beam width must be at least 1", ErrInvalidSettings)
	}
	return nil
}
