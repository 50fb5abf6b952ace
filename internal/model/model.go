package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// MaxGroupSize is the largest group size in a complete submission.
const MaxGroupSize = 200

// CoordinateLimit is the largest absolute x or y value a placement may use.
const CoordinateLimit = 100.0

// Placement positions one piece: rotate by Deg degrees about the origin,
// then translate by (X, Y).
type Placement struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Deg float64 `json:"deg"`
}

// NormalizeDeg maps any angle into [0, 360).
func NormalizeDeg(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

// Normalized returns the placement with its angle mapped into [0, 360).
func (p Placement) Normalized() Placement {
	return Placement{X: p.X, Y: p.Y, Deg: NormalizeDeg(p.Deg)}
}

// Quantize rounds v to the value a decimals-digit fixed-point encoding
// reads back as.
func Quantize(v float64, decimals int) float64 {
	q, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return q
}

// Group is the ordered list of placements for one group size N.
type Group []Placement

// Clone returns an independent copy of the group.
func (g Group) Clone() Group {
	if g == nil {
		return nil
	}
	out := make(Group, len(g))
	copy(out, g)
	return out
}

// Without returns a new group with the placement at idx removed.
func (g Group) Without(idx int) Group {
	out := make(Group, 0, len(g)-1)
	out = append(out, g[:idx]...)
	return append(out, g[idx+1:]...)
}

// Rounded returns the group as it will read back after encoding with the
// given number of decimals. Angles are normalized first.
func (g Group) Rounded(decimals int) Group {
	out := make(Group, len(g))
	for i, p := range g {
		out[i] = Placement{
			X:   Quantize(p.X, decimals),
			Y:   Quantize(p.Y, decimals),
			Deg: NormalizeDeg(Quantize(NormalizeDeg(p.Deg), decimals)),
		}
	}
	return out
}

// Centered translates the group so that the given point moves to the origin.
func (g Group) Centered(cx, cy float64) Group {
	out := make(Group, len(g))
	for i, p := range g {
		out[i] = Placement{X: p.X - cx, Y: p.Y - cy, Deg: p.Deg}
	}
	return out
}

// Submission maps a group size N to its group of N placements.
type Submission map[int]Group

// Sizes returns the group sizes present, ascending.
func (s Submission) Sizes() []int {
	sizes := make([]int, 0, len(s))
	for n := range s {
		sizes = append(sizes, n)
	}
	sort.Ints(sizes)
	return sizes
}

// MaxN returns the largest group size present, or 0 for an empty submission.
func (s Submission) MaxN() int {
	max := 0
	for n := range s {
		if n > max {
			max = n
		}
	}
	return max
}

// Clone returns a deep copy of the submission.
func (s Submission) Clone() Submission {
	out := make(Submission, len(s))
	for n, g := range s {
		out[n] = g.Clone()
	}
	return out
}

// RequireSizes checks that every size in 1..maxN is present with exactly
// N placements.
func (s Submission) RequireSizes(maxN int) error {
	for n := 1; n <= maxN; n++ {
		g, ok := s[n]
		if !ok {
			return fmt.Errorf("%w: group %03d", ErrMissingGroup, n)
		}
		if len(g) != n {
			return fmt.Errorf("%w: group %03d has %d placements", ErrMissingGroup, n, len(g))
		}
	}
	return nil
}
