package score

import (
	"github.com/paulmach/orb"
)

// Extremes tracked by a Tracker, in the order of Tracker.ext.
const (
	extMinX = iota
	extMinY
	extMaxX
	extMaxY
	numExt
)

// Change replaces the cached bound of one placement.
type Change struct {
	Index int
	Bound orb.Bound
}

// Tracker maintains the envelope of a group under single- and
// two-placement updates. For each extreme it remembers the placement that
// attains it, so an update only rescans when that placement's bound retreats
// from the extreme.
type Tracker struct {
	vals [numExt][]float64
	ext  [numExt]float64
	arg  [numExt]int
}

// NewTracker builds a tracker over bounds.
func NewTracker(bounds []orb.Bound) *Tracker {
	t := &Tracker{}
	t.Reset(bounds)
	return t
}

// Reset discards all cached state and recomputes from bounds.
func (t *Tracker) Reset(bounds []orb.Bound) {
	for k := 0; k < numExt; k++ {
		if cap(t.vals[k]) < len(bounds) {
			t.vals[k] = make([]float64, len(bounds))
		}
		t.vals[k] = t.vals[k][:len(bounds)]
		for i, b := range bounds {
			t.vals[k][i] = boundValue(b, k)
		}
		t.ext[k], t.arg[k] = t.scan(k, nil)
	}
}

// Len returns the number of tracked placements.
func (t *Tracker) Len() int {
	return len(t.vals[extMinX])
}

// Envelope returns the current envelope.
func (t *Tracker) Envelope() orb.Bound {
	return toBound(t.ext)
}

// Side returns the side of the current enclosing square.
func (t *Tracker) Side() float64 {
	return Side(t.Envelope())
}

// Propose returns the envelope that would result from applying changes,
// without modifying the tracker.
func (t *Tracker) Propose(changes ...Change) orb.Bound {
	ext, _ := t.evaluate(changes)
	return toBound(ext)
}

// Apply commits changes and returns the new envelope.
func (t *Tracker) Apply(changes ...Change) orb.Bound {
	ext, arg := t.evaluate(changes)
	for _, c := range changes {
		for k := 0; k < numExt; k++ {
			t.vals[k][c.Index] = boundValue(c.Bound, k)
		}
	}
	t.ext, t.arg = ext, arg
	return toBound(ext)
}

func (t *Tracker) evaluate(changes []Change) ([numExt]float64, [numExt]int) {
	var ext [numExt]float64
	var arg [numExt]int
	for k := 0; k < numExt; k++ {
		v, a := t.ext[k], t.arg[k]
		retreats := false
		for _, c := range changes {
			if c.Index == a && better(k, v, boundValue(c.Bound, k)) {
				retreats = true
				break
			}
		}
		if retreats {
			ext[k], arg[k] = t.scan(k, changes)
			continue
		}
		for _, c := range changes {
			if nv := boundValue(c.Bound, k); better(k, nv, v) {
				v, a = nv, c.Index
			}
		}
		ext[k], arg[k] = v, a
	}
	return ext, arg
}

// scan finds extreme k over cached values with changes overlaid.
func (t *Tracker) scan(k int, changes []Change) (float64, int) {
	vals := t.vals[k]
	if len(vals) == 0 {
		return emptyValue(k), -1
	}
	best, arg := emptyValue(k), -1
	for i, v := range vals {
		for _, c := range changes {
			if c.Index == i {
				v = boundValue(c.Bound, k)
				break
			}
		}
		if arg < 0 || better(k, v, best) {
			best, arg = v, i
		}
	}
	return best, arg
}

func boundValue(b orb.Bound, k int) float64 {
	switch k {
	case extMinX:
		return b.Min[0]
	case extMinY:
		return b.Min[1]
	case extMaxX:
		return b.Max[0]
	default:
		return b.Max[1]
	}
}

func emptyValue(k int) float64 {
	return boundValue(emptyBound, k)
}

// better reports whether a is strictly further out than b for extreme k.
func better(k int, a, b float64) bool {
	if k == extMinX || k == extMinY {
		return a < b
	}
	return a > b
}

func toBound(ext [numExt]float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{ext[extMinX], ext[extMinY]},
		Max: orb.Point{ext[extMaxX], ext[extMaxY]},
	}
}
