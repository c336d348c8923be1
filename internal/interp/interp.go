// Package interp resolves interpolated (curve-based) style attributes.
//
// A curve is a sorted list of (level, value) control points evaluated by
// piecewise interpolation at a given storage level. Curves are a distinct
// value kind from expressions: they depend on the tile/display level, not
// on feature attributes, so they never pass through the expression
// evaluator.
package interp

import (
	"fmt"
	"math"
	"sort"

	"github.com/quadtile/stylemap/internal/ir"
)

// Mode selects the easing applied between two control points.
type Mode string

const (
	// ModeStep holds each control point's value until the next point.
	ModeStep Mode = "step"

	// ModeLinear interpolates linearly between neighbors.
	ModeLinear Mode = "linear"

	// ModeCubic applies smoothstep easing (t²(3-2t)) to the segment
	// parameter before the linear blend.
	ModeCubic Mode = "cubic"

	// ModeExponential eases the segment parameter by (bᵗ-1)/(b-1) for
	// base b (the curve's exponent); base 1 degenerates to linear.
	ModeExponential Mode = "exponential"
)

// DefaultExponent is the exponential base used when a curve does not set
// one.
const DefaultExponent = 2

// ControlPoint is one (level, value) pair of a curve.
type ControlPoint struct {
	Level float64
	Value ir.Value
}

// Curve is an immutable piecewise interpolation over control points sorted
// by ascending level.
type Curve struct {
	mode     Mode
	exponent float64
	points   []ControlPoint
}

// NewCurve validates and builds a curve. Points are sorted by level;
// duplicate levels are rejected. The exponent only matters for
// ModeExponential; pass 0 for the default.
func NewCurve(mode Mode, exponent float64, points []ControlPoint) (*Curve, error) {
	switch mode {
	case ModeStep, ModeLinear, ModeCubic, ModeExponential:
	default:
		return nil, fmt.Errorf("unknown interpolation mode %q", mode)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("curve needs at least one control point")
	}
	if exponent == 0 {
		exponent = DefaultExponent
	}
	if exponent < 0 {
		return nil, fmt.Errorf("exponential base must be positive, got %v", exponent)
	}

	sorted := make([]ControlPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Level == sorted[i-1].Level {
			return nil, fmt.Errorf("duplicate control point level %v", sorted[i].Level)
		}
	}

	return &Curve{mode: mode, exponent: exponent, points: sorted}, nil
}

// Mode returns the curve's interpolation mode.
func (c *Curve) Mode() Mode { return c.mode }

// Points returns the sorted control points. The slice is shared; callers
// must not mutate it.
func (c *Curve) Points() []ControlPoint { return c.points }

// Decl renders the curve back into its transferable map form
// ({interpolation, levels, values}), used when techniques cross a
// serialization boundary.
func (c *Curve) Decl() ir.Object {
	levels := make(ir.Array, len(c.points))
	values := make(ir.Array, len(c.points))
	for i, p := range c.points {
		levels[i] = ir.Number(p.Level)
		values[i] = p.Value
	}
	decl := ir.Object{
		"interpolation": ir.String(string(c.mode)),
		"levels":        levels,
		"values":        values,
	}
	if c.mode == ModeExponential {
		decl["exponent"] = ir.Number(c.exponent)
	}
	return decl
}

// Eval resolves the curve at the given storage level. Levels at or below
// the first point clamp to the first value, levels at or above the last
// clamp to the last.
//
// Numeric values blend; hex-color strings blend channel-wise and format
// back to hex. Any other value kind falls back to step semantics within
// the segment, since there is no meaningful blend for it.
func (c *Curve) Eval(level float64) (ir.Value, error) {
	pts := c.points
	if level <= pts[0].Level {
		return pts[0].Value, nil
	}
	last := pts[len(pts)-1]
	if level >= last.Level {
		return last.Value, nil
	}

	// Find the segment [lo, hi) containing level.
	hi := sort.Search(len(pts), func(i int) bool { return pts[i].Level > level })
	lo := hi - 1

	if c.mode == ModeStep {
		return pts[lo].Value, nil
	}

	t := (level - pts[lo].Level) / (pts[hi].Level - pts[lo].Level)
	switch c.mode {
	case ModeCubic:
		t = t * t * (3 - 2*t)
	case ModeExponential:
		if c.exponent != 1 {
			t = (math.Pow(c.exponent, t) - 1) / (c.exponent - 1)
		}
	}

	return blend(pts[lo].Value, pts[hi].Value, t)
}

func blend(a, b ir.Value, t float64) (ir.Value, error) {
	if an, ok := a.(ir.Number); ok {
		bn, ok := b.(ir.Number)
		if !ok {
			return nil, fmt.Errorf("cannot blend number with %T", b)
		}
		return ir.Number(float64(an) + (float64(bn)-float64(an))*t), nil
	}

	if as, ok := a.(ir.String); ok {
		if ca, cok := ParseHexColor(string(as)); cok {
			bs, ok := b.(ir.String)
			if !ok {
				return nil, fmt.Errorf("cannot blend color with %T", b)
			}
			cb, cok := ParseHexColor(string(bs))
			if !cok {
				return nil, fmt.Errorf("cannot blend color with non-color %q", string(bs))
			}
			return ir.String(lerpColor(ca, cb, t).Format()), nil
		}
	}

	// No blend defined: hold the left value (step fallback).
	return a, nil
}
