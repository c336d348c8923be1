package interp

import (
	"fmt"

	"github.com/quadtile/stylemap/internal/ir"
)

// IsCurveDecl reports whether a decoded attribute value is an interpolated
// property declaration: either the array form
//
//	["interpolate", ["linear"], ["zoom"], 0, "#fff", 10, "#000"]
//
// or the map form
//
//	{interpolation: linear, levels: [0, 10], values: ["#fff", "#000"]}
func IsCurveDecl(v any) bool {
	switch val := v.(type) {
	case []any:
		if len(val) == 0 {
			return false
		}
		op, ok := val[0].(string)
		return ok && op == "interpolate"
	case map[string]any:
		_, ok := val["interpolation"]
		return ok
	default:
		return false
	}
}

// ParseDecl compiles a curve declaration (see IsCurveDecl) into a Curve.
func ParseDecl(v any) (*Curve, error) {
	switch val := v.(type) {
	case []any:
		return parseArrayDecl(val)
	case map[string]any:
		return parseMapDecl(val)
	default:
		return nil, fmt.Errorf("not a curve declaration: %T", v)
	}
}

func parseArrayDecl(arr []any) (*Curve, error) {
	if len(arr) < 3 {
		return nil, fmt.Errorf("interpolate needs a mode, an input, and control points")
	}
	if op, _ := arr[0].(string); op != "interpolate" {
		return nil, fmt.Errorf("not an interpolate declaration")
	}

	mode, exponent, err := parseModeDecl(arr[1])
	if err != nil {
		return nil, err
	}

	// The input must be ["zoom"]: curves are resolved at storage level,
	// feature-dependent inputs go through the expression engine instead.
	input, ok := arr[2].([]any)
	if !ok || len(input) != 1 || input[0] != "zoom" {
		return nil, fmt.Errorf("interpolate input must be [\"zoom\"]")
	}

	stops := arr[3:]
	if len(stops) == 0 || len(stops)%2 != 0 {
		return nil, fmt.Errorf("interpolate needs (level, value) pairs, got %d trailing element(s)", len(stops))
	}

	points := make([]ControlPoint, 0, len(stops)/2)
	for i := 0; i < len(stops); i += 2 {
		level, ok := toFloat(stops[i])
		if !ok {
			return nil, fmt.Errorf("control point level must be a number, got %T", stops[i])
		}
		value, err := ir.From(stops[i+1])
		if err != nil {
			return nil, fmt.Errorf("control point value: %w", err)
		}
		points = append(points, ControlPoint{Level: level, Value: value})
	}

	return NewCurve(mode, exponent, points)
}

func parseModeDecl(v any) (Mode, float64, error) {
	switch m := v.(type) {
	case string:
		return Mode(m), 0, nil
	case []any:
		if len(m) == 0 {
			return "", 0, fmt.Errorf("empty interpolation mode")
		}
		name, ok := m[0].(string)
		if !ok {
			return "", 0, fmt.Errorf("interpolation mode must be named by a string, got %T", m[0])
		}
		if name == string(ModeExponential) && len(m) == 2 {
			base, ok := toFloat(m[1])
			if !ok {
				return "", 0, fmt.Errorf("exponential base must be a number, got %T", m[1])
			}
			return ModeExponential, base, nil
		}
		if len(m) != 1 {
			return "", 0, fmt.Errorf("interpolation mode %q takes no parameters", name)
		}
		return Mode(name), 0, nil
	default:
		return "", 0, fmt.Errorf("unsupported interpolation mode declaration %T", v)
	}
}

func parseMapDecl(m map[string]any) (*Curve, error) {
	modeName, ok := m["interpolation"].(string)
	if !ok {
		return nil, fmt.Errorf("interpolation mode must be a string")
	}

	exponent := 0.0
	if raw, present := m["exponent"]; present {
		exponent, ok = toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("exponent must be a number, got %T", raw)
		}
	}

	levels, ok := m["levels"].([]any)
	if !ok {
		return nil, fmt.Errorf("levels must be an array")
	}
	values, ok := m["values"].([]any)
	if !ok {
		return nil, fmt.Errorf("values must be an array")
	}
	if len(levels) != len(values) {
		return nil, fmt.Errorf("levels (%d) and values (%d) must pair up", len(levels), len(values))
	}

	points := make([]ControlPoint, len(levels))
	for i := range levels {
		level, ok := toFloat(levels[i])
		if !ok {
			return nil, fmt.Errorf("levels[%d] must be a number, got %T", i, levels[i])
		}
		value, err := ir.From(values[i])
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
		points[i] = ControlPoint{Level: level, Value: value}
	}

	return NewCurve(Mode(modeName), exponent, points)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
