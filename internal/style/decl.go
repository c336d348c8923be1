// Package style builds the evaluator's private style tree from a theme's
// declarative rule tree: deep-cloning the declarations, indexing leaf
// rules, classifying attribute values, and assigning render orders.
package style

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/quadtile/stylemap/internal/expr"
	"github.com/quadtile/stylemap/internal/interp"
	"github.com/quadtile/stylemap/internal/ir"
)

// Declaration is one style rule as it appears in a theme file. The zero
// value of every field is "absent". Declarations are external input; Build
// clones everything it keeps, so the caller may reuse or mutate the
// declaration tree afterwards.
type Declaration struct {
	// Ref names another style to include by reference. References are
	// resolved by the theme loader; any that survive to Build are
	// unresolved and get dropped.
	Ref string `yaml:"ref,omitempty" json:"ref,omitempty"`

	// When is the match condition: either the string grammar or the
	// structured array form. Absent means "always matches".
	When any `yaml:"when,omitempty" json:"when,omitempty"`

	// Technique names the technique kind this rule produces. The
	// sentinel "none" matches without producing anything.
	Technique string `yaml:"technique,omitempty" json:"technique,omitempty"`

	// Final stops evaluation of all subsequent rules once this rule (or
	// a descendant) matches.
	Final bool `yaml:"final,omitempty" json:"final,omitempty"`

	// RenderOrder pins the rule's render order explicitly.
	RenderOrder *int `yaml:"renderOrder,omitempty" json:"renderOrder,omitempty"`

	// RenderOrderBiasGroup makes all member rules share one render
	// order, reserved as a block sized by RenderOrderBiasRange at the
	// group's first occurrence.
	RenderOrderBiasGroup string `yaml:"renderOrderBiasGroup,omitempty" json:"renderOrderBiasGroup,omitempty"`

	// RenderOrderBiasRange is the [min, max] bias the group may apply;
	// min may be negative ("render below default order").
	RenderOrderBiasRange []int `yaml:"renderOrderBiasRange,omitempty" json:"renderOrderBiasRange,omitempty"`

	// Attr holds the rule's attribute values: static scalars, expression
	// arrays, or interpolation declarations.
	Attr map[string]any `yaml:"attr,omitempty" json:"attr,omitempty"`

	// Styles nests child rules; a rule with children is a grouping node
	// and never produces a technique itself.
	Styles []*Declaration `yaml:"styles,omitempty" json:"styles,omitempty"`
}

// AttrKind tags how an attribute value resolves.
type AttrKind int

const (
	// AttrStatic is a constant value, independent of scope.
	AttrStatic AttrKind = iota

	// AttrExpr is an expression evaluated per feature; its scope decides
	// whether it is forwarded, folded into the cache key, or dropped.
	AttrExpr

	// AttrCurve is an interpolated property resolved by storage level.
	AttrCurve
)

// Attr is one classified attribute of a rule. Exactly one of Static,
// Source, or Curve is meaningful, per Kind.
type Attr struct {
	Name   string
	Kind   AttrKind
	Static ir.Value      // AttrStatic
	Source any           // AttrExpr: raw declaration, compiled lazily
	Curve  *interp.Curve // AttrCurve
}

// decodeAttrs classifies a declaration's attribute table. Attributes are
// returned sorted by name so downstream cache keys are deterministic
// regardless of map iteration order.
//
// A malformed curve declaration drops the attribute with a warning rather
// than failing the whole rule, in line with the silent-degradation policy
// for theme authoring errors.
func decodeAttrs(raw map[string]any, logger *slog.Logger) ([]Attr, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]Attr, 0, len(names))
	for _, name := range names {
		attr, keep, err := classifyAttr(name, raw[name], logger)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		if keep {
			attrs = append(attrs, attr)
		}
	}
	return attrs, nil
}

func classifyAttr(name string, value any, logger *slog.Logger) (Attr, bool, error) {
	if interp.IsCurveDecl(value) {
		curve, err := interp.ParseDecl(value)
		if err != nil {
			logger.Warn("dropping malformed interpolated attribute",
				slog.String("attr", name), slog.String("error", err.Error()))
			return Attr{}, false, nil
		}
		return Attr{Name: name, Kind: AttrCurve, Curve: curve}, true, nil
	}

	if arr, ok := value.([]any); ok {
		if op, ok := first(arr).(string); ok && expr.KnownOperator(op) {
			return Attr{Name: name, Kind: AttrExpr, Source: cloneValue(value)}, true, nil
		}
		// A plain array is a static value (e.g. dash patterns).
	}

	static, err := ir.From(cloneValue(value))
	if err != nil {
		return Attr{}, false, err
	}
	return Attr{Name: name, Kind: AttrStatic, Static: static}, true, nil
}

func first(arr []any) any {
	if len(arr) == 0 {
		return nil
	}
	return arr[0]
}

// cloneValue deep-copies a decoded JSON/YAML value so the built tree never
// aliases caller-owned declaration data.
func cloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = cloneValue(elem)
		}
		return out
	default:
		return v
	}
}
