package evaluator

import (
	"github.com/quadtile/stylemap/internal/descriptor"
	"github.com/quadtile/stylemap/internal/expr"
	"github.com/quadtile/stylemap/internal/interp"
	"github.com/quadtile/stylemap/internal/ir"
)

// Technique is one indexed technique instance: the render-ready bag of
// parameters produced for a (style rule, evaluated dynamic values) pair.
//
// Techniques returned from MatchingTechniques are shared by every feature
// that produces the same dynamic-attribute tuple and MUST NOT be mutated
// by callers.
type Technique struct {
	// Kind is the technique kind tag, the discriminant for geometry and
	// material construction downstream.
	Kind descriptor.Kind

	// Index is the global creation-order index. It is stable for the
	// evaluator's lifetime, monotonically increasing, and never reused.
	Index int

	// StyleIndex is the pre-order leaf index of the originating rule.
	StyleIndex int

	// RenderOrder is the resolved draw priority.
	RenderOrder int

	// Attrs holds static attribute values merged with the evaluated
	// technique-scope values that define this instance's identity.
	Attrs ir.Object

	// FeatureAttrs are feature-scope dynamic attributes, forwarded
	// unevaluated for the geometry decoder to resolve per feature.
	FeatureAttrs map[string]DynamicValue

	// RendererAttrs are interpolated attributes forwarded for per-frame
	// resolution by the renderer.
	RendererAttrs map[string]*interp.Curve
}

// DynamicValue is an unevaluated dynamic attribute: exactly one of Expr
// and Curve is set.
type DynamicValue struct {
	Expr  expr.Expr
	Curve *interp.Curve
}

// ResolveRenderer resolves the technique's renderer-scope curves at a
// storage level, for consumers that want concrete values rather than
// curves (display tooling, the catalog). The technique itself is not
// modified.
func (t *Technique) ResolveRenderer(level float64) (ir.Object, error) {
	if len(t.RendererAttrs) == 0 {
		return nil, nil
	}
	out := make(ir.Object, len(t.RendererAttrs))
	for name, curve := range t.RendererAttrs {
		v, err := curve.Eval(level)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// Decoded is the transferable form of a technique: expression-typed
// attributes are stripped (expression trees do not cross the worker
// boundary) and curves are serialized to their declaration form.
type Decoded struct {
	Kind        descriptor.Kind `json:"kind"`
	Index       int             `json:"index"`
	StyleIndex  int             `json:"styleIndex"`
	RenderOrder int             `json:"renderOrder"`
	Attrs       ir.Object       `json:"attrs,omitempty"`
	Curves      ir.Object       `json:"curves,omitempty"`
}

// Canonical renders the decoded technique as a value tree, so it can be
// canonically serialized for golden files and catalog rows.
func (d Decoded) Canonical() ir.Object {
	obj := ir.Object{
		"kind":        ir.String(string(d.Kind)),
		"index":       ir.Number(d.Index),
		"styleIndex":  ir.Number(d.StyleIndex),
		"renderOrder": ir.Number(d.RenderOrder),
	}
	if len(d.Attrs) > 0 {
		obj["attrs"] = d.Attrs
	}
	if len(d.Curves) > 0 {
		obj["curves"] = d.Curves
	}
	return obj
}

// Decode strips t down to its transferable form.
func (t *Technique) Decode() Decoded {
	d := Decoded{
		Kind:        t.Kind,
		Index:       t.Index,
		StyleIndex:  t.StyleIndex,
		RenderOrder: t.RenderOrder,
		Attrs:       t.Attrs,
	}
	if len(t.RendererAttrs) > 0 {
		d.Curves = make(ir.Object, len(t.RendererAttrs))
		for name, curve := range t.RendererAttrs {
			d.Curves[name] = curve.Decl()
		}
	}
	return d
}
