package evaluator

import (
	"log/slog"
	"strconv"

	"github.com/quadtile/stylemap/internal/descriptor"
	"github.com/quadtile/stylemap/internal/expr"
	"github.com/quadtile/stylemap/internal/interp"
	"github.com/quadtile/stylemap/internal/ir"
	"github.com/quadtile/stylemap/internal/style"
)

// partition buckets a leaf rule's attributes (its own plus its ancestors')
// by evaluation scope. Computed once per rule and memoized: the buckets
// depend only on the rule tree and the descriptor registry, never on the
// feature.
type partition struct {
	// statics are scope-independent constant values, merged with every
	// instance.
	statics ir.Object

	// technique holds technique-scope expressions in attribute name
	// order; their evaluated values form the cache-key tuple.
	technique []compiledAttr

	// feature holds feature-scope dynamics forwarded unevaluated.
	feature map[string]DynamicValue

	// renderer holds interpolated attributes forwarded for frame-time
	// resolution.
	renderer map[string]*interp.Curve
}

type compiledAttr struct {
	name string
	expr expr.Expr
}

// buildPartition classifies attrs for a rule producing the given kind.
// Ancestor attributes come first so the rule's own declarations override
// them on name collision.
//
// Dropping rules, all warned once per rule:
//   - a dynamic value for an attribute the kind's descriptor does not
//     list is dropped (no dynamic support; statics pass through)
//   - a renderer-scope expression is dropped (expression trees cannot
//     cross the transfer boundary; curves can)
//   - a technique-scope expression that fails to parse is dropped
func (e *Evaluator) buildPartition(r *style.Rule, inherited []style.Attr) *partition {
	kind := descriptor.Kind(r.Technique)
	part := &partition{statics: ir.Object{}}

	merged := make(map[string]style.Attr, len(inherited)+len(r.Attrs))
	order := make([]string, 0, len(inherited)+len(r.Attrs))
	for _, attr := range inherited {
		if _, seen := merged[attr.Name]; !seen {
			order = append(order, attr.Name)
		}
		merged[attr.Name] = attr
	}
	for _, attr := range r.Attrs {
		if _, seen := merged[attr.Name]; !seen {
			order = append(order, attr.Name)
		}
		merged[attr.Name] = attr
	}

	for _, name := range order {
		attr := merged[name]
		switch attr.Kind {
		case style.AttrStatic:
			part.statics[name] = attr.Static
			continue
		case style.AttrCurve:
			// Interpolated attributes resolve by storage level, never
			// here: feature-scope curves forward to the geometry
			// decoder, everything else to the renderer bucket.
			scope, supported := descriptor.ScopeOf(name, kind)
			if !supported {
				e.warnDropped(name, kind, "attribute has no dynamic support for this technique kind")
				continue
			}
			if scope == descriptor.ScopeFeature {
				if part.feature == nil {
					part.feature = map[string]DynamicValue{}
				}
				part.feature[name] = DynamicValue{Curve: attr.Curve}
				continue
			}
			if part.renderer == nil {
				part.renderer = map[string]*interp.Curve{}
			}
			part.renderer[name] = attr.Curve
			continue
		}

		scope, supported := descriptor.ScopeOf(name, kind)
		if !supported {
			e.warnDropped(name, kind, "attribute has no dynamic support for this technique kind")
			continue
		}
		switch scope {
		case descriptor.ScopeFeature:
			compiled, err := e.compileAttr(attr)
			if err != nil {
				e.warnDropped(name, kind, err.Error())
				continue
			}
			if part.feature == nil {
				part.feature = map[string]DynamicValue{}
			}
			part.feature[name] = DynamicValue{Expr: compiled}
		case descriptor.ScopeTechnique:
			compiled, err := e.compileAttr(attr)
			if err != nil {
				e.warnDropped(name, kind, err.Error())
				continue
			}
			part.technique = append(part.technique, compiledAttr{name: name, expr: compiled})
		case descriptor.ScopeRenderer:
			e.warnDropped(name, kind, "renderer-scope expressions cannot cross the transfer boundary")
		}
	}

	// Cache keys serialize values in attribute name order; merged order
	// above follows declaration traversal, so sort for determinism.
	sortCompiledAttrs(part.technique)
	return part
}

func sortCompiledAttrs(attrs []compiledAttr) {
	for i := 1; i < len(attrs); i++ {
		for j := i; j > 0 && attrs[j].name < attrs[j-1].name; j-- {
			attrs[j], attrs[j-1] = attrs[j-1], attrs[j]
		}
	}
}

func (e *Evaluator) compileAttr(attr style.Attr) (expr.Expr, error) {
	compiled, err := expr.Parse(attr.Source)
	if err != nil {
		return nil, err
	}
	return e.pool.Intern(compiled), nil
}

func (e *Evaluator) warnDropped(attr string, kind descriptor.Kind, reason string) {
	e.logger.Warn("dropping dynamic attribute",
		slog.String("attr", attr),
		slog.String("technique", string(kind)),
		slog.String("reason", reason))
}

// resolveTechnique produces (or reuses) the technique instance for a
// matched leaf rule against one environment.
//
// Rules without technique-scope dynamics memoize a single static instance
// for the evaluator's lifetime. Otherwise each call evaluates the
// technique-scope tuple and consults the per-rule cache; distinct
// evaluated values legitimately require distinct instances.
//
// An evaluation error while computing a technique-scope attribute
// propagates to the caller (unlike "when" failures, which only skip a
// rule).
func (e *Evaluator) resolveTechnique(r *style.Rule, inherited []style.Attr, env *expr.Env) (*Technique, error) {
	rs := e.ruleState(r)
	if rs.part == nil {
		rs.part = e.buildPartition(r, inherited)
	}
	part := rs.part

	if len(part.technique) == 0 {
		if rs.static == nil {
			rs.static = e.newTechnique(r, part, nil)
		}
		return rs.static, nil
	}

	values := make([]ir.Value, len(part.technique))
	for i, attr := range part.technique {
		v, err := expr.Evaluate(attr.expr, env, e.passCache)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	key, err := cacheKey(r.LeafIndex, values)
	if err != nil {
		return nil, err
	}
	if cached, ok := rs.cache[key]; ok {
		return cached, nil
	}

	tech := e.newTechnique(r, part, values)
	if rs.cache == nil {
		rs.cache = map[string]*Technique{}
	}
	rs.cache[key] = tech
	return tech, nil
}

// cacheKey serializes an evaluated technique-scope tuple. Values appear in
// attribute name order (fixed per rule), so equal tuples always produce
// equal keys; null evaluation results serialize to JSON null, which no
// other value kind produces.
func cacheKey(styleIndex int, values []ir.Value) (string, error) {
	payload, err := ir.MarshalCanonical(ir.Array(values))
	if err != nil {
		return "", err
	}
	return strconv.Itoa(styleIndex) + ":" + string(payload), nil
}

// newTechnique constructs a fresh instance and appends it to the global
// creation-order list. values pairs with part.technique; nil for rules
// without technique-scope dynamics.
func (e *Evaluator) newTechnique(r *style.Rule, part *partition, values []ir.Value) *Technique {
	attrs := make(ir.Object, len(part.statics)+len(values))
	for name, v := range part.statics {
		attrs[name] = v
	}
	for i, attr := range part.technique {
		if i < len(values) && !ir.IsNull(values[i]) {
			attrs[attr.name] = values[i]
		}
	}

	tech := &Technique{
		Kind:          descriptor.Kind(r.Technique),
		Index:         len(e.techniques),
		StyleIndex:    r.LeafIndex,
		RenderOrder:   r.RenderOrder,
		Attrs:         attrs,
		FeatureAttrs:  part.feature,
		RendererAttrs: part.renderer,
	}
	e.techniques = append(e.techniques, tech)
	return tech
}
