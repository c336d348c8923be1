// Package descriptor holds the static per-technique-kind metadata that
// classifies every attribute name into an evaluation scope.
//
// The scope decides when a dynamic (expression or curve) value for an
// attribute may be computed: at feature-decode time, at technique
// instantiation time, or per frame by the renderer. The registry is built
// once at package initialization and shared read-only by every evaluator.
package descriptor

import "fmt"

// Scope classifies when an attribute's dynamic value must be resolved.
type Scope int

const (
	// ScopeFeature marks attributes that vary per feature. Their
	// expressions are forwarded unevaluated to the geometry decoder and
	// never participate in technique cache keys.
	ScopeFeature Scope = iota

	// ScopeTechnique marks attributes whose evaluated value is part of
	// the technique's identity: distinct values need distinct technique
	// (material) instances, so they are evaluated at instantiation time
	// and folded into the cache key.
	ScopeTechnique

	// ScopeRenderer marks attributes resolved per frame by the renderer.
	// Curves are forwarded as-is; unevaluated expressions are dropped,
	// since expression trees do not survive the transfer boundary.
	ScopeRenderer
)

// String implements fmt.Stringer.
func (s Scope) String() string {
	switch s {
	case ScopeFeature:
		return "feature"
	case ScopeTechnique:
		return "technique"
	case ScopeRenderer:
		return "renderer"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// Kind is the closed set of technique kinds. The kind tag is the
// discriminant for everything downstream: descriptor lookup, geometry
// construction, material selection.
type Kind string

const (
	KindNone            Kind = "none" // sentinel: matched rule produces no technique
	KindSolidLine       Kind = "solid-line"
	KindDashedLine      Kind = "dashed-line"
	KindFill            Kind = "fill"
	KindCircles         Kind = "circles"
	KindSquares         Kind = "squares"
	KindText            Kind = "text"
	KindExtrudedPolygon Kind = "extruded-polygon"
	KindStandard        Kind = "standard"
)

// Kinds lists every kind that has a descriptor, in a stable order.
var Kinds = []Kind{
	KindSolidLine,
	KindDashedLine,
	KindFill,
	KindCircles,
	KindSquares,
	KindText,
	KindExtrudedPolygon,
	KindStandard,
}

// Known reports whether name is a registered technique kind (including the
// "none" sentinel).
func Known(name string) bool {
	if Kind(name) == KindNone {
		return true
	}
	_, ok := registry[Kind(name)]
	return ok
}

// Descriptor maps attribute names to their scope for one technique kind.
// Attributes absent from a descriptor have no dynamic support: a dynamic
// value declared for such an attribute is dropped (with a warning), while
// a static value passes through untouched.
type Descriptor map[string]Scope

// merge composes descriptors in order; later entries override earlier ones
// on key collision. The result is a fresh map.
func merge(parts ...Descriptor) Descriptor {
	out := Descriptor{}
	for _, part := range parts {
		for attr, scope := range part {
			out[attr] = scope
		}
	}
	return out
}

// baseDescriptor holds attributes common to every technique kind.
var baseDescriptor = Descriptor{
	"enabled":     ScopeFeature,
	"renderOrder": ScopeTechnique,
	"fadeNear":    ScopeRenderer,
	"fadeFar":     ScopeRenderer,
}

var lineDescriptor = merge(baseDescriptor, Descriptor{
	"lineWidth":    ScopeFeature,
	"color":        ScopeTechnique,
	"outlineWidth": ScopeTechnique,
	"outlineColor": ScopeTechnique,
	"caps":         ScopeTechnique,
	"opacity":      ScopeRenderer,
})

var registry = map[Kind]Descriptor{
	KindSolidLine: lineDescriptor,
	KindDashedLine: merge(lineDescriptor, Descriptor{
		"dashSize": ScopeTechnique,
		"gapSize":  ScopeTechnique,
	}),
	KindFill: merge(baseDescriptor, Descriptor{
		"color":     ScopeTechnique,
		"lineColor": ScopeTechnique,
		"lineWidth": ScopeFeature,
		"wireframe": ScopeTechnique,
		"opacity":   ScopeRenderer,
	}),
	KindCircles: merge(baseDescriptor, Descriptor{
		"size":    ScopeTechnique,
		"color":   ScopeTechnique,
		"opacity": ScopeRenderer,
	}),
	KindSquares: merge(baseDescriptor, Descriptor{
		"size":    ScopeTechnique,
		"color":   ScopeTechnique,
		"opacity": ScopeRenderer,
	}),
	KindText: merge(baseDescriptor, Descriptor{
		"text":            ScopeFeature,
		"label":           ScopeFeature,
		"size":            ScopeTechnique,
		"color":           ScopeTechnique,
		"backgroundColor": ScopeTechnique,
		"priority":        ScopeTechnique,
		"opacity":         ScopeRenderer,
	}),
	KindExtrudedPolygon: merge(baseDescriptor, Descriptor{
		"height":        ScopeFeature,
		"floorHeight":   ScopeFeature,
		"color":         ScopeTechnique,
		"boundaryWalls": ScopeTechnique,
		"opacity":       ScopeRenderer,
	}),
	KindStandard: merge(baseDescriptor, Descriptor{
		"color":     ScopeTechnique,
		"metalness": ScopeTechnique,
		"roughness": ScopeTechnique,
		"opacity":   ScopeRenderer,
	}),
}

// ScopeOf looks up the scope of an attribute for a technique kind. The
// second result is false when the kind is unknown or the attribute has no
// dynamic support for that kind.
func ScopeOf(attr string, kind Kind) (Scope, bool) {
	desc, ok := registry[kind]
	if !ok {
		return 0, false
	}
	scope, ok := desc[attr]
	return scope, ok
}

// Attributes returns the descriptor for a kind (nil for unknown kinds).
// The map is shared; callers must not mutate it.
func Attributes(kind Kind) Descriptor {
	return registry[kind]
}
