package expr

import "github.com/quadtile/stylemap/internal/ir"

// Pseudo-attribute names the decoding layer injects into every feature
// environment. Theme expressions reference these alongside the feature's
// own attributes.
const (
	AttrGeometryType = "$geometryType"
	AttrLayer        = "$layer"
	AttrLevel        = "$level"
	AttrZoom         = "$zoom"
	AttrID           = "$id"
)

// Env is the per-feature attribute environment expressions evaluate
// against. It is immutable for the duration of one evaluation pass and
// read-only to the engine; the feature producer owns the attribute map.
type Env struct {
	attrs map[string]ir.Value
}

// NewEnv wraps a prepared attribute map. The map is used as-is, not
// copied; callers must not mutate it while an evaluation pass is running.
func NewEnv(attrs map[string]ir.Value) *Env {
	if attrs == nil {
		attrs = map[string]ir.Value{}
	}
	return &Env{attrs: attrs}
}

// NewFeatureEnv builds an environment from a feature's own attributes plus
// the implicit computed attributes ($geometryType, $layer, $level, $zoom,
// $id, and plain id). The feature attributes are copied so the caller's map
// stays untouched.
func NewFeatureEnv(geometryType, layer string, level int, id ir.Value, attrs map[string]ir.Value) *Env {
	merged := make(map[string]ir.Value, len(attrs)+6)
	for k, v := range attrs {
		merged[k] = v
	}
	merged[AttrGeometryType] = ir.String(geometryType)
	merged[AttrLayer] = ir.String(layer)
	merged[AttrLevel] = ir.Number(level)
	merged[AttrZoom] = ir.Number(level)
	if !ir.IsNull(id) {
		merged[AttrID] = id
		merged["id"] = id
	}
	return &Env{attrs: merged}
}

// Lookup returns the value bound to name, or null if absent. Lookups never
// fail; a theme referencing an attribute a feature lacks simply sees null.
func (e *Env) Lookup(name string) ir.Value {
	if v, ok := e.attrs[name]; ok && v != nil {
		return v
	}
	return ir.Null{}
}

// Has reports whether name is bound to a non-null value.
func (e *Env) Has(name string) bool {
	v, ok := e.attrs[name]
	return ok && !ir.IsNull(v)
}
