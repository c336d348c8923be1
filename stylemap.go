// Package stylemap evaluates declarative map style sets against feature
// environments, producing deduplicated technique instances for rendering.
//
// A theme is a tree of style rules. Each feature is matched against the
// tree in declaration order; matching leaf rules resolve to technique
// instances, with identical technique-scope value tuples collapsing to a
// single shared instance. See the internal packages for the expression
// language, interpolation curves, and the evaluation engine; this package
// is the embedding surface.
package stylemap

import (
	"github.com/quadtile/stylemap/internal/evaluator"
	"github.com/quadtile/stylemap/internal/expr"
	"github.com/quadtile/stylemap/internal/ir"
	"github.com/quadtile/stylemap/internal/theme"
)

// Theme is a decoded style-set document.
type Theme = theme.Theme

// Evaluator matches features against a compiled style tree.
type Evaluator = evaluator.Evaluator

// Technique is one deduplicated technique instance.
type Technique = evaluator.Technique

// Decoded is the transferable form of a technique.
type Decoded = evaluator.Decoded

// Env is a feature environment: the attribute set a pass evaluates
// expressions against.
type Env = expr.Env

// Value is an attribute value (null, bool, number, string, array or
// object).
type Value = ir.Value

// ValueOf converts a plain decoded Go value into a Value.
func ValueOf(v any) (Value, error) {
	return ir.From(v)
}

// Option configures an Evaluator.
type Option = evaluator.Option

// WithLogger overrides the package logger for one evaluator.
var WithLogger = evaluator.WithLogger

// LoadTheme reads, validates, and decodes a theme document from a YAML
// or JSON file.
func LoadTheme(path string) (*Theme, error) {
	return theme.Load(path)
}

// DecodeTheme validates and decodes a theme document from raw bytes.
func DecodeTheme(data []byte) (*Theme, error) {
	return theme.Decode(data)
}

// NewEvaluator compiles a theme's style tree into an evaluator.
// The evaluator logs through the package logger unless WithLogger is
// given.
func NewEvaluator(t *Theme, opts ...Option) (*Evaluator, error) {
	all := make([]Option, 0, len(opts)+1)
	all = append(all, evaluator.WithLogger(Logger()))
	all = append(all, opts...)
	return evaluator.New(t.Styles, all...)
}

// NewFeatureEnv builds an environment for one map feature, injecting the
// $geometryType, $layer, $level, $zoom and $id pseudo-attributes.
func NewFeatureEnv(geometryType, layer string, level int, id ir.Value, attrs map[string]ir.Value) *Env {
	return expr.NewFeatureEnv(geometryType, layer, level, id, attrs)
}
