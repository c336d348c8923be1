// Package expr implements the styling expression language.
//
// Expressions are compiled either from the structured array form
// (["all", ["==", ["get", "type"], "ridges"], ...]) or from a constrained
// string grammar ("type == 'ridges' && $level > 4"). Both forms compile to
// the same immutable tree, which can be interned in a Pool so structurally
// equal expressions share one instance and per-pass evaluation caches can
// key on instance identity.
//
// Evaluation is against a per-feature Env and never mutates the tree.
package expr
