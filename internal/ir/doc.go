// Package ir defines the engine's attribute value model and its canonical
// JSON serialization.
//
// Every value flowing through the engine (feature attributes, expression
// results, resolved technique attributes) is one of the sealed Value kinds
// (null, bool, number, string, array, object). Canonical serialization
// produces byte-identical output for structurally equal values and is the
// basis for technique instance cache keys.
package ir
