package ir

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Value is a sealed interface over the attribute value types the engine
// understands. Only Null, Bool, Number, String, Array, and Object implement
// it. Feature attributes and evaluated style attributes are always one of
// these; anything else is rejected at the decoding boundary.
type Value interface {
	value() // sealed
}

// Null is the explicit null value. A missing attribute lookup also yields
// Null, so expression code never has to branch on a nil interface.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler so Null renders as JSON null
// rather than an empty object.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Bool is a boolean attribute value.
type Bool bool

func (Bool) value() {}

// Number is a numeric attribute value. Style attributes are continuous
// (widths, opacities, fade distances), so the engine carries a single
// float64 kind rather than separate int/float kinds.
type Number float64

func (Number) value() {}

// String is a string attribute value.
type String string

func (String) value() {}

// Array is an ordered list of values. It appears in expression literals
// (operand lists for "in"/"match") rather than in feature attributes.
type Array []Value

func (Array) value() {}

// Object is a string-keyed map of values. Use SortedKeys for deterministic
// iteration.
type Object map[string]Value

func (Object) value() {}

// SortedKeys returns the object's keys in ascending byte order.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// From converts a decoded JSON/YAML value (string, bool, numeric types,
// nil, []any, map[string]any) into a Value. Values that are already a Value
// pass through unchanged.
func From(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			converted, err := From(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = converted
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			converted, err := From(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = converted
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value type %T", v)
	}
}

// ToAny converts a Value back to the plain Go form produced by
// encoding/json decoding. Used when handing values to encoders that do not
// know the Value types.
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Number:
		return float64(val)
	case String:
		return string(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

// IsNull reports whether v is the null value (or a nil interface).
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Truthy reports the boolean interpretation of v: false for null, false,
// zero, NaN, and the empty string; true otherwise.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return bool(val)
	case Number:
		return float64(val) != 0 && !math.IsNaN(float64(val))
	case String:
		return val != ""
	default:
		return true
	}
}

// Equal reports deep structural equality of two values. Values of different
// kinds are never equal; there is no numeric-string coercion.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil, Null:
		return IsNull(b)
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, exists := bv[k]
			if !exists || !Equal(elem, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FormatNumber renders a number the way canonical serialization does:
// integral values without a fraction, everything else in shortest
// round-trip form.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
