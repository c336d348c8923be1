package expr

import (
	"fmt"

	"github.com/quadtile/stylemap/internal/ir"
)

// arity bounds per operator. max of -1 means unbounded.
type opSpec struct {
	min int
	max int
}

// operators lists every operator the engine evaluates, with its arity.
// An expression naming anything else fails to parse.
var operators = map[string]opSpec{
	// boolean combinators (short-circuit)
	"all":  {0, -1},
	"any":  {0, -1},
	"none": {0, -1},
	"!":    {1, 1},

	// comparisons (operand kinds must agree; no implicit coercion)
	"==": {2, 2},
	"!=": {2, 2},
	"<":  {2, 2},
	"<=": {2, 2},
	">":  {2, 2},
	">=": {2, 2},

	// environment access
	"get":  {1, 1},
	"has":  {1, 1},
	"zoom": {0, 0},

	// membership
	"in":    {2, -1},
	"match": {2, -1},

	// arithmetic
	"+":   {2, -1},
	"-":   {1, 2},
	"*":   {2, -1},
	"/":   {2, 2},
	"%":   {2, 2},
	"^":   {2, 2},
	"min": {1, -1},
	"max": {1, -1},

	// casts and string helpers
	"boolean": {1, 1},
	"number":  {1, 1},
	"string":  {1, 1},
	"concat":  {1, -1},
	"length":  {1, 1},

	// escape hatch for array/object constants
	"literal": {1, 1},
}

// KnownOperator reports whether name is an operator the engine evaluates.
// The style decoder uses it to tell operator arrays apart from plain array
// values.
func KnownOperator(name string) bool {
	_, ok := operators[name]
	return ok
}

// Parse compiles the structured array form of an expression into an
// expression tree. The input is a decoded JSON/YAML value where operator
// applications are arrays whose first element names the operator.
//
// Scalars compile to literals. ["get", "name"] compiles to a variable
// reference. ["literal", v] wraps v (including arrays and objects) as a
// constant without interpreting it.
func Parse(v any) (Expr, error) {
	switch val := v.(type) {
	case nil, bool, string, int, int64, uint64, float32, float64:
		lit, err := ir.From(val)
		if err != nil {
			return nil, parseErrorf(fmt.Sprint(v), "unsupported literal: %v", err)
		}
		return &Literal{Value: lit}, nil
	case []any:
		return parseCall(val)
	case map[string]any:
		return nil, parseErrorf(fmt.Sprint(v), "bare object is not an expression; wrap it in [\"literal\", ...]")
	default:
		return nil, parseErrorf(fmt.Sprint(v), "unsupported expression node type %T", v)
	}
}

func parseCall(arr []any) (Expr, error) {
	source := fmt.Sprint(arr)
	if len(arr) == 0 {
		return nil, parseErrorf(source, "empty operator array")
	}
	op, ok := arr[0].(string)
	if !ok {
		return nil, parseErrorf(source, "operator name must be a string, got %T", arr[0])
	}

	spec, known := operators[op]
	if !known {
		return nil, parseErrorf(source, "unknown operator %q", op)
	}

	args := arr[1:]
	if len(args) < spec.min {
		return nil, parseErrorf(source, "operator %q needs at least %d operand(s), got %d", op, spec.min, len(args))
	}
	if spec.max >= 0 && len(args) > spec.max {
		return nil, parseErrorf(source, "operator %q takes at most %d operand(s), got %d", op, spec.max, len(args))
	}

	switch op {
	case "get":
		name, ok := args[0].(string)
		if !ok {
			return nil, parseErrorf(source, "get needs a string attribute name, got %T", args[0])
		}
		return &Var{Name: name}, nil
	case "has":
		// has takes the attribute name as a bare string, like get.
		name, ok := args[0].(string)
		if !ok {
			return nil, parseErrorf(source, "has needs a string attribute name, got %T", args[0])
		}
		return &Call{Op: "has", Args: []Expr{&Literal{Value: ir.String(name)}}}, nil
	case "literal":
		val, err := ir.From(args[0])
		if err != nil {
			return nil, parseErrorf(source, "literal: %v", err)
		}
		return &Literal{Value: val}, nil
	}

	parsed := make([]Expr, len(args))
	for i, arg := range args {
		sub, err := Parse(arg)
		if err != nil {
			return nil, err
		}
		parsed[i] = sub
	}
	return &Call{Op: op, Args: parsed}, nil
}
