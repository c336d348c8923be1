package expr

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/quadtile/stylemap/internal/ir"
)

// Cache memoizes evaluation results within one environment pass, keyed by
// expression instance identity. It only helps for interned expressions:
// two rules sharing a pooled "when" tree hit the same entry.
//
// The owner must clear the cache between passes; a cached result is only
// valid for the environment it was computed against.
type Cache map[Expr]ir.Value

// Clear drops all cached results. Called by the evaluator at the start of
// each feature pass.
func (c Cache) Clear() {
	for k := range c {
		delete(c, k)
	}
}

// Evaluate computes the value of e against env. cache may be nil; when
// supplied, operator results are memoized by instance identity for the
// duration of the pass.
//
// Literal and variable nodes never fail. Operator application can fail
// with an EvalError (type mismatch, division by zero, an impossible cast);
// the error propagates to the caller, who decides the fallback policy.
func Evaluate(e Expr, env *Env, cache Cache) (ir.Value, error) {
	switch node := e.(type) {
	case *Literal:
		return node.Value, nil
	case *Var:
		return env.Lookup(node.Name), nil
	case *Call:
		if cache != nil {
			if v, ok := cache[node]; ok {
				return v, nil
			}
		}
		v, err := evalCall(node, env, cache)
		if err != nil {
			return nil, err
		}
		if cache != nil {
			cache[node] = v
		}
		return v, nil
	default:
		return nil, evalErrorf("", "unknown expression node %T", e)
	}
}

func evalCall(c *Call, env *Env, cache Cache) (ir.Value, error) {
	// Parse enforces arity, but Evaluate also accepts hand-built trees;
	// re-check here so a malformed call fails instead of panicking on a
	// missing argument.
	spec, ok := operators[c.Op]
	if !ok {
		return nil, evalErrorf(c.Op, "unknown operator")
	}
	if len(c.Args) < spec.min || (spec.max >= 0 && len(c.Args) > spec.max) {
		return nil, evalErrorf(c.Op, "wrong number of arguments: got %d", len(c.Args))
	}

	switch c.Op {
	case "all":
		for _, arg := range c.Args {
			v, err := Evaluate(arg, env, cache)
			if err != nil {
				return nil, err
			}
			if !ir.Truthy(v) {
				return ir.Bool(false), nil
			}
		}
		return ir.Bool(true), nil
	case "any":
		for _, arg := range c.Args {
			v, err := Evaluate(arg, env, cache)
			if err != nil {
				return nil, err
			}
			if ir.Truthy(v) {
				return ir.Bool(true), nil
			}
		}
		return ir.Bool(false), nil
	case "none":
		for _, arg := range c.Args {
			v, err := Evaluate(arg, env, cache)
			if err != nil {
				return nil, err
			}
			if ir.Truthy(v) {
				return ir.Bool(false), nil
			}
		}
		return ir.Bool(true), nil
	case "!":
		v, err := Evaluate(c.Args[0], env, cache)
		if err != nil {
			return nil, err
		}
		return ir.Bool(!ir.Truthy(v)), nil
	case "==", "!=", "<", "<=", ">", ">=":
		return evalComparison(c, env, cache)
	case "has":
		name, err := Evaluate(c.Args[0], env, cache)
		if err != nil {
			return nil, err
		}
		s, ok := name.(ir.String)
		if !ok {
			return nil, evalErrorf("has", "attribute name must be a string, got %T", name)
		}
		return ir.Bool(env.Has(string(s))), nil
	case "zoom":
		return env.Lookup(AttrZoom), nil
	case "in", "match":
		return evalMembership(c, env, cache)
	case "+", "-", "*", "/", "%", "^", "min", "max":
		return evalArithmetic(c, env, cache)
	case "boolean", "number", "string":
		return evalCast(c, env, cache)
	case "concat":
		return evalConcat(c, env, cache)
	case "length":
		return evalLength(c, env, cache)
	default:
		// Parse rejects unknown operators, so this indicates a tree built
		// without going through Parse.
		return nil, evalErrorf(c.Op, "operator not implemented")
	}
}

func evalComparison(c *Call, env *Env, cache Cache) (ir.Value, error) {
	left, err := Evaluate(c.Args[0], env, cache)
	if err != nil {
		return nil, err
	}
	right, err := Evaluate(c.Args[1], env, cache)
	if err != nil {
		return nil, err
	}

	switch c.Op {
	case "==":
		return ir.Bool(ir.Equal(left, right)), nil
	case "!=":
		return ir.Bool(!ir.Equal(left, right)), nil
	}

	// Ordering comparisons require both operands to be numbers or both to
	// be strings. There is no numeric-string coercion; use an explicit
	// cast operator instead.
	if ln, lok := left.(ir.Number); lok {
		rn, rok := right.(ir.Number)
		if !rok {
			return nil, evalErrorf(c.Op, "cannot order number against %s", kindName(right))
		}
		return ir.Bool(orderNumbers(c.Op, float64(ln), float64(rn))), nil
	}
	if ls, lok := left.(ir.String); lok {
		rs, rok := right.(ir.String)
		if !rok {
			return nil, evalErrorf(c.Op, "cannot order string against %s", kindName(right))
		}
		return ir.Bool(orderStrings(c.Op, string(ls), string(rs))), nil
	}
	return nil, evalErrorf(c.Op, "operands must be two numbers or two strings, got %s and %s", kindName(left), kindName(right))
}

func orderNumbers(op string, a, b float64) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	default:
		return a >= b
	}
}

func orderStrings(op string, a, b string) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	default:
		return a >= b
	}
}

// evalMembership handles "in" and "match": the needle equals any of the
// remaining operands. An operand that is itself an array is searched
// element-wise, so both ["in", x, "a", "b"] and ["in", x, ["literal",
// ["a","b"]]] work.
func evalMembership(c *Call, env *Env, cache Cache) (ir.Value, error) {
	needle, err := Evaluate(c.Args[0], env, cache)
	if err != nil {
		return nil, err
	}
	for _, arg := range c.Args[1:] {
		candidate, err := Evaluate(arg, env, cache)
		if err != nil {
			return nil, err
		}
		if arr, ok := candidate.(ir.Array); ok {
			for _, elem := range arr {
				if ir.Equal(needle, elem) {
					return ir.Bool(true), nil
				}
			}
			continue
		}
		if ir.Equal(needle, candidate) {
			return ir.Bool(true), nil
		}
	}
	return ir.Bool(false), nil
}

func evalArithmetic(c *Call, env *Env, cache Cache) (ir.Value, error) {
	nums := make([]float64, len(c.Args))
	for i, arg := range c.Args {
		v, err := Evaluate(arg, env, cache)
		if err != nil {
			return nil, err
		}
		n, ok := v.(ir.Number)
		if !ok {
			return nil, evalErrorf(c.Op, "operand %d must be a number, got %s", i+1, kindName(v))
		}
		nums[i] = float64(n)
	}

	switch c.Op {
	case "+":
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		return ir.Number(sum), nil
	case "-":
		if len(nums) == 1 {
			return ir.Number(-nums[0]), nil
		}
		return ir.Number(nums[0] - nums[1]), nil
	case "*":
		product := 1.0
		for _, n := range nums {
			product *= n
		}
		return ir.Number(product), nil
	case "/":
		if nums[1] == 0 {
			return nil, evalErrorf("/", "division by zero")
		}
		return ir.Number(nums[0] / nums[1]), nil
	case "%":
		if nums[1] == 0 {
			return nil, evalErrorf("%", "modulo by zero")
		}
		return ir.Number(math.Mod(nums[0], nums[1])), nil
	case "^":
		return ir.Number(math.Pow(nums[0], nums[1])), nil
	case "min":
		m := nums[0]
		for _, n := range nums[1:] {
			m = math.Min(m, n)
		}
		return ir.Number(m), nil
	default: // max
		m := nums[0]
		for _, n := range nums[1:] {
			m = math.Max(m, n)
		}
		return ir.Number(m), nil
	}
}

func evalCast(c *Call, env *Env, cache Cache) (ir.Value, error) {
	v, err := Evaluate(c.Args[0], env, cache)
	if err != nil {
		return nil, err
	}

	switch c.Op {
	case "boolean":
		return ir.Bool(ir.Truthy(v)), nil
	case "number":
		switch val := v.(type) {
		case ir.Number:
			return val, nil
		case ir.Bool:
			if val {
				return ir.Number(1), nil
			}
			return ir.Number(0), nil
		case ir.Null:
			return ir.Number(0), nil
		case ir.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
			if err != nil {
				return nil, evalErrorf("number", "cannot convert %q to a number", string(val))
			}
			return ir.Number(f), nil
		default:
			return nil, evalErrorf("number", "cannot convert %s to a number", kindName(v))
		}
	default: // string
		switch val := v.(type) {
		case ir.String:
			return val, nil
		case ir.Number:
			return ir.String(ir.FormatNumber(float64(val))), nil
		case ir.Bool:
			if val {
				return ir.String("true"), nil
			}
			return ir.String("false"), nil
		case ir.Null:
			return ir.String(""), nil
		default:
			return nil, evalErrorf("string", "cannot convert %s to a string", kindName(v))
		}
	}
}

func evalConcat(c *Call, env *Env, cache Cache) (ir.Value, error) {
	var sb strings.Builder
	for i, arg := range c.Args {
		v, err := Evaluate(arg, env, cache)
		if err != nil {
			return nil, err
		}
		switch val := v.(type) {
		case ir.String:
			sb.WriteString(string(val))
		case ir.Number:
			sb.WriteString(ir.FormatNumber(float64(val)))
		case ir.Null:
			// skip
		default:
			return nil, evalErrorf("concat", "operand %d must be a string or number, got %s", i+1, kindName(v))
		}
	}
	return ir.String(sb.String()), nil
}

func evalLength(c *Call, env *Env, cache Cache) (ir.Value, error) {
	v, err := Evaluate(c.Args[0], env, cache)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case ir.String:
		return ir.Number(utf8.RuneCountInString(string(val))), nil
	case ir.Array:
		return ir.Number(len(val)), nil
	default:
		return nil, evalErrorf("length", "operand must be a string or array, got %s", kindName(v))
	}
}

func kindName(v ir.Value) string {
	switch v.(type) {
	case nil, ir.Null:
		return "null"
	case ir.Bool:
		return "boolean"
	case ir.Number:
		return "number"
	case ir.String:
		return "string"
	case ir.Array:
		return "array"
	case ir.Object:
		return "object"
	default:
		return "unknown"
	}
}
