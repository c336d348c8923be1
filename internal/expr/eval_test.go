package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadtile/stylemap/internal/ir"
)

func evalArray(t *testing.T, form any, env *Env) (ir.Value, error) {
	t.Helper()
	e, err := Parse(form)
	require.NoError(t, err)
	return Evaluate(e, env, nil)
}

func TestEvaluateShortCircuit(t *testing.T) {
	env := NewEnv(map[string]ir.Value{"a": ir.Bool(false)})

	// The second operand would fail (ordering a string against a number),
	// but "all" must stop at the first falsy operand.
	v, err := evalArray(t, []any{"all",
		[]any{"get", "a"},
		[]any{"<", "not-a-number", 3},
	}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(false), v)

	// Same for "any" with a truthy first operand.
	v, err = evalArray(t, []any{"any",
		[]any{"!", []any{"get", "a"}},
		[]any{"<", "not-a-number", 3},
	}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(true), v)
}

func TestEvaluateNone(t *testing.T) {
	env := NewEnv(map[string]ir.Value{"a": ir.Bool(true)})

	v, err := evalArray(t, []any{"none", []any{"get", "missing"}, false}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(true), v)

	v, err = evalArray(t, []any{"none", []any{"get", "a"}}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(false), v)
}

func TestEvaluateMissingAttributeIsNull(t *testing.T) {
	env := NewEnv(nil)

	v, err := evalArray(t, []any{"get", "absent"}, env)
	require.NoError(t, err)
	assert.True(t, ir.IsNull(v))

	// Equality against null works; ordering against null fails.
	v, err = evalArray(t, []any{"==", []any{"get", "absent"}, nil}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(true), v)

	_, err = evalArray(t, []any{"<", []any{"get", "absent"}, 3}, env)
	require.Error(t, err)
	assert.True(t, IsEvalError(err))
}

func TestEvaluateOrderingRequiresTypeAgreement(t *testing.T) {
	env := NewEnv(map[string]ir.Value{"n": ir.Number(5), "s": ir.String("5")})

	_, err := evalArray(t, []any{"<", []any{"get", "n"}, []any{"get", "s"}}, env)
	require.Error(t, err)
	assert.True(t, IsEvalError(err))

	// Explicit cast makes it legal.
	v, err := evalArray(t, []any{"<=", []any{"get", "n"}, []any{"number", []any{"get", "s"}}}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(true), v)
}

func TestEvaluateEqualityNeverCoerces(t *testing.T) {
	env := NewEnv(map[string]ir.Value{"n": ir.Number(1)})

	v, err := evalArray(t, []any{"==", []any{"get", "n"}, "1"}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(false), v)
}

func TestEvaluateArithmetic(t *testing.T) {
	env := NewEnv(map[string]ir.Value{"w": ir.Number(4)})

	tests := []struct {
		name     string
		form     any
		expected float64
	}{
		{"add", []any{"+", 1, 2, 3}, 6},
		{"subtract", []any{"-", []any{"get", "w"}, 1}, 3},
		{"negate", []any{"-", []any{"get", "w"}}, -4},
		{"multiply", []any{"*", 2, []any{"get", "w"}}, 8},
		{"divide", []any{"/", []any{"get", "w"}, 2}, 2},
		{"modulo", []any{"%", 7, []any{"get", "w"}}, 3},
		{"power", []any{"^", 2, 3}, 8},
		{"min", []any{"min", 3, []any{"get", "w"}, 1}, 1},
		{"max", []any{"max", 3, []any{"get", "w"}}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := evalArray(t, tt.form, env)
			require.NoError(t, err)
			assert.Equal(t, ir.Number(tt.expected), v)
		})
	}
}

func TestEvaluateDivisionByZero(t *testing.T) {
	env := NewEnv(nil)

	_, err := evalArray(t, []any{"/", 1, 0}, env)
	require.Error(t, err)
	assert.True(t, IsEvalError(err))

	_, err = evalArray(t, []any{"%", 1, 0}, env)
	require.Error(t, err)
	assert.True(t, IsEvalError(err))
}

func TestEvaluateCasts(t *testing.T) {
	env := NewEnv(nil)

	tests := []struct {
		name     string
		form     any
		expected ir.Value
	}{
		{"number from string", []any{"number", "3.5"}, ir.Number(3.5)},
		{"number from bool", []any{"number", true}, ir.Number(1)},
		{"number from null", []any{"number", nil}, ir.Number(0)},
		{"string from number", []any{"string", 2.5}, ir.String("2.5")},
		{"string from integral", []any{"string", 12}, ir.String("12")},
		{"boolean from string", []any{"boolean", "x"}, ir.Bool(true)},
		{"boolean from empty", []any{"boolean", ""}, ir.Bool(false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := evalArray(t, tt.form, env)
			require.NoError(t, err)
			assert.True(t, ir.Equal(tt.expected, v), "expected %v, got %v", tt.expected, v)
		})
	}

	_, err := evalArray(t, []any{"number", "not numeric"}, env)
	require.Error(t, err)
	assert.True(t, IsEvalError(err))
}

func TestEvaluateMembership(t *testing.T) {
	env := NewEnv(map[string]ir.Value{"kind": ir.String("river")})

	v, err := evalArray(t, []any{"in", []any{"get", "kind"}, "river", "canal"}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(true), v)

	v, err = evalArray(t, []any{"in", []any{"get", "kind"}, []any{"literal", []any{"stream", "canal"}}}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(false), v)

	v, err = evalArray(t, []any{"match", []any{"get", "kind"}, "river", "lake"}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(true), v)
}

func TestEvaluateConcatAndLength(t *testing.T) {
	env := NewEnv(map[string]ir.Value{"name": ir.String("Atlas")})

	v, err := evalArray(t, []any{"concat", []any{"get", "name"}, "-", 2}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.String("Atlas-2"), v)

	v, err = evalArray(t, []any{"length", []any{"get", "name"}}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.Number(5), v)
}

func TestEvaluateZoom(t *testing.T) {
	env := NewFeatureEnv("point", "pois", 9, ir.Null{}, nil)

	v, err := evalArray(t, []any{">=", []any{"zoom"}, 5}, env)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(true), v)
}

func TestEvaluateHandBuiltCallArity(t *testing.T) {
	env := NewEnv(nil)

	// Trees that bypass Parse must fail cleanly, not index out of range.
	_, err := Evaluate(&Call{Op: "/"}, env, nil)
	require.Error(t, err)
	assert.True(t, IsEvalError(err))

	_, err = Evaluate(&Call{Op: "!", Args: []Expr{&Var{Name: "a"}, &Var{Name: "b"}}}, env, nil)
	require.Error(t, err)
	assert.True(t, IsEvalError(err))

	_, err = Evaluate(&Call{Op: "frobnicate"}, env, nil)
	require.Error(t, err)
	assert.True(t, IsEvalError(err))
}

func TestCacheClearBetweenPasses(t *testing.T) {
	pool := NewPool()
	cache := Cache{}
	e := pool.Intern(mustParse(t, []any{"==", []any{"get", "type"}, "ridges"}))

	v, err := Evaluate(e, NewEnv(map[string]ir.Value{"type": ir.String("ridges")}), cache)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(true), v)

	// Without clearing, the stale entry would leak into the next feature.
	cache.Clear()
	v, err = Evaluate(e, NewEnv(map[string]ir.Value{"type": ir.String("trenches")}), cache)
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(false), v)
}

func TestFeatureEnvPseudoAttributes(t *testing.T) {
	env := NewFeatureEnv("line", "roads", 12, ir.String("way/42"), map[string]ir.Value{"lanes": ir.Number(2)})

	assert.Equal(t, ir.String("line"), env.Lookup(AttrGeometryType))
	assert.Equal(t, ir.String("roads"), env.Lookup(AttrLayer))
	assert.Equal(t, ir.Number(12), env.Lookup(AttrLevel))
	assert.Equal(t, ir.String("way/42"), env.Lookup("id"))
	assert.Equal(t, ir.Number(2), env.Lookup("lanes"))
	assert.True(t, ir.IsNull(env.Lookup("missing")))
}
