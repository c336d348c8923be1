package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadtile/stylemap/internal/ir"
)

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected ir.Value
	}{
		{"string", "water", ir.String("water")},
		{"number", 3.5, ir.Number(3.5)},
		{"int", 7, ir.Number(7)},
		{"bool", true, ir.Bool(true)},
		{"nil", nil, ir.Null{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Parse(tt.input)
			require.NoError(t, err)
			lit, ok := e.(*Literal)
			require.True(t, ok, "expected literal, got %T", e)
			assert.True(t, ir.Equal(tt.expected, lit.Value))
		})
	}
}

func TestParseGetBecomesVar(t *testing.T) {
	e, err := Parse([]any{"get", "type"})
	require.NoError(t, err)
	v, ok := e.(*Var)
	require.True(t, ok, "expected variable reference, got %T", e)
	assert.Equal(t, "type", v.Name)
}

func TestParseCall(t *testing.T) {
	e, err := Parse([]any{"==", []any{"get", "type"}, "ridges"})
	require.NoError(t, err)
	call, ok := e.(*Call)
	require.True(t, ok)
	assert.Equal(t, "==", call.Op)
	require.Len(t, call.Args, 2)
	assert.IsType(t, &Var{}, call.Args[0])
	assert.IsType(t, &Literal{}, call.Args[1])
}

func TestParseLiteralOperatorWrapsArrays(t *testing.T) {
	e, err := Parse([]any{"literal", []any{"a", "b"}})
	require.NoError(t, err)
	lit, ok := e.(*Literal)
	require.True(t, ok)
	assert.True(t, ir.Equal(ir.Array{ir.String("a"), ir.String("b")}, lit.Value))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"empty array", []any{}},
		{"non-string operator", []any{42, 1}},
		{"unknown operator", []any{"frobnicate", 1}},
		{"too few operands", []any{"==", 1}},
		{"too many operands", []any{"!", true, false}},
		{"get without name", []any{"get", 42}},
		{"bare object", map[string]any{"a": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.True(t, IsParseError(err), "expected ParseError, got %v", err)
		})
	}
}

func TestParseNestedArity(t *testing.T) {
	// Arity violations inside nested operands surface too.
	_, err := Parse([]any{"all", []any{"==", 1}})
	require.Error(t, err)
	assert.True(t, IsParseError(err))
}
