package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConversions(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected Value
	}{
		{"nil", nil, Null{}},
		{"bool", true, Bool(true)},
		{"string", "water", String("water")},
		{"float64", 1.25, Number(1.25)},
		{"int", 7, Number(7)},
		{"int64", int64(-3), Number(-3)},
		{"slice", []any{1, "a"}, Array{Number(1), String("a")}},
		{"map", map[string]any{"k": false}, Object{"k": Bool(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := From(tt.input)
			require.NoError(t, err)
			assert.True(t, Equal(tt.expected, got), "expected %v, got %v", tt.expected, got)
		})
	}
}

func TestFromRejectsUnsupportedTypes(t *testing.T) {
	_, err := From(struct{}{})
	assert.Error(t, err)

	_, err = From([]any{make(chan int)})
	assert.Error(t, err)
}

func TestFromPassesValuesThrough(t *testing.T) {
	v := String("already converted")
	got, err := From(v)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected bool
	}{
		{"null", Null{}, false},
		{"nil interface", nil, false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"zero", Number(0), false},
		{"nonzero", Number(0.001), true},
		{"empty string", String(""), false},
		{"string", String("x"), true},
		{"empty array", Array{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truthy(tt.input))
		})
	}
}

func TestEqualNoCrossKindCoercion(t *testing.T) {
	assert.False(t, Equal(Number(1), String("1")))
	assert.False(t, Equal(Bool(true), Number(1)))
	assert.True(t, Equal(Null{}, nil))
	assert.True(t, Equal(Array{Number(1)}, Array{Number(1)}))
	assert.False(t, Equal(Array{Number(1)}, Array{Number(2)}))
	assert.True(t, Equal(
		Object{"a": Number(1), "b": String("x")},
		Object{"b": String("x"), "a": Number(1)},
	))
}

func TestToAnyRoundTrip(t *testing.T) {
	v := Object{"list": Array{Number(1), String("s"), Null{}}, "ok": Bool(true)}
	back, err := From(ToAny(v))
	require.NoError(t, err)
	assert.True(t, Equal(v, back))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "3", FormatNumber(3))
	assert.Equal(t, "-12", FormatNumber(-12))
	assert.Equal(t, "2.5", FormatNumber(2.5))
	assert.Equal(t, "1e+16", FormatNumber(1e16))
}
