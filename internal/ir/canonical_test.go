package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"integral number", Number(42), "42"},
		{"negative integral", Number(-100), "-100"},
		{"zero", Number(0), "0"},
		{"fractional number", Number(1.5), "1.5"},
		{"shortest round-trip", Number(0.1), "0.1"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"null", Null{}, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array", Array{Number(1), String("a"), Bool(true)}, `[1,"a",true]`},
		{"simple object", Object{"a": Number(1)}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := Object{
		"zebra": Number(1),
		"alpha": Number(2),
		"beta":  Number(3),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":3,"zebra":1}`, string(result))
}

func TestMarshalCanonicalNoHTMLEscaping(t *testing.T) {
	result, err := MarshalCanonical(String("<fill> & <line>"))
	require.NoError(t, err)
	assert.Equal(t, `"<fill> & <line>"`, string(result))
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	// U+0065 U+0301 (e + combining acute) normalizes to U+00E9.
	decomposed := String("café")
	composed := String("café")

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a), "NFC-equal strings must serialize identically")
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := MarshalCanonical(Number(f))
		assert.Error(t, err)
	}
}

func TestMarshalCanonicalDeterministicNested(t *testing.T) {
	v := Object{
		"outline": Object{"width": Number(2), "color": String("#f00")},
		"fill":    Array{String("#0f0"), Number(0.5)},
	}

	first, err := MarshalCanonical(v)
	require.NoError(t, err)
	second, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Equal(t, `{"fill":["#0f0",0.5],"outline":{"color":"#f00","width":2}}`, string(first))
}
