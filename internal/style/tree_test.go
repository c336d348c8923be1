package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadtile/stylemap/internal/ir"
)

func leafRules(tree *Tree) []*Rule {
	var out []*Rule
	var walk func([]*Rule)
	walk = func(rules []*Rule) {
		for _, r := range rules {
			if r.IsLeaf() {
				out = append(out, r)
			} else {
				walk(r.Children)
			}
		}
	}
	walk(tree.Roots)
	return out
}

func intp(i int) *int { return &i }

func TestBuildAssignsLeafIndexesPreOrder(t *testing.T) {
	tree, err := Build([]*Declaration{
		{Technique: "fill"},
		{Styles: []*Declaration{
			{Technique: "solid-line"},
			{Styles: []*Declaration{
				{Technique: "circles"},
			}},
			{Technique: "text"},
		}},
		{Technique: "squares"},
	}, nil)
	require.NoError(t, err)

	leaves := leafRules(tree)
	require.Len(t, leaves, 5)
	assert.Equal(t, 5, tree.LeafCount)
	for i, leaf := range leaves {
		assert.Equal(t, i, leaf.LeafIndex, "leaf %d", i)
	}

	// Grouping nodes carry no leaf index.
	assert.Equal(t, -1, tree.Roots[1].LeafIndex)
}

func TestBuildRenderOrdersStrictlyIncreasing(t *testing.T) {
	tree, err := Build([]*Declaration{
		{Technique: "fill"},
		{Styles: []*Declaration{
			{Technique: "solid-line"},
			{Technique: "dashed-line"},
		}},
		{Technique: "circles"},
	}, nil)
	require.NoError(t, err)

	var prev = -1
	for _, leaf := range leafRules(tree) {
		assert.Greater(t, leaf.RenderOrder, prev, "pre-order leaf orders must strictly increase")
		prev = leaf.RenderOrder
	}
}

func TestBuildExplicitRenderOrderRespected(t *testing.T) {
	tree, err := Build([]*Declaration{
		{Technique: "fill"},
		{Technique: "solid-line", RenderOrder: intp(100)},
		{Technique: "circles"},
	}, nil)
	require.NoError(t, err)

	leaves := leafRules(tree)
	assert.Equal(t, 0, leaves[0].RenderOrder)
	assert.Equal(t, 100, leaves[1].RenderOrder)
	assert.True(t, leaves[1].HasExplicitOrder)
	// The shared counter does not consume an integer for explicit rules.
	assert.Equal(t, 1, leaves[2].RenderOrder)
}

func TestBuildBiasGroupSharesOrder(t *testing.T) {
	tree, err := Build([]*Declaration{
		{Technique: "fill", RenderOrderBiasGroup: "roads", RenderOrderBiasRange: []int{-2, 2}},
		{Technique: "solid-line"},
		{Technique: "circles", RenderOrderBiasGroup: "roads"},
	}, nil)
	require.NoError(t, err)

	leaves := leafRules(tree)
	assert.Equal(t, leaves[0].RenderOrder, leaves[2].RenderOrder,
		"rules sharing a bias group must share a render order")

	// The group reserved a block of 5 (range [-2,2]) starting at 0, so the
	// group's order sits at 0 - (-2) = 2 and the plain rule follows the block.
	assert.Equal(t, 2, leaves[0].RenderOrder)
	assert.Equal(t, 5, leaves[1].RenderOrder)
}

func TestBuildExplicitOrderInBiasGroupDiscarded(t *testing.T) {
	tree, err := Build([]*Declaration{
		{Technique: "fill", RenderOrderBiasGroup: "g", RenderOrder: intp(42)},
		{Technique: "circles", RenderOrderBiasGroup: "g"},
	}, nil)
	require.NoError(t, err)

	leaves := leafRules(tree)
	assert.Equal(t, leaves[0].RenderOrder, leaves[1].RenderOrder)
	assert.NotEqual(t, 42, leaves[0].RenderOrder, "the group value wins over the explicit order")
	assert.False(t, leaves[0].HasExplicitOrder)
}

func TestBuildDropsUnresolvedReferences(t *testing.T) {
	tree, err := Build([]*Declaration{
		{Ref: "missing-style"},
		{Technique: "fill"},
	}, nil)
	require.NoError(t, err)

	require.Len(t, tree.Roots, 1)
	assert.Equal(t, "fill", tree.Roots[0].Technique)
}

func TestBuildClonesDeclarations(t *testing.T) {
	when := []any{"==", []any{"get", "type"}, "ridges"}
	decl := &Declaration{
		Technique: "fill",
		When:      when,
		Attr:      map[string]any{"color": "#0f0"},
	}

	tree, err := Build([]*Declaration{decl}, nil)
	require.NoError(t, err)

	// Mutating the caller's declaration must not leak into the tree.
	when[2] = "trenches"
	decl.Attr["color"] = "#f00"

	rule := tree.Roots[0]
	assert.Equal(t, "ridges", rule.When.([]any)[2])
	require.Len(t, rule.Attrs, 1)
	assert.Equal(t, ir.String("#0f0"), rule.Attrs[0].Static)
}

func TestDecodeAttrClassification(t *testing.T) {
	tree, err := Build([]*Declaration{{
		Technique: "solid-line",
		Attr: map[string]any{
			"color":     "#4040ff",
			"lineWidth": []any{"*", []any{"get", "lanes"}, 2},
			"opacity":   []any{"interpolate", []any{"linear"}, []any{"zoom"}, 0, 0.2, 10, 1},
			"dashes":    []any{2, 2},
		},
	}}, nil)
	require.NoError(t, err)

	rule := tree.Roots[0]
	byName := map[string]Attr{}
	for _, a := range rule.Attrs {
		byName[a.Name] = a
	}

	assert.Equal(t, AttrStatic, byName["color"].Kind)
	assert.Equal(t, AttrExpr, byName["lineWidth"].Kind)
	assert.Equal(t, AttrCurve, byName["opacity"].Kind)
	assert.Equal(t, AttrStatic, byName["dashes"].Kind, "plain arrays are static values")
	assert.True(t, ir.Equal(ir.Array{ir.Number(2), ir.Number(2)}, byName["dashes"].Static))
}

func TestDecodeAttrsSortedByName(t *testing.T) {
	tree, err := Build([]*Declaration{{
		Technique: "fill",
		Attr: map[string]any{
			"zeta":  1,
			"alpha": 2,
			"mid":   3,
		},
	}}, nil)
	require.NoError(t, err)

	var names []string
	for _, a := range tree.Roots[0].Attrs {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestDecodeAttrsDropsMalformedCurve(t *testing.T) {
	tree, err := Build([]*Declaration{{
		Technique: "fill",
		Attr: map[string]any{
			"color":   "#fff",
			"opacity": []any{"interpolate", []any{"bezier"}, []any{"zoom"}, 0, 1},
		},
	}}, nil)
	require.NoError(t, err)

	require.Len(t, tree.Roots[0].Attrs, 1)
	assert.Equal(t, "color", tree.Roots[0].Attrs[0].Name)
}
