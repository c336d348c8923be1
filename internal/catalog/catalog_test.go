package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quadtile/stylemap/internal/descriptor"
	"github.com/quadtile/stylemap/internal/evaluator"
	"github.com/quadtile/stylemap/internal/ir"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpenIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	c1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c1.Close())

	c2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c2.Close())
}

func TestRecordAndReadPass(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	feature := ir.Object{
		"$geometryType": ir.String("line"),
		"$layer":        ir.String("roads"),
		"kind":          ir.String("primary"),
	}
	techniques := []evaluator.Decoded{
		{
			Kind:        descriptor.KindSolidLine,
			Index:       0,
			StyleIndex:  1,
			RenderOrder: 1,
			Attrs:       ir.Object{"color": ir.String("#204080")},
			Curves: ir.Object{
				"opacity": ir.Object{
					"interpolation": ir.String("linear"),
					"levels":        ir.Array{ir.Number(0), ir.Number(10)},
					"values":        ir.Array{ir.Number(0.25), ir.Number(1)},
				},
			},
		},
		{
			Kind:        descriptor.KindFill,
			Index:       1,
			StyleIndex:  0,
			RenderOrder: 0,
			Attrs:       ir.Object{"color": ir.String("#aaccff")},
		},
	}

	token, err := c.RecordPass(ctx, "day", feature, techniques)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	pass, err := c.ReadPass(ctx, token)
	require.NoError(t, err)

	assert.Equal(t, token, pass.Token)
	assert.Equal(t, "day", pass.ThemeName)
	assert.NotEmpty(t, pass.CreatedAt)
	assert.True(t, ir.Equal(feature, pass.Feature))
	assert.Equal(t, techniques, pass.Techniques)
}

func TestReadPassNotFound(t *testing.T) {
	c := openTestCatalog(t)

	_, err := c.ReadPass(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrPassNotFound)
}

func TestRecordPassWithoutTechniques(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	token, err := c.RecordPass(ctx, "night", ir.Object{"$layer": ir.String("water")}, nil)
	require.NoError(t, err)

	pass, err := c.ReadPass(ctx, token)
	require.NoError(t, err)
	assert.Empty(t, pass.Techniques)
}

func TestListPasses(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	_, err := c.RecordPass(ctx, "day", ir.Object{"$layer": ir.String("roads")}, nil)
	require.NoError(t, err)
	_, err = c.RecordPass(ctx, "night", ir.Object{"$layer": ir.String("roads")}, nil)
	require.NoError(t, err)

	passes, err := c.ListPasses(ctx)
	require.NoError(t, err)
	require.Len(t, passes, 2)

	names := []string{passes[0].ThemeName, passes[1].ThemeName}
	assert.ElementsMatch(t, []string{"day", "night"}, names)
}

func TestUniqueTokens(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	t1, err := c.RecordPass(ctx, "day", ir.Object{}, nil)
	require.NoError(t, err)
	t2, err := c.RecordPass(ctx, "day", ir.Object{}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2)
}
