package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/quadtile/stylemap/internal/descriptor"
	"github.com/quadtile/stylemap/internal/evaluator"
	"github.com/quadtile/stylemap/internal/ir"
)

// ErrPassNotFound is returned by ReadPass when no pass has the given token.
var ErrPassNotFound = errors.New("pass not found")

// Pass is one recorded evaluation: the theme it ran against, the feature
// environment it evaluated, and the techniques the pass produced.
type Pass struct {
	Token      string
	ThemeName  string
	Feature    ir.Object
	CreatedAt  string
	Techniques []evaluator.Decoded
}

// ReadPass returns a recorded pass by token.
// Technique rows are ordered by index, matching evaluator creation order.
func (c *Catalog) ReadPass(ctx context.Context, token string) (*Pass, error) {
	var p Pass
	var featureJSON string
	err := c.db.QueryRowContext(ctx, `
		SELECT token, theme_name, feature, created_at
		FROM passes
		WHERE token = ?
	`, token).Scan(&p.Token, &p.ThemeName, &featureJSON, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read pass %s: %w", token, ErrPassNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read pass %s: %w", token, err)
	}

	p.Feature, err = unmarshalObject(featureJSON)
	if err != nil {
		return nil, fmt.Errorf("read pass %s: feature: %w", token, err)
	}

	p.Techniques, err = c.readTechniques(ctx, token)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// ListPasses returns the tokens and theme names of all recorded passes,
// newest first.
func (c *Catalog) ListPasses(ctx context.Context) ([]Pass, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT token, theme_name, created_at
		FROM passes
		ORDER BY created_at DESC, token ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	defer rows.Close()

	passes := []Pass{}
	for rows.Next() {
		var p Pass
		if err := rows.Scan(&p.Token, &p.ThemeName, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("list passes: %w", err)
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}

	return passes, nil
}

func (c *Catalog) readTechniques(ctx context.Context, token string) ([]evaluator.Decoded, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT idx, style_index, kind, render_order, attrs, curves
		FROM techniques
		WHERE pass_token = ?
		ORDER BY idx ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("read techniques %s: %w", token, err)
	}
	defer rows.Close()

	techniques := []evaluator.Decoded{}
	for rows.Next() {
		var d evaluator.Decoded
		var kind, attrsJSON, curvesJSON string
		if err := rows.Scan(&d.Index, &d.StyleIndex, &kind, &d.RenderOrder, &attrsJSON, &curvesJSON); err != nil {
			return nil, fmt.Errorf("read techniques %s: %w", token, err)
		}
		d.Kind = descriptor.Kind(kind)

		if d.Attrs, err = unmarshalObject(attrsJSON); err != nil {
			return nil, fmt.Errorf("read technique %d: attrs: %w", d.Index, err)
		}
		if d.Curves, err = unmarshalObject(curvesJSON); err != nil {
			return nil, fmt.Errorf("read technique %d: curves: %w", d.Index, err)
		}
		if len(d.Attrs) == 0 {
			d.Attrs = nil
		}
		if len(d.Curves) == 0 {
			d.Curves = nil
		}

		techniques = append(techniques, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read techniques %s: %w", token, err)
	}

	return techniques, nil
}

// unmarshalObject decodes a stored canonical JSON object back into a
// value tree.
func unmarshalObject(data string) (ir.Object, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, err
	}
	v, err := ir.From(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("stored value is %T, want object", v)
	}
	return obj, nil
}
