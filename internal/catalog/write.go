package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/quadtile/stylemap/internal/evaluator"
	"github.com/quadtile/stylemap/internal/ir"
)

// RecordPass writes one evaluation pass and its decoded techniques,
// returning the generated pass token.
//
// The feature environment and each technique row are serialized to
// canonical JSON so identical passes produce byte-identical rows. The
// pass and its techniques are committed in a single transaction.
func (c *Catalog) RecordPass(ctx context.Context, themeName string, feature ir.Object, techniques []evaluator.Decoded) (string, error) {
	featureJSON, err := ir.MarshalCanonical(feature)
	if err != nil {
		return "", fmt.Errorf("record pass: marshal feature: %w", err)
	}

	token := uuid.NewString()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("record pass: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO passes (token, theme_name, feature)
		VALUES (?, ?, ?)
	`, token, themeName, string(featureJSON))
	if err != nil {
		return "", fmt.Errorf("record pass: %w", err)
	}

	for _, t := range techniques {
		if err := insertTechnique(ctx, tx, token, t); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("record pass: commit: %w", err)
	}

	return token, nil
}

func insertTechnique(ctx context.Context, tx *sql.Tx, token string, t evaluator.Decoded) error {
	attrs := t.Attrs
	if attrs == nil {
		attrs = ir.Object{}
	}
	attrsJSON, err := ir.MarshalCanonical(attrs)
	if err != nil {
		return fmt.Errorf("record technique %d: marshal attrs: %w", t.Index, err)
	}

	curves := t.Curves
	if curves == nil {
		curves = ir.Object{}
	}
	curvesJSON, err := ir.MarshalCanonical(curves)
	if err != nil {
		return fmt.Errorf("record technique %d: marshal curves: %w", t.Index, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO techniques
		(pass_token, idx, style_index, kind, render_order, attrs, curves)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		token,
		t.Index,
		t.StyleIndex,
		string(t.Kind),
		t.RenderOrder,
		string(attrsJSON),
		string(curvesJSON),
	)
	if err != nil {
		return fmt.Errorf("record technique %d: %w", t.Index, err)
	}

	return nil
}
