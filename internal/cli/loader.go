package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quadtile/stylemap/internal/expr"
	"github.com/quadtile/stylemap/internal/ir"
)

// featureInput is one feature record in a features file.
type featureInput struct {
	GeometryType string         `yaml:"geometryType" json:"geometryType"`
	Layer        string         `yaml:"layer" json:"layer"`
	Level        int            `yaml:"level" json:"level"`
	ID           any            `yaml:"id,omitempty" json:"id,omitempty"`
	Attrs        map[string]any `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}

// featuresFile is the top-level shape of a features file.
type featuresFile struct {
	Features []featureInput `yaml:"features" json:"features"`
}

// Feature is a loaded feature: its evaluation environment plus the
// canonical description stored with recorded passes.
type Feature struct {
	Env  *expr.Env
	Desc ir.Object
}

// LoadFeatures reads a YAML (or JSON) features file and builds one
// evaluation environment per feature.
func LoadFeatures(path string) ([]Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}

	var doc featuresFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	if len(doc.Features) == 0 {
		return nil, fmt.Errorf("features file %s declares no features", path)
	}

	features := make([]Feature, 0, len(doc.Features))
	for i, in := range doc.Features {
		f, err := buildFeature(in)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		features = append(features, f)
	}

	return features, nil
}

func buildFeature(in featureInput) (Feature, error) {
	if in.GeometryType == "" {
		return Feature{}, fmt.Errorf("missing geometryType")
	}

	id := ir.Value(ir.Null{})
	if in.ID != nil {
		v, err := ir.From(in.ID)
		if err != nil {
			return Feature{}, fmt.Errorf("id: %w", err)
		}
		id = v
	}

	attrs := make(map[string]ir.Value, len(in.Attrs))
	desc := ir.Object{
		"$geometryType": ir.String(in.GeometryType),
		"$layer":        ir.String(in.Layer),
		"$level":        ir.Number(in.Level),
	}
	if !ir.IsNull(id) {
		desc["id"] = id
	}
	for name, raw := range in.Attrs {
		v, err := ir.From(raw)
		if err != nil {
			return Feature{}, fmt.Errorf("attr %q: %w", name, err)
		}
		attrs[name] = v
		desc[name] = v
	}

	return Feature{
		Env:  expr.NewFeatureEnv(in.GeometryType, in.Layer, in.Level, id, attrs),
		Desc: desc,
	}, nil
}
