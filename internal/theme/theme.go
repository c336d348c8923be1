// Package theme loads and validates styling themes.
//
// A theme file (YAML or JSON) declares named style definitions and a tree
// of style rules. Loading validates the structure against a CUE schema,
// checks technique kinds against the descriptor registry, and resolves
// named-style references, so the style tree only ever sees well-formed
// declarations.
package theme

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/quadtile/stylemap/internal/descriptor"
	"github.com/quadtile/stylemap/internal/style"
)

//go:embed schema.cue
var schemaSource string

// Theme is a loaded, validated theme with references resolved.
type Theme struct {
	// Name identifies the theme (optional in the file).
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Definitions are named styles referenced from the rule tree.
	Definitions map[string]*style.Declaration `yaml:"definitions,omitempty" json:"definitions,omitempty"`

	// Styles is the rule tree handed to the style-set evaluator.
	Styles []*style.Declaration `yaml:"styles" json:"styles"`
}

// Load reads and decodes a theme file. YAML and JSON are both accepted
// (JSON is a YAML subset).
func Load(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme: %w", err)
	}
	th, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("theme %s: %w", path, err)
	}
	return th, nil
}

// Decode validates and decodes theme source bytes. Validation order:
// structure first (CUE schema), then technique kinds, then reference
// resolution. Unresolvable references are not an error; they are dropped
// later during style-tree construction.
func Decode(data []byte) (*Theme, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("empty theme document")
	}

	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	var th Theme
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&th); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if err := checkTechniqueKinds(th.Styles, ""); err != nil {
		return nil, err
	}
	for name, def := range th.Definitions {
		if err := checkTechniqueKinds([]*style.Declaration{def}, name); err != nil {
			return nil, err
		}
	}

	resolveRefs(th.Styles, th.Definitions)
	return &th, nil
}

// validateSchema unifies the decoded document with the embedded CUE
// schema. Uses the CUE Go API directly, not a CLI subprocess.
func validateSchema(raw any) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Theme"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode for validation: %w", err)
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("theme schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}

func checkTechniqueKinds(decls []*style.Declaration, context string) error {
	for _, decl := range decls {
		if decl == nil {
			continue
		}
		if decl.Technique != "" && !descriptor.Known(decl.Technique) {
			if context != "" {
				return fmt.Errorf("definition %q: unknown technique kind %q", context, decl.Technique)
			}
			return fmt.Errorf("unknown technique kind %q", decl.Technique)
		}
		if err := checkTechniqueKinds(decl.Styles, context); err != nil {
			return err
		}
	}
	return nil
}

// resolveRefs replaces reference declarations with merged clones of the
// named definition. The referring declaration's own fields override the
// definition's; attribute tables merge entry-wise with the referring side
// winning. A reference to a missing definition is left in place for the
// style tree to drop, and so is a reference that reaches its own
// definition again through the definition's body: expanding it would
// never terminate.
func resolveRefs(decls []*style.Declaration, defs map[string]*style.Declaration) {
	expandRefs(decls, defs, map[string]bool{})
}

// expandRefs resolves references depth-first. active holds the definition
// names currently being expanded on this path; hitting one again is a
// cycle, and the reference is left unresolved.
func expandRefs(decls []*style.Declaration, defs map[string]*style.Declaration, active map[string]bool) {
	for _, decl := range decls {
		if decl == nil {
			continue
		}
		name := decl.Ref
		if name == "" || active[name] {
			expandRefs(decl.Styles, defs, active)
			continue
		}
		def, ok := defs[name]
		if !ok {
			expandRefs(decl.Styles, defs, active)
			continue
		}
		adopted := decl.Styles == nil && def.Styles != nil
		mergeDefinition(decl, def)
		if adopted {
			// The nested styles came from the definition; keep its name
			// active while expanding them so a self-reference stops here.
			active[name] = true
			expandRefs(decl.Styles, defs, active)
			delete(active, name)
		} else {
			expandRefs(decl.Styles, defs, active)
		}
	}
}

func mergeDefinition(target *style.Declaration, def *style.Declaration) {
	target.Ref = ""
	if target.When == nil {
		target.When = def.When
	}
	if target.Technique == "" {
		target.Technique = def.Technique
	}
	if !target.Final {
		target.Final = def.Final
	}
	if target.RenderOrder == nil && def.RenderOrder != nil {
		order := *def.RenderOrder
		target.RenderOrder = &order
	}
	if target.RenderOrderBiasGroup == "" {
		target.RenderOrderBiasGroup = def.RenderOrderBiasGroup
	}
	if target.RenderOrderBiasRange == nil && def.RenderOrderBiasRange != nil {
		target.RenderOrderBiasRange = append([]int(nil), def.RenderOrderBiasRange...)
	}
	if len(def.Attr) > 0 {
		merged := make(map[string]any, len(def.Attr)+len(target.Attr))
		for k, v := range def.Attr {
			merged[k] = v
		}
		for k, v := range target.Attr {
			merged[k] = v
		}
		target.Attr = merged
	}
	if target.Styles == nil {
		target.Styles = def.Styles
	}
}
