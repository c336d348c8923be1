package style

import (
	"fmt"
	"log/slog"
)

// Rule is one node of the evaluator-owned style tree. Rules are immutable
// after Build; evaluator caches live in side tables keyed by LeafIndex,
// never on the rule itself.
type Rule struct {
	// When is the raw match condition (string grammar or array form),
	// compiled lazily at first use. Nil matches always.
	When any

	// Technique names the produced technique kind; empty for grouping
	// nodes, "none" for the match-but-produce-nothing sentinel.
	Technique string

	// Final stops sibling scanning at every level once this rule (or a
	// matching descendant) matches.
	Final bool

	// RenderOrder is the resolved order for this rule's techniques.
	RenderOrder int

	// HasExplicitOrder records whether RenderOrder came from the
	// declaration rather than auto-assignment.
	HasExplicitOrder bool

	// BiasGroup is the render-order bias group, if any, with BiasRange
	// its [min, max] bias.
	BiasGroup string
	BiasRange []int

	// Attrs are the rule's classified attributes, sorted by name.
	Attrs []Attr

	// Children are nested rules; non-empty makes this a grouping node.
	Children []*Rule

	// LeafIndex is the pre-order index among leaf rules (the stable
	// component of technique cache keys), or -1 for grouping nodes.
	LeafIndex int
}

// IsLeaf reports whether the rule has no nested styles.
func (r *Rule) IsLeaf() bool { return len(r.Children) == 0 }

// Tree is the evaluator's private, immutable style rule tree.
type Tree struct {
	Roots []*Rule

	// LeafCount is the number of leaf rules; leaf indexes are
	// 0..LeafCount-1 in pre-order.
	LeafCount int
}

// Build constructs a Tree from theme declarations. The declaration tree is
// deep-cloned; declarations that are unresolved references are dropped
// (resolution is the theme loader's job, a leftover reference is not an
// error here). logger may be nil.
func Build(decls []*Declaration, logger *slog.Logger) (*Tree, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	roots, err := buildRules(decls, logger)
	if err != nil {
		return nil, err
	}

	tree := &Tree{Roots: roots}
	tree.LeafCount = assignLeafIndexes(roots, 0)
	assignRenderOrders(tree, logger)
	return tree, nil
}

func buildRules(decls []*Declaration, logger *slog.Logger) ([]*Rule, error) {
	var rules []*Rule
	for i, decl := range decls {
		if decl == nil {
			continue
		}
		if decl.Ref != "" {
			logger.Warn("dropping unresolved style reference", slog.String("ref", decl.Ref))
			continue
		}

		attrs, err := decodeAttrs(decl.Attr, logger)
		if err != nil {
			return nil, fmt.Errorf("style %d: %w", i, err)
		}
		children, err := buildRules(decl.Styles, logger)
		if err != nil {
			return nil, fmt.Errorf("style %d: %w", i, err)
		}

		rule := &Rule{
			When:      cloneValue(decl.When),
			Technique: decl.Technique,
			Final:     decl.Final,
			BiasGroup: decl.RenderOrderBiasGroup,
			Attrs:     attrs,
			Children:  children,
			LeafIndex: -1,
		}
		if len(decl.RenderOrderBiasRange) == 2 {
			rule.BiasRange = []int{decl.RenderOrderBiasRange[0], decl.RenderOrderBiasRange[1]}
		}
		if decl.RenderOrder != nil {
			rule.RenderOrder = *decl.RenderOrder
			rule.HasExplicitOrder = true
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// assignLeafIndexes numbers leaf rules in pre-order, returning the next
// free index.
func assignLeafIndexes(rules []*Rule, next int) int {
	for _, r := range rules {
		if r.IsLeaf() {
			r.LeafIndex = next
			next++
		} else {
			next = assignLeafIndexes(r.Children, next)
		}
	}
	return next
}

// assignRenderOrders walks the tree in pre-order and resolves every rule's
// render order:
//
//   - the first occurrence of a bias group reserves a block of integers
//     sized by its [min, max] bias range and computes the group's shared
//     order; later members reuse it
//   - an explicit renderOrder is respected as given, except when combined
//     with a bias group, where the group value wins and the explicit value
//     is discarded with a warning
//   - every other leaf rule with a technique takes the next integer from
//     one monotonically increasing counter shared across the whole tree
func assignRenderOrders(tree *Tree, logger *slog.Logger) {
	state := &orderState{
		groups: map[string]int{},
		logger: logger,
	}
	state.walk(tree.Roots)
}

type orderState struct {
	next   int
	groups map[string]int
	logger *slog.Logger
	warned map[string]bool
}

func (s *orderState) walk(rules []*Rule) {
	for _, r := range rules {
		s.assign(r)
		if !r.IsLeaf() {
			s.walk(r.Children)
		}
	}
}

func (s *orderState) assign(r *Rule) {
	if r.BiasGroup != "" {
		if r.HasExplicitOrder {
			s.warnOnce(r.BiasGroup,
				"explicit renderOrder combined with renderOrderBiasGroup; the group value wins")
			r.HasExplicitOrder = false
		}
		order, seen := s.groups[r.BiasGroup]
		if !seen {
			// The bias range travels on the first group member; a
			// missing range reserves a single slot.
			min, max := 0, 0
			if len(r.BiasRange) == 2 {
				min, max = r.BiasRange[0], r.BiasRange[1]
				if max < min {
					min, max = max, min
				}
			}
			order = s.next - min
			s.next += max - min + 1
			s.groups[r.BiasGroup] = order
		}
		r.RenderOrder = order
		return
	}

	if r.HasExplicitOrder {
		return // respected as given
	}

	if r.IsLeaf() && r.Technique != "" && r.Technique != "none" {
		r.RenderOrder = s.next
		s.next++
	}
}

func (s *orderState) warnOnce(key, msg string) {
	if s.warned == nil {
		s.warned = map[string]bool{}
	}
	if s.warned[key] {
		return
	}
	s.warned[key] = true
	s.logger.Warn(msg, slog.String("group", key))
}
