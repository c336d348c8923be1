// Package evaluator orchestrates style-set evaluation: it walks the style
// tree against a feature's attribute environment and produces (or reuses)
// indexed technique instances.
//
// One evaluator processes one feature at a time to completion; there is no
// locking and no suspension point. The per-pass expression cache and the
// per-rule technique caches are the only state mutated across calls, and
// both belong to a single evaluator instance. Evaluating two features
// concurrently against the same instance is a contract violation and is
// detected as a fatal reentrancy error.
package evaluator

import (
	"fmt"
	"log/slog"

	"github.com/quadtile/stylemap/internal/expr"
	"github.com/quadtile/stylemap/internal/ir"
	"github.com/quadtile/stylemap/internal/style"
)

// ErrReentrantEvaluation reports a MatchingTechniques call entered while
// another is in flight on the same evaluator. This indicates a reentrancy
// bug in the caller; the pass aborts rather than continuing with corrupted
// caches.
type ErrReentrantEvaluation struct{}

func (ErrReentrantEvaluation) Error() string {
	return "reentrant evaluation: MatchingTechniques called while another pass is in flight"
}

// Evaluator matches features against a style tree and produces indexed
// techniques. Construct with New; the evaluator owns its style tree and
// all caches.
type Evaluator struct {
	tree   *style.Tree
	logger *slog.Logger

	// pool interns compiled expressions so per-pass cache lookups hit
	// across rules with structurally equal conditions.
	pool *expr.Pool

	// passCache memoizes expression results within one feature pass;
	// cleared at the start of every pass.
	passCache expr.Cache

	// states is the side table of lazily-computed per-rule caches
	// (compiled condition, attribute partition, technique instances).
	// State lives here, not on the immutable rules.
	states map[*style.Rule]*ruleState

	// techniques is the append-only list of every technique ever
	// created, indexable by Technique.Index.
	techniques []*Technique

	inPass bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger for rule warnings. The default discards
// everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New builds an evaluator over decls. The declarations are cloned into a
// private style tree, so the caller's tree may change freely afterwards.
func New(decls []*style.Declaration, opts ...Option) (*Evaluator, error) {
	e := &Evaluator{
		logger:    slog.New(slog.DiscardHandler),
		pool:      expr.NewPool(),
		passCache: expr.Cache{},
		states:    map[*style.Rule]*ruleState{},
	}
	for _, opt := range opts {
		opt(e)
	}

	tree, err := style.Build(decls, e.logger)
	if err != nil {
		return nil, fmt.Errorf("build style tree: %w", err)
	}
	e.tree = tree
	return e, nil
}

// Tree exposes the evaluator's private style tree for inspection tooling.
// The tree is immutable.
func (e *Evaluator) Tree() *style.Tree { return e.tree }

// Techniques returns the append-only list of all techniques ever created,
// in creation order; Techniques()[i].Index == i. Downstream consumers
// reference techniques by this index.
func (e *Evaluator) Techniques() []*Technique { return e.techniques }

// DecodedTechniques returns the transferable form of every technique
// created so far (expression-typed attributes stripped).
func (e *Evaluator) DecodedTechniques() []Decoded {
	out := make([]Decoded, len(e.techniques))
	for i, t := range e.techniques {
		out[i] = t.Decode()
	}
	return out
}

// MatchingTechniques evaluates the style tree against one feature
// environment and returns the techniques of every matching rule, in
// traversal order (render order is an attribute, not the result order).
//
// A "when" condition that fails to parse or evaluate skips its rule with a
// warning; a failure while evaluating a technique-scope attribute
// expression propagates as an error.
func (e *Evaluator) MatchingTechniques(env *expr.Env) ([]*Technique, error) {
	if e.inPass {
		return nil, ErrReentrantEvaluation{}
	}
	e.inPass = true
	defer func() { e.inPass = false }()

	// Stale cached results keyed on pooled expressions would be reused
	// against the wrong feature otherwise.
	e.passCache.Clear()

	var result []*Technique
	_, err := e.matchRules(e.tree.Roots, nil, env, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// matchRules walks one rule list in declaration order. The boolean result
// is the early-exit signal: a matched rule marked final stops sibling
// scanning at every level above.
func (e *Evaluator) matchRules(rules []*style.Rule, inherited []style.Attr, env *expr.Env, out *[]*Technique) (bool, error) {
	for _, r := range rules {
		matched, ok := e.ruleMatches(r, env)
		if !ok || !matched {
			continue
		}

		if !r.IsLeaf() {
			childInherited := inherited
			if len(r.Attrs) > 0 {
				childInherited = append(append([]style.Attr{}, inherited...), r.Attrs...)
			}
			finished, err := e.matchRules(r.Children, childInherited, env, out)
			if err != nil {
				return false, err
			}
			if finished || r.Final {
				return true, nil
			}
			continue
		}

		if r.Technique != "" && r.Technique != techniqueNone {
			tech, err := e.resolveTechnique(r, inherited, env)
			if err != nil {
				return false, err
			}
			*out = append(*out, tech)
		}
		if r.Final {
			return true, nil
		}
	}
	return false, nil
}

const techniqueNone = "none"

// ruleMatches evaluates a rule's condition. The second result is false
// when the rule is permanently broken (condition failed to parse) or the
// condition errored against this environment; both skip the rule.
func (e *Evaluator) ruleMatches(r *style.Rule, env *expr.Env) (bool, bool) {
	if r.When == nil {
		return true, true
	}

	rs := e.ruleState(r)
	if rs.whenBroken {
		return false, false
	}
	if rs.when == nil {
		compiled, err := compileCondition(r.When)
		if err != nil {
			rs.whenBroken = true
			e.logger.Warn("style condition failed to parse; rule will never match",
				slog.String("error", err.Error()))
			return false, false
		}
		rs.when = e.pool.Intern(compiled)
	}

	v, err := expr.Evaluate(rs.when, env, e.passCache)
	if err != nil {
		if !rs.whenWarned {
			rs.whenWarned = true
			e.logger.Warn("style condition failed to evaluate; treating rule as not matching",
				slog.String("error", err.Error()))
		}
		return false, false
	}
	return ir.Truthy(v), true
}

func compileCondition(when any) (expr.Expr, error) {
	switch cond := when.(type) {
	case string:
		return expr.ParseString(cond)
	default:
		return expr.Parse(cond)
	}
}

func (e *Evaluator) ruleState(r *style.Rule) *ruleState {
	rs, ok := e.states[r]
	if !ok {
		rs = &ruleState{}
		e.states[r] = rs
	}
	return rs
}

// ruleState carries the lazily-computed caches for one rule.
type ruleState struct {
	when       expr.Expr
	whenBroken bool
	whenWarned bool

	// part is the memoized attribute partition (computed on first leaf
	// match).
	part *partition

	// static is the single memoized instance for rules without
	// technique-scope dynamic attributes.
	static *Technique

	// cache maps serialized technique-scope value tuples to instances.
	cache map[string]*Technique
}
