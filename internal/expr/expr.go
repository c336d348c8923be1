package expr

import (
	"strings"

	"github.com/quadtile/stylemap/internal/ir"
)

// Expr is a sealed interface over expression tree nodes. Only Literal, Var,
// and Call implement it. Nodes are immutable after construction; sharing a
// node between trees is safe.
//
// Nodes are always handled by pointer so that an interned tree's identity
// can serve as a cache key.
type Expr interface {
	exprNode() // sealed

	// Format returns the canonical textual form of the node, used as the
	// interning key. Structurally equal trees format identically, and each
	// node kind carries its own tag so that a literal holding an array can
	// never format like the operator call spelling the same array.
	Format() string
}

// Literal is a constant value.
type Literal struct {
	Value ir.Value
}

func (*Literal) exprNode() {}

// Format implements Expr. A literal formats as its canonical JSON behind
// the lit: tag; values that cannot be canonicalized (non-finite numbers)
// fall back to a placeholder that still distinguishes them from ordinary
// literals.
func (l *Literal) Format() string {
	b, err := ir.MarshalCanonical(l.Value)
	if err != nil {
		return "lit:!invalid"
	}
	return "lit:" + string(b)
}

// Var is an attribute reference, including pseudo-attributes such as
// $geometryType. Evaluation looks the name up in the environment; a missing
// attribute yields null, never an error.
type Var struct {
	Name string
}

func (*Var) exprNode() {}

// Format implements Expr.
func (v *Var) Format() string {
	b, _ := ir.MarshalCanonical(ir.String(v.Name))
	return "var:" + string(b)
}

// Call is an operator application.
type Call struct {
	Op   string
	Args []Expr
}

func (*Call) exprNode() {}

// Format implements Expr. Argument formats carry their own kind tags, so
// the result is unambiguous even when an argument is a literal array.
func (c *Call) Format() string {
	var sb strings.Builder
	sb.WriteString("call:[")
	b, _ := ir.MarshalCanonical(ir.String(c.Op))
	sb.Write(b)
	for _, arg := range c.Args {
		sb.WriteByte(',')
		sb.WriteString(arg.Format())
	}
	sb.WriteByte(']')
	return sb.String()
}
