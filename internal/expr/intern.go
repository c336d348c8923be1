package expr

// Pool interns expression trees so that structurally equal expressions
// collapse to one shared instance. Per-pass evaluation caches key on the
// instance, so interning is what lets two rules with equal "when" clauses
// share a cached result within one feature pass.
//
// A Pool belongs to one evaluator and is not safe for concurrent use,
// matching the evaluator's single-threaded contract.
type Pool struct {
	nodes map[string]Expr
}

// NewPool creates an empty interning pool.
func NewPool() *Pool {
	return &Pool{nodes: make(map[string]Expr)}
}

// Intern returns the canonical pooled instance for e. The first expression
// with a given structure becomes the pooled instance; later structurally
// equal expressions return it. Interning an already-pooled expression
// returns the same instance (idempotence).
//
// Sub-expressions are interned bottom-up, so shared subtrees collapse even
// when their parents differ.
func (p *Pool) Intern(e Expr) Expr {
	if e == nil {
		return nil
	}

	if call, ok := e.(*Call); ok {
		rebuilt := call
		for i, arg := range call.Args {
			pooledArg := p.Intern(arg)
			if pooledArg != arg {
				if rebuilt == call {
					args := make([]Expr, len(call.Args))
					copy(args, call.Args)
					rebuilt = &Call{Op: call.Op, Args: args}
				}
				rebuilt.Args[i] = pooledArg
			}
		}
		e = rebuilt
	}

	key := e.Format()
	if pooled, ok := p.nodes[key]; ok {
		return pooled
	}
	p.nodes[key] = e
	return e
}

// Size returns the number of distinct pooled expressions. Useful for
// diagnostics and tests.
func (p *Pool) Size() int {
	return len(p.nodes)
}
