package expr

import (
	"context"
	"strings"
)

// CompareKind identifies the comparison operator of a term.
type CompareKind int

const (
	// Greater is the ">" operator: a chain holds iff its resolved
	// values are strictly decreasing.
	Greater CompareKind = iota
	// Less is the "<" operator: a chain holds iff its resolved values
	// are strictly increasing.
	Less
)

// String returns the operator symbol.
func (k CompareKind) String() string {
	if k == Less {
		return "<"
	}
	return ">"
}

// Comparison is a single chain comparison: one operator applied across
// two or more operands, e.g. EMA(10,AAPL)>EMA(50,AAPL)>100.
type Comparison struct {
	Kind  CompareKind
	Chain []Operand
}

// evaluate resolves every operand in chain order, then checks strict
// pairwise monotonicity across the resolved sequence.
func (c Comparison) evaluate(ctx context.Context, r Resolver) (bool, error) {
	values := make([]float64, len(c.Chain))
	for i, op := range c.Chain {
		v, err := r.Resolve(ctx, op)
		if err != nil {
			return false, err
		}
		values[i] = v
	}

	for i := 1; i < len(values); i++ {
		if c.Kind == Greater && values[i-1] <= values[i] {
			return false, nil
		}
		if c.Kind == Less && values[i-1] >= values[i] {
			return false, nil
		}
	}
	return true, nil
}

// String renders the comparison in its textual grammar form.
func (c Comparison) String() string {
	parts := make([]string, len(c.Chain))
	for i, op := range c.Chain {
		parts[i] = op.String()
	}
	return strings.Join(parts, c.Kind.String())
}

// Tree is the evaluable form of one alert expression: a conjunction of
// chain comparisons. A tree is built fresh for every evaluation run and
// holds no mutable state.
type Tree struct {
	Terms []Comparison
}

// Evaluate evaluates every term and returns the conjunction of the
// results. Evaluation is deliberately not short-circuited: every term
// is resolved even after one has come out false, so the first
// resolution error always surfaces regardless of term order.
func (t *Tree) Evaluate(ctx context.Context, r Resolver) (bool, error) {
	result := true
	for _, term := range t.Terms {
		ok, err := term.evaluate(ctx, r)
		if err != nil {
			return false, err
		}
		result = result && ok
	}
	return result, nil
}

// String renders the tree in its textual grammar form.
func (t *Tree) String() string {
	parts := make([]string, len(t.Terms))
	for i, term := range t.Terms {
		parts[i] = term.String()
	}
	return strings.Join(parts, "&&")
}

// Symbols returns the distinct symbols referenced by the tree, in
// first-appearance order.
func (t *Tree) Symbols() []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, term := range t.Terms {
		for _, op := range term.Chain {
			if op.Symbol == "" || seen[op.Symbol] {
				continue
			}
			seen[op.Symbol] = true
			symbols = append(symbols, op.Symbol)
		}
	}
	return symbols
}
