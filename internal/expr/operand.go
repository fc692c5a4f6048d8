// Package expr implements the alert expression language: tokenizing a
// textual formula, building an operator tree, and evaluating it against
// resolved market values.
package expr

import (
	"context"
	"fmt"
)

// OperandKind identifies the variant of a parsed operand. The set is
// closed: it is fixed by the expression grammar.
type OperandKind int

const (
	// KindConstant is a literal numeric value.
	KindConstant OperandKind = iota
	// KindPrice references the latest traded price of a symbol.
	KindPrice
	// KindVolume references the latest traded volume of a symbol.
	KindVolume
	// KindEMA references the exponential moving average of a symbol.
	KindEMA
	// KindRSI references the relative strength index of a symbol.
	KindRSI
)

// String returns the grammar-level name of the operand kind.
func (k OperandKind) String() string {
	switch k {
	case KindConstant:
		return "CONSTANT"
	case KindPrice:
		return "PRICE"
	case KindVolume:
		return "VOLUME"
	case KindEMA:
		return "EMA"
	case KindRSI:
		return "RSI"
	default:
		return fmt.Sprintf("OperandKind(%d)", int(k))
	}
}

// Operand is a leaf value source in an alert expression. Which fields
// are meaningful depends on Kind: Value for constants, Symbol for
// price/volume references, Period and Symbol for indicators.
type Operand struct {
	Kind   OperandKind
	Value  float64
	Symbol string
	Period int
}

// String renders the operand in its textual grammar form.
func (o Operand) String() string {
	switch o.Kind {
	case KindConstant:
		return fmt.Sprintf("%g", o.Value)
	case KindPrice, KindVolume:
		return fmt.Sprintf("%s(%s)", o.Kind, o.Symbol)
	case KindEMA, KindRSI:
		return fmt.Sprintf("%s(%d,%s)", o.Kind, o.Period, o.Symbol)
	default:
		return o.Kind.String()
	}
}

// Resolver turns a parsed operand into a numeric value, performing
// market-data lookups as needed. Implementations are not required to be
// safe for concurrent use; a run evaluates alerts sequentially against
// a single resolver.
type Resolver interface {
	Resolve(ctx context.Context, op Operand) (float64, error)
}
