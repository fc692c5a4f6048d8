package expr

import (
	"strconv"
	"strings"
	"unicode"

	apperrors "stock-alerter/internal/errors"
)

// Parse turns a formula string into an evaluable operator tree.
//
// The grammar is deliberately small: a formula is one or more terms
// joined by "&&"; a term is a chain of operands joined by a single
// comparison operator (all ">" or all "<"); an operand is a function
// call (EMA, RSI, PRICE, VOLUME) or a numeric literal. Parsing is
// case- and whitespace-insensitive. Malformed input yields a
// *apperrors.ParseError.
func Parse(expression string) (*Tree, error) {
	normalized := normalize(expression)
	if normalized == "" {
		return nil, apperrors.NewParseError(expression, "empty expression")
	}

	terms := strings.Split(normalized, "&&")
	tree := &Tree{Terms: make([]Comparison, 0, len(terms))}
	for _, term := range terms {
		cmp, err := parseTerm(expression, term)
		if err != nil {
			return nil, err
		}
		tree.Terms = append(tree.Terms, cmp)
	}
	return tree, nil
}

// normalize strips all whitespace and upper-cases the formula.
func normalize(expression string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, expression)
	return strings.ToUpper(stripped)
}

func parseTerm(expression, term string) (Comparison, error) {
	hasGreater := strings.Contains(term, ">")
	hasLess := strings.Contains(term, "<")

	var kind CompareKind
	var parts []string
	switch {
	case hasGreater && hasLess:
		return Comparison{}, apperrors.NewParseErrorf(expression, "term %q mixes > and <", term)
	case hasGreater:
		kind = Greater
		parts = strings.Split(term, ">")
	case hasLess:
		kind = Less
		parts = strings.Split(term, "<")
	default:
		return Comparison{}, apperrors.NewParseErrorf(expression, "term %q has no comparison operator", term)
	}

	chain := make([]Operand, 0, len(parts))
	for _, part := range parts {
		op, err := parseOperand(expression, part)
		if err != nil {
			return Comparison{}, err
		}
		chain = append(chain, op)
	}
	return Comparison{Kind: kind, Chain: chain}, nil
}

func parseOperand(expression, token string) (Operand, error) {
	if token == "" {
		return Operand{}, apperrors.NewParseError(expression, "missing operand")
	}

	switch {
	case strings.HasPrefix(token, "EMA("):
		return parseIndicator(expression, token, "EMA", KindEMA)
	case strings.HasPrefix(token, "RSI("):
		return parseIndicator(expression, token, "RSI", KindRSI)
	case strings.HasPrefix(token, "PRICE("):
		return parseQuoteRef(expression, token, "PRICE", KindPrice)
	case strings.HasPrefix(token, "VOLUME("):
		return parseQuoteRef(expression, token, "VOLUME", KindVolume)
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return Operand{}, apperrors.NewParseErrorf(expression, "invalid operand %q", token)
	}
	return Operand{Kind: KindConstant, Value: value}, nil
}

// parseIndicator parses EMA(period,SYMBOL) and RSI(period,SYMBOL).
func parseIndicator(expression, token, name string, kind OperandKind) (Operand, error) {
	args, err := parseArgs(expression, token, name)
	if err != nil {
		return Operand{}, err
	}
	if len(args) != 2 {
		return Operand{}, apperrors.NewParseErrorf(expression, "%s takes (period,symbol), got %q", name, token)
	}

	period, err := strconv.Atoi(args[0])
	if err != nil || period <= 0 {
		return Operand{}, apperrors.NewParseErrorf(expression, "%s period must be a positive integer, got %q", name, args[0])
	}
	if args[1] == "" {
		return Operand{}, apperrors.NewParseErrorf(expression, "%s is missing a symbol in %q", name, token)
	}
	return Operand{Kind: kind, Period: period, Symbol: args[1]}, nil
}

// parseQuoteRef parses PRICE(SYMBOL) and VOLUME(SYMBOL).
func parseQuoteRef(expression, token, name string, kind OperandKind) (Operand, error) {
	args, err := parseArgs(expression, token, name)
	if err != nil {
		return Operand{}, err
	}
	if len(args) != 1 || args[0] == "" {
		return Operand{}, apperrors.NewParseErrorf(expression, "%s takes a single symbol, got %q", name, token)
	}
	return Operand{Kind: kind, Symbol: args[0]}, nil
}

// parseArgs extracts the comma-separated argument list of a function
// call token. The single level of parentheses belonging to the call is
// the only nesting the grammar supports.
func parseArgs(expression, token, name string) ([]string, error) {
	body := strings.TrimPrefix(token, name+"(")
	if !strings.HasSuffix(body, ")") {
		return nil, apperrors.NewParseErrorf(expression, "%s call %q is missing a closing parenthesis", name, token)
	}
	body = strings.TrimSuffix(body, ")")
	if strings.ContainsAny(body, "()") {
		return nil, apperrors.NewParseErrorf(expression, "unexpected parenthesis in %q", token)
	}
	return strings.Split(body, ","), nil
}
