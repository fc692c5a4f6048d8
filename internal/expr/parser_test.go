package expr

import (
	"testing"

	apperrors "stock-alerter/internal/errors"
)

func TestParseSingleComparison(t *testing.T) {
	tree, err := Parse("PRICE(AAPL)>10")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(tree.Terms) != 1 {
		t.Fatalf("expected 1 term, got %d", len(tree.Terms))
	}
	term := tree.Terms[0]
	if term.Kind != Greater {
		t.Errorf("expected Greater, got %v", term.Kind)
	}
	if len(term.Chain) != 2 {
		t.Fatalf("expected chain of 2, got %d", len(term.Chain))
	}
	if term.Chain[0].Kind != KindPrice || term.Chain[0].Symbol != "AAPL" {
		t.Errorf("unexpected first operand: %+v", term.Chain[0])
	}
	if term.Chain[1].Kind != KindConstant || term.Chain[1].Value != 10 {
		t.Errorf("unexpected second operand: %+v", term.Chain[1])
	}
}

func TestParseNormalizesCaseAndWhitespace(t *testing.T) {
	tree, err := Parse("  price( aapl ) \t> 10.5 ")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	op := tree.Terms[0].Chain[0]
	if op.Kind != KindPrice || op.Symbol != "AAPL" {
		t.Errorf("expected PRICE(AAPL), got %+v", op)
	}
	if tree.Terms[0].Chain[1].Value != 10.5 {
		t.Errorf("expected constant 10.5, got %+v", tree.Terms[0].Chain[1])
	}
}

func TestParseConjunction(t *testing.T) {
	tree, err := Parse("EMA(3,AAPL)>EMA(5,AAPL)&&PRICE(AAPL)>100")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(tree.Terms) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(tree.Terms))
	}
	first := tree.Terms[0]
	if first.Chain[0].Kind != KindEMA || first.Chain[0].Period != 3 || first.Chain[0].Symbol != "AAPL" {
		t.Errorf("unexpected operand: %+v", first.Chain[0])
	}
	if first.Chain[1].Period != 5 {
		t.Errorf("unexpected operand: %+v", first.Chain[1])
	}
}

func TestParseChainComparison(t *testing.T) {
	tree, err := Parse("100>PRICE(AAPL)>90")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(tree.Terms[0].Chain) != 3 {
		t.Fatalf("expected chain of 3, got %d", len(tree.Terms[0].Chain))
	}
}

func TestParseOperandVariants(t *testing.T) {
	tests := []struct {
		expr string
		kind OperandKind
	}{
		{"VOLUME(TSLA)<5000000", KindVolume},
		{"RSI(14,MSFT)<30", KindRSI},
		{"EMA(50,GOOG)>100", KindEMA},
		{"PRICE(NVDA)>500", KindPrice},
	}
	for _, tt := range tests {
		tree, err := Parse(tt.expr)
		if err != nil {
			t.Errorf("Parse(%q) returned error: %v", tt.expr, err)
			continue
		}
		if got := tree.Terms[0].Chain[0].Kind; got != tt.kind {
			t.Errorf("Parse(%q): expected kind %v, got %v", tt.expr, tt.kind, got)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"missing operator", "PRICE(AAPL)10"},
		{"no operator at all", "RSI(14,AAPL)"},
		{"mixed operators", "PRICE(AAPL)<10>5"},
		{"missing left operand", ">5"},
		{"missing right operand", "PRICE(AAPL)>"},
		{"bare word", "ABC>1"},
		{"unknown function", "SMA(3,AAPL)>1"},
		{"zero period", "EMA(0,AAPL)>1"},
		{"negative period", "RSI(-2,AAPL)<30"},
		{"non-numeric period", "EMA(X,AAPL)>1"},
		{"missing symbol arg", "EMA(3)>1"},
		{"empty symbol", "PRICE()>1"},
		{"extra args", "PRICE(AAPL,NSE)>1"},
		{"unclosed call", "EMA(3,AAPL>1"},
		{"nested parens", "EMA((3),AAPL)>1"},
		{"empty conjunct", "PRICE(AAPL)>10&&"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, expected ParseError", tt.expr)
			}
			if !apperrors.IsParseError(err) {
				t.Fatalf("Parse(%q) returned %T, expected *ParseError", tt.expr, err)
			}
		})
	}
}

func TestTreeString(t *testing.T) {
	tree, err := Parse("ema(3, aapl) > ema(5, aapl) && price(aapl) > 100")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := "EMA(3,AAPL)>EMA(5,AAPL)&&PRICE(AAPL)>100"
	if got := tree.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTreeSymbols(t *testing.T) {
	tree, err := Parse("EMA(3,AAPL)>EMA(5,MSFT)&&PRICE(AAPL)>100")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	symbols := tree.Symbols()
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "MSFT" {
		t.Errorf("Symbols() = %v, want [AAPL MSFT]", symbols)
	}
}
