package calculator

import (
	"errors"
	"math"
	"testing"
)

func TestLookupKnownTokens(t *testing.T) {
	for _, tok := range []string{"+", "-", "*", "/", "x²", "√", "n!", "sin", "cos", "tan", "asin", "acos", "atan", "ln", "log", "rand"} {
		op, err := Lookup(tok)
		if err != nil {
			t.Fatalf("lookup %q: %v", tok, err)
		}
		if op.Token != tok {
			t.Fatalf("expected token %q, got %q", tok, op.Token)
		}
	}
}

func TestLookupUnknownToken(t *testing.T) {
	_, err := Lookup("mod")

	var unknown *UnknownOperationError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownOperationError, got %v", err)
	}
	if unknown.Token != "mod" {
		t.Fatalf("expected token mod, got %q", unknown.Token)
	}
}

func TestOperationsAreOrderedAndTemplated(t *testing.T) {
	ops := Operations()
	if len(ops) != 16 {
		t.Fatalf("expected 16 operations, got %d", len(ops))
	}
	for i := 1; i < len(ops); i++ {
		if ops[i-1].Kind >= ops[i].Kind {
			t.Fatalf("operations out of order at %d", i)
		}
	}

	add, _ := Lookup("+")
	if got := add.Echo("8"); got != "8+" {
		t.Fatalf("expected 8+, got %q", got)
	}
	if got := add.Echo(""); got != "+" {
		t.Fatalf("expected +, got %q", got)
	}
	sin, _ := Lookup("sin")
	if got := sin.Echo("π"); got != "sin(π)" {
		t.Fatalf("expected sin(π), got %q", got)
	}
	rnd, _ := Lookup("rand")
	if got := rnd.Echo("5"); got != "rand" {
		t.Fatalf("expected rand, got %q", got)
	}
}

func TestExecute(t *testing.T) {
	tests := []struct {
		token       string
		accumulated float64
		operand     float64
		want        float64
	}{
		{"+", 5, 3, 8},
		{"-", 5, 3, 2},
		{"*", 5, 3, 15},
		{"/", 6, 3, 2},
		{"x²", 0, 8, 64},
		{"√", 0, 9, 3},
		{"n!", 0, 5, 120},
		{"n!", 0, 5.9, 120},
		{"n!", 0, 0, 1},
		{"log", 0, 1, 0},
		{"ln", 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			op, err := Lookup(tt.token)
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			if got := Execute(op, tt.accumulated, tt.operand); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestExecuteUndefinedResultsAreNaN(t *testing.T) {
	tests := []struct {
		token       string
		accumulated float64
		operand     float64
	}{
		{"/", 3, 0},
		{"√", 0, -4},
		{"n!", 0, -1},
		{"ln", 0, -1},
		{"log", 0, -10},
		{"asin", 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			op, _ := Lookup(tt.token)
			if got := Execute(op, tt.accumulated, tt.operand); !math.IsNaN(got) {
				t.Fatalf("expected NaN, got %v", got)
			}
		})
	}
}

func TestExecuteEdgeValues(t *testing.T) {
	ln, _ := Lookup("ln")
	if got := Execute(ln, 0, 0); !math.IsInf(got, -1) {
		t.Fatalf("expected ln(0) = -∞, got %v", got)
	}

	fact, _ := Lookup("n!")
	if got := Execute(fact, 0, 171); !math.IsInf(got, 1) {
		t.Fatalf("expected 171! = +∞, got %v", got)
	}

	if got := Execute(Operation{Kind: Add, Token: "+", Arity: 2}, 7, 1); got != 7 {
		t.Fatalf("expected operation without compute to keep 7, got %v", got)
	}
}

func TestExecuteRandomIgnoresOperand(t *testing.T) {
	orig := randFloat
	t.Cleanup(func() { randFloat = orig })
	randFloat = func() float64 { return 0.25 }

	op, _ := Lookup("rand")
	if got := Execute(op, 10, 99); got != 0.25 {
		t.Fatalf("expected 0.25, got %v", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"sin pi collapses", math.Sin(math.Pi), 0},
		{"negative tiny collapses", -1e-17, 0},
		{"fraction keeps 15 places", 0.1 + 0.2, 0.3},
		{"values from one up untouched", math.Nextafter(1, 2), math.Nextafter(1, 2)},
		{"negative values from one down untouched", math.Nextafter(-1, -2), math.Nextafter(-1, -2)},
		{"large values untouched", 12345.678, 12345.678},
		{"just below one is rounded", math.Nextafter(1, 0), 1},
		{"infinity passes", math.Inf(1), math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.in)
			if !ok {
				t.Fatalf("expected %v to be defined", tt.in)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if _, ok := Normalize(math.NaN()); ok {
		t.Fatal("expected NaN to be reported as undefined")
	}
}
