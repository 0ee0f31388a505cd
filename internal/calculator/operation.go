package calculator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
)

// Kind identifies one operation of the closed set the calculator supports.
type Kind int

const (
	Add Kind = iota + 1
	Subtract
	Multiply
	Divide
	Square
	SquareRoot
	Factorial
	Sine
	Cosine
	Tangent
	ArcSine
	ArcCosine
	ArcTangent
	NaturalLog
	CommonLog
	Random
)

// Operation is an immutable registry entry. Binary operations fold the
// accumulated value with the latest operand; unary ones ignore the
// accumulated slot.
type Operation struct {
	Kind     Kind
	Token    string
	Arity    int
	Template string

	// compute receives the operand entered last and the value accumulated
	// before it, in that order.
	compute func(operand, accumulated float64) float64
}

// Binary reports whether the operation folds two operands.
func (o Operation) Binary() bool { return o.Arity == 2 }

// Echo renders the operation's display template around operand text.
func (o Operation) Echo(operand string) string {
	if !strings.Contains(o.Template, "%s") {
		return o.Template
	}
	return fmt.Sprintf(o.Template, operand)
}

// randFloat is the entropy source behind the rand operation.
var randFloat = rand.Float64

var registry = buildRegistry()

func buildRegistry() map[string]Operation {
	ops := []Operation{
		{Kind: Add, Token: "+", Arity: 2, compute: func(x, y float64) float64 { return y + x }},
		{Kind: Subtract, Token: "-", Arity: 2, compute: func(x, y float64) float64 { return y - x }},
		{Kind: Multiply, Token: "*", Arity: 2, compute: func(x, y float64) float64 { return y * x }},
		{Kind: Divide, Token: "/", Arity: 2, compute: divide},
		{Kind: Square, Token: "x²", Arity: 1, Template: "%s²", compute: func(x, _ float64) float64 { return x * x }},
		{Kind: SquareRoot, Token: "√", Arity: 1, Template: "√%s", compute: squareRoot},
		{Kind: Factorial, Token: "n!", Arity: 1, Template: "%s!", compute: factorial},
		{Kind: Sine, Token: "sin", Arity: 1, Template: "sin(%s)", compute: unary(math.Sin)},
		{Kind: Cosine, Token: "cos", Arity: 1, Template: "cos(%s)", compute: unary(math.Cos)},
		{Kind: Tangent, Token: "tan", Arity: 1, Template: "tan(%s)", compute: unary(math.Tan)},
		{Kind: ArcSine, Token: "asin", Arity: 1, Template: "asin(%s)", compute: unary(math.Asin)},
		{Kind: ArcCosine, Token: "acos", Arity: 1, Template: "acos(%s)", compute: unary(math.Acos)},
		{Kind: ArcTangent, Token: "atan", Arity: 1, Template: "atan(%s)", compute: unary(math.Atan)},
		{Kind: NaturalLog, Token: "ln", Arity: 1, Template: "ln(%s)", compute: logarithm(math.Log)},
		{Kind: CommonLog, Token: "log", Arity: 1, Template: "log(%s)", compute: logarithm(math.Log10)},
		{Kind: Random, Token: "rand", Arity: 1, Template: "rand", compute: func(_, _ float64) float64 { return randFloat() }},
	}

	m := make(map[string]Operation, len(ops))
	for _, op := range ops {
		if op.Binary() {
			op.Template = "%s" + op.Token
		}
		m[op.Token] = op
	}
	return m
}

func unary(fn func(float64) float64) func(float64, float64) float64 {
	return func(x, _ float64) float64 { return fn(x) }
}

func divide(x, y float64) float64 {
	if x == 0 {
		return math.NaN()
	}
	return y / x
}

func squareRoot(x, _ float64) float64 {
	if x < 0 {
		return math.NaN()
	}
	return math.Sqrt(x)
}

// logarithm keeps log(0) as -∞ and maps negative input to NaN.
func logarithm(fn func(float64) float64) func(float64, float64) float64 {
	return func(x, _ float64) float64 {
		if x < 0 {
			return math.NaN()
		}
		return fn(x)
	}
}

// factorial truncates its operand; anything past 170! overflows to +∞.
func factorial(x, _ float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return math.NaN()
	}
	n := math.Trunc(x)
	if n > 170 {
		return math.Inf(1)
	}
	result := 1.0
	for i := 2.0; i <= n; i++ {
		result *= i
	}
	return result
}

// Lookup returns the operation registered under token.
func Lookup(token string) (Operation, error) {
	op, ok := registry[token]
	if !ok {
		return Operation{}, &UnknownOperationError{Token: token}
	}
	return op, nil
}

// Operations lists the registry in declaration order.
func Operations() []Operation {
	ops := make([]Operation, 0, len(registry))
	for _, op := range registry {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Kind < ops[j].Kind })
	return ops
}

// Execute applies op to the accumulated value and the latest operand.
// Undefined results come back as NaN; an operation without a compute
// function leaves the accumulated value untouched.
func Execute(op Operation, accumulated, operand float64) float64 {
	if op.compute == nil {
		return accumulated
	}
	return op.compute(operand, accumulated)
}

// Normalize rounds sub-unit results to 15 decimal places so that values
// like sin(π) collapse to 0. It reports false for NaN.
func Normalize(v float64) (float64, bool) {
	if math.IsNaN(v) {
		return 0, false
	}
	if !math.IsInf(v, 0) && math.Abs(v) < 1 {
		v = math.RoundToEven(v*1e15) / 1e15
	}
	return v, true
}
