package calculator

import (
	"math"
	"strconv"
)

// Display symbols for the symbolic constants.
const (
	PiSymbol       = "π"
	ESymbol        = "e"
	InfinitySymbol = "∞"
)

// maxExactInt bounds the values rendered through int64.
const maxExactInt = 1 << 63

// Render converts a value to transcript text. Integral values print without
// a fraction, the stored π and e print as their symbols and infinities as a
// signed ∞. forceInt truncates the value first.
func Render(v float64, forceInt bool) string {
	if forceInt && !math.IsInf(v, 0) && !math.IsNaN(v) {
		v = math.Trunc(v)
	}
	switch v {
	case math.Pi:
		return PiSymbol
	case math.E:
		return ESymbol
	}
	return RenderPlain(v)
}

// RenderPlain is Render without constant symbols, so π shows its digits.
func RenderPlain(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return InfinitySymbol
	case math.IsInf(v, -1):
		return "-" + InfinitySymbol
	case math.IsNaN(v):
		return "NaN"
	case v == math.Trunc(v) && math.Abs(v) < maxExactInt:
		return strconv.FormatInt(int64(v), 10)
	case v == math.Trunc(v):
		return strconv.FormatFloat(v, 'E', -1, 64)
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

// Parse reads transcript text back into a value. Constant symbols map to
// the exact stored constants.
func Parse(text string) (float64, error) {
	switch text {
	case PiSymbol:
		return math.Pi, nil
	case ESymbol:
		return math.E, nil
	case InfinitySymbol:
		return math.Inf(1), nil
	case "-" + InfinitySymbol:
		return math.Inf(-1), nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, &ParseError{Text: text, Err: err}
	}
	if math.IsNaN(v) {
		return 0, &ParseError{Text: text, Err: strconv.ErrSyntax}
	}
	return v, nil
}
