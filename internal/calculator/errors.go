package calculator

import (
	"errors"
	"fmt"
)

// ErrInvalidLiteral is returned for literal text that is neither a digit,
// a dot nor a constant symbol.
var ErrInvalidLiteral = errors.New("invalid literal")

// DomainError reports an operation whose result is undefined for its
// operand, such as division by zero or the square root of a negative.
type DomainError struct {
	Op      Operation
	Operand float64
}

func (e *DomainError) Error() string {
	if e.Op.Kind == Divide {
		return "Cannot divide by zero"
	}
	return fmt.Sprintf("%s is not eligible for negative input", e.Op.Token)
}

// Display is the message shown on the error channel. Everything except
// division echoes the offending operand.
func (e *DomainError) Display() string {
	if e.Op.Kind == Divide {
		return e.Error()
	}
	return e.Error() + "\nWas: " + Render(e.Operand, false)
}

// ParseError reports transcript text that is not a number.
type ParseError struct {
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %v", e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UnknownOperationError reports a token missing from the registry.
type UnknownOperationError struct {
	Token string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q", e.Token)
}

// displayMessage formats any reported error for the error channel.
func displayMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Display()
	}
	return fmt.Sprintf("Error: %s", err.Error())
}
