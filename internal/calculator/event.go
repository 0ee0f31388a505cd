package calculator

import (
	"fmt"
	"strings"
)

// EventKind names a user event a session understands.
type EventKind string

const (
	EventLiteral  EventKind = "literal"
	EventConstant EventKind = "constant"
	EventOperator EventKind = "operator"
	EventFunction EventKind = "function"
	EventEquals   EventKind = "equals"
	EventClear    EventKind = "clear"

	// EventPress carries a raw button token and is classified on dispatch.
	EventPress EventKind = "press"
)

// Button tokens that are not registry operations.
const (
	EqualsToken = "="
	ClearToken  = "C"
)

// Event is one user interaction.
type Event struct {
	Kind  EventKind `json:"type"`
	Token string    `json:"token,omitempty"`
}

// Outcome describes what an event did to the session.
type Outcome struct {
	Event Event

	// Applied is false when input validation refused the event or an error
	// rolled it back.
	Applied bool

	// Resolved is set when the event produced a result line.
	Resolved bool
	Result   float64

	// Err is the error reported on the error channel, if any.
	Err error
}

// ParseEventKind validates an event kind received from outside.
func ParseEventKind(s string) (EventKind, error) {
	switch k := EventKind(strings.ToLower(strings.TrimSpace(s))); k {
	case EventLiteral, EventConstant, EventOperator, EventFunction, EventEquals, EventClear, EventPress:
		return k, nil
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Classify maps a button token to the event it stands for. Tokens outside
// the known set classify as operators and fail lookup on dispatch.
func Classify(token string) Event {
	switch {
	case token == EqualsToken:
		return Event{Kind: EventEquals}
	case token == ClearToken:
		return Event{Kind: EventClear}
	case token == PiSymbol || token == ESymbol:
		return Event{Kind: EventConstant, Token: token}
	case isLiteral(token):
		return Event{Kind: EventLiteral, Token: token}
	}
	if op, err := Lookup(token); err == nil && !op.Binary() {
		return Event{Kind: EventFunction, Token: token}
	}
	return Event{Kind: EventOperator, Token: token}
}

func isLiteral(s string) bool {
	if s == "." {
		return true
	}
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}
