package calculator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"transcript-calculator/internal/store"
)

// ValueStore persists the last value of a session slot as text.
type ValueStore interface {
	LoadLastValue(ctx context.Context, slot string) (string, error)
	SaveLastValue(ctx context.Context, slot, value string) error
}

// Session is the running calculator: an accumulator, at most one pending
// binary operator, and the operand text of the trailing transcript line.
// The transcript is written, never parsed back.
//
// A Session is not safe for concurrent use; events must be serialised.
type Session struct {
	logger *zap.Logger
	sink   TextSink
	errs   ErrorSink
	store  ValueStore
	slot   string

	acc     float64
	pending *Operation
	// entry is the operand text on the trailing line: digits typed since the
	// last operator, or the result line after a resolve.
	entry string
	// closed is set while the transcript ends right after a result line.
	closed bool
}

type Option func(*Session)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithStore binds the session to a slot of a last-value store.
func WithStore(vs ValueStore, slot string) Option {
	return func(s *Session) {
		s.store = vs
		s.slot = slot
	}
}

// WithErrorSink overrides the error channel. By default a sink that also
// implements ErrorSink receives the errors.
func WithErrorSink(errs ErrorSink) Option {
	return func(s *Session) {
		s.errs = errs
	}
}

type discardErrors struct{}

func (discardErrors) ShowError(string) {}

func NewSession(sink TextSink, opts ...Option) *Session {
	s := &Session{
		logger: zap.NewNop(),
		sink:   sink,
		errs:   discardErrors{},
	}
	if errs, ok := sink.(ErrorSink); ok {
		s.errs = errs
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accumulator returns the committed left operand.
func (s *Session) Accumulator() float64 { return s.acc }

// PendingOperator returns the token of the unresolved operator, if any.
func (s *Session) PendingOperator() string {
	if s.pending == nil {
		return ""
	}
	return s.pending.Token
}

// Entry returns the operand text of the trailing line.
func (s *Session) Entry() string { return s.entry }

// Slot returns the store slot the session persists to.
func (s *Session) Slot() string { return s.slot }

// Start loads the last stored value and echoes it as the first line.
func (s *Session) Start(ctx context.Context) {
	v := s.loadLastValue(ctx)

	s.acc = 0
	s.pending = nil
	s.closed = false
	s.entry = Render(v, false)
	s.sink.ReplaceAll(s.entry)
	s.sink.ScrollToEnd()
}

func (s *Session) loadLastValue(ctx context.Context) float64 {
	if s.store == nil {
		return 0
	}

	raw, err := s.store.LoadLastValue(ctx, s.slot)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("no stored value", zap.String("slot", s.slot))
		return 0
	}
	if err != nil {
		s.logger.Warn("loading stored value failed", zap.String("slot", s.slot), zap.Error(err))
		return 0
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) {
		s.logger.Warn("stored value is not a number", zap.String("slot", s.slot), zap.String("value", raw))
		return 0
	}
	return v
}

// End saves the value on the trailing line, or the accumulator while an
// operator is pending. An empty transcript saves nothing.
func (s *Session) End(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	var v float64
	switch {
	case s.pending != nil:
		v = s.acc
	case s.entry == "":
		return nil
	default:
		parsed, err := Parse(s.entry)
		if err != nil {
			s.logger.Warn("trailing line is not a number, saving 0", zap.String("entry", s.entry), zap.Error(err))
		}
		v = parsed
	}

	text := strconv.FormatFloat(v, 'g', -1, 64)
	if err := s.store.SaveLastValue(ctx, s.slot, text); err != nil {
		return fmt.Errorf("save last value: %w", err)
	}
	s.logger.Debug("stored last value", zap.String("slot", s.slot), zap.String("value", text))
	return nil
}

func (s *Session) AppendLiteral(text string) Outcome {
	return s.Dispatch(Event{Kind: EventLiteral, Token: text})
}

func (s *Session) AppendConstant(symbol string) Outcome {
	return s.Dispatch(Event{Kind: EventConstant, Token: symbol})
}

func (s *Session) ApplyOperator(token string) Outcome {
	return s.Dispatch(Event{Kind: EventOperator, Token: token})
}

func (s *Session) ApplyFunction(token string) Outcome {
	return s.Dispatch(Event{Kind: EventFunction, Token: token})
}

func (s *Session) Resolve() Outcome {
	return s.Dispatch(Event{Kind: EventEquals})
}

func (s *Session) Clear() Outcome {
	return s.Dispatch(Event{Kind: EventClear})
}

// Press handles a raw button token.
func (s *Session) Press(token string) Outcome {
	return s.Dispatch(Event{Kind: EventPress, Token: token})
}

type snapshot struct {
	acc     float64
	pending *Operation
	entry   string
	closed  bool
	text    string
}

func (s *Session) snapshot() snapshot {
	return snapshot{acc: s.acc, pending: s.pending, entry: s.entry, closed: s.closed, text: s.sink.Text()}
}

func (s *Session) restore(snap snapshot) {
	s.acc = snap.acc
	s.pending = snap.pending
	s.entry = snap.entry
	s.closed = snap.closed
	s.sink.ReplaceAll(snap.text)
}

// Dispatch runs one event to completion. It never fails: errors are
// reported on the error channel, and an event that hits a parse error,
// an unknown operation or a panic leaves no trace in the session.
func (s *Session) Dispatch(ev Event) (out Outcome) {
	if ev.Kind == EventPress {
		ev = Classify(ev.Token)
	}
	out.Event = ev

	if c, ok := s.errs.(interface{ ClearError() }); ok {
		c.ClearError()
	}

	saved := s.snapshot()
	defer func() {
		if r := recover(); r != nil {
			s.restore(saved)
			out.Applied, out.Resolved = false, false
			out.Err = fmt.Errorf("%v", r)
			s.report(ev, out.Err)
		}
	}()

	var err error
	switch ev.Kind {
	case EventLiteral:
		err = s.appendLiteral(ev.Token, &out)
	case EventConstant:
		err = s.appendConstant(ev.Token, &out)
	case EventOperator:
		err = s.applyOperator(ev.Token, &out)
	case EventFunction:
		err = s.applyFunction(ev.Token, &out)
	case EventEquals:
		err = s.resolve(&out)
	case EventClear:
		s.clear(&out)
	default:
		err = fmt.Errorf("unsupported event %q", ev.Kind)
	}

	if err != nil {
		s.restore(saved)
		out.Applied, out.Resolved = false, false
		out.Err = err
		s.report(ev, err)
		return out
	}

	s.logger.Debug("calculator event",
		zap.String("event", string(ev.Kind)),
		zap.String("token", ev.Token),
		zap.Bool("applied", out.Applied),
		zap.String("pending", s.PendingOperator()),
		zap.Float64("accumulator", s.acc),
	)
	return out
}

func (s *Session) report(ev Event, err error) {
	s.logger.Warn("calculator event failed",
		zap.String("event", string(ev.Kind)),
		zap.String("token", ev.Token),
		zap.Error(err),
	)
	s.errs.ShowError(displayMessage(err))
}

func (s *Session) appendLiteral(text string, out *Outcome) error {
	if !isLiteral(text) {
		return fmt.Errorf("%w %q", ErrInvalidLiteral, text)
	}

	if s.zeroLine() && text != "." {
		s.discardZeroLine()
	}
	if !s.closed && endsWithSymbol(s.entry) {
		return nil
	}
	if s.closed {
		s.closed = false
		s.entry = ""
	}
	if text == "." {
		if strings.Contains(s.entry, ".") {
			return nil
		}
		if s.entry == "" {
			text = "0."
		}
	}

	s.write(text)
	s.entry += text
	out.Applied = true
	return nil
}

func (s *Session) appendConstant(symbol string, out *Outcome) error {
	if symbol != PiSymbol && symbol != ESymbol {
		return fmt.Errorf("%w %q", ErrInvalidLiteral, symbol)
	}

	switch {
	case s.zeroLine():
		s.discardZeroLine()
	case s.closed:
		s.closed = false
		s.entry = ""
	case s.entry != "":
		// constants only follow an operator or start a line
		return nil
	}

	s.write(symbol)
	s.entry = symbol
	out.Applied = true
	return nil
}

func (s *Session) applyOperator(token string, out *Outcome) error {
	op, err := Lookup(token)
	if err != nil {
		return err
	}
	if !op.Binary() {
		return &UnknownOperationError{Token: token}
	}
	if !endsWithOperand(s.entry) {
		return nil
	}

	operand, err := Parse(s.entry)
	if err != nil {
		return err
	}
	if s.pending != nil {
		s.acc = s.compute(*s.pending, s.acc, operand, out)
	} else {
		s.acc = operand
	}

	prefix := ""
	if s.closed {
		prefix = s.entry
		s.closed = false
	}
	s.write(op.Echo(prefix))

	s.pending = &op
	s.entry = ""
	out.Applied = true
	return nil
}

// applyFunction resolves any pending operator first and then behaves as a
// completed expression of its own.
func (s *Session) applyFunction(token string, out *Outcome) error {
	op, err := Lookup(token)
	if err != nil {
		return err
	}
	if op.Binary() {
		return &UnknownOperationError{Token: token}
	}

	if s.pending != nil {
		if s.entry == "" {
			return nil
		}
		if err := s.resolve(out); err != nil {
			return err
		}
	}

	x := s.acc
	if s.entry != "" {
		x, err = Parse(s.entry)
		if err != nil {
			return err
		}
		s.breakLine()
		s.write(op.Echo(Render(x, op.Kind == Factorial)))
	}

	s.finish(s.compute(op, x, x, out), out)
	return nil
}

// resolve is the equals button. Without a pending operator it echoes the
// trailing value unformatted so π and e show their digits.
func (s *Session) resolve(out *Outcome) error {
	if s.entry == "" {
		return nil
	}

	operand, err := Parse(s.entry)
	if err != nil {
		return err
	}

	if s.pending == nil {
		text := RenderPlain(operand)
		s.breakLine()
		s.sink.AppendLine(text)
		s.sink.ScrollToEnd()
		s.closed = true
		s.entry = text
		out.Applied = true
		out.Resolved = true
		out.Result = operand
		return nil
	}

	s.finish(s.compute(*s.pending, s.acc, operand, out), out)
	return nil
}

func (s *Session) clear(out *Outcome) {
	s.sink.ReplaceAll("")
	s.sink.ScrollToStart()
	s.acc = 0
	s.pending = nil
	s.entry = ""
	s.closed = false
	out.Applied = true
}

// compute executes op and normalises the result. A domain error is
// reported and yields 0.
func (s *Session) compute(op Operation, accumulated, operand float64, out *Outcome) float64 {
	v, ok := Normalize(Execute(op, accumulated, operand))
	if !ok {
		err := &DomainError{Op: op, Operand: accumulated}
		out.Err = err
		s.report(out.Event, err)
		return 0
	}
	return v
}

// finish writes a result line and leaves the session with nothing pending.
func (s *Session) finish(result float64, out *Outcome) {
	text := Render(result, false)
	s.breakLine()
	s.sink.AppendLine(text)
	s.sink.ScrollToEnd()

	s.closed = true
	s.entry = text
	s.acc = 0
	s.pending = nil

	out.Applied = true
	out.Resolved = true
	out.Result = result
}

func (s *Session) write(text string) {
	s.sink.Append(text)
	s.sink.ScrollToEnd()
}

// breakLine terminates an open trailing line.
func (s *Session) breakLine() {
	t := s.sink.Text()
	if t != "" && !strings.HasSuffix(t, "\n") {
		s.sink.AppendLine("")
	}
}

// zeroLine reports whether the trailing line holds only zero padding.
func (s *Session) zeroLine() bool {
	return s.pending == nil && strings.Trim(s.entry, "0") == ""
}

// discardZeroLine drops an open zero line so new input replaces it. After a
// result the next input starts a fresh line anyway.
func (s *Session) discardZeroLine() {
	if s.closed {
		s.closed = false
		s.entry = ""
		return
	}
	if s.entry != "" {
		t := s.sink.Text()
		s.sink.ReplaceAll(t[:strings.LastIndex(t, "\n")+1])
	}
	s.entry = ""
}

func endsWithSymbol(entry string) bool {
	return strings.HasSuffix(entry, PiSymbol) ||
		strings.HasSuffix(entry, ESymbol) ||
		strings.HasSuffix(entry, InfinitySymbol)
}

func endsWithOperand(entry string) bool {
	if entry == "" {
		return false
	}
	if strings.HasSuffix(entry, PiSymbol) || strings.HasSuffix(entry, ESymbol) {
		return true
	}
	r := []rune(entry)
	return unicode.IsDigit(r[len(r)-1])
}
