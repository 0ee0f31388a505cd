package calculator

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"transcript-calculator/internal/store"
)

func newTestSession(opts ...Option) (*Session, *Transcript) {
	tr := NewTranscript()
	return NewSession(tr, opts...), tr
}

func pressAll(s *Session, tokens ...string) Outcome {
	var out Outcome
	for _, tok := range tokens {
		out = s.Press(tok)
	}
	return out
}

func assertText(t *testing.T, tr *Transcript, want string) {
	t.Helper()
	if got := tr.Text(); got != want {
		t.Fatalf("expected transcript %q, got %q", want, got)
	}
}

func TestSessionChaining(t *testing.T) {
	s, tr := newTestSession()

	s.AppendLiteral("5")
	s.ApplyOperator("+")
	s.AppendLiteral("3")
	out := s.Resolve()

	if !out.Resolved || out.Result != 8 {
		t.Fatalf("expected resolved 8, got %+v", out)
	}
	if got := tr.TrailingLine(); got != "8" {
		t.Fatalf("expected trailing line 8, got %q", got)
	}
	assertText(t, tr, "5+3\n8\n")
}

func TestSessionOperatorFoldsPendingOperator(t *testing.T) {
	s, tr := newTestSession()

	pressAll(s, "5", "+", "3", "*", "2", "=")

	assertText(t, tr, "5+3*2\n16\n")
}

func TestSessionOperatorAfterClearIsNoop(t *testing.T) {
	s, tr := newTestSession()
	pressAll(s, "5", "+", "3")

	s.Clear()
	out := s.ApplyOperator("+")

	if out.Applied {
		t.Fatal("expected operator on empty transcript to be refused")
	}
	assertText(t, tr, "")
	if got := s.PendingOperator(); got != "" {
		t.Fatalf("expected no pending operator, got %q", got)
	}
	if got := s.Accumulator(); got != 0 {
		t.Fatalf("expected accumulator 0, got %v", got)
	}
}

func TestSessionOperatorAfterOperatorIsNoop(t *testing.T) {
	s, tr := newTestSession()

	pressAll(s, "5", "+", "*")

	assertText(t, tr, "5+")
	if got := s.PendingOperator(); got != "+" {
		t.Fatalf("expected + to stay pending, got %q", got)
	}
}

func TestSessionDivisionByZero(t *testing.T) {
	s, tr := newTestSession()

	out := pressAll(s, "3", "/", "0", "=")

	var domainErr *DomainError
	if !errors.As(out.Err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", out.Err)
	}
	if got := tr.LastError(); got != "Cannot divide by zero" {
		t.Fatalf("unexpected error message %q", got)
	}
	if !out.Resolved || out.Result != 0 {
		t.Fatalf("expected result 0, got %+v", out)
	}
	if got := s.Accumulator(); got != 0 {
		t.Fatalf("expected accumulator reset to 0, got %v", got)
	}
	assertText(t, tr, "3/0\n0\n")

	// the session keeps working
	pressAll(s, "7", "+", "1", "=")
	assertText(t, tr, "3/0\n0\n7+1\n8\n")
	if got := tr.LastError(); got != "" {
		t.Fatalf("expected error cleared by the next event, got %q", got)
	}
}

func TestSessionFunctionResolvesPendingOperator(t *testing.T) {
	s, tr := newTestSession()

	s.AppendLiteral("5")
	s.ApplyOperator("+")
	s.AppendLiteral("3")
	out := s.ApplyFunction("x²")

	if !out.Resolved || out.Result != 64 {
		t.Fatalf("expected 64, got %+v", out)
	}
	assertText(t, tr, "5+3\n8\n8²\n64\n")
}

func TestSessionFunctionAfterDanglingOperatorIsNoop(t *testing.T) {
	s, tr := newTestSession()

	out := pressAll(s, "5", "+", "sin")

	if out.Applied {
		t.Fatal("expected function after a dangling operator to be refused")
	}
	assertText(t, tr, "5+")
}

func TestSessionSineOfPiNormalizesToZero(t *testing.T) {
	s, tr := newTestSession()

	s.AppendConstant(PiSymbol)
	out := s.ApplyFunction("sin")

	if out.Result != 0 {
		t.Fatalf("expected exactly 0, got %v", out.Result)
	}
	assertText(t, tr, "π\nsin(π)\n0\n")
}

func TestSessionFunctionDomainError(t *testing.T) {
	s, tr := newTestSession()
	pressAll(s, "2", "-", "6", "=")

	out := s.ApplyFunction("√")

	var domainErr *DomainError
	if !errors.As(out.Err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", out.Err)
	}
	if got, want := tr.LastError(), "√ is not eligible for negative input\nWas: -4"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	assertText(t, tr, "2-6\n-4\n√-4\n0\n")
}

func TestSessionFactorialEchoesTruncatedOperand(t *testing.T) {
	s, tr := newTestSession()

	out := pressAll(s, "5", ".", "5", "n!")

	if out.Result != 120 {
		t.Fatalf("expected 120, got %v", out.Result)
	}
	assertText(t, tr, "5.5\n5!\n120\n")
}

func TestSessionRandomIgnoresOperand(t *testing.T) {
	orig := randFloat
	t.Cleanup(func() { randFloat = orig })
	randFloat = func() float64 { return 0.5 }

	s, tr := newTestSession()
	pressAll(s, "7", "rand")

	assertText(t, tr, "7\nrand\n0.5\n")
}

func TestSessionLeadingZeroSuppression(t *testing.T) {
	s, tr := newTestSession()
	s.Start(context.Background())
	assertText(t, tr, "0")

	s.AppendLiteral("7")

	if got := tr.TrailingLine(); got != "7" {
		t.Fatalf("expected trailing line 7, got %q", got)
	}
	assertText(t, tr, "7")
}

func TestSessionZeroResultIsReplacedByNextDigit(t *testing.T) {
	s, tr := newTestSession()

	pressAll(s, "3", "-", "3", "=", "7")

	assertText(t, tr, "3-3\n0\n7")
}

func TestSessionDecimalPoint(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   string
	}{
		{"leading dot gets a zero", []string{".", "5"}, "0.5"},
		{"second dot refused", []string{"1", ".", ".", "5", "."}, "1.5"},
		{"dot after started zero", []string{"0", ".", "2"}, "0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, tr := newTestSession()
			pressAll(s, tt.tokens...)
			assertText(t, tr, tt.want)
		})
	}
}

func TestSessionConstants(t *testing.T) {
	t.Run("digit after constant refused", func(t *testing.T) {
		s, tr := newTestSession()
		out := pressAll(s, PiSymbol, "5")
		if out.Applied {
			t.Fatal("expected digit after π to be refused")
		}
		assertText(t, tr, "π")
	})

	t.Run("constant after digit refused", func(t *testing.T) {
		s, tr := newTestSession()
		pressAll(s, "5", ESymbol)
		assertText(t, tr, "5")
	})

	t.Run("constant as right operand", func(t *testing.T) {
		s, tr := newTestSession()
		out := pressAll(s, "2", "*", PiSymbol, "=")
		if out.Result != 2*math.Pi {
			t.Fatalf("expected 2π, got %v", out.Result)
		}
		assertText(t, tr, "2*π\n6.283185307179586\n")
	})

	t.Run("bare equals shows digits", func(t *testing.T) {
		s, tr := newTestSession()
		pressAll(s, PiSymbol, "=")
		assertText(t, tr, "π\n3.141592653589793\n")
	})
}

func TestSessionOperatorAfterResultReechoesValue(t *testing.T) {
	s, tr := newTestSession()

	pressAll(s, "5", "+", "3", "=", "+", "3")

	assertText(t, tr, "5+3\n8\n8+3")
	if got := s.Accumulator(); got != 8 {
		t.Fatalf("expected accumulator 8, got %v", got)
	}
}

func TestSessionDigitAfterResultStartsNewLine(t *testing.T) {
	s, tr := newTestSession()

	pressAll(s, "5", "+", "3", "=", "2")

	assertText(t, tr, "5+3\n8\n2")
}

func TestSessionEqualsWithoutOperatorRepeats(t *testing.T) {
	s, tr := newTestSession()

	pressAll(s, "5", "=", "=")

	assertText(t, tr, "5\n5\n5\n")
}

func TestSessionEqualsOnEmptyTranscriptIsNoop(t *testing.T) {
	s, tr := newTestSession()

	if out := s.Resolve(); out.Applied {
		t.Fatal("expected equals on empty transcript to be refused")
	}
	assertText(t, tr, "")
}

func TestSessionRejectedEventsRollBack(t *testing.T) {
	tests := []struct {
		name    string
		run     func(*Session) Outcome
		message string
	}{
		{"unknown operator", func(s *Session) Outcome { return s.Press("mod") }, `Error: unknown operation "mod"`},
		{"function as operator", func(s *Session) Outcome { return s.ApplyOperator("sin") }, `Error: unknown operation "sin"`},
		{"operator as function", func(s *Session) Outcome { return s.ApplyFunction("+") }, `Error: unknown operation "+"`},
		{"invalid literal", func(s *Session) Outcome { return s.AppendLiteral("x") }, `Error: invalid literal "x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, tr := newTestSession()
			pressAll(s, "5", "+", "3")

			out := tt.run(s)

			if out.Applied || out.Err == nil {
				t.Fatalf("expected rejected event with error, got %+v", out)
			}
			if got := tr.LastError(); got != tt.message {
				t.Fatalf("expected %q, got %q", tt.message, got)
			}
			assertText(t, tr, "5+3")
			if got := s.PendingOperator(); got != "+" {
				t.Fatalf("expected + pending, got %q", got)
			}
		})
	}
}

// panickySink fails on one specific write.
type panickySink struct {
	*Transcript
	on string
}

func (p *panickySink) Append(text string) {
	if text == p.on {
		panic("display gone")
	}
	p.Transcript.Append(text)
}

func TestSessionRecoversFromPanics(t *testing.T) {
	tr := NewTranscript()
	s := NewSession(&panickySink{Transcript: tr, on: "+"})

	s.Press("5")
	out := s.Press("+")

	if out.Applied || out.Err == nil {
		t.Fatalf("expected recovered failure, got %+v", out)
	}
	if got := tr.LastError(); got != "Error: display gone" {
		t.Fatalf("unexpected error message %q", got)
	}
	assertText(t, tr, "5")
	if got := s.PendingOperator(); got != "" {
		t.Fatalf("expected no pending operator after rollback, got %q", got)
	}
}

func TestSessionClear(t *testing.T) {
	s, tr := newTestSession()
	pressAll(s, "5", "+", "3")

	out := s.Press(ClearToken)

	if !out.Applied {
		t.Fatal("expected clear to apply")
	}
	assertText(t, tr, "")
	if got := tr.Scroll(); got != ScrollStart {
		t.Fatalf("expected scroll to start, got %q", got)
	}

	pressAll(s, "2", "=")
	assertText(t, tr, "2\n2\n")
}

func TestSessionErrorSinkOption(t *testing.T) {
	var shown []string
	s := NewSession(NewTranscript(), WithErrorSink(errorSinkFunc(func(msg string) {
		shown = append(shown, msg)
	})))

	pressAll(s, "1", "/", "0", "=")

	if len(shown) != 1 || shown[0] != "Cannot divide by zero" {
		t.Fatalf("unexpected errors %q", shown)
	}
}

type errorSinkFunc func(string)

func (f errorSinkFunc) ShowError(msg string) { f(msg) }

// ---------------------------------------------------------------------------
// Persistence
// ---------------------------------------------------------------------------

func TestSessionStartEchoesStoredValue(t *testing.T) {
	ctx := context.Background()
	values := store.NewMemory()
	if err := values.SaveLastValue(ctx, "desk", "42"); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	s, tr := newTestSession(WithStore(values, "desk"))
	s.Start(ctx)
	assertText(t, tr, "42")

	pressAll(s, "+", "8", "=")
	assertText(t, tr, "42+8\n50\n")

	if err := s.End(ctx); err != nil {
		t.Fatalf("end: %v", err)
	}
	got, err := values.LoadLastValue(ctx, "desk")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != "50" {
		t.Fatalf("expected stored 50, got %q", got)
	}
}

func TestSessionStartRendersStoredConstantsAndInfinity(t *testing.T) {
	ctx := context.Background()
	values := store.NewMemory()

	tests := []struct {
		stored string
		want   string
	}{
		{"3.141592653589793", PiSymbol},
		{"+Inf", InfinitySymbol},
		{"2.5", "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.stored, func(t *testing.T) {
			if err := values.SaveLastValue(ctx, "slot", tt.stored); err != nil {
				t.Fatalf("seeding store: %v", err)
			}
			s, tr := newTestSession(WithStore(values, "slot"))
			s.Start(ctx)
			assertText(t, tr, tt.want)
		})
	}
}

func TestSessionStartFallsBackToZero(t *testing.T) {
	ctx := context.Background()
	values := store.NewMemory()
	if err := values.SaveLastValue(ctx, "desk", "not a number"); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	core, logs := observer.New(zap.WarnLevel)
	s, tr := newTestSession(WithStore(values, "desk"), WithLogger(zap.New(core)))
	s.Start(ctx)

	assertText(t, tr, "0")
	if n := logs.FilterMessage("stored value is not a number").Len(); n != 1 {
		t.Fatalf("expected one warning, got %d", n)
	}
}

func TestSessionStartWithEmptySlotIsZero(t *testing.T) {
	s, tr := newTestSession(WithStore(store.NewMemory(), "fresh"))
	s.Start(context.Background())

	assertText(t, tr, "0")
}

func TestSessionEndSavesAccumulatorWhileOperatorPending(t *testing.T) {
	ctx := context.Background()
	values := store.NewMemory()
	s, _ := newTestSession(WithStore(values, "desk"))
	s.Start(ctx)

	pressAll(s, "1", "2", "+")

	if err := s.End(ctx); err != nil {
		t.Fatalf("end: %v", err)
	}
	if got, _ := values.LoadLastValue(ctx, "desk"); got != "12" {
		t.Fatalf("expected stored 12, got %q", got)
	}
}

func TestSessionEndAfterClearSavesNothing(t *testing.T) {
	ctx := context.Background()
	values := store.NewMemory()
	if err := values.SaveLastValue(ctx, "desk", "9"); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	s, _ := newTestSession(WithStore(values, "desk"))
	s.Start(ctx)

	s.Clear()
	if err := s.End(ctx); err != nil {
		t.Fatalf("end: %v", err)
	}
	if got, _ := values.LoadLastValue(ctx, "desk"); got != "9" {
		t.Fatalf("expected untouched 9, got %q", got)
	}
}

func TestSessionEndPersistsConstantsExactly(t *testing.T) {
	ctx := context.Background()
	values := store.NewMemory()
	s, _ := newTestSession(WithStore(values, "desk"))

	s.Press(PiSymbol)
	if err := s.End(ctx); err != nil {
		t.Fatalf("end: %v", err)
	}
	got, _ := values.LoadLastValue(ctx, "desk")
	if got != "3.141592653589793" {
		t.Fatalf("expected full precision π, got %q", got)
	}
}

type failingStore struct{}

func (failingStore) LoadLastValue(context.Context, string) (string, error) {
	return "", errors.New("backend down")
}

func (failingStore) SaveLastValue(context.Context, string, string) error {
	return errors.New("backend down")
}

func TestSessionStoreFailures(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	s, tr := newTestSession(WithStore(failingStore{}, "desk"), WithLogger(zap.New(core)))

	s.Start(ctx)
	assertText(t, tr, "0")
	if n := logs.FilterMessage("loading stored value failed").Len(); n != 1 {
		t.Fatalf("expected one load warning, got %d", n)
	}

	s.Press("4")
	err := s.End(ctx)
	if err == nil || !strings.Contains(err.Error(), "save last value") {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
}

func TestSessionWithoutStoreIgnoresPersistence(t *testing.T) {
	s, tr := newTestSession()

	s.Start(context.Background())
	s.Press("4")

	assertText(t, tr, "4")
	if err := s.End(context.Background()); err != nil {
		t.Fatalf("end: %v", err)
	}
}
