package calculator

import "strings"

// TextSink is the display log a session writes to.
type TextSink interface {
	Text() string
	TrailingLine() string
	Append(text string)
	AppendLine(text string)
	ReplaceAll(text string)
	ScrollToStart()
	ScrollToEnd()
}

// ErrorSink is the error display channel. Messages never become part of
// the transcript.
type ErrorSink interface {
	ShowError(message string)
}

// Scroll positions of a Transcript.
const (
	ScrollStart = "start"
	ScrollEnd   = "end"
)

// Transcript is an in-memory TextSink and ErrorSink.
type Transcript struct {
	text   strings.Builder
	scroll string
	err    string
}

func NewTranscript() *Transcript {
	return &Transcript{scroll: ScrollEnd}
}

func (t *Transcript) Text() string { return t.text.String() }

// TrailingLine returns the last line of the trimmed text, so a line
// terminated by a result still counts as trailing.
func (t *Transcript) TrailingLine() string {
	out := strings.TrimSpace(t.text.String())
	if i := strings.LastIndex(out, "\n"); i >= 0 {
		out = out[i+1:]
	}
	return out
}

// Lines splits the text into display rows, dropping the empty row after a
// terminated line.
func (t *Transcript) Lines() []string {
	s := strings.TrimSuffix(t.text.String(), "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

func (t *Transcript) Append(text string) {
	t.text.WriteString(text)
}

func (t *Transcript) AppendLine(text string) {
	t.text.WriteString(text)
	t.text.WriteByte('\n')
}

func (t *Transcript) ReplaceAll(text string) {
	t.text.Reset()
	t.text.WriteString(text)
}

func (t *Transcript) ScrollToStart() { t.scroll = ScrollStart }

func (t *Transcript) ScrollToEnd() { t.scroll = ScrollEnd }

// Scroll reports the cosmetic scroll position.
func (t *Transcript) Scroll() string { return t.scroll }

func (t *Transcript) ShowError(message string) {
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}
	t.err = message
	t.ScrollToStart()
}

// LastError returns the message currently on the error channel.
func (t *Transcript) LastError() string { return strings.TrimSuffix(t.err, "\n") }

func (t *Transcript) ClearError() { t.err = "" }
