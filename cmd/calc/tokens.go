package main

import (
	"fmt"
	"io"
	"strings"

	"transcript-calculator/internal/calculator"
)

// splitTokens turns command-line words into button tokens. Number words
// such as 12.5 become one press per character.
func splitTokens(words []string) []string {
	var tokens []string
	for _, w := range words {
		if isNumberWord(w) {
			for _, r := range w {
				tokens = append(tokens, string(r))
			}
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

func isNumberWord(w string) bool {
	if len(w) < 2 {
		return false
	}
	for _, r := range w {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}

// press runs tokens on s and returns the last error message shown, if any.
func press(s *calculator.Session, t *calculator.Transcript, tokens []string) string {
	var shown string
	for _, tok := range tokens {
		s.Press(tok)
		if msg := t.LastError(); msg != "" {
			shown = msg
		}
	}
	return shown
}

func printTranscript(w io.Writer, t *calculator.Transcript, errMsg string) {
	for _, line := range t.Lines() {
		fmt.Fprintln(w, line)
	}
	if errMsg != "" {
		fmt.Fprintln(w, strings.Repeat("-", 8))
		fmt.Fprintln(w, errMsg)
	}
}
