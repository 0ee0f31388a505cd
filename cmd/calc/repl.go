package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"transcript-calculator/internal/calculator"
	"transcript-calculator/internal/observability"
	"transcript-calculator/internal/store"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Read button presses line by line and print the transcript",
	Long: `repl starts a session on the configured store slot, echoing the last
saved value. Each input line is a whitespace-separated list of buttons; the
transcript is printed after every line. The trailing value is saved on exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		values, err := store.Open(cfg.Store)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer values.Close()

		t := calculator.NewTranscript()
		s := calculator.NewSession(t,
			calculator.WithLogger(observability.Logger),
			calculator.WithStore(values, cfg.Slot),
		)
		s.Start(ctx)
		printTranscript(out, t, "")

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			words := strings.Fields(scanner.Text())
			if len(words) == 0 {
				continue
			}
			if words[0] == "quit" || words[0] == "exit" {
				break
			}
			errMsg := press(s, t, splitTokens(words))
			printTranscript(out, t, errMsg)
		}
		if err := scanner.Err(); err != nil {
			observability.Logger.Warn("reading input failed", zap.Error(err))
		}

		return s.End(ctx)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
