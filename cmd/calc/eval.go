package main

import (
	"github.com/spf13/cobra"

	"transcript-calculator/internal/calculator"
	"transcript-calculator/internal/observability"
)

var evalCmd = &cobra.Command{
	Use:   "eval <token>...",
	Short: "Press the given buttons once and print the transcript",
	Example: `  calc eval 5 + 3 =
  calc eval π sin`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t := calculator.NewTranscript()
		s := calculator.NewSession(t, calculator.WithLogger(observability.Logger))

		errMsg := press(s, t, splitTokens(args))
		printTranscript(cmd.OutOrStdout(), t, errMsg)
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
