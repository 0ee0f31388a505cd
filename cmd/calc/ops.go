package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"transcript-calculator/internal/calculator"
)

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "List the supported operations",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TOKEN\tARITY\tECHO")
		for _, op := range calculator.Operations() {
			fmt.Fprintf(w, "%s\t%d\t%s\n", op.Token, op.Arity, op.Echo("x"))
		}
		w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(opsCmd)
}
