package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"transcript-calculator/internal/config"
	"transcript-calculator/internal/observability"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "calc",
	Short: "calc is a running calculator that keeps a transcript",
	Long: `calc folds button presses into a running calculation and prints the
transcript: every operator, function echo and result line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if slot, _ := cmd.Flags().GetString("slot"); slot != "" {
			cfg.Slot = slot
		}
		return observability.InitLogger(cfg.Log)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		observability.SyncLogger()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("slot", "", "Store slot holding the last value (default $CALC_SLOT)")
}
