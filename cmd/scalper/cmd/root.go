package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scalper",
	Short: "A low-volatility range scalping strategy for FX",
	Long: `Scalper is an automated intraday trading strategy executor.

It trades quiet markets: when the recent price range is tight and the
current price sits inside it, the strategy opens a small position with
fixed protective levels, then manages it with a profit-ratcheting
trailing stop and a time limit on losing trades.

Subcommands:
  run      - Trade live against an OANDA account
  sim      - Drive the strategy against the built-in simulator
  config   - Generate or validate configuration files
  journal  - Inspect a SQLite trade journal
  version  - Print the version number`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
