package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akshayinamdar/LowVolatilityScalper/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage strategy configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  scalper config init --output scalper.yaml
  scalper config validate --file scalper.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "scalper.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  scalper sim --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Instrument: %s (strategy %d)\n", cfg.Session.Instrument, cfg.Session.StrategyID)
	fmt.Printf("  Hours: %s-%s UTC, max %d/day, %d open\n",
		cfg.Session.TradeStart, cfg.Session.TradeEnd,
		cfg.Session.MaxDailyTrades, cfg.Session.MaxOpenTrades)
	fmt.Printf("  Signal: %s, sizing: %s\n", cfg.Signal.Mode, cfg.Orders.Sizing)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	return nil
}
