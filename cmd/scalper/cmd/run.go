package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/akshayinamdar/LowVolatilityScalper/config"
	"github.com/akshayinamdar/LowVolatilityScalper/journal"
	"github.com/akshayinamdar/LowVolatilityScalper/logger"
	"github.com/akshayinamdar/LowVolatilityScalper/metrics"
	"github.com/akshayinamdar/LowVolatilityScalper/oanda"
	"github.com/akshayinamdar/LowVolatilityScalper/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Trade live against an OANDA account",
	Long: `Run the strategy against OANDA's v20 REST API.

The OANDA token and account ID come from the config file or from the
OANDA_TOKEN and OANDA_ACCOUNT_ID environment variables. The strategy
runs until interrupted.

Example:
  scalper run --config scalper.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runInterval   time.Duration
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (required)")
	runCmd.Flags().DurationVar(&runInterval, "interval", 5*time.Second, "cycle cadence")
	runCmd.MarkFlagRequired("config")
}

// newJournal builds the journal backend the config asks for.
func newJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.EventsFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	token := cfg.Oanda.Token
	if token == "" {
		token = os.Getenv("OANDA_TOKEN")
	}
	accountID := cfg.Oanda.AccountID
	if accountID == "" {
		accountID = os.Getenv("OANDA_ACCOUNT_ID")
	}
	if token == "" || accountID == "" {
		return fmt.Errorf("OANDA token and account ID are required (config or environment)")
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	j, err := newJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	if cfg.Metrics.Enabled {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer srv.Close()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics listening")
	}

	venue := oanda.NewClient(token, accountID, cfg.Oanda.Practice)

	eng, err := strategy.New(cfg, venue,
		strategy.WithJournal(j),
		strategy.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("session", eng.SessionID()).
		Bool("practice", cfg.Oanda.Practice).
		Dur("interval", runInterval).
		Msg("starting live run")

	if err := eng.Run(ctx, runInterval); err != nil && ctx.Err() == nil {
		return err
	}

	fmt.Println(eng.Stats().Summary())
	return nil
}
