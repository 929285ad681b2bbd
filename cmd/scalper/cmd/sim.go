package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
	"github.com/akshayinamdar/LowVolatilityScalper/config"
	"github.com/akshayinamdar/LowVolatilityScalper/logger"
	"github.com/akshayinamdar/LowVolatilityScalper/market"
	"github.com/akshayinamdar/LowVolatilityScalper/sim"
	"github.com/akshayinamdar/LowVolatilityScalper/strategy"
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Drive the strategy against the built-in simulator",
	Long: `Run the strategy against the in-process simulated venue.

A seeded random walk generates the price feed, one simulated minute per
cycle. The same seed reproduces the same run exactly, which makes this
the quickest way to sanity-check a configuration before trading it.

Example:
  scalper sim --config scalper.yaml --minutes 480`,
	RunE: runSim,
}

var (
	simConfigPath string
	simMinutes    int
	simBalance    float64
)

func init() {
	rootCmd.AddCommand(simCmd)

	simCmd.Flags().StringVarP(&simConfigPath, "config", "f", "", "path to config file (required)")
	simCmd.Flags().IntVar(&simMinutes, "minutes", 480, "simulated session length in minutes")
	simCmd.Flags().Float64Var(&simBalance, "balance", 10000, "starting account balance")
	simCmd.MarkFlagRequired("config")
}

// simClock advances one step per cycle instead of tracking the wall clock.
type simClock struct{ now time.Time }

func (c *simClock) Now() time.Time        { return c.now }
func (c *simClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

// walk generates the next mid price: a bounded random step of up to half a
// pip per simulated minute.
func walk(rng *rand.Rand, mid, pip float64) float64 {
	return mid + (rng.Float64()-0.5)*pip
}

func runSim(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(simConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
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

	meta, err := market.Lookup(cfg.Session.Instrument)
	if err != nil {
		return err
	}

	seed := cfg.Session.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Feed randomness is independent of the engine's decision randomness.
	rng := rand.New(rand.NewSource(seed + 1))

	pip := meta.PipSize()
	spread := pip // fixed 1-pip spread
	mid := 1.1000
	if meta.Digits == 3 {
		mid = 150.00
	}

	start := time.Now().UTC().Truncate(time.Minute)
	clock := &simClock{now: start}

	// Pre-roll enough history for the volatility window and the moving
	// average warmup.
	history := cfg.Volatility.PeriodMinutes + cfg.Signal.MAPeriod*3
	candles := make([]market.Candle, 0, history+simMinutes)
	for i := history; i > 0; i-- {
		open := mid
		mid = walk(rng, mid, pip)
		bar := market.Candle{
			Open: open, Close: mid,
			High: max(open, mid), Low: min(open, mid),
			Volume: float64(10 + rng.Intn(90)),
			Time:   start.Add(-time.Duration(i) * time.Minute),
		}
		candles = append([]market.Candle{bar}, candles...)
	}

	venue := sim.NewEngine(broker.Account{
		ID:       "SIM",
		Currency: "USD",
		Balance:  simBalance,
		Equity:   simBalance,
	})
	venue.SetCandles(meta.Name, candles)

	eng, err := strategy.New(cfg, venue,
		strategy.WithJournal(j),
		strategy.WithLogger(log),
		strategy.WithClock(clock),
	)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	fmt.Printf("Simulating %d minutes of %s (seed %d, balance $%.2f)\n\n",
		simMinutes, meta.Name, seed, simBalance)

	ctx := cmd.Context()
	for i := 0; i < simMinutes; i++ {
		venue.SetTick(market.Tick{
			Instrument: meta.Name,
			Time:       clock.now,
			Bid:        meta.RoundPrice(mid - spread/2),
			Ask:        meta.RoundPrice(mid + spread/2),
		})

		if err := eng.Cycle(ctx); err != nil {
			return fmt.Errorf("cycle %d: %w", i, err)
		}

		// Advance one simulated minute and grow the candle history.
		open := mid
		mid = walk(rng, mid, pip)
		bar := market.Candle{
			Open: open, Close: mid,
			High: max(open, mid), Low: min(open, mid),
			Volume: float64(10 + rng.Intn(90)),
			Time:   clock.now,
		}
		candles = append([]market.Candle{bar}, candles...)
		venue.SetCandles(meta.Name, candles)
		clock.now = clock.now.Add(time.Minute)
	}

	acct, err := venue.GetAccount(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Session complete: %s\n", eng.Stats().Summary())
	fmt.Printf("  Balance: $%.2f\n", acct.Balance)
	fmt.Printf("  Equity:  $%.2f\n", acct.Equity)
	fmt.Printf("  P/L:     $%.2f\n", acct.Balance-simBalance)
	return nil
}
