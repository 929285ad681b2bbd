package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akshayinamdar/LowVolatilityScalper/oanda"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Download market data",
}

var dataCandlesCmd = &cobra.Command{
	Use:   "candles",
	Short: "Download OANDA candles and write CSV",
	Long: `Fetch recent candles for an instrument and write them to CSV,
oldest first, for offline inspection or threshold tuning.

Example:
  scalper data candles --instrument EUR_USD --granularity M1 --count 1440 --out eurusd_m1.csv`,
	RunE: runDataCandles,
}

var (
	dataToken       string
	dataPractice    bool
	dataInstrument  string
	dataGranularity string
	dataCount       int
	dataOut         string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataCandlesCmd)

	dataCandlesCmd.Flags().StringVar(&dataToken, "token", "", "OANDA token (or env OANDA_TOKEN)")
	dataCandlesCmd.Flags().BoolVar(&dataPractice, "practice", true, "use the practice environment")
	dataCandlesCmd.Flags().StringVar(&dataInstrument, "instrument", "", "instrument, e.g. EUR_USD (required)")
	dataCandlesCmd.Flags().StringVar(&dataGranularity, "granularity", "M1", "candle granularity, e.g. M1, H1, D")
	dataCandlesCmd.Flags().IntVar(&dataCount, "count", 500, "number of candles (max 5000)")
	dataCandlesCmd.Flags().StringVarP(&dataOut, "out", "o", "", "output CSV path (required)")
	dataCandlesCmd.MarkFlagRequired("instrument")
	dataCandlesCmd.MarkFlagRequired("out")
}

func runDataCandles(cmd *cobra.Command, args []string) error {
	token := dataToken
	if token == "" {
		token = strings.TrimSpace(os.Getenv("OANDA_TOKEN"))
	}
	if token == "" {
		return fmt.Errorf("missing token: set --token or env OANDA_TOKEN")
	}

	// Candle download does not need an account.
	client := oanda.NewClient(token, "", dataPractice)
	candles, err := client.GetCandles(cmd.Context(), dataInstrument, dataGranularity, dataCount)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}

	f, err := os.Create(dataOut)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	// Candles arrive most-recent-first; write oldest first.
	for i := len(candles) - 1; i >= 0; i-- {
		c := candles[i]
		row := []string{
			c.Time.UTC().Format("2006-01-02T15:04:05Z"),
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	fmt.Printf("Wrote %d candles to %s\n", len(candles), dataOut)
	return nil
}
