package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akshayinamdar/LowVolatilityScalper/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display records from a SQLite trade journal.

Subcommands:
  session - List trades recorded for a session
  events  - List lifecycle events for a ticket

Examples:
  scalper journal session <session-id>
  scalper journal events <ticket>`,
}

var journalSessionCmd = &cobra.Command{
	Use:   "session <session-id>",
	Short: "List trades recorded for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalSession,
}

var journalEventsCmd = &cobra.Command{
	Use:   "events <ticket>",
	Short: "List lifecycle events for a ticket",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalEvents,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalSessionCmd)
	journalCmd.AddCommand(journalEventsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./scalper.db", "path to SQLite journal DB")
}

func runJournalSession(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	trades, err := j.Trades(args[0])
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	if len(trades) == 0 {
		fmt.Println("no trades for session")
		return nil
	}

	for _, tr := range trades {
		fmt.Printf("%s  %s %-4s %.2f @ %.5f  sl %.5f  tp %.5f  %s\n",
			tr.Ticket, tr.Instrument, tr.Direction, tr.Volume,
			tr.EntryPrice, tr.StopLoss, tr.TakeProfit,
			tr.OpenTime.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runJournalEvents(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	events, err := j.Events(args[0])
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("no events for ticket")
		return nil
	}

	for _, ev := range events {
		fmt.Printf("%s  %-16s pips %+.1f  price %.5f  %s\n",
			ev.Time.Format("2006-01-02 15:04:05"), ev.Type,
			ev.ProfitPips, ev.Price, ev.Detail)
	}
	return nil
}
