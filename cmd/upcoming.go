package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/retroshelf/retroshelf/internal/config"
	"github.com/retroshelf/retroshelf/internal/logger"
	"github.com/retroshelf/retroshelf/internal/maintenance"
	"github.com/retroshelf/retroshelf/internal/storage"
)

var upcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List items due for maintenance soon",
	Long:  "List every item whose next maintenance falls within the next 30 days, or is overdue.",
	RunE:  runUpcoming,
}

func runUpcoming(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewStderrLogger(cfg.SlogLevel())

	db, _, err := storage.NewSQLiteDB(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	aggregator := maintenance.NewAggregator(storage.NewSQLiteItemStore(db), clockwork.NewRealClock(), log)
	entries, err := aggregator.Upcoming(cmd.Context())
	if err != nil {
		return fmt.Errorf("computing due-soon list: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("Nothing due in the next 30 days.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DUE\tIN\tTYPE\tNAME")
	for _, e := range entries {
		due := e.NextMaintenanceDate
		in := fmt.Sprintf("%d days", e.DaysRemaining)
		switch {
		case e.DaysRemaining < 0:
			in = fmt.Sprintf("%d days overdue", -e.DaysRemaining)
		case e.DaysRemaining == 0:
			in = "today"
		case e.DaysRemaining == 1:
			in = "tomorrow"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", due, in, e.Type, e.Name)
	}
	return w.Flush()
}
