package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/retroshelf/retroshelf/internal/api"
	"github.com/retroshelf/retroshelf/internal/config"
	"github.com/retroshelf/retroshelf/internal/dispatcher"
	"github.com/retroshelf/retroshelf/internal/eventbus"
	"github.com/retroshelf/retroshelf/internal/history"
	"github.com/retroshelf/retroshelf/internal/logger"
	"github.com/retroshelf/retroshelf/internal/maintenance"
	"github.com/retroshelf/retroshelf/internal/notification"
	"github.com/retroshelf/retroshelf/internal/server"
	"github.com/retroshelf/retroshelf/internal/service"
	"github.com/retroshelf/retroshelf/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP API server and the maintenance reminder scheduler.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (overrides PORT env var)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}

	log, err := logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel())
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, created, err := storage.NewSQLiteDB(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if created {
		log.Info("created new database", "path", cfg.DatabasePath())
	}

	itemStore := storage.NewSQLiteItemStore(db)
	kvStore := storage.NewSQLiteKVStore(db)
	hist := history.New(kvStore)

	bus := eventbus.New(0)
	defer bus.Close()

	var provider notification.Provider
	if cfg.SMTPEnabled {
		provider = notification.NewSMTPProvider(notification.SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			FromAddr:   cfg.SMTPFrom,
			ToAddrs:    cfg.SMTPTo,
			Encryption: cfg.SMTPEncryption,
		})
	} else {
		provider = notification.NewLogProvider(log)
	}
	bus.Subscribe(notification.NewHandler(provider, log).Handle)

	clock := clockwork.NewRealClock()
	disp, err := dispatcher.NewGocron(clock, func(p dispatcher.Payload) {
		bus.Publish(eventbus.EventReminderFired, map[string]string{
			"item_id":          p.ItemID,
			"item_type":        string(p.ItemType),
			"item_name":        p.ItemName,
			"title":            p.Title,
			"body":             p.Body,
			"maintenance_date": p.MaintenanceDate,
			"tier_days":        strconv.Itoa(p.TierDays),
		})
	}, log)
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	defer func() { _ = disp.Stop() }()

	aggregator := maintenance.NewAggregator(itemStore, clock, log)
	scheduler := maintenance.NewScheduler(disp, hist, clock, log)
	itemSvc := service.NewItemService(itemStore, aggregator, scheduler, bus, clock, log)

	// Dispatcher jobs are in-process only; rebuild them from persisted state.
	if err := itemSvc.ResyncReminders(ctx); err != nil {
		return fmt.Errorf("resyncing reminders: %w", err)
	}
	disp.Start()

	srv := server.New(api.New(itemSvc, hist, log), cfg.Port, log)

	fmt.Fprintf(os.Stderr, "retroshelf server running on http://localhost:%d\n", cfg.Port)
	log.Info("server starting", "port", cfg.Port, "data_dir", cfg.DataDir)
	return srv.Run(ctx)
}
