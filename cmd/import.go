package cmd

import (
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/retroshelf/retroshelf/internal/config"
	"github.com/retroshelf/retroshelf/internal/dispatcher"
	"github.com/retroshelf/retroshelf/internal/history"
	"github.com/retroshelf/retroshelf/internal/logger"
	"github.com/retroshelf/retroshelf/internal/maintenance"
	"github.com/retroshelf/retroshelf/internal/service"
	"github.com/retroshelf/retroshelf/internal/storage"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import collection items from a YAML file",
	Long: `Import collection items from a YAML seed file.

The file holds a list of items:

  items:
    - type: console
      name: Sega Saturn
      manufacturer: Sega
      last_maintenance_date: 01/06/2024
      maintenance_interval_months: 6
    - type: accessory
      name: Arcade stick
      subtype: controller`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// importFile is the YAML seed file layout.
type importFile struct {
	Items []importItem `yaml:"items"`
}

type importItem struct {
	Type                string `yaml:"type"`
	Name                string `yaml:"name"`
	Subtype             string `yaml:"subtype"`
	Manufacturer        string `yaml:"manufacturer"`
	Notes               string `yaml:"notes"`
	LastMaintenanceDate string `yaml:"last_maintenance_date"`
	IntervalMonths      int    `yaml:"maintenance_interval_months"`
}

func runImport(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}

	var seed importFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}
	if len(seed.Items) == 0 {
		return fmt.Errorf("seed file %s contains no items", args[0])
	}

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

	itemStore := storage.NewSQLiteItemStore(db)
	hist := history.New(storage.NewSQLiteKVStore(db))

	// The dispatcher is never started here: imported items get their
	// reminders rebuilt by the resync that runs on server startup.
	clock := clockwork.NewRealClock()
	disp, err := dispatcher.NewGocron(clock, func(dispatcher.Payload) {}, log)
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	aggregator := maintenance.NewAggregator(itemStore, clock, log)
	scheduler := maintenance.NewScheduler(disp, hist, clock, log)
	itemSvc := service.NewItemService(itemStore, aggregator, scheduler, nil, clock, log)

	imported := 0
	for i, in := range seed.Items {
		item := &storage.Item{
			Name:                in.Name,
			Type:                storage.ItemType(in.Type),
			Subtype:             in.Subtype,
			Manufacturer:        in.Manufacturer,
			Notes:               in.Notes,
			LastMaintenanceDate: in.LastMaintenanceDate,
			IntervalMonths:      in.IntervalMonths,
		}
		if _, err := itemSvc.CreateItem(cmd.Context(), item); err != nil {
			return fmt.Errorf("importing item %d (%q): %w", i+1, in.Name, err)
		}
		imported++
	}

	fmt.Printf("Imported %d items into %s\n", imported, cfg.DatabasePath())
	return nil
}
