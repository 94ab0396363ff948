package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/cobra"
	"github.com/username/painthouse/src/config"
	"github.com/username/painthouse/src/database"
	"github.com/username/painthouse/src/logger"
	"github.com/username/painthouse/src/processors"
	"github.com/username/painthouse/src/services"
	"github.com/username/painthouse/src/store"
)

var rootCmd = &cobra.Command{
	Use:   "painthouse",
	Short: "Inventory ledger and stock summary for the PaintHouse shop",
	Long: `painthouse records purchases and sales in an append-only transaction log,
keeps a per-item Inventory Summary in step with it, and derives a FIFO-costed
Sales Summary on demand. Run "painthouse serve" for the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.LoadConfig()
		logger.InitLogger(config.Cfg.LogLevel)
		return config.Cfg.Validate()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore builds the configured backend, wrapped with request metrics.
func openStore(ctx context.Context, cfg *config.AppConfig) (store.TabularStore, error) {
	var backing store.TabularStore
	switch cfg.StoreBackend {
	case config.BackendSheets:
		s, err := store.NewSheetsStore(ctx, store.SheetsConfig{
			SpreadsheetID:   cfg.SpreadsheetID,
			CredentialsPath: cfg.GoogleCredentialsPath,
			Titles: map[store.Table]string{
				store.TransactionHistory: cfg.TransactionSheet,
				store.InventorySummary:   cfg.SummarySheet,
				store.SalesSummary:       cfg.SalesSheet,
			},
		})
		if err != nil {
			return nil, err
		}
		backing = s
	default:
		logger.L.Info("Initializing database...", "path", cfg.DatabasePath)
		if err := database.InitDB(cfg.DatabasePath); err != nil {
			return nil, err
		}
		backing = store.NewSQLiteStore(database.DB)
	}
	return store.Instrument(backing), nil
}

// newService wires the processors and report cache around an open store.
func newService(ts store.TabularStore, cfg *config.AppConfig) services.InventoryService {
	loc := cfg.Location()
	return services.NewInventoryService(
		ts,
		processors.NewSummaryProcessor(),
		processors.NewRebuildProcessor(),
		processors.NewSalesSummaryProcessor(loc),
		cache.New(cfg.ReportCacheTTL, services.CacheCleanupInterval),
		loc,
	)
}

func buildService(ctx context.Context) (services.InventoryService, error) {
	ts, err := openStore(ctx, config.Cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", config.Cfg.StoreBackend, err)
	}
	return newService(ts, config.Cfg), nil
}
