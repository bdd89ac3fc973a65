package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/exportlens/exportlens/internal/config"
	"github.com/exportlens/exportlens/internal/ingest"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "exportlens",
	Short: "Explore tabular trade/export records",
	Long:  "Ingests CSV/XLS/XLSX export records (or ZIP archives of them), filters by product, counterparty, and date range, and reports totals, grouped sums, and a product-by-exporter pivot.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// ingestOptions maps the config's ingest section onto pipeline options.
func ingestOptions() ingest.Options {
	return ingest.Options{
		StampProduct: cfg.Ingest.StampProduct,
		DateLayouts:  cfg.Ingest.DateLayouts,
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
