package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/exportlens/exportlens/internal/report"
)

var (
	exportFlags  criteriaFlags
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export [files or dirs...]",
	Short: "Ingest export records and write the filtered rows to CSV or SQLite",
	Long: `Runs the same ingest-and-filter pipeline as report and writes the working
view to a file instead of printing aggregates.

Examples:
  exportlens export data/ --output filtered.csv
  exportlens export data/ --product widget --format sqlite --output filtered.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		criteria, err := exportFlags.resolve(cmd)
		if err != nil {
			return err
		}

		view, _, warnings, err := runPipeline(args, criteria)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", warning.File, warning.Message)
		}

		switch exportFormat {
		case "csv":
			if err := writeViewCSV(view, exportOutput); err != nil {
				return err
			}
		case "sqlite":
			if err := report.ExportSQLite(cmd.Context(), view, exportOutput); err != nil {
				return err
			}
		default:
			return eris.Errorf("export: unknown format %q, want csv or sqlite", exportFormat)
		}

		zap.L().Info("export complete",
			zap.String("output", exportOutput),
			zap.String("format", exportFormat),
			zap.Int("rows", view.NumRows()),
		)
		return nil
	},
}

func init() {
	exportFlags.register(exportCmd)
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "output file path (required)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or sqlite")
	_ = exportCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(exportCmd)
}
