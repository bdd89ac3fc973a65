package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/exportlens/exportlens/internal/filter"
	"github.com/exportlens/exportlens/internal/frame"
	"github.com/exportlens/exportlens/internal/ingest"
	"github.com/exportlens/exportlens/internal/report"
)

var (
	reportFlags  criteriaFlags
	reportFormat string
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report [files or dirs...]",
	Short: "Ingest export records and print summary metrics, grouped sums, and the product/exporter pivot",
	Long: `Reads the given CSV/XLS/XLSX files (or ZIP archives of them), applies the
filter criteria, and prints the report.

Examples:
  # Everything in a directory, unfiltered
  exportlens report data/

  # Narrow by product search and date range, JSON output
  exportlens report data/*.csv --product widget --from 2024-01-01 --to 2024-01-31 --format json

  # Criteria from a YAML file, filtered rows written as CSV
  exportlens report exports.zip --criteria q1.yaml --output filtered.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		criteria, err := reportFlags.resolve(cmd)
		if err != nil {
			return err
		}

		view, candidates, warnings, err := runPipeline(args, criteria)
		if err != nil {
			return eris.Wrap(err, "report")
		}

		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "warning: %s: %s\n", warning.File, warning.Message)
		}

		rpt := report.Build(view)

		if reportOutput != "" {
			if err := writeViewCSV(view, reportOutput); err != nil {
				return err
			}
		}

		if reportFormat == "json" {
			return printReportJSON(view, candidates, warnings, rpt)
		}
		printReportTable(view, rpt)
		return nil
	},
}

func init() {
	reportFlags.register(reportCmd)
	reportCmd.Flags().StringVar(&reportFormat, "format", "table", "output format: table or json")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "also write the filtered rows to this CSV file")
	rootCmd.AddCommand(reportCmd)
}

func writeViewCSV(view *frame.Frame, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck
	return view.WriteCSV(f)
}

func printReportJSON(view *frame.Frame, candidates filter.Candidates, warnings []ingest.Warning, rpt *report.Report) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Rows       int               `json:"rows"`
		Warnings   []ingest.Warning  `json:"warnings"`
		Candidates filter.Candidates `json:"candidates"`
		*report.Report
	}{view.NumRows(), warnings, candidates, rpt})
}

func printReportTable(view *frame.Frame, rpt *report.Report) {
	p := message.NewPrinter(language.English)

	p.Printf("Rows: %d\n\n", view.NumRows())
	p.Printf("Total Quantity:       %.2f\n", rpt.Summary.TotalQuantity)
	p.Printf("Total Revenue (USD):  %.2f\n", rpt.Summary.TotalRevenue)
	p.Printf("Avg. Unit Rate (USD): %.2f\n", rpt.Summary.MeanUnitRate)

	printGroup(p, "Quantity by Destination", rpt.QuantityByDestination)
	printGroup(p, "Quantity by Exporter", rpt.QuantityByExporter)
	printGroup(p, "Quantity by Product", rpt.QuantityByProduct)
	printPivot(p, rpt.Pivot)
}

func printGroup(p *message.Printer, title string, totals []report.GroupTotal) {
	fmt.Printf("\n%s\n", title)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, gt := range totals {
		p.Fprintf(w, "  %s\t%.2f\n", gt.Key, gt.Total)
	}
	w.Flush() //nolint:errcheck
}

func printPivot(p *message.Printer, pv report.Pivot) {
	fmt.Printf("\nProduct x Exporter (quantity)\n")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprint(w, "  ")
	for _, e := range pv.Exporters {
		fmt.Fprintf(w, "\t%s", e)
	}
	fmt.Fprintln(w)
	for i, product := range pv.Products {
		fmt.Fprintf(w, "  %s", product)
		for j := range pv.Exporters {
			p.Fprintf(w, "\t%.2f", pv.Cells[i][j])
		}
		fmt.Fprintln(w)
	}
	w.Flush() //nolint:errcheck
}
