package main

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/exportlens/exportlens/internal/filter"
	"github.com/exportlens/exportlens/internal/frame"
	"github.com/exportlens/exportlens/internal/ingest"
	"github.com/exportlens/exportlens/internal/source"
)

// loadSources reads the named files into memory. A directory argument
// expands to its immediate regular files in name order.
func loadSources(paths []string) ([]source.Source, error) {
	var sources []source.Source
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, eris.Wrapf(err, "stat %s", path)
		}

		if info.IsDir() {
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, eris.Wrapf(err, "read dir %s", path)
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				if !e.IsDir() {
					names = append(names, e.Name())
				}
			}
			sort.Strings(names)
			for _, name := range names {
				src, err := loadFile(filepath.Join(path, name))
				if err != nil {
					return nil, err
				}
				sources = append(sources, src)
			}
			continue
		}

		src, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func loadFile(path string) (source.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return source.Source{}, eris.Wrapf(err, "read %s", path)
	}
	return source.Source{Name: filepath.Base(path), Data: data}, nil
}

// criteriaFlags is the common filter flag set of report and export.
type criteriaFlags struct {
	criteriaFile string
	product      string
	destinations []string
	exporters    []string
	importers    []string
	from         string
	to           string
}

func (cf *criteriaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cf.criteriaFile, "criteria", "", "YAML file with filter criteria (flags override)")
	cmd.Flags().StringVar(&cf.product, "product", "", "case-insensitive product name substring")
	cmd.Flags().StringArrayVar(&cf.destinations, "destination", nil, "destination country (repeatable; default: all observed)")
	cmd.Flags().StringArrayVar(&cf.exporters, "exporter", nil, "exporter (repeatable; default: all observed)")
	cmd.Flags().StringArrayVar(&cf.importers, "importer", nil, "importer (repeatable; default: all observed)")
	cmd.Flags().StringVar(&cf.from, "from", "", "start of inclusive date range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&cf.to, "to", "", "end of inclusive date range (YYYY-MM-DD)")
}

// resolve builds the criteria, starting from the criteria file when given
// and overriding with any explicitly set flags.
func (cf *criteriaFlags) resolve(cmd *cobra.Command) (filter.Criteria, error) {
	var c filter.Criteria
	if cf.criteriaFile != "" {
		loaded, err := filter.LoadCriteria(cf.criteriaFile)
		if err != nil {
			return c, err
		}
		c = loaded
	}

	if cmd.Flags().Changed("product") {
		c.ProductSubstring = cf.product
	}
	if cmd.Flags().Changed("destination") {
		c.Destinations = cf.destinations
	}
	if cmd.Flags().Changed("exporter") {
		c.Exporters = cf.exporters
	}
	if cmd.Flags().Changed("importer") {
		c.Importers = cf.importers
	}
	if cf.from != "" {
		t, err := time.Parse("2006-01-02", cf.from)
		if err != nil {
			return c, eris.Wrapf(err, "parse --from %q", cf.from)
		}
		c.DateFrom = &t
	}
	if cf.to != "" {
		t, err := time.Parse("2006-01-02", cf.to)
		if err != nil {
			return c, eris.Wrapf(err, "parse --to %q", cf.to)
		}
		c.DateTo = &t
	}
	return c, nil
}

// runPipeline executes ingest → normalize → filter for the given input paths.
func runPipeline(paths []string, criteria filter.Criteria) (*frame.Frame, filter.Candidates, []ingest.Warning, error) {
	sources, err := loadSources(paths)
	if err != nil {
		return nil, filter.Candidates{}, nil, err
	}

	opts := ingestOptions()
	unified, warnings, err := ingest.Ingest(sources, opts)
	if err != nil {
		return nil, filter.Candidates{}, warnings, err
	}

	view, candidates := filter.Apply(ingest.Normalize(unified, opts), criteria)
	return view, candidates, warnings, nil
}
