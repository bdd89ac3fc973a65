package main

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/exportlens/exportlens/internal/fetch"
)

var (
	pullDir         string
	pullConcurrency int
)

var pullCmd = &cobra.Command{
	Use:   "pull [urls...]",
	Short: "Download remote export files into a local directory",
	Long: `Fetches export files over HTTP(S) or FTP into a directory so a later
report or export run can ingest them.

Example:
  exportlens pull https://drop.example.com/widgets.csv ftp://drop.example.com/gears.xlsx --dir data/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := os.MkdirAll(pullDir, 0o755); err != nil {
			return eris.Wrapf(err, "pull: create dir %s", pullDir)
		}

		httpFetcher := fetch.NewHTTPFetcher(fetch.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
		})
		ftpFetcher := fetch.NewFTPFetcher(fetch.FTPOptions{
			User:       cfg.Fetch.FTPUser,
			Password:   cfg.Fetch.FTPPassword,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
		})

		concurrency := pullConcurrency
		if concurrency == 0 {
			concurrency = cfg.Fetch.Concurrency
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for _, rawURL := range args {
			rawURL := rawURL
			g.Go(func() error {
				downloader, err := fetch.ForURL(rawURL, httpFetcher, ftpFetcher)
				if err != nil {
					return err
				}

				dest, err := destPath(pullDir, rawURL)
				if err != nil {
					return err
				}

				n, err := downloader.DownloadToFile(gCtx, rawURL, dest)
				if err != nil {
					return eris.Wrapf(err, "pull: download %s", rawURL)
				}
				zap.L().Info("pull: downloaded",
					zap.String("url", rawURL),
					zap.String("path", dest),
					zap.Int64("bytes", n),
				)
				return nil
			})
		}
		return g.Wait()
	},
}

// destPath maps a URL onto a file name inside dir.
func destPath(dir, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "pull: parse url %s", rawURL)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", eris.Errorf("pull: cannot derive file name from %s", rawURL)
	}
	return filepath.Join(dir, name), nil
}

func init() {
	pullCmd.Flags().StringVar(&pullDir, "dir", "data", "directory to download into")
	pullCmd.Flags().IntVar(&pullConcurrency, "concurrency", 0, "parallel downloads (default from config)")
	rootCmd.AddCommand(pullCmd)
}
