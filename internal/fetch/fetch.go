package fetch

import (
	"context"
	"io"
	"math"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Downloader saves one remote file to a local path.
type Downloader interface {
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// ForURL picks the fetcher matching the URL scheme.
func ForURL(rawURL string, httpFetcher *HTTPFetcher, ftpFetcher *FTPFetcher) (Downloader, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return httpFetcher, nil
	case "ftp":
		return ftpFetcher, nil
	default:
		return nil, eris.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}
}

// backoff sleeps exponentially in attempt with jitter, capped at 30 seconds,
// returning early when ctx ends.
func backoff(ctx context.Context, attempt int) {
	base := time.Second
	maxBackoff := 30 * time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	d += time.Duration(rand.Int63n(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// saveTo copies r into a newly created file at path and reports bytes written.
func saveTo(path string, r io.Reader) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, r)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}
	return n, nil
}
