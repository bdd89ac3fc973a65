package fetch

import (
	"context"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	// User and Password default to anonymous login.
	User       string
	Password   string
	Timeout    time.Duration
	MaxRetries int
}

// FTPFetcher downloads files over FTP, retrying transient failures with the
// same backoff policy as the HTTP fetcher.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.User == "" {
		opts.User = "anonymous"
		opts.Password = "anonymous@"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	return &FTPFetcher{opts: opts}
}

// parseFTPURL splits an FTP URL into a dialable host:port (port 21 when the
// URL names none) and the remote file path.
func parseFTPURL(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrapf(err, "ftp: parse url %s", rawURL)
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("ftp: unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" {
		return "", "", eris.Errorf("ftp: url %s names no file", rawURL)
	}
	port := u.Port()
	if port == "" {
		port = "21"
	}
	return net.JoinHostPort(u.Hostname(), port), u.Path, nil
}

// Download retrieves the file behind ftpURL. Dial, login, and transfer
// failures are retried unless the server answered with a permanent negative
// reply (5xx). The caller must close the returned ReadCloser to release the
// control connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	addr, remote, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < f.opts.MaxRetries; attempt++ {
		rc, err := f.retrieve(ctx, addr, remote)
		if err == nil {
			return rc, nil
		}
		var reply *textproto.Error
		if eris.As(err, &reply) && reply.Code >= 500 {
			return nil, err
		}
		lastErr = err
		zap.L().Warn("ftp transfer failed, retrying",
			zap.String("addr", addr),
			zap.String("path", remote),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		if attempt+1 < f.opts.MaxRetries {
			backoff(ctx, attempt)
		}
	}
	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

// retrieve runs one dial-login-RETR round trip.
func (f *FTPFetcher) retrieve(ctx context.Context, addr, remote string) (io.ReadCloser, error) {
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}
	if err := conn.Login(f.opts.User, f.opts.Password); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp login")
	}
	resp, err := conn.Retr(remote)
	if err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp retrieve")
	}
	return &ftpConnReader{resp: resp, conn: conn}, nil
}

// ftpConnReader ties the data-transfer response to its control connection so
// one Close tears both down, response first.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

// Close drains the transfer reply before quitting the control connection; the
// first failure wins.
func (r *ftpConnReader) Close() error {
	err := r.resp.Close()
	if quitErr := r.conn.Quit(); err == nil {
		err = quitErr
	}
	if err != nil {
		return eris.Wrap(err, "ftp close")
	}
	return nil
}

// DownloadToFile retrieves ftpURL into a local file. Returns bytes written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, ftpURL string, path string) (int64, error) {
	rc, err := f.Download(ctx, ftpURL)
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck

	return saveTo(path, rc)
}
