// Package fetcher implements bounded, retried HTTP downloads: the only
// network access point the rest of this module uses.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tuf-go/coretuf/metadata"
)

// Fetcher downloads bytes from urlPath, aborting once more than maxLength
// bytes have been received, and honoring ctx's deadline for the whole
// operation including retries.
type Fetcher interface {
	DownloadFile(ctx context.Context, urlPath string, maxLength int64) ([]byte, error)
}

// HTTPFetcher is the default Fetcher, backed by net/http with exponential
// backoff retry on transient failures.
type HTTPFetcher struct {
	Client        *http.Client
	UserAgent     string
	RetryInterval time.Duration
	MaxRetries    uint64
}

// New returns an HTTPFetcher with the teacher's historical defaults: an
// exponential backoff starting at 200ms with up to 3 retries (4 attempts).
func New() *HTTPFetcher {
	return &HTTPFetcher{
		Client:        &http.Client{},
		RetryInterval: 200 * time.Millisecond,
		MaxRetries:    3,
	}
}

// DownloadFile implements Fetcher. HTTP responses carrying 403 or 404, and
// any DownloadLengthMismatch, are not retried: the resource genuinely
// doesn't exist or the server is misreporting size, and retrying cannot
// help either case.
func (f *HTTPFetcher) DownloadFile(ctx context.Context, urlPath string, maxLength int64) ([]byte, error) {
	var data []byte
	op := func() error {
		d, err := f.downloadOnce(ctx, urlPath, maxLength)
		if err != nil {
			if isTerminal(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		data = d
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	if f.RetryInterval > 0 {
		exp.InitialInterval = f.RetryInterval
	}
	bo := backoff.WithMaxRetries(exp, f.MaxRetries)
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		// backoff.Retry returns the error given to backoff.Permanent already
		// unwrapped, so terminal errors are recognized by their own type.
		if isTerminal(err) {
			return nil, err
		}
		return nil, metadata.ErrDownload{Msg: err.Error()}
	}
	return data, nil
}

func isTerminal(err error) bool {
	var httpErr metadata.ErrDownloadHTTP
	if asErrDownloadHTTP(err, &httpErr) {
		return httpErr.StatusCode == http.StatusForbidden || httpErr.StatusCode == http.StatusNotFound
	}
	_, isLengthMismatch := err.(metadata.ErrDownloadLengthMismatch)
	return isLengthMismatch
}

func asErrDownloadHTTP(err error, out *metadata.ErrDownloadHTTP) bool {
	e, ok := err.(metadata.ErrDownloadHTTP)
	if ok {
		*out = e
	}
	return ok
}

func (f *HTTPFetcher) downloadOnce(ctx context.Context, urlPath string, maxLength int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlPath, nil)
	if err != nil {
		return nil, metadata.ErrDownload{Msg: err.Error()}
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, metadata.ErrDownload{Msg: err.Error()}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, metadata.ErrDownloadHTTP{StatusCode: res.StatusCode, URL: urlPath}
	}

	if header := res.Header.Get("Content-Length"); header != "" {
		length, err := strconv.ParseInt(header, 10, 64)
		if err == nil && length > maxLength {
			return nil, metadata.ErrDownloadLengthMismatch{Msg: fmt.Sprintf("download failed for %s, length %d is larger than expected %d", urlPath, length, maxLength)}
		}
	}

	// Content-Length may be absent, -1, or simply wrong: the authoritative
	// check is how many bytes were actually read.
	data, err := io.ReadAll(io.LimitReader(res.Body, maxLength+1))
	if err != nil {
		return nil, metadata.ErrDownload{Msg: err.Error()}
	}
	if int64(len(data)) > maxLength {
		return nil, metadata.ErrDownloadLengthMismatch{Msg: fmt.Sprintf("download failed for %s, length %d is larger than expected %d", urlPath, len(data), maxLength)}
	}
	return data, nil
}
